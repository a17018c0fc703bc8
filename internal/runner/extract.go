package runner

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
)

// extractTar unpacks a tar archive (gzip or xz compressed) into
// destDir, stripping the single leading path component so the result
// lands directly under destDir.
func extractTar(archivePath string, format ArchiveFormat, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	var decompressed io.Reader
	switch format {
	case FormatGzTar:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: not a gzip archive: %v", domain.ErrEnvUnsupported, err)
		}
		defer gz.Close()
		decompressed = gz
	case FormatXzTar:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: not an xz archive: %v", domain.ErrEnvUnsupported, err)
		}
		decompressed = xzr
	default:
		return fmt.Errorf("%w: unsupported archive format %q", domain.ErrEnvUnsupported, format)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	tr := tar.NewReader(decompressed)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}
		if err := extractEntry(tr, hdr, destDir); err != nil {
			return err
		}
	}
}

// extractEntry writes one tar entry under destDir with the first path
// component stripped.
func extractEntry(tr *tar.Reader, hdr *tar.Header, destDir string) error {
	name := stripComponent(hdr.Name)
	if name == "" {
		// The archive's top-level directory itself.
		return nil
	}

	destPath, err := sanitizePath(destDir, name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(destPath, 0o755)

	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", name, err)
		}
		// Relative link targets may point anywhere inside the archive;
		// absolute ones are rejected outright.
		if filepath.IsAbs(hdr.Linkname) {
			return fmt.Errorf("absolute symlink in archive: %s -> %s", name, hdr.Linkname)
		}
		os.Remove(destPath)
		if err := os.Symlink(hdr.Linkname, destPath); err != nil {
			return fmt.Errorf("creating symlink %s: %w", name, err)
		}
		return nil

	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", name, err)
		}
		out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
		if err != nil {
			return fmt.Errorf("creating file %s: %w", destPath, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("writing file %s: %w", destPath, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("closing file %s: %w", destPath, err)
		}
		return nil

	default:
		// Hard links, devices and the like do not occur in runtime
		// archives; skip rather than fail.
		return nil
	}
}

// stripComponent removes the first path component from a tar entry name.
func stripComponent(name string) string {
	name = strings.TrimPrefix(name, "./")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return strings.TrimPrefix(name[i+1:], "/")
	}
	return ""
}

// sanitizePath guards against entries escaping destDir via "..".
func sanitizePath(destDir, name string) (string, error) {
	destPath := filepath.Join(destDir, filepath.Clean(name))
	prefix := filepath.Clean(destDir) + string(os.PathSeparator)
	if !strings.HasPrefix(destPath+string(os.PathSeparator), prefix) {
		return "", fmt.Errorf("path traversal detected: %s", name)
	}
	return destPath, nil
}
