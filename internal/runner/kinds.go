// Package runner maintains the catalogue of installed compatibility
// runtimes: enumerating upstream release feeds, downloading and
// verifying archives, installing them atomically under the runners
// root, and tracking the default runtime.
package runner

import (
	"fmt"

	"github.com/ColbyWanShinobi/azeroth-winebar/internal/domain"
)

// ArchiveFormat is the expected archive encoding of a release asset.
type ArchiveFormat string

const (
	FormatGzTar ArchiveFormat = "gz-tar"
	FormatXzTar ArchiveFormat = "xz-tar"
)

// suffix returns the asset filename suffix for the format.
func (f ArchiveFormat) suffix() string {
	switch f {
	case FormatGzTar:
		return ".tar.gz"
	case FormatXzTar:
		return ".tar.xz"
	default:
		return ""
	}
}

// KindDescriptor describes one runtime source known at build time.
type KindDescriptor struct {
	Kind        domain.RuntimeKind
	DisplayName string
	// FeedURL is the upstream releases feed; empty for the vendor
	// runtime, which is located on disk instead of downloaded.
	FeedURL string
	Format  ArchiveFormat
	// TagPrefix filters feed tags; empty keeps everything.
	TagPrefix string
	// WineCandidates are the relative paths probed for the wine binary
	// after extraction, in preference order. Upstream projects do not
	// agree on a layout.
	WineCandidates []string
}

// kinds is the fixed source set, in menu order.
var kinds = []KindDescriptor{
	{
		Kind:           domain.KindVendorExperimental,
		DisplayName:    "Proton Experimental (Steam)",
		WineCandidates: []string{"files/bin/wine", "dist/bin/wine"},
	},
	{
		Kind:           domain.KindProtonGE,
		DisplayName:    "GE-Proton (GloriousEggroll)",
		FeedURL:        "https://api.github.com/repos/GloriousEggroll/proton-ge-custom/releases",
		Format:         FormatGzTar,
		WineCandidates: []string{"files/bin/wine", "dist/bin/wine"},
	},
	{
		Kind:           domain.KindProtonCachyOS,
		DisplayName:    "Proton-CachyOS",
		FeedURL:        "https://api.github.com/repos/CachyOS/proton-cachyos/releases",
		Format:         FormatXzTar,
		WineCandidates: []string{"files/bin/wine", "dist/bin/wine"},
	},
	{
		Kind:           domain.KindWineTKG,
		DisplayName:    "Wine-TKG",
		FeedURL:        "https://api.github.com/repos/Frogging-Family/wine-tkg-git/releases",
		Format:         FormatGzTar,
		TagPrefix:      "wine-",
		WineCandidates: []string{"bin/wine", "usr/bin/wine"},
	},
}

// ListSources returns the fixed set of runtime sources.
func ListSources() []KindDescriptor {
	out := make([]KindDescriptor, len(kinds))
	copy(out, kinds)
	return out
}

// DescriptorFor returns the descriptor for a kind.
func DescriptorFor(kind domain.RuntimeKind) (KindDescriptor, error) {
	for _, d := range kinds {
		if d.Kind == kind {
			return d, nil
		}
	}
	return KindDescriptor{}, fmt.Errorf("unknown runtime kind %q", kind)
}
