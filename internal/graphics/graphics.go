// Package graphics detects the GPU vendor and writes the translation
// layer's tuning artefacts: dxvk.conf at the game root and sourceable
// environment scripts under the config dir.
package graphics

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Vendor is the dominant GPU vendor of the host.
type Vendor string

const (
	VendorNvidia  Vendor = "nvidia"
	VendorAMD     Vendor = "amd"
	VendorIntel   Vendor = "intel"
	VendorUnknown Vendor = "unknown"
)

// ListPCI returns the host's PCI device listing. Swappable for tests.
type ListPCI func(ctx context.Context) (string, error)

// LspciList shells out to lspci. A missing lspci is not fatal: the
// caller falls back to the common tuning block.
func LspciList(ctx context.Context) (string, error) {
	path, err := exec.LookPath("lspci")
	if err != nil {
		return "", fmt.Errorf("lspci not found on PATH: %w", err)
	}
	out, err := exec.CommandContext(ctx, path, "-nnk").Output()
	if err != nil {
		return "", fmt.Errorf("running lspci: %w", err)
	}
	return string(out), nil
}

// DetectVendor classifies the host GPU from the PCI listing. Only VGA
// and 3D controller lines are considered; discrete NVIDIA/AMD wins
// over an integrated Intel GPU.
func DetectVendor(ctx context.Context, list ListPCI) Vendor {
	out, err := list(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("GPU vendor detection unavailable")
		return VendorUnknown
	}

	vendor := VendorUnknown
	for _, line := range strings.Split(out, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "vga compatible controller") && !strings.Contains(lower, "3d controller") {
			continue
		}
		switch {
		case strings.Contains(lower, "nvidia"):
			return VendorNvidia
		case strings.Contains(lower, "amd") || strings.Contains(lower, "ati") || strings.Contains(lower, "advanced micro devices"):
			vendor = VendorAMD
		case strings.Contains(lower, "intel") && vendor == VendorUnknown:
			vendor = VendorIntel
		}
	}
	return vendor
}

// dxvkConf is the fixed tuning block for the game root. Overwritten
// wholesale on reset; local edits are not merged.
const dxvkConf = `# Managed by azeroth-winebar. Edits are overwritten on reset.
dxvk.enableStateCache = True
dxvk.useAsync = True
dxvk.numCompilerThreads = 0
dxvk.numAsyncThreads = 0
dxgi.maxFrameLatency = 1
dxgi.syncInterval = 0
`

// WriteDXVKConf writes dxvk.conf at the game root.
func WriteDXVKConf(gamePath string) error {
	if err := os.MkdirAll(gamePath, 0o755); err != nil {
		return fmt.Errorf("creating game dir: %w", err)
	}
	path := filepath.Join(gamePath, "dxvk.conf")
	if err := atomicWrite(path, []byte(dxvkConf)); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("dxvk.conf written")
	return nil
}

// GraphicsEnvScript renders graphics_env.sh: a common state-cache
// block, one vendor block, and the shared performance block.
func GraphicsEnvScript(vendor Vendor, configDir string) string {
	cacheDir := filepath.Join(configDir, "shader-cache")

	var b strings.Builder
	b.WriteString("# Managed by azeroth-winebar. Source before launching.\n\n")

	b.WriteString("# Translation-layer state caches\n")
	fmt.Fprintf(&b, "export DXVK_STATE_CACHE_PATH=%q\n", cacheDir)
	fmt.Fprintf(&b, "export VKD3D_SHADER_CACHE_PATH=%q\n", cacheDir)
	b.WriteString("export DXVK_HUD=compiler\n\n")

	switch vendor {
	case VendorNvidia:
		b.WriteString("# NVIDIA\n")
		b.WriteString("export __GL_SHADER_DISK_CACHE=1\n")
		b.WriteString("export __GL_SHADER_DISK_CACHE_SKIP_CLEANUP=1\n")
		fmt.Fprintf(&b, "export __GL_SHADER_DISK_CACHE_PATH=%q\n", cacheDir)
		b.WriteString("export __GL_THREADED_OPTIMIZATIONS=1\n")
		b.WriteString("export DXVK_NVAPI_DRIVER_VERSION=99999\n\n")
	case VendorAMD:
		b.WriteString("# AMD\n")
		b.WriteString("export RADV_PERFTEST=sam,nggc\n")
		b.WriteString("export AMD_VULKAN_ICD=RADV\n")
		b.WriteString("export MESA_VK_VERSION_OVERRIDE=1.3\n\n")
	case VendorIntel:
		b.WriteString("# Intel\n")
		b.WriteString("export ANV_ENABLE_PIPELINE_CACHE=1\n")
		b.WriteString("export MESA_VK_VERSION_OVERRIDE=1.3\n\n")
	}

	b.WriteString("# Performance\n")
	b.WriteString("export WINE_LARGE_ADDRESS_AWARE=1\n")
	b.WriteString("# Uncomment and adjust to pin the game to big cores:\n")
	b.WriteString("# export WINE_CPU_TOPOLOGY=8:0,1,2,3,4,5,6,7\n")
	return b.String()
}

// wineEnvScript is consumed by the launch helper alongside
// graphics_env.sh; it carries the runtime-side switches.
const wineEnvScript = `# Managed by azeroth-winebar. Source before launching.

export WINEDLLOVERRIDES="nvcuda,nvcuvid,nvencodeapi,nvencodeapi64=d"
export WINEESYNC=1
export WINEFSYNC=1
export STAGING_SHARED_MEMORY=1
export STAGING_WRITECOPY=1
`

// WriteEnvScripts writes graphics_env.sh and wine_env.sh under the
// config dir and creates the shared shader-cache directory.
func WriteEnvScripts(vendor Vendor, configDir string) error {
	if err := os.MkdirAll(filepath.Join(configDir, "shader-cache"), 0o755); err != nil {
		return fmt.Errorf("creating shader cache dir: %w", err)
	}
	if err := atomicWrite(filepath.Join(configDir, "graphics_env.sh"), []byte(GraphicsEnvScript(vendor, configDir))); err != nil {
		return err
	}
	if err := atomicWrite(filepath.Join(configDir, "wine_env.sh"), []byte(wineEnvScript)); err != nil {
		return err
	}
	log.Info().Str("vendor", string(vendor)).Msg("environment scripts written")
	return nil
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing %s: %w", filepath.Base(path), err)
	}
	return nil
}
