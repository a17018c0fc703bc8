package domain

import "time"

// RuntimeKind identifies which upstream project a runtime comes from.
// The kind determines the release feed, archive format and the
// environment variables set when the runtime is invoked.
type RuntimeKind string

const (
	KindVendorExperimental RuntimeKind = "vendor-experimental"
	KindProtonGE           RuntimeKind = "proton-ge"
	KindProtonCachyOS      RuntimeKind = "proton-cachyos"
	KindWineTKG            RuntimeKind = "wine-tkg"

	// KindCustom is recorded for manifests written by hand or by older
	// versions of the tool.
	KindCustom RuntimeKind = "custom"
)

// VendorExperimentalID is the built-in runtime id that the catalogue
// falls back to whenever the configured default is removed or unset.
const VendorExperimentalID = "vendor-experimental"

// ParseRuntimeKind maps a manifest string to a RuntimeKind.
// Unknown strings map to KindCustom.
func ParseRuntimeKind(s string) RuntimeKind {
	switch RuntimeKind(s) {
	case KindVendorExperimental, KindProtonGE, KindProtonCachyOS, KindWineTKG:
		return RuntimeKind(s)
	default:
		return KindCustom
	}
}

// IsProtonStyle reports whether the runtime expects Steam compat-tool
// environment variables (STEAM_COMPAT_*) when it boots a prefix.
func (k RuntimeKind) IsProtonStyle() bool {
	return k == KindVendorExperimental || k == KindProtonGE || k == KindProtonCachyOS
}

// Runtime is an installed compatibility runtime under the runners root.
type Runtime struct {
	ID          string
	Kind        RuntimeKind
	SourceURL   string
	InstallRoot string
	WineBinary  string
	InstalledAt time.Time
}

// Prefix is an isolated 64-bit Win32 root managed by the Prefix Manager.
type Prefix struct {
	Path        string
	Initialised bool
	RuntimeID   string
}
