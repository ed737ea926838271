package release

import "github.com/ralt/relserve/internal/platform"

// AssetQuery selects assets. Zero-valued fields match everything.
type AssetQuery struct {
	OS platform.OperatingSystem

	// Architecture is the legacy single-valued architecture, matched exactly
	Architecture platform.LegacyArchitecture

	// Architectures must all be supported by the asset
	Architectures platform.ArchitectureSet

	Package    platform.PackageFormat
	Filename   string
	Extensions []string
}

// ReleaseQuery selects releases having at least one asset matching the
// embedded AssetQuery.
type ReleaseQuery struct {
	// Channel is matched exactly, "" and "*" match every channel
	Channel string

	// Version is a semver range, "" and "latest" match every version
	Version string

	AssetQuery
}
