package resolver

import (
	"slices"

	"github.com/ralt/relserve/internal/platform"
	"github.com/ralt/relserve/internal/release"
)

// SelectAsset picks the asset of rel a legacy platform tag should receive.
//
// A tag asking for the universal variant only ever gets a universal asset.
// Otherwise, when preferUniversal is set and the platform is osx, a universal
// asset wins over the exact architecture. Without an explicit ext the
// platform's default download extensions apply. Ties go to the first asset
// in release order. When nothing matches the architecture exactly, an asset
// whose filename names no architecture is used.
//
// An undecodable tag is an ErrUnsupportedPlatform error, no match is a nil
// asset.
func SelectAsset(rel *release.Release, tag string, preferUniversal bool, ext string) (*release.Asset, error) {
	p, err := platform.Decode(tag)
	if err != nil {
		return nil, err
	}

	exts := platform.DownloadExtensions(p.OS, p.Package)
	if ext != "" {
		exts = []string{ext}
	}
	return selectAsset(rel, p, preferUniversal, exts), nil
}

func selectAsset(rel *release.Release, p platform.Platform, preferUniversal bool, exts []string) *release.Asset {
	if p.Arch == platform.ArchUniversal {
		return findLegacy(rel, exts, func(l platform.Platform) bool {
			return l.OS == p.OS && l.Arch == platform.ArchUniversal
		})
	}

	if preferUniversal && p.OS == platform.OSX {
		universal := findLegacy(rel, exts, func(l platform.Platform) bool {
			return l.OS == p.OS && l.Arch == platform.ArchUniversal
		})
		if universal != nil {
			return universal
		}
	}

	exact := findLegacy(rel, exts, func(l platform.Platform) bool {
		return l == p
	})
	if exact != nil {
		return exact
	}

	// An installer named without any architecture ("AppSetup.exe") serves
	// every architecture of its platform.
	for _, a := range rel.Assets {
		if a.ArchitectureKnown() || !hasExtension(a, exts) {
			continue
		}
		if l := a.Legacy(); l.OS == p.OS && l.Package == p.Package {
			return a
		}
	}
	return nil
}

func findLegacy(rel *release.Release, exts []string, match func(platform.Platform) bool) *release.Asset {
	for _, a := range rel.Assets {
		if hasExtension(a, exts) && match(a.Legacy()) {
			return a
		}
	}
	return nil
}

func hasExtension(a *release.Asset, exts []string) bool {
	return len(exts) == 0 || slices.Contains(exts, a.Extension)
}

// platformOf derives the legacy platform of a bare filename
func platformOf(filename string) platform.Platform {
	os, _ := platform.OperatingSystemFor(filename)
	pkg, _ := platform.PackageFormatFor(filename)
	return platform.Platform{OS: os, Arch: platform.LegacyArchitectureFor(filename), Package: pkg}
}
