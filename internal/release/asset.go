// Package release holds the in-memory release model: classified assets,
// releases with derived channels, and the version-ordered collection the
// resolver queries.
package release

import (
	"slices"

	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/platform"
)

// Asset is a backend asset plus everything derived from its filename
type Asset struct {
	ID          string
	Filename    string
	Size        int64
	ContentType string
	Raw         any

	OS            platform.OperatingSystem
	Architectures platform.ArchitectureSet
	Architecture  platform.LegacyArchitecture
	Package       platform.PackageFormat
	Extension     string

	// PlatformTag is the legacy tag: the backend-supplied one when it
	// decodes, else the encoding of the derived attributes. It is empty for
	// assets with no legacy representation.
	PlatformTag platform.Tag

	legacy platform.Platform
	// archKnown is false when the legacy architecture is only the default
	archKnown bool
}

// NewAsset classifies dto. It fails when no operating system can be
// derived from the filename.
func NewAsset(dto models.AssetDTO) (*Asset, error) {
	os, ok := platform.OperatingSystemFor(dto.Filename)
	if !ok {
		return nil, models.NewError(models.ErrUnsupportedPlatform, dto.Filename,
			"cannot determine operating system")
	}
	pkg, _ := platform.PackageFormatFor(dto.Filename)

	a := &Asset{
		ID:            dto.ID,
		Filename:      dto.Filename,
		Size:          dto.Size,
		ContentType:   dto.ContentType,
		Raw:           dto.Raw,
		OS:            os,
		Architectures: platform.ArchitecturesFor(dto.Filename),
		Architecture:  platform.LegacyArchitectureFor(dto.Filename),
		Package:       pkg,
		Extension:     platform.ExtensionOf(dto.Filename),
	}

	a.legacy = platform.Platform{OS: a.OS, Arch: a.Architecture, Package: a.Package}
	a.archKnown = platform.HasArchitectureToken(dto.Filename)
	if dto.Type != "" {
		if p, err := platform.Decode(dto.Type); err == nil {
			a.legacy = p
			a.archKnown = true
		}
	}
	a.PlatformTag = a.legacy.Tag()

	return a, nil
}

// Legacy returns the (os, architecture, package) triple older clients match on
func (a *Asset) Legacy() platform.Platform {
	return a.legacy
}

// ArchitectureKnown reports whether the legacy architecture comes from the
// filename or the backend rather than the 64-bit default. Assets without one
// serve every architecture of their platform.
func (a *Asset) ArchitectureKnown() bool {
	return a.archKnown
}

// DTO converts the asset back into its backend-neutral form
func (a *Asset) DTO() models.AssetDTO {
	return models.AssetDTO{
		ID:          a.ID,
		Filename:    a.Filename,
		Size:        a.Size,
		ContentType: a.ContentType,
		Type:        string(a.PlatformTag),
		Raw:         a.Raw,
	}
}

// SatisfiesQuery reports whether the asset matches every set field of q
func (a *Asset) SatisfiesQuery(q AssetQuery) bool {
	if q.OS != "" && a.OS != q.OS {
		return false
	}
	if q.Architecture != "" && a.Architecture != q.Architecture {
		return false
	}
	if !a.Architectures.ContainsAll(q.Architectures) {
		return false
	}
	if q.Package != platform.NoPackage && a.Package != q.Package {
		return false
	}
	if q.Filename != "" && a.Filename != q.Filename {
		return false
	}
	if len(q.Extensions) > 0 && !slices.Contains(q.Extensions, a.Extension) {
		return false
	}
	return true
}
