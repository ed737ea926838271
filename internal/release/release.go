package release

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ralt/relserve/internal/models"
)

// Release is a published release and its classified assets
type Release struct {
	Version     string
	Channel     string
	Notes       string
	PublishedAt time.Time
	Assets      []*Asset

	// Tag is the version exactly as the backend reported it
	Tag string
}

// NewRelease builds a Release from dto. Assets that cannot be classified are
// dropped with a warning. The channel always comes from the version.
func NewRelease(dto models.ReleaseDTO) *Release {
	version := NormalizeVersion(dto.Version)
	r := &Release{
		Version:     version,
		Channel:     ChannelFromVersion(version),
		Notes:       dto.Notes,
		PublishedAt: dto.PublishedAt,
		Tag:         dto.Version,
		Assets:      make([]*Asset, 0, len(dto.Assets)),
	}

	for _, assetDTO := range dto.Assets {
		asset, err := NewAsset(assetDTO)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"release": r.Version,
				"channel": r.Channel,
				"asset":   assetDTO.Filename,
			}).Warnf("Skipping asset: %v", err)
			continue
		}
		r.Assets = append(r.Assets, asset)
	}

	return r
}

// SatisfiesQuery reports whether the release is on q's channel, inside q's
// version range, and has at least one asset matching q. An invalid range is
// an ErrInvalidQuery error.
func (r *Release) SatisfiesQuery(q ReleaseQuery) (bool, error) {
	rng, err := ParseRange(q.Version)
	if err != nil {
		return false, err
	}
	return r.satisfies(q, rng), nil
}

func (r *Release) satisfies(q ReleaseQuery, rng Range) bool {
	return r.SatisfiesChannel(q.Channel) &&
		rng.Matches(r.Version) &&
		r.hasAsset(q.AssetQuery)
}

// SatisfiesChannel reports whether channel selects this release
func (r *Release) SatisfiesChannel(channel string) bool {
	return channel == "" || channel == AnyChannel || channel == r.Channel
}

// QueryAssets returns the assets matching q in release order
func (r *Release) QueryAssets(q AssetQuery) []*Asset {
	var matches []*Asset
	for _, a := range r.Assets {
		if a.SatisfiesQuery(q) {
			matches = append(matches, a)
		}
	}
	return matches
}

// FindAsset returns the first asset matching q, or nil
func (r *Release) FindAsset(q AssetQuery) *Asset {
	for _, a := range r.Assets {
		if a.SatisfiesQuery(q) {
			return a
		}
	}
	return nil
}

func (r *Release) hasAsset(q AssetQuery) bool {
	return r.FindAsset(q) != nil
}

// DTO converts the release back into its backend-neutral form
func (r *Release) DTO() models.ReleaseDTO {
	dto := models.ReleaseDTO{
		Version:     r.Tag,
		Channel:     r.Channel,
		Notes:       r.Notes,
		PublishedAt: r.PublishedAt,
		Assets:      make([]models.AssetDTO, len(r.Assets)),
	}
	for i, a := range r.Assets {
		dto.Assets[i] = a.DTO()
	}
	return dto
}
