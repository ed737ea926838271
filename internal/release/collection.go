package release

import (
	"slices"
	"time"

	"github.com/ralt/relserve/internal/models"
)

// Collection is an immutable list of releases ordered by descending version.
// Releases comparing equal keep their backend order.
type Collection struct {
	releases []*Release
}

// ChannelSummary describes one channel of a collection
type ChannelSummary struct {
	Name          string    `json:"name"`
	Latest        string    `json:"latest"`
	PublishedAt   time.Time `json:"published_at"`
	ReleasesCount int       `json:"releases_count"`
}

// NewCollection builds a collection from backend DTOs
func NewCollection(dtos []models.ReleaseDTO) *Collection {
	releases := make([]*Release, len(dtos))
	for i, dto := range dtos {
		releases[i] = NewRelease(dto)
	}
	return FromReleases(releases)
}

// FromReleases sorts releases into a new collection. The input slice is
// not modified.
func FromReleases(releases []*Release) *Collection {
	sorted := slices.Clone(releases)
	slices.SortStableFunc(sorted, func(a, b *Release) int {
		return CompareVersions(b.Version, a.Version)
	})
	return &Collection{releases: sorted}
}

// Len returns the number of releases
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.releases)
}

// Releases returns the releases in order. The slice is a copy.
func (c *Collection) Releases() []*Release {
	if c == nil {
		return nil
	}
	return slices.Clone(c.releases)
}

// Latest returns the highest version, or nil for an empty collection
func (c *Collection) Latest() *Release {
	if c.Len() == 0 {
		return nil
	}
	return c.releases[0]
}

// QueryReleases returns the releases matching q, highest version first
func (c *Collection) QueryReleases(q ReleaseQuery) ([]*Release, error) {
	rng, err := ParseRange(q.Version)
	if err != nil {
		return nil, err
	}

	if c == nil {
		return nil, nil
	}

	var matches []*Release
	for _, r := range c.releases {
		if r.satisfies(q, rng) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

// Filter returns a collection of the releases keep accepts, order preserved
func (c *Collection) Filter(keep func(*Release) bool) *Collection {
	var kept []*Release
	for _, r := range c.releases {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	return &Collection{releases: kept}
}

// ChannelNames returns the distinct channels in first-seen order
func (c *Collection) ChannelNames() []string {
	var names []string
	for _, r := range c.releases {
		if !slices.Contains(names, r.Channel) {
			names = append(names, r.Channel)
		}
	}
	return names
}

// Channels summarizes every channel, in first-seen order
func (c *Collection) Channels() []ChannelSummary {
	var summaries []ChannelSummary
	index := make(map[string]int)
	for _, r := range c.releases {
		i, ok := index[r.Channel]
		if !ok {
			index[r.Channel] = len(summaries)
			summaries = append(summaries, ChannelSummary{
				Name:          r.Channel,
				Latest:        r.Version,
				PublishedAt:   r.PublishedAt,
				ReleasesCount: 1,
			})
			continue
		}
		summaries[i].ReleasesCount++
	}
	return summaries
}

// DTOs converts the collection back into backend-neutral form, in order
func (c *Collection) DTOs() []models.ReleaseDTO {
	dtos := make([]models.ReleaseDTO, len(c.releases))
	for i, r := range c.releases {
		dtos[i] = r.DTO()
	}
	return dtos
}
