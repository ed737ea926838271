package index

import (
	"time"

	"github.com/ralt/relserve/internal/backend"
	"github.com/ralt/relserve/internal/release"
)

// Snapshot describes c as an index. locate tells where each asset lives.
// Assets it cannot locate are left out.
func Snapshot(c *release.Collection, locate func(*release.Asset) backend.Location) *File {
	f := &File{Releases: []Release{}}
	for _, rel := range c.Releases() {
		entry := Release{
			Version: rel.Tag,
			Notes:   rel.Notes,
			Assets:  []Asset{},
		}
		if !rel.PublishedAt.IsZero() {
			entry.PublishedAt = rel.PublishedAt.UTC().Format(time.RFC3339)
		}

		for _, a := range rel.Assets {
			loc := locate(a)
			if loc.URL == "" && loc.Path == "" {
				continue
			}
			entry.Assets = append(entry.Assets, Asset{
				ID:          a.ID,
				Name:        a.Filename,
				URL:         loc.URL,
				Path:        loc.Path,
				Size:        a.Size,
				ContentType: a.ContentType,
				Type:        string(a.PlatformTag),
			})
		}
		f.Releases = append(f.Releases, entry)
	}
	return f
}
