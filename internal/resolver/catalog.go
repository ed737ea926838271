package resolver

import (
	"context"

	"github.com/ralt/relserve/internal/notes"
	"github.com/ralt/relserve/internal/platform"
	"github.com/ralt/relserve/internal/release"
)

// ListChannels returns every channel name, in first-seen order
func (r *Resolver) ListChannels(ctx context.Context) ([]string, error) {
	c, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	return c.ChannelNames(), nil
}

// Channels summarizes every channel
func (r *Resolver) Channels(ctx context.Context) ([]release.ChannelSummary, error) {
	c, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	return c.Channels(), nil
}

// VersionsQuery lists releases. All fields are optional.
type VersionsQuery struct {
	Channel string
	// Platform is a legacy tag, releases without an asset for it are left out
	Platform string
	Version  string
}

// Versions returns the releases matching q, highest version first
func (r *Resolver) Versions(ctx context.Context, q VersionsQuery) ([]*release.Release, error) {
	c, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	if q.Platform != "" {
		p, err := platform.Decode(q.Platform)
		if err != nil {
			return nil, err
		}
		c = c.Filter(func(rel *release.Release) bool {
			return selectAsset(rel, p, r.preferUniversal, nil) != nil
		})
	}

	return c.QueryReleases(release.ReleaseQuery{Channel: q.Channel, Version: q.Version})
}

// Notes renders release notes. Without a range only the newest release is
// rendered, with one every matching release is merged, newest first.
func (r *Resolver) Notes(ctx context.Context, versionRange string) (string, error) {
	releases, err := r.query(ctx, release.ReleaseQuery{Version: versionRange})
	if err != nil {
		return "", err
	}
	if len(releases) == 0 {
		return "", nil
	}
	if versionRange == "" || versionRange == release.Latest {
		return notes.Format(releases[0]), nil
	}
	return notes.Merge(releases, true), nil
}
