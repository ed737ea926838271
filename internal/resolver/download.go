package resolver

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ralt/relserve/internal/platform"
	"github.com/ralt/relserve/internal/release"
)

// DownloadQuery asks for the best installer of a platform
type DownloadQuery struct {
	Channel       string
	OS            platform.OperatingSystem
	Architectures platform.ArchitectureSet
	Package       platform.PackageFormat
	// Version is a semver range, "" or "latest" for the newest
	Version string
	// Extension overrides the platform's default installer extensions
	Extension string
}

// ResolveDownload returns the highest release matching q and its first
// matching asset.
func (r *Resolver) ResolveDownload(ctx context.Context, q DownloadQuery) (*Match, error) {
	exts := platform.DownloadExtensions(q.OS, q.Package)
	if q.Extension != "" {
		exts = []string{q.Extension}
	}

	assetQuery := release.AssetQuery{
		OS:            q.OS,
		Architectures: q.Architectures,
		Package:       q.Package,
		Extensions:    exts,
	}
	releases, err := r.query(ctx, release.ReleaseQuery{
		Channel:    q.Channel,
		Version:    q.Version,
		AssetQuery: assetQuery,
	})
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return nil, nil
	}

	rel := releases[0]
	return &Match{Release: rel, Asset: rel.FindAsset(assetQuery)}, nil
}

// ResolveFilename returns the highest release inside versionRange that
// carries an asset named filename.
func (r *Resolver) ResolveFilename(ctx context.Context, filename, versionRange string) (*Match, error) {
	assetQuery := release.AssetQuery{Filename: filename}
	releases, err := r.query(ctx, release.ReleaseQuery{
		Version:    versionRange,
		AssetQuery: assetQuery,
	})
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return nil, nil
	}

	rel := releases[0]
	return &Match{Release: rel, Asset: rel.FindAsset(assetQuery)}, nil
}

// LegacyDownloadQuery is a download request addressed by legacy platform tag
type LegacyDownloadQuery struct {
	// Channel defaults to stable. It is ignored when Version pins a release.
	Channel string
	// Platform is a legacy tag or alias. It may be empty when Filename is set.
	Platform string
	// Version is a semver range, "" or "latest" for the newest
	Version string
	// Filename requests one asset by exact name
	Filename  string
	Extension string
}

// ResolveLegacyDownload resolves a legacy download request. When the
// requested channel has nothing for the platform the search is retried
// across every channel.
func (r *Resolver) ResolveLegacyDownload(ctx context.Context, q LegacyDownloadQuery) (*Match, error) {
	version := orDefault(q.Version, release.Latest)
	channel := orDefault(q.Channel, release.StableChannel)
	if version != release.Latest {
		channel = release.AnyChannel
	}

	tag := q.Platform
	if tag == "" && q.Filename != "" {
		tag = string(platformOf(q.Filename).Tag())
	}
	p, err := platform.Decode(tag)
	if err != nil && q.Filename == "" {
		return nil, err
	}

	pick := func(rel *release.Release) *release.Asset {
		if q.Filename != "" {
			return rel.FindAsset(release.AssetQuery{Filename: q.Filename})
		}
		exts := platform.DownloadExtensions(p.OS, p.Package)
		if q.Extension != "" {
			exts = []string{q.Extension}
		}
		return selectAsset(rel, p, r.preferUniversal, exts)
	}

	match, err := r.firstWith(ctx, channel, version, pick)
	if err != nil || match != nil || channel == release.AnyChannel {
		return match, err
	}

	logrus.Debugf("No %s release for %s on channel %s, trying every channel", version, tag, channel)
	return r.firstWith(ctx, release.AnyChannel, version, pick)
}

// firstWith returns the highest release on channel inside version for which
// pick finds an asset.
func (r *Resolver) firstWith(ctx context.Context, channel, version string, pick func(*release.Release) *release.Asset) (*Match, error) {
	releases, err := r.query(ctx, release.ReleaseQuery{Channel: channel, Version: version})
	if err != nil {
		return nil, err
	}
	for _, rel := range releases {
		if a := pick(rel); a != nil {
			return &Match{Release: rel, Asset: a}, nil
		}
	}
	return nil, nil
}
