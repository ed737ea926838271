package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ralt/relserve/internal/manifest"
	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/notes"
	"github.com/ralt/relserve/internal/platform"
	"github.com/ralt/relserve/internal/release"
)

// UpdateInfo is what an auto-updater needs to move to a newer release
type UpdateInfo struct {
	URL         string
	Version     string
	Notes       string
	PublishedAt time.Time

	Release *release.Release
	Asset   *release.Asset
}

// UpdateQuery is an update check from a client running Version
type UpdateQuery struct {
	OS            platform.OperatingSystem
	Architectures platform.ArchitectureSet
	Package       platform.PackageFormat
	Version       string
	// Channel defaults to stable
	Channel string
}

// ResolveUpdate finds the newest release after q.Version that has an update
// package for the client. A nil result means the client is up to date.
func (r *Resolver) ResolveUpdate(ctx context.Context, q UpdateQuery, link Linker) (*UpdateInfo, error) {
	current, err := currentVersion(q.Version)
	if err != nil {
		return nil, err
	}

	assetQuery := release.AssetQuery{
		OS:            q.OS,
		Architectures: q.Architectures,
		Package:       q.Package,
		Extensions:    platform.UpdateExtensions(q.OS, q.Package),
	}
	releases, err := r.query(ctx, release.ReleaseQuery{
		Channel:    orDefault(q.Channel, release.StableChannel),
		Version:    ">=" + current,
		AssetQuery: assetQuery,
	})
	if err != nil {
		return nil, err
	}

	return updateFrom(releases, current, link, func(rel *release.Release) *release.Asset {
		return rel.FindAsset(assetQuery)
	}), nil
}

// LegacyUpdateQuery is an update check addressed by legacy platform tag
type LegacyUpdateQuery struct {
	Platform string
	Version  string
	// Channel defaults to stable
	Channel string
	// Extension overrides the platform's update package extension
	Extension string
}

// ResolveLegacyUpdate is ResolveUpdate for clients that send a legacy tag
func (r *Resolver) ResolveLegacyUpdate(ctx context.Context, q LegacyUpdateQuery, link Linker) (*UpdateInfo, error) {
	p, err := platform.Decode(q.Platform)
	if err != nil {
		return nil, err
	}
	current, err := currentVersion(q.Version)
	if err != nil {
		return nil, err
	}

	exts := platform.UpdateExtensions(p.OS, p.Package)
	if q.Extension != "" {
		exts = []string{q.Extension}
	}
	pick := func(rel *release.Release) *release.Asset {
		return selectAsset(rel, p, r.preferUniversal, exts)
	}

	c, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	releases, err := c.Filter(func(rel *release.Release) bool {
		return pick(rel) != nil
	}).QueryReleases(release.ReleaseQuery{
		Channel: orDefault(q.Channel, release.StableChannel),
		Version: ">=" + current,
	})
	if err != nil {
		return nil, err
	}

	return updateFrom(releases, current, link, pick), nil
}

func updateFrom(releases []*release.Release, current string, link Linker, pick func(*release.Release) *release.Asset) *UpdateInfo {
	if len(releases) == 0 {
		return nil
	}
	latest := releases[0]
	if release.CompareVersions(latest.Version, current) <= 0 {
		return nil
	}
	asset := pick(latest)
	if asset == nil {
		return nil
	}

	var newer []*release.Release
	for _, rel := range releases {
		if release.CompareVersions(rel.Version, current) > 0 {
			newer = append(newer, rel)
		}
	}

	info := &UpdateInfo{
		Version:     latest.Version,
		Notes:       notes.Merge(newer, true),
		PublishedAt: latest.PublishedAt,
		Release:     latest,
		Asset:       asset,
	}
	if link != nil {
		info.URL = link(latest, asset)
	}
	return info
}

// currentVersion normalizes the version a client reports running
func currentVersion(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", models.NewError(models.ErrInvalidQuery, "version", "current version is required")
	}
	if _, err := release.ParseRange(">=" + v); err != nil {
		return "", models.NewError(models.ErrInvalidQuery, v, "invalid current version")
	}
	return release.NormalizeVersion(v), nil
}

// ManifestResult is a RELEASES manifest rewritten to point at this server
type ManifestResult struct {
	Release *release.Release
	Asset   *release.Asset
	Entries []manifest.Entry
	Content []byte
}

// WindowsManifestQuery asks for the RELEASES manifest of the newest release
// at or after Version
type WindowsManifestQuery struct {
	Version string
	// Channel defaults to stable
	Channel string
}

// ResolveWindowsManifest reads the RELEASES file of the newest release at or
// after q.Version and rewrites each package filename through rewrite.
func (r *Resolver) ResolveWindowsManifest(ctx context.Context, q WindowsManifestQuery, rewrite func(filename string) string) (*ManifestResult, error) {
	current, err := currentVersion(q.Version)
	if err != nil {
		return nil, err
	}

	assetQuery := release.AssetQuery{Filename: manifest.Filename}
	releases, err := r.query(ctx, release.ReleaseQuery{
		Channel:    orDefault(q.Channel, release.StableChannel),
		Version:    ">=" + current,
		AssetQuery: assetQuery,
	})
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return nil, nil
	}

	latest := releases[0]
	asset := latest.FindAsset(assetQuery)
	if r.reader == nil {
		return nil, models.NewError(models.ErrBackend, asset.Filename, "backend cannot read assets")
	}
	data, err := r.reader.ReadAsset(ctx, asset)
	if err != nil {
		return nil, models.WrapError(models.ErrBackend, asset.Filename,
			fmt.Errorf("failed to read manifest of %s: %w", latest.Version, err))
	}

	entries, err := manifest.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s of %s: %w", asset.Filename, latest.Version, err)
	}
	entries = manifest.Rewrite(entries, rewrite)

	return &ManifestResult{
		Release: latest,
		Asset:   asset,
		Entries: entries,
		Content: manifest.Generate(entries),
	}, nil
}
