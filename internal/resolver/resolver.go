// Package resolver turns client requests into concrete releases and assets.
//
// Not finding anything is not an error: resolve methods return a nil result
// with a nil error so callers can tell "nothing published for this
// platform" apart from bad input and backend failures.
package resolver

import (
	"context"

	"github.com/ralt/relserve/internal/release"
)

// Source provides the current release collection
type Source interface {
	Releases(ctx context.Context) (*release.Collection, error)
}

// AssetReader reads the content of small assets such as RELEASES manifests
type AssetReader interface {
	ReadAsset(ctx context.Context, asset *release.Asset) ([]byte, error)
}

// Linker builds the URL a client should download an update from
type Linker func(r *release.Release, a *release.Asset) string

// Match is a resolved release and the asset chosen from it
type Match struct {
	Release *release.Release
	Asset   *release.Asset
}

// Resolver answers download, update, and catalog queries
type Resolver struct {
	source          Source
	reader          AssetReader
	preferUniversal bool
}

// New creates a resolver. reader may be nil when manifests are never served.
func New(source Source, reader AssetReader, preferUniversal bool) *Resolver {
	return &Resolver{
		source:          source,
		reader:          reader,
		preferUniversal: preferUniversal,
	}
}

// PreferUniversal reports whether osx requests favour universal binaries
func (r *Resolver) PreferUniversal() bool {
	return r.preferUniversal
}

func (r *Resolver) collection(ctx context.Context) (*release.Collection, error) {
	return r.source.Releases(ctx)
}

func (r *Resolver) query(ctx context.Context, q release.ReleaseQuery) ([]*release.Release, error) {
	c, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	return c.QueryReleases(q)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
