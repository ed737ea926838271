package index

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ralt/relserve/internal/backend"
	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/release"
)

const maxReadSize = 16 << 20

// Backend reads an index file on every fetch
type Backend struct {
	path   string
	client *http.Client
}

// New creates a backend over the index at path
func New(path string) (*Backend, error) {
	if path == "" {
		return nil, models.NewError(models.ErrInvalidConfig, "index", "index path is required")
	}
	return &Backend{
		path:   path,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

var _ backend.Backend = (*Backend)(nil)

// FetchReleases loads the index
func (b *Backend) FetchReleases(ctx context.Context) (*release.Collection, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, models.WrapError(models.ErrBackend, b.path, fmt.Errorf("failed to read index: %w", err))
	}

	f, err := Decode(b.path, data)
	if err != nil {
		return nil, err
	}

	logrus.Debugf("Loaded %d releases from %s", len(f.Releases), b.path)
	return release.NewCollection(f.DTOs(filepath.Dir(b.path))), nil
}

func rawAsset(asset *release.Asset) (Asset, error) {
	raw, ok := asset.Raw.(Asset)
	if !ok {
		return Asset{}, models.NewError(models.ErrBackend, asset.Filename, "asset was not listed by the index backend")
	}
	return raw, nil
}

// ServeAsset redirects to remote assets and streams local ones
func (b *Backend) ServeAsset(w http.ResponseWriter, r *http.Request, asset *release.Asset) error {
	raw, err := rawAsset(asset)
	if err != nil {
		return err
	}
	if raw.URL != "" {
		http.Redirect(w, r, raw.URL, http.StatusFound)
		return nil
	}
	return backend.ServeFile(w, r, raw.Path, asset)
}

// ReadAsset returns the content of a local or remote asset
func (b *Backend) ReadAsset(ctx context.Context, asset *release.Asset) ([]byte, error) {
	raw, err := rawAsset(asset)
	if err != nil {
		return nil, err
	}

	if raw.Path != "" {
		data, err := os.ReadFile(raw.Path)
		if err != nil {
			return nil, models.WrapError(models.ErrBackend, asset.Filename, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw.URL, nil)
	if err != nil {
		return nil, models.WrapError(models.ErrBackend, asset.Filename, err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, models.WrapError(models.ErrBackend, asset.Filename, fmt.Errorf("failed to download asset: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewError(models.ErrBackend, asset.Filename, "failed to download asset: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReadSize))
	if err != nil {
		return nil, models.WrapError(models.ErrBackend, asset.Filename, err)
	}
	return data, nil
}

// Locate returns the url or absolute path of the asset
func (b *Backend) Locate(asset *release.Asset) backend.Location {
	raw, err := rawAsset(asset)
	if err != nil {
		return backend.Location{}
	}
	return backend.Location{URL: raw.URL, Path: raw.Path}
}
