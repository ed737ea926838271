// Package backend defines where releases come from and how their assets
// reach clients.
package backend

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"

	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/release"
)

// Backend is a release source
type Backend interface {
	// FetchReleases lists every published release
	FetchReleases(ctx context.Context) (*release.Collection, error)

	// ServeAsset hands the asset to the client, by redirect or by streaming
	ServeAsset(w http.ResponseWriter, r *http.Request, asset *release.Asset) error

	// ReadAsset returns the content of a small asset such as RELEASES
	ReadAsset(ctx context.Context, asset *release.Asset) ([]byte, error)

	// Locate tells where the asset lives, for snapshots
	Locate(asset *release.Asset) Location
}

// Location is either a remote URL or a local file path
type Location struct {
	URL  string
	Path string
}

// ServeFile streams a local file as an attachment
func ServeFile(w http.ResponseWriter, r *http.Request, filePath string, asset *release.Asset) error {
	f, err := os.Open(filePath)
	if err != nil {
		return models.WrapError(models.ErrBackend, asset.Filename, fmt.Errorf("failed to open asset: %w", err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return models.WrapError(models.ErrBackend, asset.Filename, fmt.Errorf("failed to stat asset: %w", err))
	}

	w.Header().Set("Content-Type", ContentType(asset))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": asset.Filename}))
	http.ServeContent(w, r, asset.Filename, info.ModTime(), f)
	return nil
}

// ContentType returns the asset's content type, guessed from its name when
// the backend did not supply one
func ContentType(asset *release.Asset) string {
	if asset.ContentType != "" {
		return asset.ContentType
	}
	if ct := mime.TypeByExtension(path.Ext(asset.Filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
