// Package local serves releases from a directory tree laid out as
// <root>/<tag>/<files>. An optional NOTES.md in a tag directory holds the
// release notes.
package local

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ralt/relserve/internal/backend"
	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/release"
	"github.com/ralt/relserve/internal/utils"
)

// NotesFile is read as release notes instead of being published
const NotesFile = "NOTES.md"

// Backend scans a release directory on every fetch
type Backend struct {
	root string
}

// New creates a backend rooted at dir
func New(dir string) (*Backend, error) {
	if dir == "" {
		return nil, models.NewError(models.ErrInvalidConfig, "local", "release directory is required")
	}
	return &Backend{root: dir}, nil
}

var _ backend.Backend = (*Backend)(nil)

// FetchReleases treats every directory under the root as a release
func (b *Backend) FetchReleases(ctx context.Context) (*release.Collection, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, models.WrapError(models.ErrBackend, b.root, fmt.Errorf("failed to read release directory: %w", err))
	}

	var dtos []models.ReleaseDTO
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dto, err := b.scanRelease(ctx, entry.Name())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logrus.Warnf("Skipping release %s: %v", entry.Name(), err)
			continue
		}
		dtos = append(dtos, dto)
	}

	logrus.Debugf("Found %d releases in %s", len(dtos), b.root)
	return release.NewCollection(dtos), nil
}

func (b *Backend) scanRelease(ctx context.Context, tag string) (models.ReleaseDTO, error) {
	dir := filepath.Join(b.root, tag)
	dto := models.ReleaseDTO{Version: tag}

	if info, err := os.Stat(dir); err == nil {
		dto.PublishedAt = info.ModTime()
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			logrus.Warnf("Skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		if path == filepath.Join(dir, NotesFile) {
			notes, err := os.ReadFile(path)
			if err != nil {
				logrus.Warnf("Ignoring notes of %s: %v", tag, err)
				return nil
			}
			dto.Notes = string(notes)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logrus.Warnf("Skipping %s: %v", path, err)
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}

		dto.Assets = append(dto.Assets, models.AssetDTO{
			ID:       utils.ShortHash(filepath.ToSlash(rel), 16),
			Filename: d.Name(),
			Size:     info.Size(),
			Raw:      path,
		})
		return nil
	})
	if err != nil {
		return dto, fmt.Errorf("failed to scan release: %w", err)
	}
	return dto, nil
}

func rawPath(asset *release.Asset) (string, error) {
	path, ok := asset.Raw.(string)
	if !ok {
		return "", models.NewError(models.ErrBackend, asset.Filename, "asset was not listed by the local backend")
	}
	return path, nil
}

// ServeAsset streams the file
func (b *Backend) ServeAsset(w http.ResponseWriter, r *http.Request, asset *release.Asset) error {
	path, err := rawPath(asset)
	if err != nil {
		return err
	}
	return backend.ServeFile(w, r, path, asset)
}

// ReadAsset reads the file
func (b *Backend) ReadAsset(ctx context.Context, asset *release.Asset) ([]byte, error) {
	path, err := rawPath(asset)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.WrapError(models.ErrBackend, asset.Filename, err)
	}
	return data, nil
}

// Locate returns the absolute path of the file
func (b *Backend) Locate(asset *release.Asset) backend.Location {
	path, err := rawPath(asset)
	if err != nil {
		return backend.Location{}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return backend.Location{Path: path}
}
