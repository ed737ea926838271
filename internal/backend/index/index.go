// Package index serves releases described by a static index file.
//
// The index is YAML or JSON, optionally gzip or xz compressed. Each asset
// points either at a remote url, which clients are redirected to, or at a
// local path, which is streamed. Relative paths are resolved against the
// directory holding the index.
package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/utils"
)

// File is the on-disk index
type File struct {
	Releases []Release `yaml:"releases" json:"releases"`
}

// Release is one entry of the index
type Release struct {
	Version     string  `yaml:"version" json:"version"`
	Notes       string  `yaml:"notes,omitempty" json:"notes,omitempty"`
	PublishedAt string  `yaml:"published_at,omitempty" json:"published_at,omitempty"`
	Assets      []Asset `yaml:"assets" json:"assets"`
}

// Asset is one downloadable file of an index release
type Asset struct {
	ID          string `yaml:"id,omitempty" json:"id,omitempty"`
	Name        string `yaml:"name" json:"name"`
	URL         string `yaml:"url,omitempty" json:"url,omitempty"`
	Path        string `yaml:"path,omitempty" json:"path,omitempty"`
	Size        int64  `yaml:"size,omitempty" json:"size,omitempty"`
	ContentType string `yaml:"content_type,omitempty" json:"content_type,omitempty"`
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
}

func isJSON(name string) bool {
	return strings.HasSuffix(utils.StripCompression(name), ".json")
}

// Decode parses an index. The format follows the suffix of name once any
// compression suffix is removed, compression itself is detected from data.
func Decode(name string, data []byte) (*File, error) {
	data, err := utils.Decompress(data)
	if err != nil {
		return nil, models.WrapError(models.ErrBackend, name, fmt.Errorf("failed to decompress index: %w", err))
	}

	var f File
	if isJSON(name) {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, models.WrapError(models.ErrBackend, name, fmt.Errorf("failed to parse index: %w", err))
	}

	f.Releases = validReleases(name, f.Releases)
	return &f, nil
}

// validReleases drops releases without a version and assets that cannot be
// served, warning about each
func validReleases(name string, releases []Release) []Release {
	kept := releases[:0]
	for i, r := range releases {
		if r.Version == "" {
			logrus.Warnf("Skipping release %d of %s: no version", i+1, name)
			continue
		}

		assets := r.Assets[:0]
		for _, a := range r.Assets {
			switch {
			case a.Name == "":
				logrus.Warnf("Skipping asset without a name in %s of %s", r.Version, name)
			case (a.URL == "") == (a.Path == ""):
				logrus.Warnf("Skipping asset %s of %s in %s: needs exactly one of url and path", a.Name, r.Version, name)
			default:
				assets = append(assets, a)
			}
		}
		r.Assets = assets
		kept = append(kept, r)
	}
	return kept
}

// Encode serializes f for name, compressing according to its suffix
func Encode(name string, f *File) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if isJSON(name) {
		data, err = json.MarshalIndent(f, "", "  ")
		data = append(data, '\n')
	} else {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(f); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode index: %w", err)
	}
	return utils.Compress(utils.CompressionFor(name), data)
}

// DTOs converts the index into backend-neutral releases. Local paths are
// made absolute against dir.
func (f *File) DTOs(dir string) []models.ReleaseDTO {
	dtos := make([]models.ReleaseDTO, 0, len(f.Releases))
	for _, r := range f.Releases {
		dto := models.ReleaseDTO{
			Version: r.Version,
			Notes:   r.Notes,
		}
		if r.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, r.PublishedAt); err == nil {
				dto.PublishedAt = t
			}
		}

		for i, a := range r.Assets {
			if a.Path != "" && !filepath.IsAbs(a.Path) {
				a.Path = filepath.Join(dir, a.Path)
			}
			id := a.ID
			if id == "" {
				id = fmt.Sprintf("%s-%d", r.Version, i)
			}
			dto.Assets = append(dto.Assets, models.AssetDTO{
				ID:          id,
				Filename:    a.Name,
				Size:        a.Size,
				ContentType: a.ContentType,
				Type:        a.Type,
				Raw:         a,
			})
		}
		dtos = append(dtos, dto)
	}
	return dtos
}
