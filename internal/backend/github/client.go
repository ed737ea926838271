// Package github reads releases from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ralt/relserve/internal/backend"
	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/release"
)

const (
	DefaultAPIURL = "https://api.github.com"
	userAgent     = "relserve"
	perPage       = 100
	// maxReadSize bounds ReadAsset, it only serves manifests
	maxReadSize = 16 << 20
)

// unpublished releases sort after everything that has a date
var unpublished = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Release is the subset of the GitHub release payload relserve uses
type Release struct {
	TagName     string     `json:"tag_name"`
	Name        string     `json:"name"`
	Body        string     `json:"body"`
	Draft       bool       `json:"draft"`
	Prerelease  bool       `json:"prerelease"`
	PublishedAt *time.Time `json:"published_at"`
	Assets      []Asset    `json:"assets"`
}

// Asset is the subset of the GitHub release asset payload relserve uses.
// It is kept as the raw reference of every ingested asset.
type Asset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	ContentType        string `json:"content_type"`
	URL                string `json:"url"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Backend lists the releases of one repository
type Backend struct {
	owner       string
	repo        string
	token       string
	apiURL      string
	proxyAssets bool
	client      *http.Client
}

// Option configures a Backend
type Option func(*Backend)

// WithToken authenticates API calls, required for private repositories
func WithToken(token string) Option {
	return func(b *Backend) { b.token = token }
}

// WithAPIURL points the backend at a GitHub Enterprise or test server
func WithAPIURL(url string) Option {
	return func(b *Backend) {
		if url != "" {
			b.apiURL = strings.TrimRight(url, "/")
		}
	}
}

// WithProxyAssets makes ServeAsset resolve the short-lived download URL
// through the API instead of redirecting to the public one
func WithProxyAssets(proxy bool) Option {
	return func(b *Backend) { b.proxyAssets = proxy }
}

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) { b.client = c }
}

// New creates a GitHub backend for owner/repo
func New(owner, repo string, opts ...Option) (*Backend, error) {
	if owner == "" {
		return nil, models.NewError(models.ErrInvalidConfig, "github", "owner is required")
	}
	if repo == "" {
		return nil, models.NewError(models.ErrInvalidConfig, "github", "repo is required")
	}

	b := &Backend{
		owner:  owner,
		repo:   repo,
		apiURL: DefaultAPIURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.token == "" {
		logrus.Warn("No GitHub token provided, only public repositories can be served")
	}
	return b, nil
}

var _ backend.Backend = (*Backend)(nil)

func (b *Backend) subject() string {
	return b.owner + "/" + b.repo
}

func (b *Backend) newRequest(ctx context.Context, url, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	return req, nil
}

// FetchReleases lists every non-draft release, following pagination
func (b *Backend) FetchReleases(ctx context.Context) (*release.Collection, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", b.apiURL, b.owner, b.repo, perPage)

	var dtos []models.ReleaseDTO
	for url != "" {
		page, next, err := b.fetchPage(ctx, url)
		if err != nil {
			return nil, models.WrapError(models.ErrBackend, b.subject(), err)
		}
		for _, r := range page {
			if r.Draft {
				continue
			}
			dtos = append(dtos, normalizeRelease(r))
		}
		url = next
	}

	logrus.Debugf("Fetched %d releases from %s", len(dtos), b.subject())
	return release.NewCollection(dtos), nil
}

func (b *Backend) fetchPage(ctx context.Context, url string) ([]Release, string, error) {
	req, err := b.newRequest(ctx, url, "application/vnd.github+json")
	if err != nil {
		return nil, "", err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list releases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to list releases: %s", resp.Status)
	}

	var page []Release
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("failed to decode releases: %w", err)
	}
	return page, nextLink(resp.Header.Get("Link")), nil
}

// nextLink extracts the rel="next" target of a Link header
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return strings.Trim(target, "<>")
			}
		}
	}
	return ""
}

func normalizeRelease(r Release) models.ReleaseDTO {
	published := unpublished
	if r.PublishedAt != nil {
		published = *r.PublishedAt
	}

	dto := models.ReleaseDTO{
		Version:     r.TagName,
		Notes:       r.Body,
		PublishedAt: published,
	}
	for _, a := range r.Assets {
		dto.Assets = append(dto.Assets, models.AssetDTO{
			ID:          strconv.FormatInt(a.ID, 10),
			Filename:    a.Name,
			Size:        a.Size,
			ContentType: a.ContentType,
			Raw:         a,
		})
	}
	return dto
}

func rawAsset(asset *release.Asset) (Asset, error) {
	raw, ok := asset.Raw.(Asset)
	if !ok {
		return Asset{}, models.NewError(models.ErrBackend, asset.Filename, "asset was not listed by the GitHub backend")
	}
	return raw, nil
}

// ServeAsset redirects the client to the asset. In proxy mode the API is
// asked for a short-lived URL so private repositories work without exposing
// the token.
func (b *Backend) ServeAsset(w http.ResponseWriter, r *http.Request, asset *release.Asset) error {
	raw, err := rawAsset(asset)
	if err != nil {
		return err
	}

	if !b.proxyAssets {
		http.Redirect(w, r, raw.BrowserDownloadURL, http.StatusFound)
		return nil
	}

	location, err := b.assetLocation(r.Context(), raw)
	if err != nil {
		return models.WrapError(models.ErrBackend, asset.Filename, err)
	}
	http.Redirect(w, r, location, http.StatusFound)
	return nil
}

func (b *Backend) assetLocation(ctx context.Context, raw Asset) (string, error) {
	req, err := b.newRequest(ctx, raw.URL, "application/octet-stream")
	if err != nil {
		return "", err
	}

	client := *b.client
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request asset url: %w", err)
	}
	defer resp.Body.Close()

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("unable to load asset url: %s", resp.Status)
	}
	return location, nil
}

// ReadAsset downloads the asset through the API
func (b *Backend) ReadAsset(ctx context.Context, asset *release.Asset) ([]byte, error) {
	raw, err := rawAsset(asset)
	if err != nil {
		return nil, err
	}

	req, err := b.newRequest(ctx, raw.URL, "application/octet-stream")
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

// Locate returns the public download URL
func (b *Backend) Locate(asset *release.Asset) backend.Location {
	raw, err := rawAsset(asset)
	if err != nil {
		return backend.Location{}
	}
	return backend.Location{URL: raw.BrowserDownloadURL}
}
