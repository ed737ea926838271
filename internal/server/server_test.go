package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralt/relserve/internal/backend"
	"github.com/ralt/relserve/internal/events"
	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/release"
)

type fakeBackend struct {
	mu       sync.Mutex
	dtos     []models.ReleaseDTO
	fetchErr error
	fetches  int
	served   []string
}

func (b *fakeBackend) FetchReleases(ctx context.Context) (*release.Collection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches++
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	return release.NewCollection(b.dtos), nil
}

func (b *fakeBackend) ServeAsset(w http.ResponseWriter, r *http.Request, asset *release.Asset) error {
	b.mu.Lock()
	b.served = append(b.served, asset.Filename)
	b.mu.Unlock()
	http.Redirect(w, r, "https://cdn.example.com/"+asset.Filename, http.StatusFound)
	return nil
}

func (b *fakeBackend) ReadAsset(ctx context.Context, asset *release.Asset) ([]byte, error) {
	content, ok := asset.Raw.(string)
	if !ok {
		return nil, errors.New("no content")
	}
	return []byte(content), nil
}

func (b *fakeBackend) Locate(asset *release.Asset) backend.Location {
	return backend.Location{URL: "https://cdn.example.com/" + asset.Filename}
}

func (b *fakeBackend) fetchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches
}

func fixtureReleases() []models.ReleaseDTO {
	return []models.ReleaseDTO{
		{
			Version:     "v1.0.0",
			Notes:       "First",
			PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Assets: []models.AssetDTO{
				{Filename: "app-1.0.0-darwin-x64.zip"},
				{Filename: "app-1.0.0-darwin-x64.dmg"},
				{Filename: "AppSetup-1.0.0.exe"},
				{Filename: "RELEASES", Raw: "AAA app-1.0.0-full.nupkg 100"},
				{Filename: "app-1.0.0-full.nupkg"},
				{Filename: "app-1.0.0-amd64.deb"},
			},
		},
		{
			Version:     "v1.1.0",
			Notes:       "Second",
			PublishedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			Assets: []models.AssetDTO{
				{Filename: "app-1.1.0-darwin-x64.zip"},
				{Filename: "app-1.1.0-darwin-x64.dmg"},
				{Filename: "AppSetup-1.1.0.exe"},
				{Filename: "RELEASES", Raw: "BBB app-1.1.0-full.nupkg 200\r\nCCC app-1.1.0-delta.nupkg 20\r\n"},
				{Filename: "app-1.1.0-full.nupkg"},
			},
		},
		{
			Version:     "v1.2.0-beta.1",
			Notes:       "Beta",
			PublishedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Assets: []models.AssetDTO{
				{Filename: "app-1.2.0-beta.1-darwin-x64.zip"},
				{Filename: "app-1.2.0-beta.1-darwin-x64.dmg"},
			},
		},
	}
}

func newTestServer(t *testing.T, mutate func(*models.ServerConfig), opts ...Option) (*Server, *fakeBackend) {
	t.Helper()
	cfg := models.DefaultServerConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	b := &fakeBackend{dtos: fixtureReleases()}
	return New(cfg, b, opts...), b
}

func get(s *Server, path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, filename string) {
	t.Helper()
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "https://cdn.example.com/"+filename, rec.Header().Get("Location"))
}

func TestDownloadRoutes(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		path     string
		filename string
	}{
		{"/dl/app-1.0.0-darwin-x64.dmg", "app-1.0.0-darwin-x64.dmg"},
		{"/dl/osx/x64", "app-1.1.0-darwin-x64.dmg"},
		{"/dl/darwin/amd64?filetype=zip", "app-1.1.0-darwin-x64.zip"},
		{"/dl/osx/x64?channel=beta", "app-1.2.0-beta.1-darwin-x64.dmg"},
		{"/dl/osx/x64?version=1.0.x", "app-1.0.0-darwin-x64.dmg"},
		{"/dl/linux/x64?pkg=deb", "app-1.0.0-amd64.deb"},
		{"/dl/windows/x64", "AppSetup-1.1.0.exe"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assertRedirect(t, get(s, tt.path), tt.filename)
		})
	}
}

func TestDownloadErrors(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		path   string
		status int
	}{
		{"/dl/missing.dmg", http.StatusNotFound},
		{"/dl/osx/x64?channel=nightly", http.StatusNotFound},
		{"/dl/beos/x64", http.StatusBadRequest},
		{"/dl/osx/mips", http.StatusBadRequest},
		{"/dl/osx/x64?pkg=msi", http.StatusBadRequest},
		{"/dl/osx/x64?filetype=iso", http.StatusBadRequest},
		{"/dl/osx/x64?version=>>1", http.StatusBadRequest},
		{"/dl/linux/arm64", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(s, tt.path)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestLegacyDownloadRoutes(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		path      string
		userAgent string
		filename  string
	}{
		{"/download/osx", "", "app-1.1.0-darwin-x64.dmg"},
		{"/download/windows", "", "AppSetup-1.1.0.exe"},
		{"/download/win", "", "AppSetup-1.1.0.exe"},
		{"/download/windows_32", "", "AppSetup-1.1.0.exe"},
		{"/download/windows_64", "", "AppSetup-1.1.0.exe"},
		{"/download/osx?filetype=zip", "", "app-1.1.0-darwin-x64.zip"},
		{"/download/version/1.0.0/osx", "", "app-1.0.0-darwin-x64.dmg"},
		{"/download/version/v1.0.0/osx", "", "app-1.0.0-darwin-x64.dmg"},
		{"/download/channel/beta/osx", "", "app-1.2.0-beta.1-darwin-x64.dmg"},
		{"/download/1.0.0/AppSetup-1.0.0.exe", "", "AppSetup-1.0.0.exe"},
		{"/download?platform=osx_64", "", "app-1.1.0-darwin-x64.dmg"},
		{"/", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)", "app-1.1.0-darwin-x64.dmg"},
		{"/download", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "AppSetup-1.1.0.exe"},
		{"/", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "AppSetup-1.1.0.exe"},
		{"/download/channel/beta", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)", "app-1.2.0-beta.1-darwin-x64.dmg"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assertRedirect(t, get(s, tt.path, "User-Agent", tt.userAgent), tt.filename)
		})
	}
}

func TestLegacyDownloadErrors(t *testing.T) {
	s, _ := newTestServer(t, nil)

	assert.Equal(t, http.StatusBadRequest, get(s, "/").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/download/beos").Code)
	assert.Equal(t, http.StatusNotFound, get(s, "/download/linux_rpm_64").Code)
	assert.Equal(t, http.StatusNotFound, get(s, "/download/1.0.0/missing.exe").Code)
}

func TestDownloadEvents(t *testing.T) {
	s, b := newTestServer(t, nil)

	var order []string
	s.Events().OnBeforeServe(func(d events.Download) {
		assert.Empty(t, b.served)
		order = append(order, "before:"+d.Asset.Filename)
	})
	s.Events().OnAfterServe(func(d events.Download) {
		assert.Equal(t, "1.1.0", d.Release.Version)
		order = append(order, "after:"+d.Asset.Filename)
	})

	assertRedirect(t, get(s, "/dl/osx/x64"), "app-1.1.0-darwin-x64.dmg")
	assert.Equal(t, []string{"before:app-1.1.0-darwin-x64.dmg", "after:app-1.1.0-darwin-x64.dmg"}, order)
}

func decodeUpdate(t *testing.T, rec *httptest.ResponseRecorder) updateResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp updateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUpdate(t *testing.T) {
	s, _ := newTestServer(t, nil)

	resp := decodeUpdate(t, get(s, "/up/osx/x64/1.0.0"))
	assert.Equal(t, "http://example.com/dl/app-1.1.0-darwin-x64.zip", resp.URL)
	assert.Equal(t, "1.1.0", resp.Name)
	assert.Equal(t, "## 1.1.0\n\nSecond", resp.Notes)
	assert.Equal(t, "2024-02-01T00:00:00Z", resp.PubDate)

	resp = decodeUpdate(t, get(s, "/up/osx/x64/0.9.0"))
	assert.Equal(t, "## 1.1.0\n\nSecond\n\n## 1.0.0\n\nFirst", resp.Notes)

	resp = decodeUpdate(t, get(s, "/up/osx/x64/1.2.0-beta.0?channel=beta"))
	assert.Equal(t, "1.2.0-beta.1", resp.Name)

	assert.Equal(t, http.StatusNoContent, get(s, "/up/osx/x64/1.1.0").Code)
	assert.Equal(t, http.StatusNoContent, get(s, "/up/osx/x64/2.0.0").Code)
	assert.Equal(t, http.StatusNoContent, get(s, "/up/osx/arm64/1.0.0").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/up/osx/x64/not-a-version").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/up/beos/x64/1.0.0").Code)
}

func TestLegacyUpdate(t *testing.T) {
	s, _ := newTestServer(t, nil)

	resp := decodeUpdate(t, get(s, "/update/osx/1.0.0"))
	assert.Equal(t, "http://example.com/download/version/1.1.0/osx_64?filetype=zip", resp.URL)
	assert.Equal(t, "1.1.0", resp.Name)

	resp = decodeUpdate(t, get(s, "/update/channel/beta/darwin_x64/1.2.0-beta.0"))
	assert.Equal(t, "1.2.0-beta.1", resp.Name)

	// the update link resolves through the legacy download route
	u := strings.TrimPrefix(resp.URL, "http://example.com")
	assertRedirect(t, get(s, u), "app-1.2.0-beta.1-darwin-x64.zip")

	// installers named without an architecture serve 32-bit Windows clients
	resp = decodeUpdate(t, get(s, "/update/win32/1.0.0"))
	assert.Equal(t, "1.1.0", resp.Name)
	assertRedirect(t, get(s, strings.TrimPrefix(resp.URL, "http://example.com")), "app-1.1.0-full.nupkg")

	assert.Equal(t, http.StatusNoContent, get(s, "/update/osx/1.1.0").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/update/beos/1.0.0").Code)
}

func TestWindowsManifest(t *testing.T) {
	s, _ := newTestServer(t, nil)
	want := "BBB http://example.com/dl/app-1.1.0-full.nupkg 200\nCCC http://example.com/dl/app-1.1.0-delta.nupkg 20\n"

	for _, path := range []string{
		"/update/windows_32/1.0.0/RELEASES",
		"/update/win/1.1.0/RELEASES",
		"/update/channel/stable/windows_32/1.0.0/RELEASES",
		"/up/windows/x64/1.0.0/RELEASES",
	} {
		t.Run(path, func(t *testing.T) {
			rec := get(s, path)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, want, rec.Body.String())
			assert.Equal(t, "102", rec.Header().Get("Content-Length"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), "RELEASES")
		})
	}

	assert.Equal(t, http.StatusNotFound, get(s, "/up/osx/x64/1.0.0/RELEASES").Code)
	assert.Equal(t, http.StatusNotFound, get(s, "/update/windows_32/2.0.0/RELEASES").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/update/beos/1.0.0/RELEASES").Code)
	assert.Equal(t, http.StatusNotFound, get(s, "/update/windows_32/1.0.0/RELEASES.asc").Code)
}

type prefixSigner struct{}

func (prefixSigner) SignDetached(data []byte) ([]byte, error) {
	return append([]byte("SIGNED:"), data...), nil
}

func (prefixSigner) PublicKey() ([]byte, error) {
	return []byte("KEY"), nil
}

func TestWindowsManifestSignature(t *testing.T) {
	s, _ := newTestServer(t, nil, WithSigner(prefixSigner{}))

	manifest := get(s, "/update/windows_32/1.0.0/RELEASES")
	require.Equal(t, http.StatusOK, manifest.Code)

	sig := get(s, "/update/windows_32/1.0.0/RELEASES.asc")
	require.Equal(t, http.StatusOK, sig.Code)
	assert.Equal(t, "SIGNED:"+manifest.Body.String(), sig.Body.String())
	assert.Equal(t, "application/pgp-signature", sig.Header().Get("Content-Type"))
}

func TestSigningKey(t *testing.T) {
	s, _ := newTestServer(t, nil, WithSigner(prefixSigner{}))
	rec := get(s, "/signing-key.asc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "KEY", rec.Body.String())
	assert.Equal(t, "application/pgp-keys", rec.Header().Get("Content-Type"))

	s, _ = newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, get(s, "/signing-key.asc").Code)
}

func TestBasePath(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *models.ServerConfig) {
		cfg.BasePath = "/updates"
	})

	assertRedirect(t, get(s, "/updates/dl/osx/x64"), "app-1.1.0-darwin-x64.dmg")
	assert.Equal(t, http.StatusNotFound, get(s, "/dl/osx/x64").Code)

	resp := decodeUpdate(t, get(s, "/updates/up/osx/x64/1.0.0"))
	assert.Equal(t, "http://example.com/updates/dl/app-1.1.0-darwin-x64.zip", resp.URL)
}

func TestBaseURLOverride(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *models.ServerConfig) {
		cfg.BaseURL = "https://updates.example.org/"
	})

	resp := decodeUpdate(t, get(s, "/up/osx/x64/1.0.0"))
	assert.Equal(t, "https://updates.example.org/dl/app-1.1.0-darwin-x64.zip", resp.URL)
}

func TestChannelsAndVersions(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(s, "/api/channels")
	require.Equal(t, http.StatusOK, rec.Code)
	var channels []release.ChannelSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &channels))
	require.Len(t, channels, 2)
	assert.Equal(t, "beta", channels[0].Name)
	assert.Equal(t, "stable", channels[1].Name)
	assert.Equal(t, "1.1.0", channels[1].Latest)
	assert.Equal(t, 2, channels[1].ReleasesCount)

	versions := func(path string) []string {
		rec := get(s, path)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var views []releaseView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
		var out []string
		for _, v := range views {
			out = append(out, v.Version)
		}
		return out
	}

	assert.Equal(t, []string{"1.2.0-beta.1", "1.1.0", "1.0.0"}, versions("/api/versions"))
	assert.Equal(t, []string{"1.1.0", "1.0.0"}, versions("/api/versions?channel=stable"))
	assert.Equal(t, []string{"1.0.0"}, versions("/api/versions?platform=linux_deb_64"))
	assert.Equal(t, []string{"1.1.0"}, versions("/api/versions?version=>1.0.0&channel=stable"))
	assert.Equal(t, http.StatusBadRequest, get(s, "/api/versions?platform=beos").Code)
}

func TestStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s, _ := newTestServer(t, nil, WithClock(clock))

	now = now.Add(90 * time.Second)
	rec := get(s, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 90.0, status["uptime"])
}

func TestNotes(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(s, "/notes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "## 1.2.0-beta.1\n\nBeta", rec.Body.String())

	rec = get(s, "/notes/1.0.0")
	assert.Equal(t, "## 1.0.0\n\nFirst", rec.Body.String())

	rec = get(s, "/notes?version=1.x", "Accept", "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "## 1.1.0\n\nSecond\n\n## 1.0.0\n\nFirst", body["note"])
}

func TestErrorResponses(t *testing.T) {
	s, b := newTestServer(t, nil)

	rec := get(s, "/dl/missing.dmg", "Accept", "application/json")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NotFound", body["code"])
	assert.Contains(t, body["error"], "missing.dmg")

	b.dtos = nil
	b.fetchErr = models.NewError(models.ErrBackend, "github", "rate limited")
	s2 := New(models.DefaultServerConfig(), b)
	assert.Equal(t, http.StatusBadGateway, get(s2, "/dl/osx/x64").Code)
}

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(s *Server, event, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/refresh", strings.NewReader(body))
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-Hub-Signature-256", signature)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWebhook(t *testing.T) {
	const secret = "topsecret"
	s, b := newTestServer(t, func(cfg *models.ServerConfig) {
		cfg.WebhookSecret = secret
	})

	assertRedirect(t, get(s, "/dl/osx/x64"), "app-1.1.0-darwin-x64.dmg")
	get(s, "/dl/osx/x64")
	assert.Equal(t, 1, b.fetchCount())

	body := `{"action": "published", "release": {"tag_name": "v1.3.0"}}`
	assert.Equal(t, http.StatusUnauthorized, postWebhook(s, "release", body, sign("wrong", body)).Code)
	assert.Equal(t, http.StatusUnauthorized, postWebhook(s, "release", body, "").Code)

	ping := postWebhook(s, "ping", `{}`, sign(secret, `{}`))
	assert.Equal(t, http.StatusOK, ping.Code)
	assert.Equal(t, 1, b.fetchCount())

	assert.Equal(t, http.StatusNoContent, postWebhook(s, "push", body, sign(secret, body)).Code)

	b.mu.Lock()
	b.dtos = append(b.dtos, models.ReleaseDTO{
		Version: "v1.3.0",
		Assets:  []models.AssetDTO{{Filename: "app-1.3.0-darwin-x64.dmg"}},
	})
	b.mu.Unlock()

	assert.Equal(t, http.StatusAccepted, postWebhook(s, "release", body, sign(secret, body)).Code)
	assertRedirect(t, get(s, "/dl/osx/x64"), "app-1.3.0-darwin-x64.dmg")
	assert.Equal(t, 2, b.fetchCount())
}

func TestWebhookDisabledWithoutSecret(t *testing.T) {
	s, _ := newTestServer(t, nil)
	body := `{}`
	assert.Equal(t, http.StatusNotFound, postWebhook(s, "release", body, sign("", body)).Code)
}

func TestPlatformFromUserAgent(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{"", ""},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15", "osx_64"},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "windows_32"},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:125.0)", "linux_64"},
		{"Mozilla/5.0 (X11; Linux i686)", "linux_32"},
		{"Mozilla/5.0 (Linux; Android 14)", ""},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", ""},
		{"curl/8.4.0", ""},
	}
	for _, tt := range tests {
		if got := platformFromUserAgent(tt.ua); got != tt.want {
			t.Errorf("platformFromUserAgent(%q) = %q, want %q", tt.ua, got, tt.want)
		}
	}
}
