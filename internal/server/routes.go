package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ralt/relserve/internal/release"
)

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /dl/{filename}", s.handleDownloadFilename)
	mux.HandleFunc("GET /dl/{os}/{arch}", s.handleDownload)

	mux.HandleFunc("GET /{$}", s.handleLegacyDownload)
	mux.HandleFunc("GET /download", s.handleLegacyDownload)
	mux.HandleFunc("GET /download/{platform}", s.handleLegacyDownload)
	mux.HandleFunc("GET /download/channel/{channel}", s.handleLegacyDownload)
	mux.HandleFunc("GET /download/channel/{channel}/{platform}", s.handleLegacyDownload)
	mux.HandleFunc("GET /download/version/{tag}", s.handleLegacyDownload)
	mux.HandleFunc("GET /download/version/{tag}/{platform}", s.handleLegacyDownload)
	mux.HandleFunc("GET /download/{tag}/{filename}", s.handleLegacyDownload)

	mux.HandleFunc("GET /up/{os}/{arch}/{version}", s.handleUpdate)
	mux.HandleFunc("GET /up/{os}/{arch}/{version}/RELEASES", s.handleWindowsManifest)
	mux.HandleFunc("GET /up/{os}/{arch}/{version}/RELEASES.asc", s.handleWindowsManifestSignature)

	mux.HandleFunc("GET /update/{platform}/{version}", s.handleLegacyUpdate)
	mux.HandleFunc("GET /update/channel/{channel}/{platform}/{version}", s.handleLegacyUpdate)
	mux.HandleFunc("GET /update/{platform}/{version}/RELEASES", s.handleWindowsManifest)
	mux.HandleFunc("GET /update/channel/{channel}/{platform}/{version}/RELEASES", s.handleWindowsManifest)
	mux.HandleFunc("GET /update/{platform}/{version}/RELEASES.asc", s.handleWindowsManifestSignature)
	mux.HandleFunc("GET /update/channel/{channel}/{platform}/{version}/RELEASES.asc", s.handleWindowsManifestSignature)
	mux.HandleFunc("GET /signing-key.asc", s.handleSigningKey)

	mux.HandleFunc("GET /api/channels", s.handleChannels)
	mux.HandleFunc("GET /api/versions", s.handleVersions)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	mux.HandleFunc("GET /notes", s.handleNotes)
	mux.HandleFunc("GET /notes/{version}", s.handleNotes)

	if s.cfg.WebhookSecret != "" {
		mux.HandleFunc("POST /webhook/refresh", s.handleWebhook)
	}

	return mux
}

// baseURL is the public URL routes are mounted under
func (s *Server) baseURL(r *http.Request) string {
	if s.cfg.BaseURL != "" {
		return strings.TrimRight(s.cfg.BaseURL, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + strings.TrimRight(s.cfg.BasePath, "/")
}

// downloadURL links to an asset through this server
func (s *Server) downloadURL(r *http.Request, filename string) string {
	return s.baseURL(r) + "/dl/" + url.PathEscape(filename)
}

// param returns the first value of a query parameter, or the path value of
// the same name when the route carries one
func param(r *http.Request, name string) string {
	if v := r.PathValue(name); v != "" {
		return v
	}
	return r.URL.Query().Get(name)
}

// serveAsset hands the asset to the backend between the download events
func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request, rel *release.Release, asset *release.Asset) {
	err := s.events.Serve(r, rel, asset, func() error {
		return s.backend.ServeAsset(w, r, asset)
	})
	if err != nil {
		s.writeError(w, r, err)
	}
}
