package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ralt/relserve/internal/manifest"
	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/platform"
	"github.com/ralt/relserve/internal/release"
	"github.com/ralt/relserve/internal/resolver"
)

// updateResponse is the Squirrel.Mac update payload
type updateResponse struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	Notes   string `json:"notes"`
	PubDate string `json:"pub_date"`
}

func (s *Server) writeUpdate(w http.ResponseWriter, r *http.Request, info *resolver.UpdateInfo) {
	if info == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{
		URL:     info.URL,
		Name:    info.Version,
		Notes:   info.Notes,
		PubDate: info.PublishedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	q := resolver.UpdateQuery{
		Version: r.PathValue("version"),
		Channel: r.URL.Query().Get("channel"),
	}

	var err error
	if q.OS, err = platform.ParseOperatingSystem(r.PathValue("os")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.Architectures, err = platform.ParseArchitectures(r.PathValue("arch")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.Package, err = platform.ParsePackageFormat(r.URL.Query().Get("pkg")); err != nil {
		s.writeError(w, r, err)
		return
	}

	info, err := s.resolver.ResolveUpdate(r.Context(), q, func(_ *release.Release, a *release.Asset) string {
		return s.downloadURL(r, a.Filename)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeUpdate(w, r, info)
}

func (s *Server) handleLegacyUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := platform.Decode(r.PathValue("platform"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := resolver.LegacyUpdateQuery{
		Platform: string(p.Tag()),
		Version:  r.PathValue("version"),
		Channel:  r.PathValue("channel"),
	}
	if q.Extension, err = platform.ParseExtension(r.URL.Query().Get("filetype")); err != nil {
		s.writeError(w, r, err)
		return
	}

	info, err := s.resolver.ResolveLegacyUpdate(r.Context(), q, func(rel *release.Release, a *release.Asset) string {
		return s.baseURL(r) + "/download/version/" + url.PathEscape(rel.Version) + "/" + q.Platform +
			"?filetype=" + url.QueryEscape(strings.TrimPrefix(a.Extension, "."))
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeUpdate(w, r, info)
}

// windowsManifest resolves the rewritten RELEASES file for a request. It
// writes the error response itself and returns nil when there is nothing to
// serve.
func (s *Server) windowsManifest(w http.ResponseWriter, r *http.Request) *resolver.ManifestResult {
	if tag := r.PathValue("platform"); tag != "" {
		if _, err := platform.Decode(tag); err != nil {
			s.writeError(w, r, err)
			return nil
		}
	}
	if name := r.PathValue("os"); name != "" {
		os, err := platform.ParseOperatingSystem(name)
		if err != nil {
			s.writeError(w, r, err)
			return nil
		}
		if os != platform.Windows {
			s.writeError(w, r, models.NewError(models.ErrNotFound, name, "%s is only published for windows", manifest.Filename))
			return nil
		}
	}

	q := resolver.WindowsManifestQuery{
		Version: r.PathValue("version"),
		Channel: param(r, "channel"),
	}
	result, err := s.resolver.ResolveWindowsManifest(r.Context(), q, func(filename string) string {
		return s.downloadURL(r, filename)
	})
	if err != nil {
		s.writeError(w, r, err)
		return nil
	}
	if result == nil {
		s.writeError(w, r, models.NewError(models.ErrNotFound, q.Version, "%s not found", manifest.Filename))
		return nil
	}
	return result
}

func (s *Server) handleWindowsManifest(w http.ResponseWriter, r *http.Request) {
	result := s.windowsManifest(w, r)
	if result == nil {
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+manifest.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Content)))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Content)
}

func (s *Server) handleWindowsManifestSignature(w http.ResponseWriter, r *http.Request) {
	if s.signer == nil {
		s.writeError(w, r, models.NewError(models.ErrNotFound, manifest.Filename+".asc", "manifest signing is not configured"))
		return
	}

	result := s.windowsManifest(w, r)
	if result == nil {
		return
	}

	sig, err := s.signer.SignDetached(result.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pgp-signature")
	w.Header().Set("Content-Length", strconv.Itoa(len(sig)))
	w.WriteHeader(http.StatusOK)
	w.Write(sig)
}

// handleSigningKey publishes the key RELEASES.asc signatures verify against
func (s *Server) handleSigningKey(w http.ResponseWriter, r *http.Request) {
	if s.signer == nil {
		s.writeError(w, r, models.NewError(models.ErrNotFound, "signing-key.asc", "manifest signing is not configured"))
		return
	}

	key, err := s.signer.PublicKey()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pgp-keys")
	w.Header().Set("Content-Length", strconv.Itoa(len(key)))
	w.WriteHeader(http.StatusOK)
	w.Write(key)
}
