package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/platform"
	"github.com/ralt/relserve/internal/release"
	"github.com/ralt/relserve/internal/resolver"
)

func (s *Server) handleDownloadFilename(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	match, err := s.resolver.ResolveFilename(r.Context(), filename, r.URL.Query().Get("version"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if match == nil {
		s.writeError(w, r, models.NewError(models.ErrNotFound, filename, "%s not found", filename))
		return
	}
	s.serveAsset(w, r, match.Release, match.Asset)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	channel, err := s.channel(r, query.Get("channel"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := resolver.DownloadQuery{
		Channel: channel,
		Version: query.Get("version"),
	}
	if q.OS, err = platform.ParseOperatingSystem(r.PathValue("os")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.Architectures, err = platform.ParseArchitectures(r.PathValue("arch")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.Package, err = platform.ParsePackageFormat(query.Get("pkg")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.Extension, err = platform.ParseExtension(query.Get("filetype")); err != nil {
		s.writeError(w, r, err)
		return
	}

	match, err := s.resolver.ResolveDownload(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if match == nil {
		s.writeError(w, r, models.NewError(models.ErrNotFound, r.URL.Path, "no matching release found"))
		return
	}
	s.serveAsset(w, r, match.Release, match.Asset)
}

// channel validates a requested channel against the published ones. An
// empty request means stable.
func (s *Server) channel(r *http.Request, requested string) (string, error) {
	if requested == "" {
		return release.StableChannel, nil
	}
	if requested == release.AnyChannel {
		return requested, nil
	}

	names, err := s.resolver.ListChannels(r.Context())
	if err != nil {
		return "", err
	}
	if !slices.Contains(names, requested) {
		return "", models.NewError(models.ErrNotFound, requested,
			"unrecognized channel, expecting one of %s", strings.Join(names, ", "))
	}
	return requested, nil
}

func (s *Server) handleLegacyDownload(w http.ResponseWriter, r *http.Request) {
	q := resolver.LegacyDownloadQuery{
		Channel:  param(r, "channel"),
		Platform: param(r, "platform"),
		Version:  param(r, "tag"),
		Filename: r.PathValue("filename"),
	}

	var err error
	if q.Extension, err = platform.ParseExtension(r.URL.Query().Get("filetype")); err != nil {
		s.writeError(w, r, err)
		return
	}

	if q.Platform == "" && q.Filename == "" {
		q.Platform = platformFromUserAgent(r.UserAgent())
		if q.Platform == "" {
			s.writeError(w, r, models.NewError(models.ErrInvalidQuery, "platform", "platform is required"))
			return
		}
	}

	match, err := s.resolver.ResolveLegacyDownload(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if match == nil {
		subject := q.Platform
		if q.Filename != "" {
			subject = q.Filename
		}
		s.writeError(w, r, models.NewError(models.ErrNotFound, subject,
			"no download available for version %s", orLatest(q.Version)))
		return
	}
	s.serveAsset(w, r, match.Release, match.Asset)
}

func orLatest(v string) string {
	if v == "" {
		return release.Latest
	}
	return v
}

// platformFromUserAgent guesses a legacy platform from a browser user agent
func platformFromUserAgent(ua string) string {
	switch {
	case ua == "":
		return ""
	case strings.Contains(ua, "Android"), strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"):
		return ""
	case strings.Contains(ua, "Macintosh"), strings.Contains(ua, "Mac OS X"):
		return string(platform.OSX64)
	case strings.Contains(ua, "Windows"):
		return string(platform.Windows32)
	case strings.Contains(ua, "Linux"):
		if strings.Contains(ua, "i686") || strings.Contains(ua, "i386") {
			return string(platform.Linux32)
		}
		return string(platform.Linux64)
	}
	return ""
}
