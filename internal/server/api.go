package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ralt/relserve/internal/release"
	"github.com/ralt/relserve/internal/resolver"
)

type assetView struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
	Platform    string `json:"type,omitempty"`
}

type releaseView struct {
	Tag         string      `json:"tag"`
	Version     string      `json:"version"`
	Channel     string      `json:"channel"`
	Notes       string      `json:"notes"`
	PublishedAt time.Time   `json:"published_at"`
	Assets      []assetView `json:"assets"`
}

func viewOf(rel *release.Release) releaseView {
	v := releaseView{
		Tag:         rel.Tag,
		Version:     rel.Version,
		Channel:     rel.Channel,
		Notes:       rel.Notes,
		PublishedAt: rel.PublishedAt,
		Assets:      make([]assetView, 0, len(rel.Assets)),
	}
	for _, a := range rel.Assets {
		v.Assets = append(v.Assets, assetView{
			ID:          a.ID,
			Filename:    a.Filename,
			Size:        a.Size,
			ContentType: a.ContentType,
			Platform:    string(a.PlatformTag),
		})
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Debugf("Failed to write response: %v", err)
	}
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.resolver.Channels(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if channels == nil {
		channels = []release.ChannelSummary{}
	}
	writeJSON(w, http.StatusOK, channels)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := resolver.VersionsQuery{
		Channel:  query.Get("channel"),
		Platform: query.Get("platform"),
		Version:  query.Get("version"),
	}
	if q.Channel == "" {
		q.Channel = release.AnyChannel
	}

	releases, err := s.resolver.Versions(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := make([]releaseView, 0, len(releases))
	for _, rel := range releases {
		views = append(views, viewOf(rel))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]float64{
		"uptime": s.now().Sub(s.started).Seconds(),
	})
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.resolver.Notes(r.Context(), param(r, "version"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"note": notes})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(notes))
}
