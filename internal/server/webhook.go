package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ralt/relserve/internal/models"
)

const maxWebhookBody = 25 << 20

type releaseEvent struct {
	Action  string `json:"action"`
	Release struct {
		TagName string `json:"tag_name"`
	} `json:"release"`
}

// validSignature checks a GitHub X-Hub-Signature-256 header against body
func validSignature(secret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// handleWebhook refreshes the release cache when GitHub reports a release
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.writeError(w, r, models.WrapError(models.ErrInvalidQuery, "webhook", err))
		return
	}

	if !validSignature(s.cfg.WebhookSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		logrus.Warnf("Rejected webhook from %s: bad signature", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	switch event := r.Header.Get("X-GitHub-Event"); event {
	case "ping":
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	case "release":
		var payload releaseEvent
		if err := json.Unmarshal(body, &payload); err != nil {
			s.writeError(w, r, models.WrapError(models.ErrInvalidQuery, "webhook", err))
			return
		}
		logrus.WithFields(logrus.Fields{
			"action": payload.Action,
			"tag":    payload.Release.TagName,
		}).Info("Release event received, refreshing releases")
		s.cache.Invalidate()
		w.WriteHeader(http.StatusAccepted)
	default:
		logrus.Debugf("Ignoring webhook event %q", event)
		w.WriteHeader(http.StatusNoContent)
	}
}
