package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ralt/relserve/internal/models"
)

// statusFor maps an error category to an HTTP status
func statusFor(err error) int {
	if errors.Is(err, context.Canceled) {
		return 499
	}
	t, ok := models.TypeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch t {
	case models.ErrInvalidQuery, models.ErrUnsupportedPlatform:
		return http.StatusBadRequest
	case models.ErrNotFound:
		return http.StatusNotFound
	case models.ErrBackend, models.ErrManifest:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	entry := logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Errorf("Request failed: %v", err)
	} else {
		entry.Debugf("Request rejected: %v", err)
	}

	if wantsJSON(r) {
		code := "Internal"
		if t, ok := models.TypeOf(err); ok {
			code = t.String()
		}
		writeJSON(w, status, map[string]string{"error": err.Error(), "code": code})
		return
	}
	http.Error(w, err.Error(), status)
}
