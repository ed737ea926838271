// Package events notifies subscribers around every asset hand-off.
package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ralt/relserve/internal/release"
)

// Download describes one asset being served
type Download struct {
	ID      string
	Time    time.Time
	Release *release.Release
	Asset   *release.Asset
	Request *http.Request
}

// Handler receives a download event
type Handler func(Download)

// Emitter invokes handlers synchronously, in subscription order
type Emitter struct {
	mu     sync.RWMutex
	before []Handler
	after  []Handler
}

// NewEmitter creates an emitter without subscribers
func NewEmitter() *Emitter {
	return &Emitter{}
}

// OnBeforeServe subscribes h to downloads about to be handed to the backend
func (e *Emitter) OnBeforeServe(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.before = append(e.before, h)
}

// OnAfterServe subscribes h to downloads the backend served successfully
func (e *Emitter) OnAfterServe(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.after = append(e.after, h)
}

// Serve wraps serve with the before and after notifications. The after
// handlers only run when serve returns nil.
func (e *Emitter) Serve(r *http.Request, rel *release.Release, asset *release.Asset, serve func() error) error {
	d := Download{
		ID:      uuid.NewString(),
		Time:    time.Now().UTC(),
		Release: rel,
		Asset:   asset,
		Request: r,
	}

	e.emit(e.handlers(true), d)
	if err := serve(); err != nil {
		return err
	}
	e.emit(e.handlers(false), d)
	return nil
}

func (e *Emitter) handlers(before bool) []Handler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if before {
		return e.before
	}
	return e.after
}

func (e *Emitter) emit(handlers []Handler, d Download) {
	for _, h := range handlers {
		h(d)
	}
}
