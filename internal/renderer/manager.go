package renderer

import (
	"log/slog"
	"sync"

	"github.com/rendermux/rendermux/internal/capability"
	"github.com/rendermux/rendermux/internal/observability"
)

// Manager tracks the connected renderers by id.
type Manager struct {
	mu        sync.RWMutex
	renderers map[string]*Renderer

	opts   Options
	logger *slog.Logger
}

// NewManager creates an empty renderer manager. New renderers are built with
// the given construction options.
func NewManager(opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		renderers: make(map[string]*Renderer),
		opts:      opts,
		logger:    observability.WithComponent(logger, "renderers"),
	}
}

// Register creates a renderer for the given capability profile and tracks it.
func (m *Manager) Register(profile capability.Profile) *Renderer {
	r := New(profile, m.opts)

	m.mu.Lock()
	m.renderers[r.ID] = r
	m.mu.Unlock()

	m.logger.Info("renderer connected",
		slog.String("renderer_id", r.ID),
		slog.String("browser", profile.Browser.String()),
	)
	return r
}

// Get returns the renderer with the given id.
func (m *Manager) Get(id string) (*Renderer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.renderers[id]
	return r, ok
}

// Remove stops and forgets the renderer with the given id.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	r, ok := m.renderers[id]
	delete(m.renderers, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	r.Controller.Stop()
	m.logger.Info("renderer removed", slog.String("renderer_id", id))
}

// List returns the tracked renderers in unspecified order.
func (m *Manager) List() []*Renderer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Renderer, 0, len(m.renderers))
	for _, r := range m.renderers {
		out = append(out, r)
	}
	return out
}

// Len returns the number of tracked renderers.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.renderers)
}
