// Package process is the seam to the external transcoder process manager.
// The transcoder's execution and I/O live outside this service; components
// that launch a transcoder bind a termination hook here so the playback
// controller can tear it down by resource.
package process

import (
	"log/slog"
	"sync"

	"github.com/rendermux/rendermux/internal/models"
	"github.com/rendermux/rendermux/internal/observability"
)

// Controller maps resource keys to termination hooks.
type Controller struct {
	mu     sync.Mutex
	hooks  map[string]func() error
	logger *slog.Logger
}

// NewController creates an empty process controller.
func NewController(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		hooks:  make(map[string]func() error),
		logger: observability.WithComponent(logger, "process"),
	}
}

// Bind registers the termination hook for a resource, replacing any previous
// one.
func (c *Controller) Bind(resourceKey string, terminate func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[resourceKey] = terminate
}

// Unbind removes the hook for a resource, if any.
func (c *Controller) Unbind(resourceKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.hooks, resourceKey)
}

// Terminate invokes and removes the hook bound to the resource. A resource
// with no bound process is not an error; there is simply nothing to stop.
func (c *Controller) Terminate(res *models.Resource) error {
	c.mu.Lock()
	hook, ok := c.hooks[res.Key()]
	delete(c.hooks, res.Key())
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("no transcoder process bound", slog.String("resource", res.Key()))
		return nil
	}
	return hook()
}
