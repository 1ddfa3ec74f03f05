package renderer

import (
	"log/slog"
	"sync"

	"github.com/rendermux/rendermux/internal/models"
	"github.com/rendermux/rendermux/internal/observability"
	"github.com/rendermux/rendermux/internal/transcode"
)

// ProcessController terminates the external transcoder process for a resource.
// Process execution and lifecycle live outside this layer.
type ProcessController interface {
	Terminate(res *models.Resource) error
}

// Delegate observes session lifecycle transitions. The renderer installs one
// that feeds the player state machine.
type Delegate interface {
	Started(res *models.Resource)
	Stopped()
}

// Controller enforces at most one active playback resource per renderer.
//
// Start and Stop hold separate locks. A stop triggered from a client state
// report can arrive while a start for another resource is in progress; with a
// single lock the start path's internal stop call would deadlock. The inner
// state mutex guards the active resource and the delegate slot.
type Controller struct {
	startMu sync.Mutex
	stopMu  sync.Mutex

	mu          sync.Mutex
	active      *models.Resource
	delegate    Delegate
	newDelegate func() Delegate

	proc     ProcessController
	registry *transcode.SessionRegistry
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewController creates a playback controller. The delegate is created
// lazily by newDelegate on the first start.
func NewController(proc ProcessController, registry *transcode.SessionRegistry, newDelegate func() Delegate, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		proc:        proc,
		registry:    registry,
		newDelegate: newDelegate,
		logger:      observability.WithComponent(logger, "playback"),
		metrics:     metrics,
	}
}

// Active returns the currently playing resource, or nil.
func (c *Controller) Active() *models.Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Start makes res the active resource. A different active resource is fully
// stopped first.
func (c *Controller) Start(res *models.Resource) {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active != nil && active.Key() != res.Key() {
		c.Stop()
	}

	c.mu.Lock()
	c.active = res
	if c.delegate == nil && c.newDelegate != nil {
		c.delegate = c.newDelegate()
	}
	delegate := c.delegate
	c.mu.Unlock()

	c.logger.Info("playback started",
		slog.String("resource", res.Key()),
		slog.String("name", res.Name),
	)
	c.metrics.IncSessionsStarted()

	if delegate != nil {
		delegate.Started(res)
	}
}

// Stop tears down the active session: the external transcoder process is
// terminated, the session folder cleanup is dispatched asynchronously, and
// the active resource is cleared regardless of the termination outcome so a
// stuck process cannot leak a session.
func (c *Controller) Stop() {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()

	c.mu.Lock()
	active := c.active
	c.active = nil
	delegate := c.delegate
	c.mu.Unlock()

	if active != nil {
		if err := c.proc.Terminate(active); err != nil {
			c.logger.Warn("transcoder termination failed",
				slog.String("resource", active.Key()),
				slog.String("error", err.Error()),
			)
		}
		c.registry.CleanupAsync(active.Key())
		c.logger.Info("playback stopped", slog.String("resource", active.Key()))
		c.metrics.IncSessionsStopped()
	}

	if delegate != nil {
		delegate.Stopped()
	}
}
