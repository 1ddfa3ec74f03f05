package push

import (
	"log/slog"
	"sync"

	"github.com/rendermux/rendermux/internal/observability"
)

// LiveChannel is an open, push-capable delivery connection to one client.
// Implementations wrap a concrete transport (SSE stream, websocket).
type LiveChannel interface {
	// Send delivers one message. A non-nil error means the message was not
	// delivered and the channel should be considered dead.
	Send(Message) error
	// Close releases the underlying transport. Safe to call more than once.
	Close() error
	// IsOpen reports whether the channel can still accept sends.
	IsOpen() bool
}

// Channel is the per-renderer notification channel: an unbounded FIFO queue
// of messages plus at most one live delivery slot. One mutex guards both so
// no operation can observe the queue or the slot mid-update.
//
// Delivery is at-least-once in order: a message is either sent over the live
// channel or queued, and queued messages are drained FIFO on the next attach
// or taken as a snapshot by PullAndClear.
type Channel struct {
	mu     sync.Mutex
	queue  []Message
	live   LiveChannel
	logger *slog.Logger

	metrics *observability.Metrics
}

// NewChannel creates a notification channel with an empty queue and no live
// slot.
func NewChannel(logger *slog.Logger, metrics *observability.Metrics) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		logger:  observability.WithComponent(logger, "push"),
		metrics: metrics,
	}
}

// Push delivers the message over the live channel when one is attached and
// the send succeeds; otherwise the message is appended to the queue for a
// later drain or poll.
func (c *Channel) Push(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live != nil && c.live.IsOpen() {
		err := c.live.Send(msg)
		if err == nil {
			c.metrics.IncPushDelivered()
			return
		}
		c.logger.Debug("live send failed, queueing message",
			slog.String("verb", verbOf(msg)),
			slog.String("error", err.Error()),
		)
	}

	c.queue = append(c.queue, msg)
	c.metrics.IncPushQueued()
	c.metrics.AddQueueDepth(1)
}

// Attach installs live as the single delivery slot. A previously open channel
// first receives the close sentinel and is closed; the replacement is
// unconditional. Queued messages are then drained in FIFO order over the new
// channel, stopping at the first failed send and leaving the failed message
// and everything after it queued.
func (c *Channel) Attach(live LiveChannel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live != nil && c.live.IsOpen() {
		if err := c.live.Send(CloseSentinel()); err != nil {
			c.logger.Debug("close sentinel send failed", slog.String("error", err.Error()))
		}
		if err := c.live.Close(); err != nil {
			c.logger.Debug("closing previous live channel failed", slog.String("error", err.Error()))
		}
	}
	c.live = live
	c.metrics.IncChannelAttaches()

	if live == nil {
		return
	}

	for len(c.queue) > 0 {
		if err := live.Send(c.queue[0]); err != nil {
			c.logger.Debug("drain stopped on send failure",
				slog.Int("remaining", len(c.queue)),
				slog.String("error", err.Error()),
			)
			return
		}
		c.queue = c.queue[1:]
		c.metrics.IncPushDelivered()
		c.metrics.AddQueueDepth(-1)
	}
}

// Detach clears the live slot if it currently holds the given channel.
// Transports call this when their connection ends so a dead channel does not
// swallow pushes.
func (c *Channel) Detach(live LiveChannel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live == live {
		c.live = nil
	}
}

// PullAndClear atomically snapshots the queued messages and clears the queue.
// It returns nil when the queue was empty.
func (c *Channel) PullAndClear() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return nil
	}
	out := c.queue
	c.queue = nil
	c.metrics.AddPushPolled(len(out))
	c.metrics.AddQueueDepth(-len(out))
	return out
}

// QueueLen returns the number of queued messages.
func (c *Channel) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func verbOf(msg Message) string {
	if len(msg) == 0 {
		return ""
	}
	return msg[0]
}
