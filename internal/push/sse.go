package push

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// SSEChannel delivers messages over a server-sent-events response stream.
// Each message is one SSE data frame carrying the JSON-encoded string array.
// All frames written after the channel is attached must go through it, so that
// its mutex serializes access to the response writer; the handler's heartbeat
// uses Comment rather than writing to the response directly.
type SSEChannel struct {
	mu          sync.Mutex
	w           http.ResponseWriter
	rc          *http.ResponseController
	sendTimeout time.Duration
	closed      bool
	done        chan struct{}
}

// NewSSEChannel wraps an SSE response. The caller must have written the SSE
// headers before attaching the channel. sendTimeout bounds each frame write,
// 0 disables the bound. Close unblocks Wait; the handler should block on Wait
// until the channel is replaced or the client leaves.
func NewSSEChannel(w http.ResponseWriter, sendTimeout time.Duration) *SSEChannel {
	return &SSEChannel{
		w:           w,
		rc:          http.NewResponseController(w),
		sendTimeout: sendTimeout,
		done:        make(chan struct{}),
	}
}

// Send writes one data frame and flushes it.
func (s *SSEChannel) Send(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding push message: %w", err)
	}
	return s.writeFrame(fmt.Sprintf("data: %s\n\n", payload))
}

// Comment writes one comment frame and flushes it. Clients ignore comment
// frames; they keep intermediaries from timing out an idle stream.
func (s *SSEChannel) Comment(text string) error {
	return s.writeFrame(fmt.Sprintf(":%s\n\n", text))
}

func (s *SSEChannel) writeFrame(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("sse channel closed")
	}

	// Best effort: response recorders do not support deadlines.
	if s.sendTimeout > 0 {
		_ = s.rc.SetWriteDeadline(time.Now().Add(s.sendTimeout))
	}
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return fmt.Errorf("writing sse frame: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flushing sse frame: %w", err)
	}
	if s.sendTimeout > 0 {
		_ = s.rc.SetWriteDeadline(time.Time{})
	}
	return nil
}

// Close marks the channel dead and releases Wait. The underlying response is
// finished by the handler, not here.
func (s *SSEChannel) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

// IsOpen reports whether the stream still accepts frames.
func (s *SSEChannel) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Wait returns a channel that is closed when the SSE channel is closed.
func (s *SSEChannel) Wait() <-chan struct{} {
	return s.done
}
