package push

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEChannelSerializesConcurrentFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	ch := NewSSEChannel(rec, time.Second)

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				assert.NoError(t, ch.Send(NewNotify("info", "hello")))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				assert.NoError(t, ch.Comment("heartbeat"))
			}
		}()
	}
	wg.Wait()

	// Data and comment frames interleave but never tear: every frame is a
	// complete line followed by a blank line.
	body := rec.Body.String()
	require.True(t, strings.HasSuffix(body, "\n\n"))
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	require.Len(t, frames, workers*perWorker*2)
	for _, frame := range frames {
		switch {
		case frame == `data: ["notify","info","hello"]`:
		case frame == ":heartbeat":
		default:
			t.Fatalf("torn frame: %q", frame)
		}
	}
}

func TestSSEChannelClosedRejectsWrites(t *testing.T) {
	rec := httptest.NewRecorder()
	ch := NewSSEChannel(rec, 0)

	require.NoError(t, ch.Close())

	assert.Error(t, ch.Send(NewControl("pause")))
	assert.Error(t, ch.Comment("heartbeat"))
	assert.False(t, ch.IsOpen())

	select {
	case <-ch.Wait():
	default:
		t.Fatal("Wait should be released after Close")
	}
}
