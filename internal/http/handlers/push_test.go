package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendermux/rendermux/internal/renderer"
)

func newPushTestRouter(t *testing.T) (*chi.Mux, *renderer.Manager) {
	t.Helper()
	manager := newTestManager(t)
	h := NewPushHandler(manager, time.Second, nil)
	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return router, manager
}

func TestPollEmptyQueue(t *testing.T) {
	router, manager := newPushTestRouter(t)
	rh := NewRendererHandler(manager, 800, nil)
	reg, err := rh.RegisterRenderer(context.Background(), &RegisterRendererInput{})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/renderers/"+reg.Body.ID+"/push", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "{}", rec.Body.String())
}

func TestPollDrainsQueueInOrder(t *testing.T) {
	router, manager := newPushTestRouter(t)
	rh := NewRendererHandler(manager, 800, nil)
	reg, err := rh.RegisterRenderer(context.Background(), &RegisterRendererInput{})
	require.NoError(t, err)

	rend, ok := manager.Get(reg.Body.ID)
	require.True(t, ok)
	rend.Notify("info", "first")
	rend.State.Pause()

	req := httptest.NewRequest("GET", "/renderers/"+reg.Body.ID+"/push", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got [][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, []string{"notify", "info", "first"}, got[0])
	assert.Equal(t, []string{"control", "pause"}, got[1])

	// The queue is now empty.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/renderers/"+reg.Body.ID+"/push", nil))
	assert.Equal(t, "{}", rec.Body.String())
}

func TestPollUnknownRenderer(t *testing.T) {
	router, _ := newPushTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/renderers/nope/push", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSSEUnknownRenderer(t *testing.T) {
	router, _ := newPushTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/renderers/nope/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSSEAttachDeliversQueuedMessages(t *testing.T) {
	router, manager := newPushTestRouter(t)
	rh := NewRendererHandler(manager, 800, nil)
	reg, err := rh.RegisterRenderer(context.Background(), &RegisterRendererInput{})
	require.NoError(t, err)

	rend, ok := manager.Get(reg.Body.ID)
	require.True(t, ok)
	rend.Notify("info", "queued before attach")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/renderers/"+reg.Body.ID+"/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(rec, req)
		close(done)
	}()

	// The queued message is drained onto the stream at attach time.
	assert.Eventually(t, func() bool {
		return rend.Channel.QueueLen() == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), ":connected")
	assert.Contains(t, rec.Body.String(), `data: ["notify","info","queued before attach"]`)
}

// Heartbeat comments and pushed data frames share the response writer; both
// must go through the live channel's lock so concurrent pushes never tear a
// frame mid-write.
func TestSSEHeartbeatDoesNotTearPushedFrames(t *testing.T) {
	manager := newTestManager(t)
	h := NewPushHandler(manager, time.Second, nil)
	h.heartbeatInterval = time.Millisecond
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	srv := httptest.NewServer(router)
	defer srv.Close()

	rh := NewRendererHandler(manager, 800, nil)
	reg, err := rh.RegisterRenderer(context.Background(), &RegisterRendererInput{})
	require.NoError(t, err)
	rend, ok := manager.Get(reg.Body.ID)
	require.True(t, ok)

	resp, err := http.Get(srv.URL + "/renderers/" + reg.Body.ID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	const pushes = 200
	go func() {
		for i := 0; i < pushes; i++ {
			rend.Notify("info", strconv.Itoa(i))
		}
	}()

	// Unblock the scanner if the stream stalls.
	timeout := time.AfterFunc(5*time.Second, func() { resp.Body.Close() })
	defer timeout.Stop()

	dataFrames := 0
	scanner := bufio.NewScanner(resp.Body)
	for dataFrames < pushes && scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
		case strings.HasPrefix(line, ":"):
			// Heartbeat or connection comment.
		case strings.HasPrefix(line, `data: ["notify","info",`):
			dataFrames++
		default:
			t.Fatalf("torn frame: %q", line)
		}
	}
	assert.Equal(t, pushes, dataFrames)
}
