package transcode

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rendermux/rendermux/internal/observability"
)

// Session maps an active playback resource to its segment output folder.
type Session struct {
	ResourceKey string
	FolderPath  string
	CreatedAt   time.Time
}

// SessionRegistry owns the transcode session of one renderer. At most one
// session exists at a time; registering a new one evicts (but does not
// delete) the previous entry. Folder deletion runs on a detached goroutine so
// the stop path never blocks on filesystem I/O.
type SessionRegistry struct {
	mu      sync.Mutex
	current *Session
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry(logger *slog.Logger, metrics *observability.Metrics) *SessionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{
		logger:  observability.WithComponent(logger, "transcode"),
		metrics: metrics,
	}
}

// Register stores the mapping from resourceKey to folderPath, evicting any
// prior session. The evicted folder is not deleted here; the stop path owns
// deletion.
func (r *SessionRegistry) Register(resourceKey, folderPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.logger.Debug("evicting previous transcode session",
			slog.String("resource", r.current.ResourceKey),
			slog.String("folder", r.current.FolderPath),
		)
	}
	r.current = &Session{
		ResourceKey: resourceKey,
		FolderPath:  folderPath,
		CreatedAt:   time.Now(),
	}
}

// Current returns a copy of the registered session, or nil.
func (r *SessionRegistry) Current() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	s := *r.current
	return &s
}

// TakeAndClear atomically removes and returns the folder path registered for
// resourceKey. The second return is false when no session is registered for
// that resource.
func (r *SessionRegistry) TakeAndClear(resourceKey string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil || r.current.ResourceKey != resourceKey {
		return "", false
	}
	folder := r.current.FolderPath
	r.current = nil
	return folder, true
}

// CleanupAsync removes the session registered for resourceKey and deletes its
// folder on a detached goroutine. The call returns as soon as the mapping is
// removed; deletion failure is logged and not retried.
func (r *SessionRegistry) CleanupAsync(resourceKey string) {
	folder, ok := r.TakeAndClear(resourceKey)
	if !ok {
		return
	}

	go func() {
		r.logger.Debug("deleting transcode session folder", slog.String("folder", folder))
		if err := os.RemoveAll(folder); err != nil {
			r.logger.Warn("failed to delete transcode session folder",
				slog.String("folder", folder),
				slog.String("error", err.Error()),
			)
			r.metrics.IncCleanupFailures()
			return
		}
		r.metrics.IncFoldersCleaned()
	}()
}
