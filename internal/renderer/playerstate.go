package renderer

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/rendermux/rendermux/internal/models"
	"github.com/rendermux/rendermux/internal/observability"
	"github.com/rendermux/rendermux/internal/push"
)

// Playback is the client player's reported playback phase.
type Playback int

// Playback phases. Unknown covers anything the client reports outside the
// three defined symbols.
const (
	PlaybackUnknown Playback = iota
	PlaybackStopped
	PlaybackPlaying
	PlaybackPaused
)

// String returns the phase name.
func (p Playback) String() string {
	switch p {
	case PlaybackStopped:
		return "STOPPED"
	case PlaybackPlaying:
		return "PLAYING"
	case PlaybackPaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

func parsePlayback(s string) Playback {
	switch s {
	case "STOPPED":
		return PlaybackStopped
	case "PLAYING":
		return PlaybackPlaying
	case "PAUSED":
		return PlaybackPaused
	default:
		return PlaybackUnknown
	}
}

// PlayerState is the reconciled view of the client player.
type PlayerState struct {
	Playback  Playback
	Muted     bool
	Volume    int
	Position  string
	TrackName string
	Duration  string
}

// Stopper tears down the active playback session. The playback controller
// implements it.
type Stopper interface {
	Stop()
}

// StateSync reconciles client-reported playback state with server-issued
// commands. It is the single writer of PlayerState; local state changes only
// through IngestRemoteState or session start. Outbound commands push messages
// without touching local state.
type StateSync struct {
	mu        sync.Mutex
	state     PlayerState
	observers []func(PlayerState)

	channel *push.Channel
	stopper Stopper
	logger  *slog.Logger
}

// NewStateSync creates a state machine pushing outbound commands through
// channel. The stopper is attached later with SetStopper since the controller
// and the state machine reference each other.
func NewStateSync(channel *push.Channel, logger *slog.Logger) *StateSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateSync{
		channel: channel,
		logger:  observability.WithComponent(logger, "player"),
	}
}

// SetStopper attaches the session teardown hook.
func (s *StateSync) SetStopper(stopper Stopper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopper = stopper
}

// AddObserver registers a callback invoked with a state snapshot after every
// state change. Callbacks run outside the state lock.
func (s *StateSync) AddObserver(fn func(PlayerState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// State returns a snapshot of the current player state.
func (s *StateSync) State() PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IngestRemoteState applies a client state report. Parse failures are
// non-fatal: the field falls back to its zero value and processing continues.
// A STOPPED report triggers session teardown after observers have seen the
// new state; the teardown call runs outside the state lock.
func (s *StateSync) IngestRemoteState(report map[string]string) {
	s.mu.Lock()

	s.state.Playback = parsePlayback(report["playback"])
	s.state.Muted = report["mute"] != "0"

	s.state.Volume = 0
	if v := report["volume"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.logger.Debug("unexpected volume value", slog.String("value", v))
		} else {
			s.state.Volume = n
		}
	}

	var seconds int64
	if p, ok := report["position"]; ok {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			s.logger.Debug("unexpected position value", slog.String("value", p))
		} else {
			seconds = n
		}
	}
	s.state.Position = models.FormatDuration(time.Duration(seconds) * time.Second)

	snapshot := s.state
	observers := make([]func(PlayerState), len(s.observers))
	copy(observers, s.observers)
	stopper := s.stopper
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}

	if snapshot.Playback == PlaybackStopped && stopper != nil {
		stopper.Stop()
	}
}

// SessionStarted initializes the track fields for a newly started resource.
// Playback phase is left to the client's next report.
func (s *StateSync) SessionStarted(res *models.Resource) {
	s.mu.Lock()
	s.state.TrackName = res.Name
	s.state.Duration = res.DurationString()
	snapshot := s.state
	observers := make([]func(PlayerState), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}

// SessionStopped records local teardown without re-triggering it.
func (s *StateSync) SessionStopped() {
	s.mu.Lock()
	s.state.Playback = PlaybackStopped
	snapshot := s.state
	observers := make([]func(PlayerState), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}

// Pause pushes the pause command to the client.
func (s *StateSync) Pause() {
	s.channel.Push(push.NewControl("pause"))
}

// Play pushes the play command to the client.
func (s *StateSync) Play() {
	s.channel.Push(push.NewControl("play"))
}

// StopCommand pushes the stop command to the client.
func (s *StateSync) StopCommand() {
	s.channel.Push(push.NewControl("stop"))
}

// Mute pushes the mute toggle command to the client.
func (s *StateSync) Mute() {
	s.channel.Push(push.NewControl("mute"))
}

// SetVolume pushes a volume change command to the client.
func (s *StateSync) SetVolume(volume int) {
	s.channel.Push(push.NewControl("setvolume", strconv.Itoa(volume)))
}
