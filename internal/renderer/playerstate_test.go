package renderer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendermux/rendermux/internal/models"
	"github.com/rendermux/rendermux/internal/push"
)

type countingStopper struct {
	calls int
}

func (c *countingStopper) Stop() { c.calls++ }

func TestIngestRemoteState(t *testing.T) {
	channel := push.NewChannel(nil, nil)
	s := NewStateSync(channel, nil)

	s.IngestRemoteState(map[string]string{
		"playback": "PLAYING",
		"mute":     "0",
		"volume":   "75",
		"position": "90",
	})

	state := s.State()
	assert.Equal(t, PlaybackPlaying, state.Playback)
	assert.False(t, state.Muted)
	assert.Equal(t, 75, state.Volume)
	assert.Equal(t, "00:01:30", state.Position)
}

func TestIngestRemoteStateParseResilience(t *testing.T) {
	channel := push.NewChannel(nil, nil)
	s := NewStateSync(channel, nil)

	// Garbage numeric fields fall back to zero without raising.
	s.IngestRemoteState(map[string]string{
		"playback": "PAUSED",
		"mute":     "1",
		"volume":   "loud",
		"position": "abc",
	})

	state := s.State()
	assert.Equal(t, PlaybackPaused, state.Playback)
	assert.True(t, state.Muted)
	assert.Equal(t, 0, state.Volume)
	assert.Equal(t, "00:00:00", state.Position)

	// An unrecognized playback symbol maps to UNKNOWN.
	s.IngestRemoteState(map[string]string{"playback": "buffering"})
	assert.Equal(t, PlaybackUnknown, s.State().Playback)

	// A missing mute key reads as muted, matching the client wire shape
	// where "0" is the only unmuted value.
	assert.True(t, s.State().Muted)
}

func TestIngestStoppedTriggersTeardownOnce(t *testing.T) {
	channel := push.NewChannel(nil, nil)
	s := NewStateSync(channel, nil)
	stopper := &countingStopper{}
	s.SetStopper(stopper)

	s.IngestRemoteState(map[string]string{"playback": "STOPPED", "mute": "0"})
	assert.Equal(t, 1, stopper.calls)

	s.IngestRemoteState(map[string]string{"playback": "PLAYING", "mute": "0"})
	assert.Equal(t, 1, stopper.calls)
}

func TestObserversSeeStateBeforeTeardown(t *testing.T) {
	channel := push.NewChannel(nil, nil)
	s := NewStateSync(channel, nil)

	var order []string
	s.AddObserver(func(state PlayerState) {
		order = append(order, "observer:"+state.Playback.String())
	})
	s.SetStopper(stopFunc(func() { order = append(order, "stop") }))

	s.IngestRemoteState(map[string]string{"playback": "STOPPED"})

	require.Equal(t, []string{"observer:STOPPED", "stop"}, order)
}

type stopFunc func()

func (f stopFunc) Stop() { f() }

func TestSessionStarted(t *testing.T) {
	channel := push.NewChannel(nil, nil)
	s := NewStateSync(channel, nil)

	res := &models.Resource{
		ID:   "r1",
		Name: "Big Buck Bunny",
		Media: &models.MediaInfo{
			Duration: 9*time.Minute + 56*time.Second,
		},
	}
	s.SessionStarted(res)

	state := s.State()
	assert.Equal(t, "Big Buck Bunny", state.TrackName)
	assert.Equal(t, "00:09:56", state.Duration)
}

func TestSessionStoppedDoesNotRetrigger(t *testing.T) {
	channel := push.NewChannel(nil, nil)
	s := NewStateSync(channel, nil)
	stopper := &countingStopper{}
	s.SetStopper(stopper)

	s.SessionStopped()

	assert.Equal(t, PlaybackStopped, s.State().Playback)
	assert.Equal(t, 0, stopper.calls)
}

func TestOutboundCommands(t *testing.T) {
	channel := push.NewChannel(nil, nil)
	s := NewStateSync(channel, nil)

	s.Pause()
	s.Play()
	s.StopCommand()
	s.Mute()
	s.SetVolume(75)

	got := channel.PullAndClear()
	require.Len(t, got, 5)
	assert.Equal(t, push.Message{"control", "pause"}, got[0])
	assert.Equal(t, push.Message{"control", "play"}, got[1])
	assert.Equal(t, push.Message{"control", "stop"}, got[2])
	assert.Equal(t, push.Message{"control", "mute"}, got[3])
	assert.Equal(t, push.Message{"control", "setvolume", "75"}, got[4])

	// Outbound commands never mutate local state.
	assert.Equal(t, PlaybackUnknown, s.State().Playback)
}
