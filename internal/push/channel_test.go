package push

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel records sends and can be scripted to fail at a given message
// index.
type fakeChannel struct {
	sent   []Message
	failAt int // 0-based index of the send that fails, -1 for never
	closed bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{failAt: -1}
}

func (f *fakeChannel) Send(msg Message) error {
	if f.failAt >= 0 && len(f.sent) == f.failAt {
		return fmt.Errorf("send refused")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func (f *fakeChannel) IsOpen() bool {
	return !f.closed
}

func TestPushQueuesWithoutLiveChannel(t *testing.T) {
	c := NewChannel(nil, nil)

	c.Push(NewNotify("info", "one"))
	c.Push(NewControl("pause"))
	c.Push(NewSetURL("/play/abc"))

	got := c.PullAndClear()
	require.Len(t, got, 3)
	assert.Equal(t, Message{"notify", "info", "one"}, got[0])
	assert.Equal(t, Message{"control", "pause"}, got[1])
	assert.Equal(t, Message{"seturl", "/play/abc"}, got[2])

	// Queue is now empty.
	assert.Nil(t, c.PullAndClear())
	assert.Equal(t, 0, c.QueueLen())
}

func TestPushDeliversOverLiveChannel(t *testing.T) {
	c := NewChannel(nil, nil)
	live := newFakeChannel()
	c.Attach(live)

	c.Push(NewControl("play"))

	assert.Equal(t, []Message{{"control", "play"}}, live.sent)
	assert.Equal(t, 0, c.QueueLen())
}

func TestPushQueuesOnSendFailure(t *testing.T) {
	c := NewChannel(nil, nil)
	live := newFakeChannel()
	live.failAt = 0
	c.Attach(live)

	c.Push(NewControl("mute"))

	assert.Empty(t, live.sent)
	got := c.PullAndClear()
	require.Len(t, got, 1)
	assert.Equal(t, Message{"control", "mute"}, got[0])
}

func TestAttachDrainsQueueInOrder(t *testing.T) {
	c := NewChannel(nil, nil)
	for i := 0; i < 5; i++ {
		c.Push(NewNotify("info", fmt.Sprintf("m%d", i)))
	}

	live := newFakeChannel()
	c.Attach(live)

	require.Len(t, live.sent, 5)
	for i, msg := range live.sent {
		assert.Equal(t, fmt.Sprintf("m%d", i), msg[2])
	}
	assert.Equal(t, 0, c.QueueLen())
}

func TestDrainStopsAtFirstFailure(t *testing.T) {
	c := NewChannel(nil, nil)
	for i := 0; i < 5; i++ {
		c.Push(NewNotify("info", fmt.Sprintf("m%d", i)))
	}

	// The channel delivers m0 and m1, then refuses m2.
	live := newFakeChannel()
	live.failAt = 2
	c.Attach(live)

	require.Len(t, live.sent, 2)
	assert.Equal(t, "m0", live.sent[0][2])
	assert.Equal(t, "m1", live.sent[1][2])

	// m2..m4 remain queued in original order.
	remaining := c.PullAndClear()
	require.Len(t, remaining, 3)
	assert.Equal(t, "m2", remaining[0][2])
	assert.Equal(t, "m3", remaining[1][2])
	assert.Equal(t, "m4", remaining[2][2])
}

func TestAttachReplacesLiveChannel(t *testing.T) {
	c := NewChannel(nil, nil)

	a := newFakeChannel()
	c.Attach(a)

	b := newFakeChannel()
	c.Attach(b)

	// A received the close sentinel and was closed before B saw anything.
	require.Len(t, a.sent, 1)
	assert.Equal(t, CloseSentinel(), a.sent[0])
	assert.True(t, a.closed)
	assert.Empty(t, b.sent)

	// Pushes now go to B only.
	c.Push(NewControl("stop"))
	assert.Len(t, a.sent, 1)
	assert.Equal(t, []Message{{"control", "stop"}}, b.sent)
}

func TestAttachClosedChannelNoSentinel(t *testing.T) {
	c := NewChannel(nil, nil)

	a := newFakeChannel()
	c.Attach(a)
	a.closed = true

	b := newFakeChannel()
	c.Attach(b)

	// A was already closed, so no sentinel was attempted.
	assert.Empty(t, a.sent)
}

func TestDetachOnlyClearsOwnSlot(t *testing.T) {
	c := NewChannel(nil, nil)

	a := newFakeChannel()
	c.Attach(a)

	b := newFakeChannel()
	c.Attach(b)

	// A detaching late must not evict B.
	c.Detach(a)
	c.Push(NewControl("play"))
	assert.Equal(t, []Message{{"control", "play"}}, b.sent)

	c.Detach(b)
	c.Push(NewControl("pause"))
	assert.Equal(t, 1, c.QueueLen())
}

func TestMessageJSONShape(t *testing.T) {
	data, err := json.Marshal(NewControl("setvolume", "75"))
	require.NoError(t, err)
	assert.JSONEq(t, `["control","setvolume","75"]`, string(data))

	data, err = json.Marshal(CloseSentinel())
	require.NoError(t, err)
	assert.JSONEq(t, `["close","warn","",""]`, string(data))

	data, err = json.Marshal(Message(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
