// Package push implements the command delivery channel between the server
// and one connected client: a FIFO queue of messages with a single live
// delivery slot, drained over attach or through a polling snapshot.
package push

import "encoding/json"

// Message is an ordered sequence of strings. The first element is a verb.
// A message is immutable once constructed.
type Message []string

// Verbs used by the renderer control layer.
const (
	VerbNotify  = "notify"
	VerbControl = "control"
	VerbSetURL  = "seturl"
)

// CloseSentinel is sent to a live channel immediately before it is replaced.
func CloseSentinel() Message {
	return Message{"close", "warn", "", ""}
}

// NewNotify builds a notification message of the given type ("warn", "info",
// "error") with a display message.
func NewNotify(notifyType, text string) Message {
	return Message{VerbNotify, notifyType, text}
}

// NewControl builds a player control command, e.g. NewControl("pause") or
// NewControl("setvolume", "75").
func NewControl(verb string, args ...string) Message {
	m := Message{VerbControl, verb}
	return append(m, args...)
}

// NewSetURL builds the message directing the client player to a playback URL.
func NewSetURL(url string) Message {
	return Message{VerbSetURL, url}
}

// MarshalJSON encodes the message as a JSON array of strings, never null.
func (m Message) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(m))
}
