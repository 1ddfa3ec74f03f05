// Package models contains the shared domain types for rendermux.
package models

import (
	"fmt"
	"time"
)

// Media mime types used by the pipeline selector.
const (
	MimeFlash = "video/flash"
	MimeMP4   = "video/mp4"
	MimeOgg   = "video/ogg"
	MimeWebM  = "video/webm"
	MimeHLS   = "application/x-mpegURL"
)

// AudioTrack describes the first audio track of a resource.
type AudioTrack struct {
	// Codec is the audio codec identifier (e.g. "aac", "vorbis", "ac3").
	Codec string
	// AAC reports whether the track is AAC in any of its profile variants.
	AAC bool
}

// MediaInfo describes the probed characteristics of a playable resource.
// It is produced by an external metadata extractor and consumed read-only here.
type MediaInfo struct {
	// MimeType is the container mime type of the source (e.g. "video/flash").
	MimeType string
	// VideoCodec is the video codec identifier (e.g. "h264", "vp9").
	VideoCodec string
	// Audio is the first audio track, if any.
	Audio *AudioTrack
	// Duration is the total playback duration, zero when unknown.
	Duration time.Duration
}

// FirstAudioTrack returns the first audio track or nil.
func (m *MediaInfo) FirstAudioTrack() *AudioTrack {
	if m == nil {
		return nil
	}
	return m.Audio
}

// Resource is a playable media item known to the server.
type Resource struct {
	// ID is the server-assigned identifier used in playback URLs.
	ID string
	// Name is the display name shown to the client.
	Name string
	// SystemName is the stable identity string of the underlying media
	// (typically the absolute path or source URL). Session folder names are
	// derived from it.
	SystemName string
	// Media holds the probed media descriptor, nil when not yet parsed.
	Media *MediaInfo
}

// Key returns the registry key for this resource.
func (r *Resource) Key() string {
	return r.ID
}

// DurationString formats the resource duration as HH:MM:SS, or an empty
// string when the duration is unknown.
func (r *Resource) DurationString() string {
	if r.Media == nil || r.Media.Duration <= 0 {
		return ""
	}
	return FormatDuration(r.Media.Duration)
}

// FormatDuration renders a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
