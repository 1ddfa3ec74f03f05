// Package transcode contains the pipeline selection logic, the ffmpeg
// argument builders for each output pipeline, and the registry of segmented
// transcode sessions.
package transcode

import (
	"github.com/rendermux/rendermux/internal/models"
)

// Format identifies an output pipeline.
type Format int

// Supported output pipelines.
const (
	FormatFlash Format = iota
	FormatOgg
	FormatMP4
	FormatWebM
	FormatHLS
)

// String returns the pipeline name.
func (f Format) String() string {
	switch f {
	case FormatFlash:
		return "flash"
	case FormatOgg:
		return "ogg"
	case FormatMP4:
		return "mp4"
	case FormatWebM:
		return "webm"
	case FormatHLS:
		return "hls"
	default:
		return "unknown"
	}
}

// ContainerMime returns the container mime type the pipeline produces.
func (f Format) ContainerMime() string {
	switch f {
	case FormatFlash:
		return models.MimeFlash
	case FormatOgg:
		return models.MimeOgg
	case FormatMP4:
		return models.MimeMP4
	case FormatWebM:
		return models.MimeWebM
	case FormatHLS:
		return models.MimeHLS
	default:
		return ""
	}
}

// FormatForMime returns the pipeline producing the given container mime.
func FormatForMime(mime string) (Format, bool) {
	switch mime {
	case models.MimeFlash:
		return FormatFlash, true
	case models.MimeOgg:
		return FormatOgg, true
	case models.MimeMP4:
		return FormatMP4, true
	case models.MimeWebM:
		return FormatWebM, true
	case models.MimeHLS:
		return FormatHLS, true
	default:
		return FormatHLS, false
	}
}

// Policy is the codec handling decision for one stream of a target.
type Policy int

// Codec policies.
const (
	// PolicyEncode re-encodes the stream with the target's fixed encoder
	// parameters.
	PolicyEncode Policy = iota
	// PolicyCopy stream-copies the source without re-encoding.
	PolicyCopy
)

// String returns the policy name.
func (p Policy) String() string {
	if p == PolicyCopy {
		return "copy"
	}
	return "encode"
}

// Target is the computed container and codec policy for one playback request.
// It is derived per request and not persisted.
type Target struct {
	Format        Format
	ContainerMime string
	Video         Policy
	Audio         Policy
}

// SelectTarget decides the codec policy within the given pipeline. The
// pipeline itself is chosen by the caller; this only decides copy versus
// re-encode for each stream.
//
// A stream is copied when the source codec already matches the target's
// mandatory codec and no filter for that stream is pending in existingArgs.
// Pipelines without a copy path (ogg, webm) always re-encode.
func SelectTarget(format Format, media *models.MediaInfo, existingArgs []string) Target {
	t := Target{
		Format:        format,
		ContainerMime: format.ContainerMime(),
		Video:         PolicyEncode,
		Audio:         PolicyEncode,
	}

	switch format {
	case FormatFlash, FormatMP4:
		if canCopyVideo(media, existingArgs, "h264") {
			t.Video = PolicyCopy
		}
		if canCopyAudioAAC(media, existingArgs) {
			t.Audio = PolicyCopy
		}
	case FormatHLS:
		if canCopyVideo(media, existingArgs, "h264") {
			t.Video = PolicyCopy
		}
		if canCopyAudio(media, existingArgs, "vorbis") {
			t.Audio = PolicyCopy
		}
	case FormatOgg, FormatWebM:
		// No copy path: both pipelines re-encode unconditionally.
	}

	return t
}

// canCopyVideo reports whether the source video stream may be copied.
func canCopyVideo(media *models.MediaInfo, args []string, codec string) bool {
	return !hasVideoFilter(args) && media != nil && media.VideoCodec == codec
}

// canCopyAudio reports whether the source audio stream may be copied.
func canCopyAudio(media *models.MediaInfo, args []string, codec string) bool {
	if hasAudioFilter(args) {
		return false
	}
	track := media.FirstAudioTrack()
	return track != nil && track.Codec == codec
}

// canCopyAudioAAC is canCopyAudio for targets whose mandatory audio codec is
// AAC in any profile variant.
func canCopyAudioAAC(media *models.MediaInfo, args []string) bool {
	if hasAudioFilter(args) {
		return false
	}
	track := media.FirstAudioTrack()
	return track != nil && track.AAC
}

// hasVideoFilter reports whether a video filter is already pending in args.
// Stream copy is impossible once a filter is present.
func hasVideoFilter(args []string) bool {
	return containsArg(args, "-vf") || containsArg(args, "-filter_complex")
}

// hasAudioFilter reports whether an audio filter is already pending in args.
func hasAudioFilter(args []string) bool {
	return containsArg(args, "-af") || containsArg(args, "-filter_complex")
}

func containsArg(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}
