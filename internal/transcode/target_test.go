package transcode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rendermux/rendermux/internal/models"
)

func h264AAC() *models.MediaInfo {
	return &models.MediaInfo{
		VideoCodec: "h264",
		Audio:      &models.AudioTrack{Codec: "aac", AAC: true},
	}
}

func TestSelectTargetMP4(t *testing.T) {
	tests := []struct {
		name      string
		media     *models.MediaInfo
		args      []string
		wantVideo Policy
		wantAudio Policy
	}{
		{
			name:      "h264 aac source copies both streams",
			media:     h264AAC(),
			wantVideo: PolicyCopy,
			wantAudio: PolicyCopy,
		},
		{
			name: "vp9 source re-encodes video",
			media: &models.MediaInfo{
				VideoCodec: "vp9",
				Audio:      &models.AudioTrack{Codec: "aac", AAC: true},
			},
			wantVideo: PolicyEncode,
			wantAudio: PolicyCopy,
		},
		{
			name: "non-aac audio re-encodes audio",
			media: &models.MediaInfo{
				VideoCodec: "h264",
				Audio:      &models.AudioTrack{Codec: "ac3"},
			},
			wantVideo: PolicyCopy,
			wantAudio: PolicyEncode,
		},
		{
			name:      "pending video filter blocks video copy only",
			media:     h264AAC(),
			args:      []string{"-vf", "subtitles=out.ass"},
			wantVideo: PolicyEncode,
			wantAudio: PolicyCopy,
		},
		{
			name:      "pending audio filter blocks audio copy only",
			media:     h264AAC(),
			args:      []string{"-af", "pan=stereo"},
			wantVideo: PolicyCopy,
			wantAudio: PolicyEncode,
		},
		{
			name:      "filter_complex blocks both copies",
			media:     h264AAC(),
			args:      []string{"-filter_complex", "overlay"},
			wantVideo: PolicyEncode,
			wantAudio: PolicyEncode,
		},
		{
			name:      "nil media re-encodes both",
			wantVideo: PolicyEncode,
			wantAudio: PolicyEncode,
		},
		{
			name:      "no audio track re-encodes audio",
			media:     &models.MediaInfo{VideoCodec: "h264"},
			wantVideo: PolicyCopy,
			wantAudio: PolicyEncode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := SelectTarget(FormatMP4, tt.media, tt.args)
			assert.Equal(t, tt.wantVideo, target.Video, "video policy")
			assert.Equal(t, tt.wantAudio, target.Audio, "audio policy")
			assert.Equal(t, models.MimeMP4, target.ContainerMime)
		})
	}
}

func TestSelectTargetHLS(t *testing.T) {
	media := &models.MediaInfo{
		VideoCodec: "h264",
		Audio:      &models.AudioTrack{Codec: "vorbis"},
	}
	target := SelectTarget(FormatHLS, media, nil)
	assert.Equal(t, PolicyCopy, target.Video)
	assert.Equal(t, PolicyCopy, target.Audio)

	// AAC audio does not satisfy the hls audio codec.
	target = SelectTarget(FormatHLS, h264AAC(), nil)
	assert.Equal(t, PolicyCopy, target.Video)
	assert.Equal(t, PolicyEncode, target.Audio)
}

func TestSelectTargetNoCopyPipelines(t *testing.T) {
	for _, format := range []Format{FormatOgg, FormatWebM} {
		t.Run(format.String(), func(t *testing.T) {
			target := SelectTarget(format, h264AAC(), nil)
			assert.Equal(t, PolicyEncode, target.Video)
			assert.Equal(t, PolicyEncode, target.Audio)
		})
	}
}

func TestFormatContainerMime(t *testing.T) {
	assert.Equal(t, models.MimeFlash, FormatFlash.ContainerMime())
	assert.Equal(t, models.MimeOgg, FormatOgg.ContainerMime())
	assert.Equal(t, models.MimeMP4, FormatMP4.ContainerMime())
	assert.Equal(t, models.MimeWebM, FormatWebM.ContainerMime())
	assert.Equal(t, models.MimeHLS, FormatHLS.ContainerMime())
}
