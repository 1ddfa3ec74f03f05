package transcode

import (
	"crypto/md5" //nolint:gosec // folder naming only, not a security boundary
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// SessionDirPrefix is the prefix of segmented session folder names under the
// temp root. The startup and scheduled sweeps match on it.
const SessionDirPrefix = "webhls"

// playlistName is the playlist file written into each session folder.
const playlistName = "playlist.m3u8"

// Builder emits ffmpeg argument sequences for the supported output pipelines.
// Each *Args method appends to the argument list it is given and returns the
// extended list; beyond the target decision it reads nothing but this fixed
// configuration.
type Builder struct {
	// TempDir is the root under which HLS session folders are created.
	TempDir string
	// SegmentURLPrefix is the URL path prefix for segment retrieval.
	SegmentURLPrefix string
	// SegmentSeconds is the target HLS segment duration.
	SegmentSeconds int
	// GOPSize is the keyframe group size for fragmented MP4 output.
	GOPSize int
	// Logger for builder diagnostics.
	Logger *slog.Logger
}

// NewBuilder creates a Builder with the given fixed configuration.
func NewBuilder(tempDir, segmentURLPrefix string, segmentSeconds, gopSize int, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if segmentSeconds <= 0 {
		segmentSeconds = 10
	}
	if gopSize <= 0 {
		gopSize = 52
	}
	return &Builder{
		TempDir:          tempDir,
		SegmentURLPrefix: segmentURLPrefix,
		SegmentSeconds:   segmentSeconds,
		GOPSize:          gopSize,
		Logger:           logger,
	}
}

// FlashArgs appends the flash remux pipeline arguments.
func (b *Builder) FlashArgs(args []string, target Target) []string {
	if target.Video == PolicyCopy {
		args = append(args, "-c:v", "copy")
	} else {
		args = append(args, "-c:v", "flv", "-qmin", "2", "-qmax", "6")
	}
	if target.Audio == PolicyCopy {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-ar", "44100")
	}
	return append(args, "-f", "flv")
}

// OggArgs appends the ogg pipeline arguments. The video encoder is implied by
// the container; only the quality scale is pinned.
func (b *Builder) OggArgs(args []string) []string {
	return append(args,
		"-qscale:v", "10",
		"-acodec", "libvorbis",
		"-f", "ogg",
	)
}

// MP4Args appends the fragmented MP4 pipeline arguments.
func (b *Builder) MP4Args(args []string, target Target) []string {
	args = append(args, "-g", strconv.Itoa(b.GOPSize))

	if target.Video == PolicyCopy {
		args = append(args, "-c:v", "copy")
	} else {
		args = append(args,
			"-c:v", "libx264",
			"-preset", "ultrafast",
			"-tune", "zerolatency",
		)
	}

	if target.Audio == PolicyCopy {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", "aac", "-ab", "128k")
	}

	if target.Video != PolicyCopy {
		args = append(args, "-pix_fmt", "yuv420p")
	}

	return append(args,
		"-movflags", "frag_keyframe+empty_moov",
		"-f", "mp4",
	)
}

// WebMArgs appends the webm pipeline arguments.
func (b *Builder) WebMArgs(args []string) []string {
	return append(args,
		"-c:v", "libx264",
		"-profile:v", "high",
		"-level:v", "3.1",
		"-c:a", "libmp3lame",
		"-ac", "2",
		"-pix_fmt", "yuv420p",
		"-preset", "ultrafast",
		"-f", "matroska",
	)
}

// HLSArgs appends the segmented HLS pipeline arguments and creates the session
// folder the segmenter will write into. It returns the extended argument list
// and the created folder path.
//
// Folder creation failure is a hard error for this session: the caller must
// not register a session, and no arguments referencing the folder are usable.
func (b *Builder) HLSArgs(args []string, target Target, systemName, sessionID string) ([]string, string, error) {
	if target.Video == PolicyCopy {
		args = append(args, "-c:v", "copy")
	} else {
		args = append(args,
			"-c:v", "libx264",
			"-preset", "ultrafast",
			"-keyint_min", "48",
		)
	}

	if target.Audio == PolicyCopy {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", "libvorbis")
	}

	folder := SessionFolderName(sessionID, systemName)
	folderPath := filepath.Join(b.TempDir, folder)
	if err := os.MkdirAll(folderPath, 0o755); err != nil {
		return nil, "", fmt.Errorf("creating session folder %s: %w", folderPath, err)
	}

	args = append(args,
		"-copyts",
		"-flags", "cgop",
		"-f", "hls",
		"-hls_playlist_type", "event",
		"-hls_flags", "independent_segments",
		"-hls_segment_type", "mpegts",
		"-hls_list_size", "0",
		"-hls_time", strconv.Itoa(b.SegmentSeconds),
		"-hls_base_url", b.SegmentURLPrefix+"/"+folder+"/",
		"-y", filepath.Join(folderPath, playlistName),
	)

	return args, folderPath, nil
}

// SessionFolderName derives the unique, reproducible folder name for a
// resource and session pair: the fixed prefix, the session id, and a content
// hash of the resource's stable identity string.
func SessionFolderName(sessionID, systemName string) string {
	sum := md5.Sum([]byte(systemName)) //nolint:gosec // naming, not integrity
	return fmt.Sprintf("%s-%s-%x", SessionDirPrefix, sessionID, sum)
}
