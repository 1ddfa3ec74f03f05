// Package renderer ties one connected browser client to its capability
// profile, notification channel, playback controller, and player state
// machine.
package renderer

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rendermux/rendermux/internal/capability"
	"github.com/rendermux/rendermux/internal/models"
	"github.com/rendermux/rendermux/internal/observability"
	"github.com/rendermux/rendermux/internal/push"
	"github.com/rendermux/rendermux/internal/transcode"
)

// BitrateOptionProvider supplies bitrate limiting arguments. It is consulted
// only when the capability profile triggers the low-bitrate path.
type BitrateOptionProvider interface {
	BitrateOptions(res *models.Resource) []string
}

// Renderer is one connected client: its immutable capability profile plus the
// per-client session, channel, and player state entities. Each entity has a
// single writer; the renderer only wires them together.
type Renderer struct {
	ID      string
	Profile capability.Profile

	Channel    *push.Channel
	Controller *Controller
	State      *StateSync

	registry *transcode.SessionRegistry
	builder  *transcode.Builder
	bitrate  BitrateOptionProvider

	videoMime    string
	renderWidth  int
	renderHeight int

	logger *slog.Logger
}

// Options configures renderer construction.
type Options struct {
	// Builder emits transcoder arguments; required.
	Builder *transcode.Builder
	// Proc terminates external transcoder processes; required.
	Proc ProcessController
	// Bitrate provides limiting arguments for low-bitrate clients; optional.
	Bitrate BitrateOptionProvider
	// VideoMime is the container mime for non-flash video output. Defaults
	// to segmented HLS.
	VideoMime string
	// RenderWidth and RenderHeight are the server render dimensions.
	RenderWidth  int
	RenderHeight int

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// New creates a renderer for the given capability profile.
func New(profile capability.Profile, opts Options) *Renderer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.VideoMime == "" {
		opts.VideoMime = models.MimeHLS
	}

	id := uuid.New().String()
	logger := opts.Logger.With(slog.String("renderer_id", id))

	channel := push.NewChannel(logger, opts.Metrics)
	registry := transcode.NewSessionRegistry(logger, opts.Metrics)
	state := NewStateSync(channel, logger)

	controller := NewController(opts.Proc, registry, func() Delegate {
		return &stateDelegate{state: state}
	}, logger, opts.Metrics)
	state.SetStopper(controller)

	return &Renderer{
		ID:           id,
		Profile:      profile,
		Channel:      channel,
		Controller:   controller,
		State:        state,
		registry:     registry,
		builder:      opts.Builder,
		bitrate:      opts.Bitrate,
		videoMime:    opts.VideoMime,
		renderWidth:  opts.RenderWidth,
		renderHeight: opts.RenderHeight,
		logger:       observability.WithComponent(logger, "renderer"),
	}
}

// stateDelegate feeds session lifecycle transitions into the player state
// machine.
type stateDelegate struct {
	state *StateSync
}

func (d *stateDelegate) Started(res *models.Resource) { d.state.SessionStarted(res) }
func (d *stateDelegate) Stopped()                     { d.state.SessionStopped() }

// Name returns the display name of the client, derived from its browser
// class.
func (r *Renderer) Name() string {
	return r.Profile.Browser.String()
}

// VideoMime returns the container mime used for non-flash video output.
func (r *Renderer) VideoMime() string {
	return r.videoMime
}

// Notify pushes a notification message of the given type ("info", "warn",
// "error") to the client.
func (r *Renderer) Notify(notifyType, msg string) {
	r.Channel.Push(push.NewNotify(notifyType, msg))
}

// SetPlaybackURI directs the client player to start playing the resource.
func (r *Renderer) SetPlaybackURI(res *models.Resource) {
	r.Channel.Push(push.NewSetURL("/play/" + res.ID))
}

// Sessions returns the transcode session registry of this renderer.
func (r *Renderer) Sessions() *transcode.SessionRegistry {
	return r.registry
}

// VideoFilterOverride returns a scale filter for pipelines whose encoder is
// too slow at full resolution. libvorbis transcodes very slowly, so the ogg
// pipeline is scaled down to the client's effective dimensions.
func (r *Renderer) VideoFilterOverride() string {
	if r.videoMime != models.MimeOgg {
		return ""
	}
	return fmt.Sprintf("scale=%d:%d",
		r.Profile.VideoWidth(r.renderWidth, r.renderHeight),
		r.Profile.VideoHeight(r.renderWidth, r.renderHeight),
	)
}

// PipelineFor returns the output pipeline for a resource. A flash-container
// source is remuxed in place; everything else goes through the configured
// video pipeline.
func (r *Renderer) PipelineFor(media *models.MediaInfo) transcode.Format {
	if media != nil && media.MimeType == models.MimeFlash {
		return transcode.FormatFlash
	}
	format, _ := transcode.FormatForMime(r.videoMime)
	return format
}

// OutputOptions appends the transcoder arguments for playing res on this
// client and returns the extended list. For the segmented pipeline the
// session folder is created and registered; folder creation failure is logged
// and leaves the session unregistered, with the arguments unchanged.
func (r *Renderer) OutputOptions(args []string, res *models.Resource) []string {
	format := r.PipelineFor(res.Media)
	target := transcode.SelectTarget(format, res.Media, args)

	r.logger.Debug("building transcoder arguments",
		slog.String("resource", res.Key()),
		slog.String("pipeline", format.String()),
		slog.String("video", target.Video.String()),
		slog.String("audio", target.Audio.String()),
	)

	switch format {
	case transcode.FormatFlash:
		args = r.builder.FlashArgs(args, target)
	case transcode.FormatOgg:
		args = r.builder.OggArgs(args)
	case transcode.FormatMP4:
		args = r.builder.MP4Args(args, target)
	case transcode.FormatWebM:
		args = r.builder.WebMArgs(args)
	case transcode.FormatHLS:
		extended, folderPath, err := r.builder.HLSArgs(args, target, res.SystemName, res.ID)
		if err != nil {
			r.logger.Warn("could not create transcoding folder",
				slog.String("resource", res.Key()),
				slog.String("error", err.Error()),
			)
			break
		}
		r.registry.Register(res.Key(), folderPath)
		args = extended
	}

	if r.Profile.LowBitrate() && r.bitrate != nil {
		args = append(args, r.bitrate.BitrateOptions(res)...)
	}

	return args
}
