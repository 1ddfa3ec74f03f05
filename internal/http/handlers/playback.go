package handlers

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/oklog/ulid/v2"

	"github.com/rendermux/rendermux/internal/models"
	"github.com/rendermux/rendermux/internal/renderer"
)

// PlaybackHandler drives the playback flow: a resource descriptor comes in,
// the renderer's pipeline produces the transcoder argument list, the session
// starts, and the client is directed to the playback URL.
type PlaybackHandler struct {
	manager *renderer.Manager
	logger  *slog.Logger

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewPlaybackHandler creates a playback handler.
func NewPlaybackHandler(manager *renderer.Manager, logger *slog.Logger) *PlaybackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaybackHandler{
		manager: manager,
		logger:  logger,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // id generation, not crypto
	}
}

// newResourceID mints a sortable resource identifier.
func (h *PlaybackHandler) newResourceID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), h.entropy).String()
}

// StartPlaybackInput describes the resource to play on a renderer.
type StartPlaybackInput struct {
	ID   string `path:"id" doc:"Renderer ID"`
	Body struct {
		// Name is the display name shown to the client.
		Name string `json:"name" minLength:"1"`
		// SystemName is the stable identity of the media (path or URL).
		SystemName string `json:"system_name" minLength:"1"`
		// MimeType is the source container mime type.
		MimeType string `json:"mime_type,omitempty" example:"video/x-matroska"`
		// VideoCodec is the probed video codec identifier.
		VideoCodec string `json:"video_codec,omitempty" example:"h264"`
		// AudioCodec is the probed first audio track codec identifier.
		AudioCodec string `json:"audio_codec,omitempty" example:"aac"`
		// AudioAAC reports whether the audio track is an AAC variant.
		AudioAAC bool `json:"audio_aac,omitempty"`
		// DurationSeconds is the probed duration, 0 when unknown.
		DurationSeconds float64 `json:"duration_seconds,omitempty" minimum:"0"`
		// InputArgs are transcoder arguments already decided upstream
		// (input selection, filters). Output arguments are appended to them.
		InputArgs []string `json:"input_args,omitempty"`
	}
}

// StartPlaybackOutput returns the minted resource and the transcoder
// argument list.
type StartPlaybackOutput struct {
	Body struct {
		ResourceID string `json:"resource_id"`
		// Args is the full transcoder argument list for this playback.
		Args []string `json:"args"`
		// SessionFolder is the segment output folder, empty for
		// single-stream pipelines or when folder creation failed.
		SessionFolder string `json:"session_folder,omitempty"`
		// PlayURL is the URL pushed to the client player.
		PlayURL string `json:"play_url"`
		// VideoFilter is a scale filter the transcoder must apply for
		// pipelines that cannot encode at full resolution, empty when none
		// applies.
		VideoFilter string `json:"video_filter,omitempty"`
	}
}

// StopPlaybackInput identifies the renderer whose session to stop.
type StopPlaybackInput struct {
	ID string `path:"id" doc:"Renderer ID"`
}

// StopPlaybackOutput is the (empty) stop response.
type StopPlaybackOutput struct{}

// Register registers the playback routes with the API.
func (h *PlaybackHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "startPlayback",
		Method:      "POST",
		Path:        "/renderers/{id}/play",
		Summary:     "Start playback of a resource",
		Description: "Selects the output pipeline for the renderer, builds the transcoder arguments, starts the session, and directs the client player to the playback URL",
		Tags:        []string{"Playback"},
	}, h.StartPlayback)

	huma.Register(api, huma.Operation{
		OperationID:   "stopPlayback",
		Method:        "POST",
		Path:          "/renderers/{id}/stop",
		Summary:       "Stop the active playback session",
		Tags:          []string{"Playback"},
		DefaultStatus: 204,
	}, h.StopPlayback)
}

// StartPlayback starts a playback session on the renderer.
func (h *PlaybackHandler) StartPlayback(_ context.Context, input *StartPlaybackInput) (*StartPlaybackOutput, error) {
	rend, ok := h.manager.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("renderer not found")
	}

	res := &models.Resource{
		ID:         h.newResourceID(),
		Name:       input.Body.Name,
		SystemName: input.Body.SystemName,
	}
	if input.Body.MimeType != "" || input.Body.VideoCodec != "" || input.Body.AudioCodec != "" {
		media := &models.MediaInfo{
			MimeType:   input.Body.MimeType,
			VideoCodec: input.Body.VideoCodec,
			Duration:   time.Duration(input.Body.DurationSeconds * float64(time.Second)),
		}
		if input.Body.AudioCodec != "" || input.Body.AudioAAC {
			media.Audio = &models.AudioTrack{
				Codec: input.Body.AudioCodec,
				AAC:   input.Body.AudioAAC,
			}
		}
		res.Media = media
	}

	// Start before building output options: starting stops any previous
	// resource, and its session must leave the registry before the new
	// session is registered.
	rend.Controller.Start(res)
	args := rend.OutputOptions(input.Body.InputArgs, res)
	rend.SetPlaybackURI(res)

	out := &StartPlaybackOutput{}
	out.Body.ResourceID = res.ID
	out.Body.Args = args
	out.Body.PlayURL = "/play/" + res.ID
	out.Body.VideoFilter = rend.VideoFilterOverride()
	if session := rend.Sessions().Current(); session != nil && session.ResourceKey == res.Key() {
		out.Body.SessionFolder = session.FolderPath
	}
	return out, nil
}

// StopPlayback stops the renderer's active session.
func (h *PlaybackHandler) StopPlayback(_ context.Context, input *StopPlaybackInput) (*StopPlaybackOutput, error) {
	rend, ok := h.manager.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("renderer not found")
	}

	rend.Controller.Stop()
	return &StopPlaybackOutput{}, nil
}
