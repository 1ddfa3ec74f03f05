package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/rendermux/rendermux/internal/capability"
	"github.com/rendermux/rendermux/internal/renderer"
)

// RendererHandler handles renderer registration, state ingest, and control.
type RendererHandler struct {
	manager      *renderer.Manager
	lowSpeedKbps int
	logger       *slog.Logger
}

// NewRendererHandler creates a renderer handler.
func NewRendererHandler(manager *renderer.Manager, lowSpeedKbps int, logger *slog.Logger) *RendererHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RendererHandler{
		manager:      manager,
		lowSpeedKbps: lowSpeedKbps,
		logger:       logger,
	}
}

// RegisterRendererInput is the input for renderer registration.
type RegisterRendererInput struct {
	Body struct {
		// UserAgent is the raw browser user agent string.
		UserAgent string `json:"user_agent" example:"Mozilla/5.0 ..."`
		// Info is the structured client info string, e.g.
		// "platform=linux&width=1920&height=1080&isTouchDevice=false".
		// May be empty or malformed; screen constraints are then disabled.
		Info string `json:"info,omitempty"`
		// DownlinkKbps is the measured downlink speed, 0 when unmeasured.
		DownlinkKbps int `json:"downlink_kbps,omitempty" minimum:"0"`
	}
}

// RendererSummary describes one connected renderer.
type RendererSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name" example:"Chrome"`
	Platform   string `json:"platform,omitempty"`
	LowBitrate bool   `json:"low_bitrate"`
}

// RegisterRendererOutput is the output for renderer registration.
type RegisterRendererOutput struct {
	Body RendererSummary
}

// ListRenderersOutput is the output for listing renderers.
type ListRenderersOutput struct {
	Body struct {
		Renderers []RendererSummary `json:"renderers"`
	}
}

// GetRendererInput identifies one renderer.
type GetRendererInput struct {
	ID string `path:"id" doc:"Renderer ID"`
}

// RendererDetail is the full status of one renderer.
type RendererDetail struct {
	RendererSummary
	Playback       string `json:"playback" example:"PLAYING"`
	Volume         int    `json:"volume"`
	Muted          bool   `json:"muted"`
	Position       string `json:"position,omitempty" example:"00:01:30"`
	TrackName      string `json:"track_name,omitempty"`
	Duration       string `json:"duration,omitempty"`
	ActiveResource string `json:"active_resource,omitempty"`
	QueuedMessages int    `json:"queued_messages"`
}

// GetRendererOutput is the output for renderer detail.
type GetRendererOutput struct {
	Body RendererDetail
}

// IngestStateInput carries a client player state report.
type IngestStateInput struct {
	ID   string `path:"id" doc:"Renderer ID"`
	Body map[string]string
}

// IngestStateOutput is the (empty) state ingest response.
type IngestStateOutput struct{}

// ControlInput carries a player control command for a renderer.
type ControlInput struct {
	ID   string `path:"id" doc:"Renderer ID"`
	Body struct {
		Command string `json:"command" enum:"pause,play,stop,mute,setvolume"`
		Volume  int    `json:"volume,omitempty" minimum:"0" maximum:"100"`
	}
}

// ControlOutput is the (empty) control response.
type ControlOutput struct{}

// RemoveRendererInput identifies the renderer to remove.
type RemoveRendererInput struct {
	ID string `path:"id" doc:"Renderer ID"`
}

// RemoveRendererOutput is the (empty) removal response.
type RemoveRendererOutput struct{}

// Register registers the renderer routes with the API.
func (h *RendererHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "registerRenderer",
		Method:      "POST",
		Path:        "/renderers",
		Summary:     "Register a renderer",
		Description: "Creates a renderer session for a connecting browser client",
		Tags:        []string{"Renderers"},
	}, h.RegisterRenderer)

	huma.Register(api, huma.Operation{
		OperationID: "listRenderers",
		Method:      "GET",
		Path:        "/renderers",
		Summary:     "List renderers",
		Tags:        []string{"Renderers"},
	}, h.ListRenderers)

	huma.Register(api, huma.Operation{
		OperationID: "getRenderer",
		Method:      "GET",
		Path:        "/renderers/{id}",
		Summary:     "Get renderer status",
		Tags:        []string{"Renderers"},
	}, h.GetRenderer)

	huma.Register(api, huma.Operation{
		OperationID:   "ingestRendererState",
		Method:        "POST",
		Path:          "/renderers/{id}/state",
		Summary:       "Ingest a player state report",
		Description:   "Applies a client-reported playback state; a STOPPED report tears down the active session",
		Tags:          []string{"Renderers"},
		DefaultStatus: 204,
	}, h.IngestState)

	huma.Register(api, huma.Operation{
		OperationID:   "controlRenderer",
		Method:        "POST",
		Path:          "/renderers/{id}/control",
		Summary:       "Send a player control command",
		Tags:          []string{"Renderers"},
		DefaultStatus: 204,
	}, h.Control)

	huma.Register(api, huma.Operation{
		OperationID:   "removeRenderer",
		Method:        "DELETE",
		Path:          "/renderers/{id}",
		Summary:       "Remove a renderer",
		Tags:          []string{"Renderers"},
		DefaultStatus: 204,
	}, h.RemoveRenderer)
}

// RegisterRenderer creates a renderer session for a connecting client.
func (h *RendererHandler) RegisterRenderer(_ context.Context, input *RegisterRendererInput) (*RegisterRendererOutput, error) {
	slowDownlink := input.Body.DownlinkKbps > 0 && input.Body.DownlinkKbps < h.lowSpeedKbps

	profile := capability.NewProfile(input.Body.UserAgent, input.Body.Info, slowDownlink, h.logger)
	r := h.manager.Register(profile)

	return &RegisterRendererOutput{Body: summarize(r)}, nil
}

// ListRenderers returns all connected renderers.
func (h *RendererHandler) ListRenderers(_ context.Context, _ *struct{}) (*ListRenderersOutput, error) {
	out := &ListRenderersOutput{}
	out.Body.Renderers = make([]RendererSummary, 0, h.manager.Len())
	for _, r := range h.manager.List() {
		out.Body.Renderers = append(out.Body.Renderers, summarize(r))
	}
	return out, nil
}

// GetRenderer returns the full status of one renderer.
func (h *RendererHandler) GetRenderer(_ context.Context, input *GetRendererInput) (*GetRendererOutput, error) {
	r, ok := h.manager.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("renderer not found")
	}

	state := r.State.State()
	detail := RendererDetail{
		RendererSummary: summarize(r),
		Playback:        state.Playback.String(),
		Volume:          state.Volume,
		Muted:           state.Muted,
		Position:        state.Position,
		TrackName:       state.TrackName,
		Duration:        state.Duration,
		QueuedMessages:  r.Channel.QueueLen(),
	}
	if active := r.Controller.Active(); active != nil {
		detail.ActiveResource = active.Key()
	}

	return &GetRendererOutput{Body: detail}, nil
}

// IngestState applies a client player state report.
func (h *RendererHandler) IngestState(_ context.Context, input *IngestStateInput) (*IngestStateOutput, error) {
	r, ok := h.manager.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("renderer not found")
	}

	r.State.IngestRemoteState(input.Body)
	return &IngestStateOutput{}, nil
}

// Control sends a player control command to the client.
func (h *RendererHandler) Control(_ context.Context, input *ControlInput) (*ControlOutput, error) {
	r, ok := h.manager.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("renderer not found")
	}

	switch input.Body.Command {
	case "pause":
		r.State.Pause()
	case "play":
		r.State.Play()
	case "stop":
		r.State.StopCommand()
	case "mute":
		r.State.Mute()
	case "setvolume":
		r.State.SetVolume(input.Body.Volume)
	default:
		return nil, huma.Error422UnprocessableEntity("unknown command")
	}

	return &ControlOutput{}, nil
}

// RemoveRenderer stops and forgets a renderer.
func (h *RendererHandler) RemoveRenderer(_ context.Context, input *RemoveRendererInput) (*RemoveRendererOutput, error) {
	if _, ok := h.manager.Get(input.ID); !ok {
		return nil, huma.Error404NotFound("renderer not found")
	}
	h.manager.Remove(input.ID)
	return &RemoveRendererOutput{}, nil
}

func summarize(r *renderer.Renderer) RendererSummary {
	return RendererSummary{
		ID:         r.ID,
		Name:       r.Name(),
		Platform:   r.Profile.Platform,
		LowBitrate: r.Profile.LowBitrate(),
	}
}
