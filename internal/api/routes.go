// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/district-map/internal/service"
	"github.com/joeblew999/district-map/internal/viewport"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Map *service.MapService
}

// Types

type SourcesOutput struct {
	Body []service.SourceInfo
}

type LayersOutput struct {
	Body []service.LayerInfo
}

type StateOutput struct {
	Body service.MapState
}

type StyleOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type ClickBody struct {
	Lng float64 `json:"lng" minimum:"-180" maximum:"180" doc:"Longitude" example:"51.402"`
	Lat float64 `json:"lat" minimum:"-90" maximum:"90" doc:"Latitude" example:"35.725"`
}

type ClicksOutput struct {
	Body []ClickRecord
}

type ClickRecord struct {
	Instance string     `json:"instance" doc:"Map instance id"`
	LngLat   [2]float64 `json:"lngLat" doc:"Clicked coordinate as [lng, lat]" example:"[51.402,35.725]"`
	At       string     `json:"at" format:"date-time" doc:"Time the click was recorded"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
}

// RegisterLayers registers layer listing routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
}

// RegisterMap registers the live map routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map/style", h.GetStyle, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/state", h.GetState, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/clicks", h.GetClicks, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/clicks", h.PostClick, huma.OperationTags("map"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*SourcesOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return &SourcesOutput{Body: []service.SourceInfo{}}, nil
	}
	return &SourcesOutput{Body: h.svc.Map.Sources()}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return &LayersOutput{Body: []service.LayerInfo{}}, nil
	}
	return &LayersOutput{Body: h.svc.Map.Layers()}, nil
}

func (h *APIHandler) GetState(ctx context.Context, input *struct{}) (*StateOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map service not available")
	}
	return &StateOutput{Body: h.svc.Map.State()}, nil
}

func (h *APIHandler) GetStyle(ctx context.Context, input *struct{}) (*StyleOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map service not available")
	}
	doc, err := h.svc.Map.Style()
	if err != nil {
		if errors.Is(err, viewport.ErrNotMounted) {
			return nil, huma.Error404NotFound("map is not mounted")
		}
		return nil, huma.Error503ServiceUnavailable("style not ready", err)
	}
	return &StyleOutput{ContentType: "application/json", Body: doc}, nil
}

func (h *APIHandler) PostClick(ctx context.Context, input *struct{ Body ClickBody }) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map service not available")
	}
	if err := h.svc.Map.Click(input.Body.Lng, input.Body.Lat); err != nil {
		return nil, huma.Error409Conflict(err.Error())
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Click recorded"}}, nil
}

func (h *APIHandler) GetClicks(ctx context.Context, input *struct{}) (*ClicksOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return &ClicksOutput{Body: []ClickRecord{}}, nil
	}
	clicks := h.svc.Map.Clicks()
	out := make([]ClickRecord, len(clicks))
	for i, c := range clicks {
		out[i] = ClickRecord{
			Instance: c.Instance,
			LngLat:   [2]float64{c.LngLat.Lon(), c.LngLat.Lat()},
			At:       c.At.UTC().Format(time.RFC3339Nano),
		}
	}
	return &ClicksOutput{Body: out}, nil
}
