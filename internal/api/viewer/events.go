// Package viewer contains Datastar SSE handlers for the map viewer page.
package viewer

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/district-map/internal/humastar"
	"github.com/joeblew999/district-map/internal/service"
)

// EventHandler streams map lifecycle events to the viewer via SSE.
type EventHandler struct {
	mapService *service.MapService
}

// NewEventHandler creates a new event handler.
func NewEventHandler(mapService *service.MapService) *EventHandler {
	return &EventHandler{mapService: mapService}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/map/events", h.Events,
		huma.OperationTags("viewer"),
	)
}

// Events sends the current state, then every state change and click.
// A failed composition is pushed as the error signal so the viewer can
// show a banner over the bare basemap.
func (h *EventHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return humastar.Stream(func(sse humastar.SSE) {
		bus := h.mapService.Bus()
		ch := bus.Subscribe()
		defer bus.Unsubscribe(ch)

		st := h.mapService.State()
		sse.Signals(stateSignals(st.State, st.Error))

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				switch ev.Kind {
				case service.KindState:
					sse.Signals(stateSignals(ev.State, ev.Error))
				case service.KindClick:
					if ev.LngLat != nil {
						sse.Signals(map[string]any{
							"lastClick": []float64{ev.LngLat.Lon(), ev.LngLat.Lat()},
						})
					}
				}
			}
		}
	}), nil
}

func stateSignals(state, errMsg string) map[string]any {
	return map[string]any{
		"mapState": state,
		"error":    errMsg,
	}
}
