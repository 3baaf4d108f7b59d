package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/district-map/internal/rtl"
)

type InfoHandler struct {
	publicDir string
	styleURL  string
}

func NewInfoHandler(publicDir, styleURL string) *InfoHandler {
	return &InfoHandler{publicDir: publicDir, styleURL: styleURL}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name      string   `json:"name" doc:"Service name"`
	Version   string   `json:"version" doc:"Service version"`
	PublicDir string   `json:"public_dir" doc:"Directory the feature documents are served from"`
	StyleURL  string   `json:"style_url,omitempty" doc:"Basemap style URL, empty for a blank basemap"`
	RTLPlugin string   `json:"rtl_plugin,omitempty" doc:"Registered RTL text plugin URL"`
	RTLStatus string   `json:"rtl_status" doc:"RTL text plugin status"`
	Features  []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:      "district-map",
		Version:   "0.1.0",
		PublicDir: h.publicDir,
		StyleURL:  h.styleURL,
		RTLPlugin: rtl.URL(),
		RTLStatus: string(rtl.CurrentStatus()),
		Features:  []string{"geojson", "gl-style", "rtl-text", "sse"},
	}}, nil
}
