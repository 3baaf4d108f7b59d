package api

import "github.com/danielgtaylor/huma/v2"

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/sources>; rel="sources"`,
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/map/state>; rel="state"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/map/state>; rel="state"`,
	},
	"/api/v1/sources": {
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/layers": {
		`</api/v1/sources>; rel="sources"`,
		`</api/v1/map/style>; rel="style"`,
	},
	"/api/v1/map/state": {
		`</api/v1/map/style>; rel="style"`,
		`</api/v1/map/clicks>; rel="clicks"`,
		`</api/v1/map/events>; rel="events"`,
	},
	"/api/v1/map/clicks": {
		`</api/v1/map/state>; rel="state"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		return v, nil
	}
}
