// Package registry maps logical feature source ids to retrieval locations.
package registry

import (
	"fmt"
	"path"
	"regexp"
)

// Default source ids for the district map.
const (
	DistrictArea        = "region6_area"
	DistrictStreets     = "region6_important_streets"
	DistrictRestaurants = "region6_restaurant_points"
)

// DataDir is the resource directory every location is rooted at.
const DataDir = "data"

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Source is one registry entry.
type Source struct {
	ID       string `json:"id" doc:"Logical source identifier, also the engine source name" example:"region6_area"`
	Location string `json:"location" doc:"Retrieval location of the feature document" example:"data/region6_area.json"`
}

// Registry is an ordered, immutable set of feature sources.
type Registry struct {
	sources []Source
	index   map[string]int
}

// New builds a registry from ids in the given order.
// Ids must be unique and usable as engine source names.
func New(ids ...string) (*Registry, error) {
	r := &Registry{
		sources: make([]Source, 0, len(ids)),
		index:   make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		if !validID.MatchString(id) {
			return nil, fmt.Errorf("invalid source id %q", id)
		}
		if _, exists := r.index[id]; exists {
			return nil, fmt.Errorf("duplicate source id %q", id)
		}
		r.index[id] = len(r.sources)
		r.sources = append(r.sources, Source{ID: id, Location: Location(id)})
	}
	return r, nil
}

// MustNew is like New but panics on invalid ids.
func MustNew(ids ...string) *Registry {
	r, err := New(ids...)
	if err != nil {
		panic(err)
	}
	return r
}

// District returns the registry of the district overlay sources.
func District() *Registry {
	return MustNew(DistrictArea, DistrictStreets, DistrictRestaurants)
}

// Location returns the resource path for a source id.
func Location(id string) string {
	return path.Join(DataDir, id+".json")
}

// Keys returns source ids in registration order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.sources))
	for i, s := range r.sources {
		keys[i] = s.ID
	}
	return keys
}

// LocationOf returns the retrieval location of id.
func (r *Registry) LocationOf(id string) (string, bool) {
	i, ok := r.index[id]
	if !ok {
		return "", false
	}
	return r.sources[i].Location, true
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Entries returns a copy of all entries in order.
func (r *Registry) Entries() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.sources)
}
