// Package pricing resolves per-task unit costs from the engine catalog and
// computes pre-flight quotes for pending generate actions.
package pricing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ReferenceMode selects how reference assets are encoded in a submission
// payload for a given engine.
type ReferenceMode string

const (
	// ReferenceModeURL sends bare reference URLs.
	ReferenceModeURL ReferenceMode = "url"
	// ReferenceModeMediaID sends the opaque media identifiers returned by
	// the asset uploader.
	ReferenceModeMediaID ReferenceMode = "media_id"
)

// Engine describes one selectable model and its per-resolution unit costs.
type Engine struct {
	Provider    string
	Model       string
	DisplayName string
	RefMode     ReferenceMode
	// UnitCost maps resolution key to credits per image.
	UnitCost map[string]int64
}

// Catalog is the set of engines the studio can submit to.
type Catalog struct {
	engines map[string]Engine
}

// NewCatalog builds a catalog from the given engines, keyed by model.
func NewCatalog(engines []Engine) *Catalog {
	c := &Catalog{engines: make(map[string]Engine, len(engines))}
	titler := cases.Title(language.English)
	for _, e := range engines {
		if e.DisplayName == "" {
			e.DisplayName = titler.String(strings.ReplaceAll(e.Model, "-", " "))
		}
		c.engines[e.Model] = e
	}
	return c
}

// DefaultCatalog returns the built-in engine table.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Engine{
		{
			Provider: "gemini",
			Model:    "gemini-2.5-flash-image",
			RefMode:  ReferenceModeURL,
			UnitCost: map[string]int64{"1k": 4, "2k": 8, "4k": 16},
		},
		{
			Provider: "seedream",
			Model:    "seedream-4",
			RefMode:  ReferenceModeMediaID,
			UnitCost: map[string]int64{"1k": 6, "2k": 10, "4k": 20},
		},
		{
			Provider: "flux",
			Model:    "flux-pro",
			RefMode:  ReferenceModeURL,
			UnitCost: map[string]int64{"1k": 5, "2k": 9, "4k": 18},
		},
	})
}

// Engine looks up an engine by model key.
func (c *Catalog) Engine(model string) (Engine, bool) {
	e, ok := c.engines[model]
	return e, ok
}

// UnitCost returns the credits for one image at the given resolution. It is
// zero when no model is selected or the model is unknown.
func (c *Catalog) UnitCost(model, resolution string) int64 {
	e, ok := c.engines[model]
	if !ok {
		return 0
	}
	return e.UnitCost[resolution]
}

// Quote is the pre-flight cost of a pending generate action.
type Quote struct {
	UnitCost int64 `json:"unit_cost"`
	Count    int   `json:"count"`
	Total    int64 `json:"total"`
}

// QuoteSingle prices quantity repetitions of one prompt.
func (c *Catalog) QuoteSingle(model, resolution string, quantity int) Quote {
	if quantity < 1 {
		quantity = 1
	}
	unit := c.UnitCost(model, resolution)
	return Quote{UnitCost: unit, Count: quantity, Total: unit * int64(quantity)}
}

// QuoteBatch prices one image per non-empty prompt in the batch list.
func (c *Catalog) QuoteBatch(model, resolution string, prompts []string) Quote {
	count := 0
	for _, p := range prompts {
		if strings.TrimSpace(p) != "" {
			count++
		}
	}
	unit := c.UnitCost(model, resolution)
	return Quote{UnitCost: unit, Count: count, Total: unit * int64(count)}
}
