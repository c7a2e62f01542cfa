package transform

import (
	"sync"

	"bdsp-batch-editor/internal/roster"

	"github.com/rs/zerolog"
)

// History is the in-memory log of applied modifications.
type History struct {
	mu      sync.Mutex
	entries []*Modification
}

// Append adds an entry.
func (h *History) Append(m *Modification) {
	h.mu.Lock()
	h.entries = append(h.entries, m)
	h.mu.Unlock()
}

// List returns a copy of the entries, oldest first.
func (h *History) List() []*Modification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Modification(nil), h.entries...)
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear drops every entry.
func (h *History) Clear() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
}

// Engine applies level changes and keeps their history.
type Engine struct {
	Bounds  Bounds
	History *History
	log     zerolog.Logger
}

// NewEngine creates an Engine with default bounds.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{Bounds: DefaultBounds, History: &History{}, log: logger}
}

// Apply applies spec to c in place and records it in the history.
func (e *Engine) Apply(c *roster.Collection, spec Spec, filter Filter) (*Modification, error) {
	mod, err := Apply(c, spec, e.Bounds, filter)
	if err != nil {
		return nil, err
	}
	e.History.Append(mod)
	e.log.Info().
		Str("change", spec.String()).
		Int64("min", e.Bounds.Min).
		Int64("max", e.Bounds.Max).
		Int("filter", len(filter)).
		Int("records", mod.RecordsModified).
		Int("slots", mod.SlotsModified).
		Msg("Applied level change")
	return mod, nil
}

// Preview previews spec against c with the engine's bounds.
func (e *Engine) Preview(c *roster.Collection, spec Spec, filter Filter, maxEntries int) ([]PreviewEntry, error) {
	return Preview(c, spec, e.Bounds, filter, maxEntries)
}

// ApplyFromString parses text and applies it to a copy of c, leaving c as it
// was. Parse and bounds errors are returned before anything is copied.
func (e *Engine) ApplyFromString(c *roster.Collection, text string, filter Filter) (*roster.Collection, *Modification, error) {
	spec, err := ParseSpec(text)
	if err != nil {
		return nil, nil, err
	}
	if err := e.Bounds.Validate(); err != nil {
		return nil, nil, err
	}
	out := c.Clone()
	mod, err := e.Apply(out, spec, filter)
	if err != nil {
		return nil, nil, err
	}
	return out, mod, nil
}
