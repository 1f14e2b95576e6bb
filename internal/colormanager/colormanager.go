// Package colormanager holds named color presets (solid colors and
// gradients) and the gradient-sampling logic effects use to turn a
// normalized position into a color.
package colormanager

import (
	"sort"
	"sync"

	"github.com/rgbcct/panelfx/internal/apperr"
	"github.com/rgbcct/panelfx/internal/colorspace"
	"github.com/rgbcct/panelfx/internal/logger"
)

// Space is the color space a Gradient interpolates in.
type Space string

const (
	RGB Space = "rgb"
	HSV Space = "hsv"
)

// Stop is one positioned color along a Gradient.
type Stop struct {
	Position float64           `json:"position"`
	Color    colorspace.RGBCCT `json:"color"`
}

// Gradient is an ordered, normalized list of stops plus the interpolation
// space. Sort puts the stops in ascending position order; InterpolateGradient
// sorts a copy of the stops itself when they are out of order.
type Gradient struct {
	Stops []Stop `json:"stops"`
	Space Space  `json:"space"`
}

// Sort orders stops by position ascending, satisfying the invariant in
// spec.md's data model ("stops sorted by position ascending").
func (g *Gradient) Sort() {
	sort.SliceStable(g.Stops, func(i, j int) bool { return g.Stops[i].Position < g.Stops[j].Position })
}

// Reverse returns a new Gradient with stop positions mirrored (p -> 1-p)
// and order reversed, used by the interpolation-commutativity property in
// spec.md §8.
func (g Gradient) Reverse() Gradient {
	stops := make([]Stop, len(g.Stops))
	for i, s := range g.Stops {
		stops[i] = Stop{Position: 1 - s.Position, Color: s.Color}
	}
	out := Gradient{Stops: stops, Space: g.Space}
	out.Sort()
	return out
}

// Kind distinguishes the two ColorPreset variants.
type Kind string

const (
	KindSolid    Kind = "solid"
	KindGradient Kind = "gradient"
)

// Preset is a tagged variant: solid{color} or gradient{Gradient}.
type Preset struct {
	Kind     Kind              `json:"kind"`
	Solid    colorspace.RGBCCT `json:"solid,omitempty"`
	Gradient Gradient          `json:"gradient,omitempty"`
}

// Manager owns the set of named color presets.
type Manager struct {
	mu      sync.RWMutex
	presets map[string]Preset
	log     logger.Logger
}

// New creates an empty color manager.
func New(log logger.Logger) *Manager {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Manager{presets: make(map[string]Preset), log: log}
}

// AddPreset stores (or overwrites) a named preset. Gradients are normalized
// (sorted) before being stored.
func (m *Manager) AddPreset(name string, p Preset) {
	if p.Kind == KindGradient {
		p.Gradient.Sort()
	}
	m.mu.Lock()
	m.presets[name] = p
	m.mu.Unlock()
}

// GetPreset returns the named preset, or an apperr.NotFound error.
func (m *Manager) GetPreset(name string) (Preset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.presets[name]
	if !ok {
		return Preset{}, apperr.New(apperr.NotFound, "color preset %q not found", name)
	}
	return p, nil
}

// HasPreset reports whether name is registered.
func (m *Manager) HasPreset(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.presets[name]
	return ok
}

// RemovePreset deletes a named preset if present.
func (m *Manager) RemovePreset(name string) {
	m.mu.Lock()
	delete(m.presets, name)
	m.mu.Unlock()
}

// ListPresets returns every registered preset name.
func (m *Manager) ListPresets() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.presets))
	for name := range m.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigEntry is the wire/config shape a color preset is loaded from:
// either a flat solid color or a list of gradient stops.
type ConfigEntry struct {
	Name     string             `json:"name"`
	Solid    *colorspace.RGBCCT `json:"solid,omitempty"`
	Gradient []Stop             `json:"gradient,omitempty"`
	Space    Space              `json:"space,omitempty"`
}

// LoadPresetsFromConfig validates and registers a batch of presets parsed
// from the configuration file, skipping (and logging) invalid entries
// rather than aborting the whole load.
func (m *Manager) LoadPresetsFromConfig(entries []ConfigEntry) {
	for _, e := range entries {
		if e.Name == "" {
			m.log.Warn("color preset config entry missing a name, skipping")
			continue
		}
		switch {
		case e.Solid != nil:
			m.AddPreset(e.Name, Preset{Kind: KindSolid, Solid: colorspace.Clamp(*e.Solid)})
		case len(e.Gradient) > 0:
			space := e.Space
			if space == "" {
				space = RGB
			}
			m.AddPreset(e.Name, Preset{Kind: KindGradient, Gradient: Gradient{Stops: e.Gradient, Space: space}})
		default:
			m.log.Warn("color preset %q has neither a solid color nor gradient stops, skipping", e.Name)
		}
	}
}

// InterpolateGradient samples g at position p in [0,1], per spec.md §4.5:
// clamp p; an empty gradient returns black and a single stop returns its
// color; otherwise interpolate between the bracketing stops in the
// gradient's declared color space (cool/warm channels always linear).
func InterpolateGradient(g Gradient, p float64) colorspace.RGBCCT {
	if len(g.Stops) == 0 {
		return colorspace.Black
	}
	p = colorspace.ClampUnit(p)

	stops := g.Stops
	if !sort.SliceIsSorted(stops, func(i, j int) bool { return stops[i].Position < stops[j].Position }) {
		sorted := make([]Stop, len(stops))
		copy(sorted, stops)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
		stops = sorted
	}

	if len(stops) == 1 || p <= stops[0].Position {
		return stops[0].Color
	}
	last := stops[len(stops)-1]
	if p >= last.Position {
		return last.Color
	}

	lo, hi := stops[0], last
	for i := 0; i < len(stops)-1; i++ {
		if p >= stops[i].Position && p <= stops[i+1].Position {
			lo, hi = stops[i], stops[i+1]
			break
		}
	}

	span := hi.Position - lo.Position
	var local float64
	if span > 0 {
		local = (p - lo.Position) / span
	}

	if g.Space == HSV {
		return colorspace.LerpHSVRGB(lo.Color, hi.Color, local)
	}
	return colorspace.LerpRGBCCT(lo.Color, hi.Color, local)
}

// Sample resolves a color preset at position p: a solid preset ignores p,
// a gradient preset samples InterpolateGradient.
func Sample(p Preset, pos float64) colorspace.RGBCCT {
	if p.Kind == KindSolid {
		return p.Solid
	}
	return InterpolateGradient(p.Gradient, pos)
}
