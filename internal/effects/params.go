// Package effects implements the six effect state machines that drive the
// per-frame panel output: Solid, SequentialFade, Flow, Strobe, Blackout and
// Static.
package effects

import (
	"fmt"

	"github.com/rgbcct/panelfx/internal/apperr"
	"github.com/rgbcct/panelfx/internal/colormanager"
	"github.com/rgbcct/panelfx/internal/colorspace"
)

// ValueKind tags which field of Value is populated. A dynamic param bag
// (what the wire protocol actually sends) is validated into one of these at
// the command boundary, then effects read it back out through the typed
// accessors below instead of re-inspecting the tag.
type ValueKind string

const (
	KindNumber   ValueKind = "number"
	KindBool     ValueKind = "bool"
	KindString   ValueKind = "string"
	KindColor    ValueKind = "color"
	KindGradient ValueKind = "gradient"
	KindColors   ValueKind = "colors"
)

// Value is the tagged union EffectParams maps option names to.
type Value struct {
	Kind     ValueKind
	Number   float64
	Bool     bool
	String   string
	Color    colorspace.RGBCCT
	Gradient colormanager.Gradient
	Colors   []colorspace.RGBCCT
}

func Num(v float64) Value                      { return Value{Kind: KindNumber, Number: v} }
func Bool(v bool) Value                        { return Value{Kind: KindBool, Bool: v} }
func Str(v string) Value                       { return Value{Kind: KindString, String: v} }
func Col(v colorspace.RGBCCT) Value             { return Value{Kind: KindColor, Color: v} }
func Grad(v colormanager.Gradient) Value        { return Value{Kind: KindGradient, Gradient: v} }
func Cols(v []colorspace.RGBCCT) Value          { return Value{Kind: KindColors, Colors: v} }

// Params is the effective parameter bag for one running effect: the
// effect's Defaults() overridden by whatever the caller supplied.
type Params map[string]Value

// Merge returns a new Params with override's entries layered on top of
// defaults (defaults are not mutated).
func Merge(defaults, overrides Params) Params {
	out := make(Params, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

func (p Params) numberOr(key string, fallback float64) float64 {
	if v, ok := p[key]; ok && v.Kind == KindNumber {
		return v.Number
	}
	return fallback
}

func (p Params) boolOr(key string, fallback bool) bool {
	if v, ok := p[key]; ok && v.Kind == KindBool {
		return v.Bool
	}
	return fallback
}

func (p Params) stringOr(key string, fallback string) string {
	if v, ok := p[key]; ok && v.Kind == KindString {
		return v.String
	}
	return fallback
}

func (p Params) colorOr(key string, fallback colorspace.RGBCCT) colorspace.RGBCCT {
	if v, ok := p[key]; ok && v.Kind == KindColor {
		return v.Color
	}
	return fallback
}

func (p Params) colorsOr(key string, fallback []colorspace.RGBCCT) []colorspace.RGBCCT {
	if v, ok := p[key]; ok && v.Kind == KindColors {
		return v.Colors
	}
	return fallback
}

// requireNumber validates that key is present with KindNumber, returning an
// apperr.InvalidParam otherwise. Used for params with no sane default.
func (p Params) requireNumber(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, apperr.New(apperr.InvalidParam, "missing required param %q", key)
	}
	if v.Kind != KindNumber {
		return 0, apperr.New(apperr.InvalidParam, "param %q must be a number, got %s", key, v.Kind)
	}
	return v.Number, nil
}

func (v ValueKind) String() string { return string(v) }

// resolvePresetColor implements the target-color resolution shared by
// Solid, SequentialFade and Strobe (spec.md §4.4.1): a solid preset is used
// directly, a gradient preset is sampled at 0.5, and a missing preset falls
// back to warm/cool white.
func resolvePresetColor(colors *colormanager.Manager, name string) colorspace.RGBCCT {
	defaultWhite := colorspace.RGBCCT{R: 255, G: 255, B: 255, Cool: 255, Warm: 0}
	if colors == nil || name == "" {
		return defaultWhite
	}
	preset, err := colors.GetPreset(name)
	if err != nil {
		return defaultWhite
	}
	if preset.Kind == colormanager.KindSolid {
		return preset.Solid
	}
	return colormanager.InterpolateGradient(preset.Gradient, 0.5)
}

// resolveGradient implements Flow's source-gradient resolution (spec.md
// §4.4.3): a solid preset becomes a degenerate two-stop gradient, a missing
// preset falls back to a red->blue gradient in RGB space.
func resolveGradient(colors *colormanager.Manager, name string) colormanager.Gradient {
	fallback := colormanager.Gradient{
		Space: colormanager.RGB,
		Stops: []colormanager.Stop{
			{Position: 0, Color: colorspace.RGBCCT{R: 255}},
			{Position: 1, Color: colorspace.RGBCCT{B: 255}},
		},
	}
	if colors == nil || name == "" {
		return fallback
	}
	preset, err := colors.GetPreset(name)
	if err != nil {
		return fallback
	}
	if preset.Kind == colormanager.KindGradient {
		return preset.Gradient
	}
	return colormanager.Gradient{
		Space: colormanager.RGB,
		Stops: []colormanager.Stop{
			{Position: 0, Color: preset.Solid},
			{Position: 1, Color: preset.Solid},
		},
	}
}

func wrapPanic(effectName string, r any) error {
	return apperr.New(apperr.Internal, "panic inside %s.Compute: %v", effectName, fmt.Sprint(r))
}
