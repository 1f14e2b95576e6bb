package presets

import (
	"github.com/rgbcct/panelfx/internal/colorspace"
	"github.com/rgbcct/panelfx/internal/effects"
	"github.com/rgbcct/panelfx/internal/grid"
)

// defaultPresets are the protected, seeded presets enumerated in spec.md
// §4.7. Their ids, effect, topology and essential params are fixed; all
// carry brightness 1. CreatedAt/UpdatedAt/IsProtected are stamped in by
// seedDefaults.
var defaultPresets = []Preset{
	{
		ID:       "sequential-ww",
		Name:     "Sequential Warm White",
		Effect:   "sequentialFade",
		Topology: grid.Linear,
		Params: effects.Params{
			"startColor":         effects.Col(colorspace.Black),
			"colorPreset":        effects.Str("warmWhite"),
			"brightness":         effects.Num(1),
			"delayBetweenPanels": effects.Num(200),
			"fadeDuration":       effects.Num(1050),
		},
	},
	{
		ID:       "sequential-cw",
		Name:     "Sequential Cool White",
		Effect:   "sequentialFade",
		Topology: grid.Linear,
		Params: effects.Params{
			"startColor":         effects.Col(colorspace.Black),
			"colorPreset":        effects.Str("white"),
			"brightness":         effects.Num(1),
			"delayBetweenPanels": effects.Num(200),
			"fadeDuration":       effects.Num(1050),
		},
	},
	{
		ID:       "flow-slow-rainbow",
		Name:     "Slow Rainbow Flow",
		Effect:   "flow",
		Topology: grid.Linear,
		Params: effects.Params{
			"colorPreset": effects.Str("rainbow"),
			"speed":       effects.Num(0.1),
			"brightness":  effects.Num(1),
			"mode":        effects.Str(string(effects.FlowFull)),
			"scale":       effects.Num(0.15),
		},
	},
	{
		ID:       "strobe-10hz",
		Name:     "Strobe 10Hz",
		Effect:   "strobe",
		Topology: grid.Circular,
		Params: effects.Params{
			"colorPreset": effects.Str("white"),
			"brightness":  effects.Num(1),
			"frequency":   effects.Num(10),
			"dutyCycle":   effects.Num(0.5),
		},
	},
	{
		ID:       "blackout-quick",
		Name:     "Quick Blackout",
		Effect:   "blackout",
		Topology: grid.Circular,
		Params: effects.Params{
			"transitionDuration": effects.Num(300),
		},
	},
	{
		ID:       "blackout-instant",
		Name:     "Instant Blackout",
		Effect:   "blackout",
		Topology: grid.Circular,
		Params: effects.Params{
			"transitionDuration": effects.Num(0),
		},
	},
	{
		ID:       "flow-quick-chase",
		Name:     "Quick Breathing Chase",
		Effect:   "flow",
		Topology: grid.Linear,
		Params: effects.Params{
			"colorPreset": effects.Str("rainbow"),
			"speed":       effects.Num(0.8),
			"brightness":  effects.Num(1),
			"mode":        effects.Str(string(effects.FlowChase)),
			"waveHeight":  effects.Num(0.5),
			"scale":       effects.Num(0.4),
		},
	},
}
