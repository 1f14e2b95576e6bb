package effects

import (
	"github.com/rgbcct/panelfx/internal/colorspace"
	"github.com/rgbcct/panelfx/internal/grid"
)

func init() {
	register("sequentialFade", func() Effect { return &SequentialFade{} })
}

// SequentialFade fades panels to the target color one sequence-position at
// a time, using every sequence of the current topology (spec.md §4.4.2).
type SequentialFade struct {
	startTime   float64
	startColor  colorspace.RGBCCT
	targetColor colorspace.RGBCCT
	brightness  float64
	delay       float64
	fade        float64
	progress    float64
	initialized bool
}

func (e *SequentialFade) Name() string    { return "sequentialFade" }
func (e *SequentialFade) Kind() Lifecycle { return OneShot }

func (e *SequentialFade) Defaults() Params {
	return Params{
		"colorPreset":         Str(""),
		"brightness":          Num(1),
		"delayBetweenPanels":  Num(100),
		"fadeDuration":        Num(500),
	}
}

func (e *SequentialFade) Initialize(ctx Context) {
	e.startTime = ctx.ElapsedTimeMillis
	e.startColor = ctx.Params.colorOr("startColor", colorspace.RGBCCT{})
	e.targetColor = resolvePresetColor(ctx.Colors, ctx.Params.stringOr("colorPreset", ""))
	e.brightness = colorspace.ClampUnit(ctx.Params.numberOr("brightness", 1))

	n := ctx.Grid.N()
	if total, ok := ctx.Params["transitionDuration"]; ok && total.Kind == KindNumber && n > 0 {
		e.delay = 0.3 * total.Number / float64(n)
		e.fade = 0.7 * total.Number
	} else {
		e.delay = ctx.Params.numberOr("delayBetweenPanels", 100)
		e.fade = ctx.Params.numberOr("fadeDuration", 500)
	}
	e.progress = 0
	e.initialized = true
}

func (e *SequentialFade) Compute(ctx Context) (states []grid.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrapPanic(e.Name(), r)
		}
	}()

	n := ctx.Grid.N()
	states = make([]grid.State, n)
	for i := range states {
		states[i] = grid.State{Color: e.startColor, Brightness: e.brightness}
	}

	elapsed := ctx.ElapsedTimeMillis - e.startTime
	minLocal := 1.0
	for _, seq := range ctx.Grid.Sequences() {
		for k, panelID := range seq {
			startAt := float64(k) * e.delay
			var local float64
			if e.fade <= 0 {
				local = 1
			} else {
				local = colorspace.ClampUnit((elapsed - startAt) / e.fade)
			}
			if local < minLocal {
				minLocal = local
			}
			eased := colorspace.EaseOutQuad(local)
			color := colorspace.LerpRGBCCT(e.startColor, e.targetColor, eased)
			if panelID >= 0 && panelID < n {
				states[panelID] = grid.State{Color: color, Brightness: e.brightness}
			}
		}
	}
	e.progress = minLocal
	return states, nil
}

func (e *SequentialFade) Cleanup()          {}
func (e *SequentialFade) IsDone() bool      { return e.initialized && e.progress >= 1 }
func (e *SequentialFade) Progress() float64 { return e.progress }
