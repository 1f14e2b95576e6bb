package effects

import (
	"github.com/rgbcct/panelfx/internal/colorspace"
	"github.com/rgbcct/panelfx/internal/grid"
)

func init() {
	register("solid", func() Effect { return &Solid{} })
}

// Solid fades every panel uniformly from startColor to the resolved target
// color over transitionDuration milliseconds (spec.md §4.4.1).
type Solid struct {
	startTime    float64
	startColor   colorspace.RGBCCT
	targetColor  colorspace.RGBCCT
	brightness   float64
	duration     float64
	progress     float64
	initialized  bool
}

func (e *Solid) Name() string     { return "solid" }
func (e *Solid) Kind() Lifecycle  { return OneShot }

func (e *Solid) Defaults() Params {
	return Params{
		"colorPreset":        Str(""),
		"brightness":         Num(1),
		"transitionDuration": Num(500),
	}
}

func (e *Solid) Initialize(ctx Context) {
	e.startTime = ctx.ElapsedTimeMillis
	e.startColor = ctx.Params.colorOr("startColor", colorspace.RGBCCT{})
	e.targetColor = resolvePresetColor(ctx.Colors, ctx.Params.stringOr("colorPreset", ""))
	e.brightness = colorspace.ClampUnit(ctx.Params.numberOr("brightness", 1))
	e.duration = ctx.Params.numberOr("transitionDuration", 500)
	e.progress = 0
	e.initialized = true
}

func (e *Solid) Compute(ctx Context) (states []grid.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrapPanic(e.Name(), r)
		}
	}()

	elapsed := ctx.ElapsedTimeMillis - e.startTime
	if e.duration <= 0 {
		e.progress = 1
	} else {
		e.progress = colorspace.ClampUnit(elapsed / e.duration)
	}
	eased := colorspace.EaseOutQuad(e.progress)
	color := colorspace.LerpRGBCCT(e.startColor, e.targetColor, eased)

	n := ctx.Grid.N()
	states = make([]grid.State, n)
	for i := range states {
		states[i] = grid.State{Color: color, Brightness: e.brightness}
	}
	return states, nil
}

func (e *Solid) Cleanup()          {}
func (e *Solid) IsDone() bool      { return e.initialized && e.progress >= 1 }
func (e *Solid) Progress() float64 { return e.progress }
