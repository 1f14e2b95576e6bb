package effects

import (
	"math"

	"github.com/rgbcct/panelfx/internal/colorspace"
	"github.com/rgbcct/panelfx/internal/grid"
)

func init() {
	register("strobe", func() Effect { return &Strobe{} })
}

// Strobe pulses a uniform color on and off at a fixed frequency and duty
// cycle (spec.md §4.4.4).
type Strobe struct {
	startTime  float64
	color      colorspace.RGBCCT
	brightness float64
	frequency  float64
	dutyCycle  float64
}

func (e *Strobe) Name() string    { return "strobe" }
func (e *Strobe) Kind() Lifecycle { return Continuous }

func (e *Strobe) Defaults() Params {
	return Params{
		"colorPreset": Str(""),
		"brightness":  Num(1),
		"frequency":   Num(5),
		"dutyCycle":   Num(0.5),
	}
}

func (e *Strobe) Initialize(ctx Context) {
	e.startTime = ctx.ElapsedTimeMillis
	e.color = resolvePresetColor(ctx.Colors, ctx.Params.stringOr("colorPreset", ""))
	e.brightness = colorspace.ClampUnit(ctx.Params.numberOr("brightness", 1))
	e.frequency = ctx.Params.numberOr("frequency", 5)
	e.dutyCycle = colorspace.ClampUnit(ctx.Params.numberOr("dutyCycle", 0.5))
}

func (e *Strobe) Compute(ctx Context) (states []grid.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrapPanic(e.Name(), r)
		}
	}()

	elapsed := ctx.ElapsedTimeMillis - e.startTime
	brightness := 0.0
	if e.frequency > 0 {
		cycle := 1000 / e.frequency
		phase := math.Mod(elapsed, cycle) / cycle
		if phase < e.dutyCycle {
			brightness = e.brightness
		}
	}

	n := ctx.Grid.N()
	states = make([]grid.State, n)
	for i := range states {
		states[i] = grid.State{Color: e.color, Brightness: brightness}
	}
	return states, nil
}

func (e *Strobe) Cleanup()          {}
func (e *Strobe) IsDone() bool      { return false }
func (e *Strobe) Progress() float64 { return 0 }
