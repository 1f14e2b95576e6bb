package effects

import (
	"math"

	"github.com/rgbcct/panelfx/internal/colormanager"
	"github.com/rgbcct/panelfx/internal/colorspace"
	"github.com/rgbcct/panelfx/internal/grid"
)

func init() {
	register("flow", func() Effect { return &Flow{} })
}

// FlowMode selects between a full-gradient sweep and a bright "chase" zone
// traveling along each sequence.
type FlowMode string

const (
	FlowFull  FlowMode = "full"
	FlowChase FlowMode = "chase"
)

// Flow continuously scrolls a gradient across each sequence of the current
// topology (spec.md §4.4.3).
type Flow struct {
	startTime   float64
	gradient    colormanager.Gradient
	speed       float64
	brightness  float64
	mode        FlowMode
	chaseLength float64
	waveHeight  float64
	scale       float64
}

func (e *Flow) Name() string    { return "flow" }
func (e *Flow) Kind() Lifecycle { return Continuous }

func (e *Flow) Defaults() Params {
	return Params{
		"colorPreset": Str(""),
		"speed":       Num(0.2),
		"brightness":  Num(1),
		"mode":        Str(string(FlowFull)),
		"chaseLength": Num(3),
		"waveHeight":  Num(0),
		"scale":       Num(1),
	}
}

func wrap01(v float64) float64 {
	v = math.Mod(v, 1)
	if v < 0 {
		v += 1
	}
	return v
}

func (e *Flow) Initialize(ctx Context) {
	e.startTime = ctx.ElapsedTimeMillis
	e.gradient = resolveGradient(ctx.Colors, ctx.Params.stringOr("colorPreset", ""))
	e.speed = ctx.Params.numberOr("speed", 0.2)
	e.brightness = colorspace.ClampUnit(ctx.Params.numberOr("brightness", 1))
	e.mode = FlowMode(ctx.Params.stringOr("mode", string(FlowFull)))
	e.chaseLength = ctx.Params.numberOr("chaseLength", 3)
	e.waveHeight = ctx.Params.numberOr("waveHeight", 0)
	e.scale = ctx.Params.numberOr("scale", 1)
}

func (e *Flow) Compute(ctx Context) (states []grid.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrapPanic(e.Name(), r)
		}
	}()

	elapsed := ctx.ElapsedTimeMillis - e.startTime
	timeOffset := wrap01(elapsed * e.speed / 1000)

	n := ctx.Grid.N()
	states = make([]grid.State, n)

	if ctx.Grid.Mode() == grid.Singular {
		color := colormanager.Sample(colormanager.Preset{Kind: colormanager.KindGradient, Gradient: e.gradient}, timeOffset)
		for i := range states {
			states[i] = grid.State{Color: color, Brightness: e.brightness}
		}
		return states, nil
	}

	for _, seq := range ctx.Grid.Sequences() {
		seqLen := len(seq)
		if seqLen == 0 {
			continue
		}
		for k, panelID := range seq {
			normalized := float64(k) / float64(seqLen)
			gradientPos := wrap01(normalized*e.scale + timeOffset)
			color := colormanager.InterpolateGradient(e.gradient, gradientPos)

			brightness := e.brightness
			if e.mode == FlowChase {
				d := math.Min(normalized, 1-normalized)
				falloff := e.chaseLength / float64(seqLen)
				if falloff > 0 && d < falloff {
					brightness = e.brightness * (1 - d/falloff)
				} else if falloff > 0 {
					brightness = 0
				}
			}
			if e.waveHeight > 0 {
				brightness += brightness * e.waveHeight * math.Sin(4*math.Pi*normalized+2*math.Pi*timeOffset)
				brightness = colorspace.ClampUnit(brightness)
			}

			if panelID >= 0 && panelID < n {
				states[panelID] = grid.State{Color: color, Brightness: colorspace.ClampUnit(brightness)}
			}
		}
	}
	return states, nil
}

func (e *Flow) Cleanup()          {}
func (e *Flow) IsDone() bool      { return false }
func (e *Flow) Progress() float64 { return 0 }
