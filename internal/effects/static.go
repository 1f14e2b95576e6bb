package effects

import (
	"github.com/rgbcct/panelfx/internal/colorspace"
	"github.com/rgbcct/panelfx/internal/grid"
)

func init() {
	register("static", func() Effect { return &Static{} })
}

// Static holds (or transitions between) an explicit per-panel color list
// (spec.md §4.4.6). Re-sending a different panelColors list restarts the
// transition from whatever the grid currently shows.
type Static struct {
	brightness      float64
	duration        float64
	target          []colorspace.RGBCCT
	previous        []colorspace.RGBCCT
	transitionStart float64
	initialized     bool
}

func (e *Static) Name() string    { return "static" }
func (e *Static) Kind() Lifecycle { return Continuous }

func (e *Static) Defaults() Params {
	return Params{
		"panelColors":        Cols(nil),
		"brightness":         Num(1),
		"transitionDuration": Num(500),
	}
}

func (e *Static) Initialize(ctx Context) {
	e.brightness = colorspace.ClampUnit(ctx.Params.numberOr("brightness", 1))
	e.duration = ctx.Params.numberOr("transitionDuration", 500)
	e.initialized = false
}

func padColors(colors []colorspace.RGBCCT, n int) []colorspace.RGBCCT {
	out := make([]colorspace.RGBCCT, n)
	copy(out, colors)
	return out
}

func colorsEqual(a, b []colorspace.RGBCCT) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (e *Static) Compute(ctx Context) (states []grid.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrapPanic(e.Name(), r)
		}
	}()

	n := ctx.Grid.N()
	target := padColors(ctx.Params.colorsOr("panelColors", nil), n)

	currentColors := func() []colorspace.RGBCCT {
		all := ctx.Grid.All()
		cols := make([]colorspace.RGBCCT, len(all))
		for i, s := range all {
			cols[i] = s.Color
		}
		return cols
	}

	switch {
	case !e.initialized:
		e.previous = currentColors()
		e.target = target
		e.transitionStart = ctx.ElapsedTimeMillis
		e.initialized = true
	case !colorsEqual(target, e.target):
		e.previous = currentColors()
		e.target = target
		e.transitionStart = ctx.ElapsedTimeMillis
	}

	elapsed := ctx.ElapsedTimeMillis - e.transitionStart
	var t float64
	if e.duration <= 0 {
		t = 1
	} else {
		t = colorspace.ClampUnit(elapsed / e.duration)
	}
	eased := colorspace.EaseOutCubic(t)

	states = make([]grid.State, n)
	for i := 0; i < n; i++ {
		var prev colorspace.RGBCCT
		if i < len(e.previous) {
			prev = e.previous[i]
		}
		color := colorspace.LerpRGBCCT(prev, e.target[i], eased)
		states[i] = grid.State{Color: color, Brightness: e.brightness}
	}
	return states, nil
}

func (e *Static) Cleanup()          {}
func (e *Static) IsDone() bool      { return false }
func (e *Static) Progress() float64 { return 0 }
