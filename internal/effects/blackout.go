package effects

import (
	"math"

	"github.com/rgbcct/panelfx/internal/colorspace"
	"github.com/rgbcct/panelfx/internal/grid"
)

func init() {
	register("blackout", func() Effect { return &Blackout{} })
}

// Blackout fades the grid's current snapshot down to black over
// transitionDuration milliseconds (spec.md §4.4.5). The "fades from the
// captured grid" variant is the one this implementation follows; see
// DESIGN.md for the resolved open question.
type Blackout struct {
	startTime float64
	duration  float64
	snapshot  []grid.State
	progress  float64
}

func (e *Blackout) Name() string    { return "blackout" }
func (e *Blackout) Kind() Lifecycle { return OneShot }

func (e *Blackout) Defaults() Params {
	return Params{"transitionDuration": Num(500)}
}

func (e *Blackout) Initialize(ctx Context) {
	e.startTime = ctx.ElapsedTimeMillis
	e.duration = ctx.Params.numberOr("transitionDuration", 500)
	e.snapshot = ctx.Grid.All()
	e.progress = 0
}

func (e *Blackout) Compute(ctx Context) (states []grid.State, err error) {
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
	eased := colorspace.EaseInOutQuad(e.progress)
	remaining := 1 - eased

	states = make([]grid.State, len(e.snapshot))
	for i, s := range e.snapshot {
		states[i] = grid.State{
			Color: colorspace.RGBCCT{
				R:    int(math.Round(float64(s.Color.R) * remaining)),
				G:    int(math.Round(float64(s.Color.G) * remaining)),
				B:    int(math.Round(float64(s.Color.B) * remaining)),
				Cool: int(math.Round(float64(s.Color.Cool) * remaining)),
				Warm: int(math.Round(float64(s.Color.Warm) * remaining)),
			},
			Brightness: s.Brightness * remaining,
		}
	}
	return states, nil
}

func (e *Blackout) Cleanup()          {}
func (e *Blackout) IsDone() bool      { return e.progress >= 1 }
func (e *Blackout) Progress() float64 { return e.progress }
