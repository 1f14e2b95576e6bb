// Package runner drives the lifecycle of the single currently-active
// effect: initialize once, compute every tick, clean up on supersession.
package runner

import (
	"sync"

	"github.com/rgbcct/panelfx/internal/colormanager"
	"github.com/rgbcct/panelfx/internal/effects"
	"github.com/rgbcct/panelfx/internal/grid"
	"github.com/rgbcct/panelfx/internal/logger"
)

// Runner holds at most one active effect and its effective (merged)
// params.
type Runner struct {
	mu      sync.Mutex
	current effects.Effect
	params  effects.Params
	log     logger.Logger
}

// New creates an empty runner.
func New(log logger.Logger) *Runner {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Runner{log: log}
}

// CurrentName returns the active effect's name, or "" if idle.
func (r *Runner) CurrentName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return ""
	}
	return r.current.Name()
}

// SetEffect cleans up any previous effect, then initializes and installs
// the new one with its merged parameter set. ctx.DeltaTimeMillis is
// expected to be 0, matching spec.md §4.3's "initializes the effect with
// the current ctx (deltaTime=0)".
func (r *Runner) SetEffect(e effects.Effect, params effects.Params, g *grid.Grid, colors *colormanager.Manager, elapsedMillis float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.safeCleanup()
	}

	merged := effects.Merge(e.Defaults(), params)
	ctx := effects.Context{
		DeltaTimeMillis:   0,
		ElapsedTimeMillis: elapsedMillis,
		Grid:              g,
		Colors:            colors,
		Params:            merged,
	}
	e.Initialize(ctx)

	r.current = e
	r.params = merged
}

// Stop clears the runner, invoking the outgoing effect's cleanup.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.safeCleanup()
	r.current = nil
	r.params = nil
}

// safeCleanup calls the current effect's Cleanup, recovering from any
// panic so a broken effect can never wedge the runner. Caller must hold
// r.mu.
func (r *Runner) safeCleanup() {
	if r.current == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic during cleanup of effect %q: %v", r.current.Name(), rec)
		}
	}()
	r.current.Cleanup()
}

// Update computes the next frame from the active effect, or returns
// (nil, false) when idle. A panic inside Compute is recovered, logged, and
// clears the runner so subsequent ticks leave the grid untouched
// (spec.md §4.3 "Failure semantics").
func (r *Runner) Update(g *grid.Grid, colors *colormanager.Manager, deltaMillis, elapsedMillis float64) ([]grid.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return nil, false
	}

	ctx := effects.Context{
		DeltaTimeMillis:   deltaMillis,
		ElapsedTimeMillis: elapsedMillis,
		Grid:              g,
		Colors:            colors,
		Params:            r.params,
	}

	states, err := r.computeSafely(ctx)
	if err != nil {
		r.log.Error("effect %q failed: %v", r.current.Name(), err)
		r.current = nil
		r.params = nil
		return nil, false
	}

	if r.current.Kind() == effects.OneShot && r.current.IsDone() {
		name := r.current.Name()
		r.safeCleanup()
		r.current = nil
		r.params = nil
		r.log.Debug("one-shot effect %q completed", name)
	}

	return states, true
}

// computeSafely wraps Compute with a panic recovery in addition to the
// effect's own recovery, since a misbehaving effect could panic outside
// the slice it returns (e.g. while reading ctx).
func (r *Runner) computeSafely(ctx effects.Context) (states []grid.State, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &panicError{effect: r.current.Name(), value: rec}
		}
	}()
	return r.current.Compute(ctx)
}

type panicError struct {
	effect string
	value  any
}

func (p *panicError) Error() string {
	return "panic inside " + p.effect + ".Compute"
}
