package runner

import (
	"testing"

	"github.com/rgbcct/panelfx/internal/colormanager"
	"github.com/rgbcct/panelfx/internal/effects"
	_ "github.com/rgbcct/panelfx/internal/effects" // register effects
	"github.com/rgbcct/panelfx/internal/grid"
	"github.com/rgbcct/panelfx/internal/logger"
)

type panicEffect struct{}

func (panicEffect) Name() string             { return "panicky" }
func (panicEffect) Kind() effects.Lifecycle  { return effects.Continuous }
func (panicEffect) Defaults() effects.Params { return effects.Params{} }
func (panicEffect) Initialize(effects.Context) {}
func (panicEffect) Compute(effects.Context) ([]grid.State, error) {
	panic("boom")
}
func (panicEffect) Cleanup()          {}
func (panicEffect) IsDone() bool      { return false }
func (panicEffect) Progress() float64 { return 0 }

func TestRunnerSurvivesEffectPanic(t *testing.T) {
	r := New(logger.NopLogger{})
	g := grid.New(1, 4, grid.Linear)
	colors := colormanager.New(logger.NopLogger{})

	r.SetEffect(panicEffect{}, effects.Params{}, g, colors, 0)
	states, ok := r.Update(g, colors, 16, 16)
	if ok || states != nil {
		t.Fatalf("expected panic to clear the runner and report idle, got ok=%v states=%v", ok, states)
	}
	if r.CurrentName() != "" {
		t.Fatalf("runner should be cleared after a panicking compute")
	}

	// Next tick should proceed normally with a fresh effect.
	e, _ := effects.New("solid")
	r.SetEffect(e, effects.Params{"transitionDuration": effects.Num(0)}, g, colors, 0)
	if _, ok := r.Update(g, colors, 16, 16); !ok {
		t.Fatalf("runner should recover and accept a new effect after a panic")
	}
}

func TestRunnerClearsAfterOneShotCompletion(t *testing.T) {
	r := New(logger.NopLogger{})
	g := grid.New(1, 2, grid.Linear)
	colors := colormanager.New(logger.NopLogger{})

	e, _ := effects.New("solid")
	r.SetEffect(e, effects.Params{"transitionDuration": effects.Num(0)}, g, colors, 0)
	states, ok := r.Update(g, colors, 0, 0)
	if !ok || len(states) != 2 {
		t.Fatalf("expected a completed frame, got ok=%v states=%v", ok, states)
	}
	if r.CurrentName() != "" {
		t.Fatalf("runner should clear itself once a one-shot effect reports done")
	}
}

func TestRunnerSetEffectCleansUpPrevious(t *testing.T) {
	r := New(logger.NopLogger{})
	g := grid.New(1, 2, grid.Linear)
	colors := colormanager.New(logger.NopLogger{})

	cleaned := false
	first := &cleanupSpy{onCleanup: func() { cleaned = true }}
	r.SetEffect(first, effects.Params{}, g, colors, 0)

	second, _ := effects.New("strobe")
	r.SetEffect(second, effects.Params{}, g, colors, 0)

	if !cleaned {
		t.Fatalf("expected SetEffect to clean up the previous effect")
	}
	if r.CurrentName() != "strobe" {
		t.Fatalf("expected strobe to be active, got %q", r.CurrentName())
	}
}

type cleanupSpy struct {
	onCleanup func()
}

func (*cleanupSpy) Name() string             { return "spy" }
func (*cleanupSpy) Kind() effects.Lifecycle  { return effects.Continuous }
func (*cleanupSpy) Defaults() effects.Params { return effects.Params{} }
func (*cleanupSpy) Initialize(effects.Context) {}
func (*cleanupSpy) Compute(effects.Context) ([]grid.State, error) { return nil, nil }
func (s *cleanupSpy) Cleanup() {
	if s.onCleanup != nil {
		s.onCleanup()
	}
}
func (*cleanupSpy) IsDone() bool      { return false }
func (*cleanupSpy) Progress() float64 { return 0 }
