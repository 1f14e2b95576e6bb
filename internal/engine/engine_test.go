package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/rgbcct/panelfx/internal/colormanager"
	"github.com/rgbcct/panelfx/internal/effects"
	_ "github.com/rgbcct/panelfx/internal/effects"
	"github.com/rgbcct/panelfx/internal/grid"
	"github.com/rgbcct/panelfx/internal/logger"
)

type recordingOutput struct {
	mu    sync.Mutex
	calls int
	last  []grid.State
}

func (r *recordingOutput) Render(states []grid.State, _ grid.TopologyMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = states
}

func (r *recordingOutput) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestEngineTicksAndRendersToOutputs(t *testing.T) {
	g := grid.New(1, 4, grid.Linear)
	colors := colormanager.New(logger.NopLogger{})
	e := New(g, colors, 200, logger.NopLogger{}) // fast tick for the test

	out := &recordingOutput{}
	e.AddOutput(out)

	effect, _ := effects.New("solid")
	e.RunEffect(effect, effects.Params{"transitionDuration": effects.Num(0), "brightness": effects.Num(1)})

	e.Start()
	defer e.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for out.Calls() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if out.Calls() < 1 {
		t.Fatalf("expected at least one render call, got %d", out.Calls())
	}

	for _, s := range g.All() {
		if s.Brightness != 1 {
			t.Fatalf("expected grid to reflect the solid effect, got %+v", s)
		}
	}
}

func TestEngineStartStopIdempotent(t *testing.T) {
	g := grid.New(1, 2, grid.Linear)
	colors := colormanager.New(logger.NopLogger{})
	e := New(g, colors, 100, logger.NopLogger{})

	e.Start()
	e.Start() // no-op, must not panic or double-start
	time.Sleep(20 * time.Millisecond)
	e.Stop()
	e.Stop() // no-op
}
