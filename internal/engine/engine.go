// Package engine drives the fixed-rate tick loop: it asks the runner for
// the next frame, writes it into the grid, and fans the grid's state out
// to every registered output sink.
package engine

import (
	"sync"
	"time"

	"github.com/rgbcct/panelfx/internal/colormanager"
	"github.com/rgbcct/panelfx/internal/effects"
	"github.com/rgbcct/panelfx/internal/grid"
	"github.com/rgbcct/panelfx/internal/logger"
	"github.com/rgbcct/panelfx/internal/runner"
)

// Output is a read-only observer of per-frame state. Render must not
// block the tick loop for long; a slow sink should queue or drop frames
// internally.
type Output interface {
	Render(states []grid.State, mode grid.TopologyMode)
}

// Engine owns the grid, the color manager and the runner, and ticks at a
// fixed target frame rate.
type Engine struct {
	mu         sync.Mutex
	grid       *grid.Grid
	colors     *colormanager.Manager
	runner     *runner.Runner
	log        logger.Logger
	targetFPS  int
	outputs    []Output

	ticker    *time.Ticker
	stopChan  chan struct{}
	running   bool
	startedAt time.Time
	lastTick  time.Time
	elapsed   float64 // milliseconds

	fpsMu       sync.Mutex
	fpsWindowAt time.Time
	fpsCount    int
	fps         float64
}

// New builds an Engine over an existing grid and color manager, at the
// given target FPS (spec.md default is 60).
func New(g *grid.Grid, colors *colormanager.Manager, targetFPS int, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NopLogger{}
	}
	if targetFPS <= 0 {
		targetFPS = 60
	}
	return &Engine{
		grid:      g,
		colors:    colors,
		runner:    runner.New(log),
		log:       log,
		targetFPS: targetFPS,
	}
}

// AddOutput registers a sink. Not safe to call concurrently with Start.
func (e *Engine) AddOutput(o Output) {
	e.mu.Lock()
	e.outputs = append(e.outputs, o)
	e.mu.Unlock()
}

// Grid exposes the owned grid for read access by the command layer.
func (e *Engine) Grid() *grid.Grid { return e.grid }

// Colors exposes the owned color manager.
func (e *Engine) Colors() *colormanager.Manager { return e.colors }

// FPS returns the most recently computed rolling frames-per-second value.
func (e *Engine) FPS() float64 {
	e.fpsMu.Lock()
	defer e.fpsMu.Unlock()
	return e.fps
}

// CurrentEffectName returns the active effect's name, or "" if idle.
func (e *Engine) CurrentEffectName() string {
	return e.runner.CurrentName()
}

// Start begins the tick loop. Idempotent: calling Start while already
// running is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.startedAt = time.Now()
	e.lastTick = e.startedAt
	e.elapsed = 0
	e.stopChan = make(chan struct{})
	interval := time.Duration(1000/float64(e.targetFPS)*1e6) * time.Nanosecond
	e.ticker = time.NewTicker(interval)

	stop := e.stopChan
	ticker := e.ticker
	go e.loop(ticker, stop)
}

func (e *Engine) loop(ticker *time.Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			ticker.Stop()
			return
		case now := <-ticker.C:
			e.tick(now)
		}
	}
}

func (e *Engine) tick(now time.Time) {
	e.mu.Lock()
	dt := now.Sub(e.lastTick)
	e.lastTick = now
	e.elapsed += float64(dt.Microseconds()) / 1000
	deltaMillis := float64(dt.Microseconds()) / 1000
	elapsedMillis := e.elapsed
	g := e.grid
	colors := e.colors
	outputs := append([]Output(nil), e.outputs...)
	e.mu.Unlock()

	states, ok := e.runner.Update(g, colors, deltaMillis, elapsedMillis)
	if ok && len(states) == g.N() {
		if err := g.SetAll(states); err != nil {
			e.log.Error("failed to apply effect output to grid: %v", err)
		}
	}

	current := g.All()
	mode := g.Mode()
	for _, o := range outputs {
		o.Render(current, mode)
	}

	e.recordFrame(now)
}

func (e *Engine) recordFrame(now time.Time) {
	e.fpsMu.Lock()
	defer e.fpsMu.Unlock()
	if e.fpsWindowAt.IsZero() {
		e.fpsWindowAt = now
	}
	e.fpsCount++
	if elapsed := now.Sub(e.fpsWindowAt); elapsed >= time.Second {
		e.fps = float64(e.fpsCount) / elapsed.Seconds()
		e.fpsCount = 0
		e.fpsWindowAt = now
	}
}

// Stop halts the tick loop and clears the active effect, leaving the last
// frame's grid state in place. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	stop := e.stopChan
	e.mu.Unlock()

	close(stop)
	e.runner.Stop()
}

// RunEffect initializes effect with the current elapsed time (deltaTime=0
// per spec.md §4.3) and installs it as the active effect, superseding
// (and cleaning up) whatever ran before.
func (e *Engine) RunEffect(effect effects.Effect, params effects.Params) {
	e.mu.Lock()
	elapsed := e.elapsed
	e.mu.Unlock()
	e.runner.SetEffect(effect, params, e.grid, e.colors, elapsed)
}

// StopCurrentEffect clears the runner without touching the grid.
func (e *Engine) StopCurrentEffect() {
	e.runner.Stop()
}

// ElapsedMillis returns time elapsed since Start, in milliseconds.
func (e *Engine) ElapsedMillis() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
}
