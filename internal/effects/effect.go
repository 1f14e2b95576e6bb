package effects

import (
	"github.com/rgbcct/panelfx/internal/colormanager"
	"github.com/rgbcct/panelfx/internal/grid"
)

// Lifecycle distinguishes one-shot effects (which terminate after reaching
// a completion predicate) from continuous ones (which run until
// superseded or stopped).
type Lifecycle string

const (
	OneShot    Lifecycle = "oneshot"
	Continuous Lifecycle = "continuous"
)

// Context is the read-only view an effect's Initialize/Compute receives
// each tick: elapsed/delta time plus references to the grid and color
// manager the engine owns. Effects must never mutate Grid from inside
// Compute; the engine is the sole writer (spec.md §9's "shared grid +
// effect computation" design note).
type Context struct {
	DeltaTimeMillis   float64
	ElapsedTimeMillis float64
	Grid              *grid.Grid
	Colors            *colormanager.Manager
	Params            Params
}

// Effect is the small state-machine protocol every variant implements.
// initialize captures start time and any snapshot state; compute returns a
// fresh slice of panel states every tick; cleanup releases anything
// initialize acquired.
type Effect interface {
	Name() string
	Kind() Lifecycle
	Defaults() Params
	Initialize(ctx Context)
	Compute(ctx Context) ([]grid.State, error)
	Cleanup()
	IsDone() bool
	Progress() float64
}

// Factory constructs a fresh instance of an effect by name, so the runner
// always starts from clean per-run state instead of reusing a possibly
// dirty struct across runs.
type Factory func() Effect

// registry maps effect names to factories. Populated by each effect's
// init() so the set is closed over the six variants this package defines.
var registry = map[string]Factory{}

func register(name string, f Factory) {
	registry[name] = f
}

// New constructs a fresh Effect instance by name; ok is false if no effect
// is registered under that name.
func New(name string) (Effect, bool) {
	f, ok := registry[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Names lists every registered effect name, for validation and listing.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}
