// Package grid owns the fixed panel array, its current topology mode, and
// the per-panel color state the engine writes every tick.
package grid

import (
	"fmt"
	"sync"
	"time"

	"github.com/rgbcct/panelfx/internal/apperr"
	"github.com/rgbcct/panelfx/internal/colorspace"
)

// TopologyMode selects how panels are grouped into traversal sequences.
type TopologyMode string

const (
	Circular TopologyMode = "circular"
	Linear   TopologyMode = "linear"
	Singular TopologyMode = "singular"
)

// Panel is an immutable identity: its id and its column/row position.
type Panel struct {
	ID     int
	Column int
	Row    int
}

// State is a panel's current color, brightness and the timestamp of the
// last write, in wall-clock Unix milliseconds (time.Now().UnixMilli()); the
// timestamp does not come from a monotonic clock.
type State struct {
	Color      colorspace.RGBCCT
	Brightness float64
	Timestamp  int64
}

func clampState(s State) State {
	s.Color = colorspace.Clamp(s.Color)
	s.Brightness = colorspace.ClampUnit(s.Brightness)
	return s
}

// Grid owns the panel array: fixed columns/rowsPerColumn, current topology,
// and per-panel state.
type Grid struct {
	mu       sync.RWMutex
	columns  int
	rows     int
	n        int
	mode     TopologyMode
	states   []State
	nowMilli func() int64
}

// New constructs a grid with columns*rowsPerColumn panels, all initialized
// to black, in the given initial topology mode.
func New(columns, rowsPerColumn int, initialMode TopologyMode) *Grid {
	n := columns * rowsPerColumn
	g := &Grid{
		columns:  columns,
		rows:     rowsPerColumn,
		n:        n,
		mode:     initialMode,
		states:   make([]State, n),
		nowMilli: func() int64 { return time.Now().UnixMilli() },
	}
	return g
}

// N returns the total panel count.
func (g *Grid) N() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.n
}

// Columns returns the configured column count.
func (g *Grid) Columns() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.columns
}

// RowsPerColumn returns the configured row count per column.
func (g *Grid) RowsPerColumn() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rows
}

// PanelAt derives the immutable Panel identity for id.
func (g *Grid) PanelAt(id int) (Panel, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if id < 0 || id >= g.n {
		return Panel{}, apperr.New(apperr.InvalidParam, "panel id %d out of range [0,%d)", id, g.n)
	}
	return Panel{ID: id, Column: id / g.rows, Row: id % g.rows}, nil
}

// Mode returns the current topology mode.
func (g *Grid) Mode() TopologyMode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mode
}

// SetMode switches the topology mode; it does not touch panel state.
func (g *Grid) SetMode(mode TopologyMode) error {
	switch mode {
	case Circular, Linear, Singular:
	default:
		return apperr.New(apperr.InvalidParam, "unknown topology mode %q", mode)
	}
	g.mu.Lock()
	g.mode = mode
	g.mu.Unlock()
	return nil
}

// Get returns the current state of panel id.
func (g *Grid) Get(id int) (State, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if id < 0 || id >= g.n {
		return State{}, apperr.New(apperr.InvalidParam, "panel id %d out of range [0,%d)", id, g.n)
	}
	return g.states[id], nil
}

// All returns a copy of every panel's current state, in id order.
func (g *Grid) All() []State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]State, g.n)
	copy(out, g.states)
	return out
}

// Set writes a single panel's state, stamping the current time.
func (g *Grid) Set(id int, color colorspace.RGBCCT, brightness float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id < 0 || id >= g.n {
		return apperr.New(apperr.InvalidParam, "panel id %d out of range [0,%d)", id, g.n)
	}
	g.states[id] = clampState(State{Color: color, Brightness: brightness, Timestamp: g.nowMilli()})
	return nil
}

// SetAll replaces every panel's state; states must have exactly N entries.
func (g *Grid) SetAll(states []State) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(states) != g.n {
		return apperr.New(apperr.InvalidParam, "expected %d panel states, got %d", g.n, len(states))
	}
	now := g.nowMilli()
	for i, s := range states {
		s.Timestamp = now
		g.states[i] = clampState(s)
	}
	return nil
}

// SetUniform paints every panel the same color and brightness.
func (g *Grid) SetUniform(color colorspace.RGBCCT, brightness float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.nowMilli()
	s := clampState(State{Color: color, Brightness: brightness, Timestamp: now})
	for i := range g.states {
		g.states[i] = s
	}
}

// Reset paints every panel black at zero brightness, as on construction.
func (g *Grid) Reset() {
	g.SetUniform(colorspace.RGBCCT{}, 0)
}

// Sequences returns the ordered index traversals for the grid's current
// topology mode. See spec.md §4.2: linear yields one sequence per column;
// circular yields a single loop (even columns ascending, odd descending);
// singular yields one sequence listing every panel in id order.
func (g *Grid) Sequences() [][]int {
	g.mu.RLock()
	mode, columns, rows, n := g.mode, g.columns, g.rows, g.n
	g.mu.RUnlock()
	return SequencesFor(mode, columns, rows, n)
}

// SequencesFor is the pure computation behind Sequences, exposed so effects
// and tests can compute sequences for a topology without holding the grid's
// lock across a compute call.
func SequencesFor(mode TopologyMode, columns, rows, n int) [][]int {
	switch mode {
	case Linear:
		seqs := make([][]int, 0, columns)
		for c := 0; c < columns; c++ {
			seq := make([]int, 0, rows)
			for r := 0; r < rows; r++ {
				seq = append(seq, c*rows+r)
			}
			seqs = append(seqs, seq)
		}
		return seqs
	case Circular:
		seq := make([]int, 0, n)
		for c := 0; c < columns; c++ {
			if c%2 == 0 {
				for r := 0; r < rows; r++ {
					seq = append(seq, c*rows+r)
				}
			} else {
				for r := rows - 1; r >= 0; r-- {
					seq = append(seq, c*rows+r)
				}
			}
		}
		return [][]int{seq}
	case Singular:
		fallthrough
	default:
		seq := make([]int, n)
		for i := range seq {
			seq[i] = i
		}
		return [][]int{seq}
	}
}

// String renders a Panel for logging.
func (p Panel) String() string {
	return fmt.Sprintf("panel(id=%d,col=%d,row=%d)", p.ID, p.Column, p.Row)
}
