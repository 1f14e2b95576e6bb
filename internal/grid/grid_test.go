package grid

import (
	"reflect"
	"testing"

	"github.com/rgbcct/panelfx/internal/colorspace"
)

func TestCanonicalCircularTopology(t *testing.T) {
	seqs := SequencesFor(Circular, 2, 7, 14)
	if len(seqs) != 1 {
		t.Fatalf("circular topology must yield exactly one sequence, got %d", len(seqs))
	}
	want := []int{0, 1, 2, 3, 4, 5, 6, 13, 12, 11, 10, 9, 8, 7}
	if !reflect.DeepEqual(seqs[0], want) {
		t.Fatalf("circular sequence = %v, want %v", seqs[0], want)
	}
}

func TestLinearTopologyOneSequencePerColumn(t *testing.T) {
	seqs := SequencesFor(Linear, 2, 7, 14)
	if len(seqs) != 2 {
		t.Fatalf("expected 2 sequences, got %d", len(seqs))
	}
	if !reflect.DeepEqual(seqs[0], []int{0, 1, 2, 3, 4, 5, 6}) {
		t.Fatalf("column 0 = %v", seqs[0])
	}
	if !reflect.DeepEqual(seqs[1], []int{7, 8, 9, 10, 11, 12, 13}) {
		t.Fatalf("column 1 = %v", seqs[1])
	}
}

func TestSingularTopologyListsAllInOrder(t *testing.T) {
	seqs := SequencesFor(Singular, 2, 7, 14)
	if len(seqs) != 1 || len(seqs[0]) != 14 {
		t.Fatalf("singular topology must yield one sequence of all panels")
	}
	for i, id := range seqs[0] {
		if id != i {
			t.Fatalf("singular sequence out of order at %d: %d", i, id)
		}
	}
}

// Every topology mode must partition {0,...,N-1} exactly once.
func TestSequencesArePermutations(t *testing.T) {
	for _, mode := range []TopologyMode{Circular, Linear, Singular} {
		for _, shape := range [][2]int{{2, 7}, {4, 5}, {1, 10}, {3, 3}} {
			columns, rows := shape[0], shape[1]
			n := columns * rows
			seqs := SequencesFor(mode, columns, rows, n)
			seen := make(map[int]bool, n)
			count := 0
			for _, seq := range seqs {
				for _, id := range seq {
					if seen[id] {
						t.Fatalf("mode=%s shape=%v: panel %d appears twice", mode, shape, id)
					}
					seen[id] = true
					count++
				}
			}
			if count != n {
				t.Fatalf("mode=%s shape=%v: got %d ids, want %d", mode, shape, count, n)
			}
		}
	}
}

func TestGridSetAndGet(t *testing.T) {
	g := New(2, 7, Linear)
	if g.N() != 14 {
		t.Fatalf("N() = %d, want 14", g.N())
	}
	if err := g.Set(3, colorspace.RGBCCT{R: 10, G: 20, B: 30}, 0.5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	st, err := g.Get(3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Color.R != 10 || st.Brightness != 0.5 {
		t.Fatalf("Get(3) = %+v", st)
	}

	if err := g.Set(99, colorspace.RGBCCT{}, 0); err == nil {
		t.Fatalf("Set with out-of-range id should error")
	}
	if _, err := g.Get(-1); err == nil {
		t.Fatalf("Get with negative id should error")
	}
}

func TestGridSetAllRequiresExactLength(t *testing.T) {
	g := New(2, 7, Linear)
	if err := g.SetAll(make([]State, 13)); err == nil {
		t.Fatalf("SetAll with wrong length should error")
	}
	if err := g.SetAll(make([]State, 14)); err != nil {
		t.Fatalf("SetAll with exact length should succeed: %v", err)
	}
}

func TestGridClampsOnSet(t *testing.T) {
	g := New(1, 1, Singular)
	_ = g.Set(0, colorspace.RGBCCT{R: 999, G: -5}, 5)
	st, _ := g.Get(0)
	if st.Color.R != 255 || st.Color.G != 0 || st.Brightness != 1 {
		t.Fatalf("Set did not clamp: %+v", st)
	}
}

func TestPanelAtDerivesColumnAndRow(t *testing.T) {
	g := New(2, 7, Linear)
	p, err := g.PanelAt(8)
	if err != nil {
		t.Fatalf("PanelAt: %v", err)
	}
	if p.Column != 1 || p.Row != 1 {
		t.Fatalf("PanelAt(8) = %+v, want column=1 row=1", p)
	}
}
