// Package predictor implements the GSelect branch predictor: a 128-row by
// 8-column table of 2-bit saturating counters indexed by PC and Global
// History Register, plus the GHR itself.
package predictor

const (
	rows       = 128
	cols       = 8
	ghrMask    = uint64(cols - 1)
	rowDivisor = 4
)

// GSelect is the predictor's full state: the GHR and the counter table.
// Zero value is not valid; use New.
type GSelect struct {
	GHR      uint64
	Counters [rows][cols]uint8
}

// New returns a GSelect with GHR=0 and every counter initialized to 1
// (weakly not-taken), per the source simulator's initialization.
func New() *GSelect {
	g := &GSelect{}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.Counters[r][c] = 1
		}
	}
	return g
}

func (g *GSelect) row(pc uint64) int {
	return int((pc / rowDivisor) % rows)
}

func (g *GSelect) col() int {
	return int(g.GHR & ghrMask)
}

// Predict returns the taken/not-taken prediction for pc using the current
// GHR, without mutating any state. Prediction is taken iff the indexed
// counter is in state 2 or 3.
func (g *GSelect) Predict(pc uint64) bool {
	r, c := g.row(pc), g.col()
	return g.Counters[r][c] >= 2
}

// Resolve updates the counter indexed by (row(pc), current GHR) toward the
// observed outcome, then shifts taken into the GHR. The counter update uses
// the GHR as it stands at the moment Resolve is called, so callers resolving
// several branches that completed in the same cycle must call Resolve once
// per branch, in (execute_cycle, dest_tag) order, so that each branch's
// update sees the GHR as left by the previous one in that order.
func (g *GSelect) Resolve(pc uint64, taken bool) {
	r, c := g.row(pc), g.col()
	g.Counters[r][c] = nextCounterState(g.Counters[r][c], taken)
	if taken {
		g.GHR = (g.GHR << 1) | 1
	} else {
		g.GHR = g.GHR << 1
	}
}

// nextCounterState advances a 2-bit saturating counter toward taken (3) or
// not-taken (0).
func nextCounterState(state uint8, taken bool) uint8 {
	switch state {
	case 0:
		if taken {
			return 1
		}
		return 0
	case 1:
		if taken {
			return 2
		}
		return 0
	case 2:
		if taken {
			return 3
		}
		return 1
	case 3:
		if taken {
			return 3
		}
		return 2
	default:
		panic("predictor: counter state out of range")
	}
}
