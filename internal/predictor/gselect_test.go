package predictor

import "testing"

func TestNewInitialState(t *testing.T) {
	g := New()

	if g.GHR != 0 {
		t.Errorf("GHR = %d, want 0", g.GHR)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if g.Counters[r][c] != 1 {
				t.Fatalf("Counters[%d][%d] = %d, want 1", r, c, g.Counters[r][c])
			}
		}
	}
}

func TestPredictInitiallyNotTaken(t *testing.T) {
	g := New()
	if g.Predict(0x1000) {
		t.Error("Predict() with fresh counters = taken, want not-taken (counter starts at 1)")
	}
}

func TestSaturatingCounterRunsOfTaken(t *testing.T) {
	tests := []struct {
		takenRuns int
		wantState uint8
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 3},
		{10, 3}, // saturates
	}

	for _, tt := range tests {
		g := New()
		g.Counters[0][0] = 0
		for i := 0; i < tt.takenRuns; i++ {
			g.Counters[0][0] = nextCounterState(g.Counters[0][0], true)
		}
		if g.Counters[0][0] != tt.wantState {
			t.Errorf("after %d taken runs from state 0, counter = %d, want %d", tt.takenRuns, g.Counters[0][0], tt.wantState)
		}
	}
}

func TestSaturatingCounterRunsOfNotTaken(t *testing.T) {
	tests := []struct {
		runs      int
		wantState uint8
	}{
		{0, 3},
		{1, 2},
		{2, 1},
		{3, 0},
		{10, 0}, // saturates
	}

	for _, tt := range tests {
		state := uint8(3)
		for i := 0; i < tt.runs; i++ {
			state = nextCounterState(state, false)
		}
		if state != tt.wantState {
			t.Errorf("after %d not-taken runs from state 3, counter = %d, want %d", tt.runs, state, tt.wantState)
		}
	}
}

func TestResolveShiftsGHR(t *testing.T) {
	g := New()
	g.Resolve(0x0, true)
	if g.GHR != 1 {
		t.Errorf("GHR after taken resolve = %d, want 1", g.GHR)
	}
	g.Resolve(0x0, false)
	if g.GHR != 2 {
		t.Errorf("GHR after not-taken resolve = %d, want 2", g.GHR)
	}
	g.Resolve(0x0, true)
	if g.GHR != 5 {
		t.Errorf("GHR after third resolve = %d, want 5", g.GHR)
	}
}

func TestPredictAndResolveUseSameRowAndColumn(t *testing.T) {
	g := New()
	pc := uint64(0x40)

	before := g.Predict(pc)
	g.Resolve(pc, true)

	// Row/col used for the update must be the ones Predict just read: after
	// a single taken resolve from the initial state (1), the counter at
	// column 0 (GHR was 0) must have advanced exactly one step forward
	// (1 -> 2). The resolve also shifts the GHR to 1, so a fresh Predict
	// reads column 1 instead and is not checked here.
	after := g.Predict(pc)
	if before {
		t.Fatal("initial prediction should be not-taken (counter starts at 1)")
	}
	_ = after
	row := g.row(pc)
	if g.Counters[row][0] != 2 {
		t.Errorf("counter after one taken resolve = %d, want 2", g.Counters[row][0])
	}
}

func TestRowWrapsModulo128(t *testing.T) {
	g := &GSelect{}
	if g.row(0) != g.row(128*4) {
		t.Errorf("row(0) = %d, row(512) = %d, want equal (128-row wraparound)", g.row(0), g.row(128*4))
	}
}
