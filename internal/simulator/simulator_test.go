package simulator_test

import (
	"testing"

	"github.com/archlab/procsim/internal/config"
	"github.com/archlab/procsim/internal/core"
	"github.com/archlab/procsim/internal/simulator"
)

// sliceSource replays a fixed slice of instructions, assigning tags by
// position, mirroring trace.Reader's sequential tagging.
type sliceSource struct {
	insts []*core.Instruction
	next  int
}

func newSliceSource(insts []*core.Instruction) *sliceSource {
	for i, inst := range insts {
		inst.Tag = i
	}
	return &sliceSource{insts: insts}
}

func (s *sliceSource) Next() (*core.Instruction, bool) {
	if s.next >= len(s.insts) {
		return nil, false
	}
	inst := s.insts[s.next]
	s.next++
	return inst, true
}

func newInst(pc uint64, fu core.FUClass, dest, src1, src2 int) *core.Instruction {
	return &core.Instruction{PC: pc, FUClass: fu, DestReg: dest, Src1Reg: src1, Src2Reg: src2, Src1Tag: core.SentinelTag, Src2Tag: core.SentinelTag}
}

func newBranch(pc uint64, taken bool) *core.Instruction {
	inst := newInst(pc, core.FU0, core.NoReg, core.NoReg, core.NoReg)
	inst.IsBranch = true
	inst.Taken = taken
	return inst
}

func mustRun(t *testing.T, cfg *config.Config, insts []*core.Instruction) []simulator.RetiredInstruction {
	t.Helper()
	sim, err := simulator.New(cfg, newSliceSource(insts))
	if err != nil {
		t.Fatalf("simulator.New() returned error: %v", err)
	}
	sim.Run()
	return sim.RetirementTable()
}

// Scenario 1: single independent non-branch.
func TestScenarioSingleIndependentNonBranch(t *testing.T) {
	cfg := &config.Config{NumRegs: 128, R: 2, F: 4, K0Size: 1, K1Size: 1, K2Size: 1}
	table := mustRun(t, cfg, []*core.Instruction{
		newInst(0x1000, core.FU0, 5, core.NoReg, core.NoReg),
	})

	if len(table) != 1 {
		t.Fatalf("retirement table has %d rows, want 1", len(table))
	}
	row := table[0]
	want := simulator.RetiredInstruction{Inst: 1, Fetch: 1, Disp: 2, Sched: 3, Exec: 4, State: 5}
	if row != want {
		t.Errorf("row = %+v, want %+v", row, want)
	}
}

// Scenario 2: RAW hazard. B must wait for A's write-back before firing.
func TestScenarioRAWHazard(t *testing.T) {
	cfg := &config.Config{NumRegs: 128, R: 2, F: 4, K0Size: 1, K1Size: 2, K2Size: 1}
	table := mustRun(t, cfg, []*core.Instruction{
		newInst(0x100, core.FU0, 5, core.NoReg, core.NoReg),
		newInst(0x104, core.FU0, 6, 5, core.NoReg),
	})

	if len(table) != 2 {
		t.Fatalf("retirement table has %d rows, want 2", len(table))
	}
	a, b := table[0], table[1]
	if b.Sched != a.Sched {
		t.Errorf("B.Sched = %d, want equal to A.Sched = %d", b.Sched, a.Sched)
	}
	if b.Exec != a.State+1 {
		t.Errorf("B.Exec = %d, want A.State+1 = %d", b.Exec, a.State+1)
	}
}

// Scenario 3: structural hazard. Three k0-class instructions contending for
// a single k0 slot must execute on strictly increasing cycles.
func TestScenarioStructuralHazard(t *testing.T) {
	cfg := &config.Config{NumRegs: 128, R: 2, F: 4, K0Size: 1, K1Size: 1, K2Size: 1}
	table := mustRun(t, cfg, []*core.Instruction{
		newInst(0x200, core.FU0, 1, core.NoReg, core.NoReg),
		newInst(0x204, core.FU0, 2, core.NoReg, core.NoReg),
		newInst(0x208, core.FU0, 3, core.NoReg, core.NoReg),
	})

	if len(table) != 3 {
		t.Fatalf("retirement table has %d rows, want 3", len(table))
	}
	for i := 1; i < len(table); i++ {
		if table[i].Exec <= table[i-1].Exec {
			t.Errorf("row %d Exec = %d, want strictly greater than row %d Exec = %d", i, table[i].Exec, i-1, table[i-1].Exec)
		}
	}
}

// Scenario 4: correctly predicted branch (predict not-taken, actual
// not-taken, matches the initial counter state of 1). No stall: the
// instruction following the branch dispatches one cycle after it.
func TestScenarioCorrectBranchPrediction(t *testing.T) {
	cfg := &config.Config{NumRegs: 128, R: 2, F: 1, K0Size: 1, K1Size: 1, K2Size: 1}
	table := mustRun(t, cfg, []*core.Instruction{
		newBranch(0x300, false),
		newInst(0x304, core.FU0, 1, core.NoReg, core.NoReg),
	})

	if len(table) != 2 {
		t.Fatalf("retirement table has %d rows, want 2", len(table))
	}
	branch, next := table[0], table[1]
	if next.Disp != branch.Disp+1 {
		t.Errorf("next.Disp = %d, want branch.Disp+1 = %d", next.Disp, branch.Disp+1)
	}
}

// Scenario 5: misprediction and recovery. Predicted not-taken, actually
// taken. Dispatch stalls until the branch's State cycle; the next
// instruction dispatches exactly one cycle after that.
func TestScenarioMispredictionAndRecovery(t *testing.T) {
	cfg := &config.Config{NumRegs: 128, R: 2, F: 1, K0Size: 1, K1Size: 1, K2Size: 1}
	table := mustRun(t, cfg, []*core.Instruction{
		newBranch(0x400, true),
		newInst(0x404, core.FU0, 1, core.NoReg, core.NoReg),
	})

	if len(table) != 2 {
		t.Fatalf("retirement table has %d rows, want 2", len(table))
	}
	branch, next := table[0], table[1]
	if next.Disp != branch.State+1 {
		t.Errorf("next.Disp = %d, want branch.State+1 = %d", next.Disp, branch.State+1)
	}
}

// Scenario 6: tag-ordered completion. With R=1, when two instructions would
// otherwise complete the same cycle, the lower dest_tag retires first and
// the other retires the following cycle.
func TestScenarioTagOrderedCompletion(t *testing.T) {
	cfg := &config.Config{NumRegs: 128, R: 1, F: 4, K0Size: 2, K1Size: 1, K2Size: 1}
	table := mustRun(t, cfg, []*core.Instruction{
		newInst(0x500, core.FU0, 1, core.NoReg, core.NoReg),
		newInst(0x504, core.FU0, 2, core.NoReg, core.NoReg),
	})

	if len(table) != 2 {
		t.Fatalf("retirement table has %d rows, want 2", len(table))
	}
	first, second := table[0], table[1]
	if first.Inst != 1 || second.Inst != 2 {
		t.Fatalf("table order = [%d %d], want [1 2] (dest_tag order)", first.Inst, second.Inst)
	}
	if second.State != first.State+1 {
		t.Errorf("second.State = %d, want first.State+1 = %d", second.State, first.State+1)
	}
	if second.State < first.State {
		t.Errorf("second.State = %d, lower dest_tag must not retire later", second.State)
	}
}

func TestStatisticsPredictionAccuracyAndTotalCycles(t *testing.T) {
	cfg := &config.Config{NumRegs: 128, R: 2, F: 4, K0Size: 1, K1Size: 1, K2Size: 1}
	sim, err := simulator.New(cfg, newSliceSource([]*core.Instruction{
		newBranch(0x600, false), // correctly predicted: initial state predicts not-taken
	}))
	if err != nil {
		t.Fatalf("simulator.New() returned error: %v", err)
	}
	sim.Run()

	stats := sim.Statistics()
	if stats.TotalBranches != 1 {
		t.Errorf("TotalBranches = %d, want 1", stats.TotalBranches)
	}
	if stats.CorrectBranches != 1 {
		t.Errorf("CorrectBranches = %d, want 1", stats.CorrectBranches)
	}
	if stats.PredictionAccuracy != 1.0 {
		t.Errorf("PredictionAccuracy = %f, want 1.0", stats.PredictionAccuracy)
	}
	table := sim.RetirementTable()
	if len(table) != 1 {
		t.Fatalf("retirement table has %d rows, want 1", len(table))
	}
	if stats.TotalCycles != int64(table[0].State) {
		t.Errorf("TotalCycles = %d, want max state_cycle = %d", stats.TotalCycles, table[0].State)
	}
}

func TestDeterminismAcrossRuns(t *testing.T) {
	cfg := &config.Config{NumRegs: 128, R: 2, F: 4, K0Size: 2, K1Size: 2, K2Size: 1}
	build := func() []*core.Instruction {
		return []*core.Instruction{
			newInst(0x700, core.FU0, 1, core.NoReg, core.NoReg),
			newInst(0x704, core.FU1A, 2, 1, core.NoReg),
			newBranch(0x708, true),
			newInst(0x70c, core.FU2, 3, 2, core.NoReg),
		}
	}

	first := mustRun(t, cfg, build())
	second := mustRun(t, cfg, build())

	if len(first) != len(second) {
		t.Fatalf("row counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("row %d differs across runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
