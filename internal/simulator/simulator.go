// Package simulator provides the engine handle exposed to cmd/procsim: it
// owns a pipeline.Engine and a trace source, drives cycles to quiescence,
// and reports the retirement table and aggregate statistics.
package simulator

import (
	"fmt"
	"sort"

	"github.com/archlab/procsim/internal/config"
	"github.com/archlab/procsim/internal/pipeline"
	"github.com/archlab/procsim/internal/predictor"
)

// Statistics is the aggregate statistics report.
type Statistics struct {
	TotalBranches          int64
	CorrectBranches        int64
	PredictionAccuracy     float64
	AvgDispatchQueueSize   float64
	MaxDispatchQueueSize   int64
	AvgInstIssuePerCycle   float64
	AvgInstRetiredPerCycle float64
	TotalCycles            int64
}

// RetiredInstruction is one row of the retirement table: INST is dest_tag+1.
type RetiredInstruction struct {
	Inst  int
	Fetch int
	Disp  int
	Sched int
	Exec  int
	State int
}

// Simulator drives a pipeline.Engine to completion over a trace. It runs
// single-threaded and non-preemptively, so there is no concurrency here to
// synchronize.
type Simulator struct {
	engine *pipeline.Engine
}

// New constructs a Simulator reading trace instructions from source.
func New(cfg *config.Config, source pipeline.InstructionSource) (*Simulator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil configuration provided")
	}
	eng := pipeline.New(cfg, predictor.New(), source)
	return &Simulator{engine: eng}, nil
}

// Run steps the engine until it reaches quiescence.
func (s *Simulator) Run() {
	for !s.engine.Done() {
		s.engine.Step()
	}
}

// Step advances the simulation by exactly one cycle, for callers (e.g. a
// signal handler) that want to interrupt a run early and still report
// whatever has retired so far.
func (s *Simulator) Step() {
	s.engine.Step()
}

// Done reports whether the simulation has reached quiescence.
func (s *Simulator) Done() bool {
	return s.engine.Done()
}

// RetirementTable returns every retired instruction, ordered by dest_tag
// ascending (INST column = dest_tag + 1).
func (s *Simulator) RetirementTable() []RetiredInstruction {
	records := s.engine.Retired()
	out := make([]RetiredInstruction, len(records))
	for i, r := range records {
		out[i] = RetiredInstruction{
			Inst:  r.DestTag + 1,
			Fetch: r.FetchCycle,
			Disp:  r.DispatchCycle,
			Sched: r.ScheduleCycle,
			Exec:  r.ExecuteCycle,
			State: r.StateCycle,
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Inst < out[j].Inst })
	return out
}

// Statistics computes the aggregate statistics block. total_cycles is the
// maximum observed StateCycle among retired instructions, not the cycle
// count at which the simulation terminated; these may differ by one in
// edge cases.
func (s *Simulator) Statistics() Statistics {
	records := s.engine.Retired()

	var totalCycles int64
	for _, r := range records {
		if int64(r.StateCycle) > totalCycles {
			totalCycles = int64(r.StateCycle)
		}
	}

	stats := s.engine.RawStats()
	var stat Statistics
	stat.TotalBranches = stats.TotalBranches
	stat.CorrectBranches = stats.CorrectBranches
	stat.MaxDispatchQueueSize = stats.MaxDispatchQueue
	stat.TotalCycles = totalCycles

	if stats.TotalBranches > 0 {
		stat.PredictionAccuracy = float64(stats.CorrectBranches) / float64(stats.TotalBranches)
	}
	if totalCycles > 0 {
		stat.AvgDispatchQueueSize = stats.SumDispatchQueue / float64(totalCycles)
		retiredCount := float64(len(records))
		stat.AvgInstIssuePerCycle = retiredCount / float64(totalCycles)
		stat.AvgInstRetiredPerCycle = retiredCount / float64(totalCycles)
	}

	return stat
}
