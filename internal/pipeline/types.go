// Package pipeline implements the cycle orchestrator: the register file and
// renaming, the dispatch queue and fetch buffer, the scheduling queue and
// its issue/completion arbitration, the functional-unit pools, and the
// state-update/result-bus slots, advanced one cycle at a time in the exact
// phase order the specification requires.
package pipeline

import "github.com/archlab/procsim/internal/core"

// DispatchNode wraps an instruction waiting in the dispatch queue. MarkForMove
// is set during Phase C's reservation step and consumed at the start of the
// following cycle.
type DispatchNode struct {
	Inst        *core.Instruction
	MarkForMove bool
}

// SchedEntry wraps an instruction in the scheduling queue with its
// arbitration control bits.
type SchedEntry struct {
	Inst          *core.Instruction
	Fired         bool
	SendToExecute bool
	Waiting       bool
}

// Occupant is one functional-unit slot's contents.
type Occupant struct {
	Inst   *core.Instruction
	Chosen bool
}

// RetiredRecord is the compact, timestamp-only record copied out of an
// Instruction at retirement; the original Instruction is released.
type RetiredRecord struct {
	DestTag       int
	FetchCycle    int
	DispatchCycle int
	ScheduleCycle int
	ExecuteCycle  int
	StateCycle    int
}
