package pipeline

import "github.com/archlab/procsim/internal/core"

// DispatchQueue is the unbounded, strictly ordered list of instructions
// awaiting a scheduling-queue slot.
type DispatchQueue struct {
	nodes []*DispatchNode
}

// NewDispatchQueue returns an empty dispatch queue.
func NewDispatchQueue() *DispatchQueue {
	return &DispatchQueue{}
}

// Len returns the current queue length.
func (dq *DispatchQueue) Len() int {
	return len(dq.nodes)
}

// PushBack appends inst to the tail of the dispatch queue.
func (dq *DispatchQueue) PushBack(inst *core.Instruction) {
	dq.nodes = append(dq.nodes, &DispatchNode{Inst: inst})
}

// Reserve marks a contiguous prefix of up to n unmarked entries with
// MarkForMove, and returns how many it marked. Every call begins with no
// entries marked, since PopMarked always consumes the full marked prefix
// before the next Reserve runs.
func (dq *DispatchQueue) Reserve(n int) int {
	count := n
	if count > len(dq.nodes) {
		count = len(dq.nodes)
	}
	for i := 0; i < count; i++ {
		dq.nodes[i].MarkForMove = true
	}
	return count
}

// Reserved returns the nodes marked by the most recent Reserve call, without
// removing them, used by the same-cycle register-file read/rename step.
func (dq *DispatchQueue) Reserved() []*DispatchNode {
	i := 0
	for i < len(dq.nodes) && dq.nodes[i].MarkForMove {
		i++
	}
	return dq.nodes[:i]
}

// PopMarked removes and returns the marked prefix, in order, for admission
// into the scheduling queue at the start of the next cycle.
func (dq *DispatchQueue) PopMarked() []*DispatchNode {
	i := 0
	for i < len(dq.nodes) && dq.nodes[i].MarkForMove {
		i++
	}
	popped := dq.nodes[:i]
	dq.nodes = dq.nodes[i:]
	return popped
}

// FetchBuffer is the ordered holding list of instructions read from the
// trace but not yet admitted to dispatch.
type FetchBuffer struct {
	insts []*core.Instruction
}

// NewFetchBuffer returns an empty fetch buffer.
func NewFetchBuffer() *FetchBuffer {
	return &FetchBuffer{}
}

// Len returns the current buffer length.
func (fb *FetchBuffer) Len() int {
	return len(fb.insts)
}

// PushBack appends inst to the tail of the fetch buffer.
func (fb *FetchBuffer) PushBack(inst *core.Instruction) {
	fb.insts = append(fb.insts, inst)
}

// PopFront removes and returns the head instruction, or nil if empty.
func (fb *FetchBuffer) PopFront() *core.Instruction {
	if len(fb.insts) == 0 {
		return nil
	}
	inst := fb.insts[0]
	fb.insts = fb.insts[1:]
	return inst
}
