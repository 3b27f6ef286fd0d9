package pipeline

import (
	"container/list"
	"fmt"

	"github.com/archlab/procsim/internal/core"
)

// SchedQueue is the scheduling queue: a strictly insertion-ordered sequence
// of SchedEntry values. Insertion order coincides with dest_tag order since
// entries are always appended in dispatch order. Backed by container/list
// rather than a hand-rolled doubly linked list, with a tag index for
// constant-time removal by instruction.
type SchedQueue struct {
	list  *list.List
	byTag map[int]*list.Element
}

// NewSchedQueue returns an empty scheduling queue.
func NewSchedQueue() *SchedQueue {
	return &SchedQueue{
		list:  list.New(),
		byTag: make(map[int]*list.Element),
	}
}

// Len returns the current number of entries.
func (sq *SchedQueue) Len() int {
	return sq.list.Len()
}

// PushBack appends a new scheduling entry for inst.
func (sq *SchedQueue) PushBack(inst *core.Instruction) *SchedEntry {
	entry := &SchedEntry{Inst: inst}
	el := sq.list.PushBack(entry)
	sq.byTag[inst.Tag] = el
	return entry
}

// Each calls fn for every entry in insertion order. fn must not mutate the
// queue's membership; use RemoveByTag after iteration completes for that.
func (sq *SchedQueue) Each(fn func(*SchedEntry)) {
	for el := sq.list.Front(); el != nil; el = el.Next() {
		fn(el.Value.(*SchedEntry))
	}
}

// RemoveByTag removes the entry for the instruction with the given tag. It
// panics if no such entry exists, since the caller (state-update cleanup)
// is expected to only ever name entries that are actually present, an
// invariant violation otherwise.
func (sq *SchedQueue) RemoveByTag(tag int) {
	el, ok := sq.byTag[tag]
	if !ok {
		panic(fmt.Sprintf("pipeline: scheduling queue has no entry for tag %d", tag))
	}
	entry := el.Value.(*SchedEntry)
	if !(entry.Fired && entry.SendToExecute && entry.Waiting) {
		panic(fmt.Sprintf("pipeline: scheduling entry for tag %d removed before fired/send/waiting all set", tag))
	}
	sq.list.Remove(el)
	delete(sq.byTag, tag)
}
