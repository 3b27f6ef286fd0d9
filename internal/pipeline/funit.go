package pipeline

import (
	"fmt"

	"github.com/archlab/procsim/internal/core"
)

// FUPool is one functional-unit pool: a fixed-capacity, unordered set of
// slots. A nil slot is empty.
type FUPool struct {
	slots []*Occupant
}

// NewFUPool returns a pool with the given capacity, all slots empty.
func NewFUPool(capacity int) *FUPool {
	return &FUPool{slots: make([]*Occupant, capacity)}
}

// Insert places inst into the first empty slot, stamping nothing itself;
// callers stamp ExecuteCycle before calling. Panics if the pool is full,
// an invariant violation (the scheduler must never send more entries than
// there are free slots).
func (p *FUPool) Insert(inst *core.Instruction) {
	for i, slot := range p.slots {
		if slot == nil {
			p.slots[i] = &Occupant{Inst: inst}
			return
		}
	}
	panic(fmt.Sprintf("pipeline: functional unit pool is full, cannot admit tag %d", inst.Tag))
}

// AvailableNextCycle counts slots that will be free next cycle: empty slots
// plus slots already marked Chosen (they drain to the result bus first).
func (p *FUPool) AvailableNextCycle() int {
	n := 0
	for _, slot := range p.slots {
		if slot == nil || slot.Chosen {
			n++
		}
	}
	return n
}

// Occupants returns the non-empty slots, for completion arbitration.
func (p *FUPool) Occupants() []*Occupant {
	var out []*Occupant
	for _, slot := range p.slots {
		if slot != nil {
			out = append(out, slot)
		}
	}
	return out
}

// DrainChosen clears every slot whose occupant is Chosen and returns the
// drained instructions, in slot order (order carries no semantics for the
// result bus itself; the (ExecuteCycle, Tag) tie-break is applied in
// Engine.chooseForStateUpdate and Engine.resolveBranches).
func (p *FUPool) DrainChosen() []*core.Instruction {
	var out []*core.Instruction
	for i, slot := range p.slots {
		if slot != nil && slot.Chosen {
			out = append(out, slot.Inst)
			p.slots[i] = nil
		}
	}
	return out
}

// StateUpdate is the fixed-size bag of instructions completing execution
// this cycle. A nil slot is empty.
type StateUpdate struct {
	slots []*core.Instruction
}

// NewStateUpdate returns an empty state-update array of the given size (R).
func NewStateUpdate(size int) *StateUpdate {
	return &StateUpdate{slots: make([]*core.Instruction, size)}
}

// Occupied returns the non-nil slots.
func (su *StateUpdate) Occupied() []*core.Instruction {
	var out []*core.Instruction
	for _, s := range su.slots {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// DrainAll clears every slot and returns what it held, for retirement.
func (su *StateUpdate) DrainAll() []*core.Instruction {
	out := su.Occupied()
	for i := range su.slots {
		su.slots[i] = nil
	}
	return out
}

// Fill places insts into empty slots, one per slot, in order. Panics if
// there are more instructions than empty slots; chooseForStateUpdate must
// never select more than R candidates.
func (su *StateUpdate) Fill(insts []*core.Instruction) {
	i := 0
	for _, inst := range insts {
		for i < len(su.slots) && su.slots[i] != nil {
			i++
		}
		if i >= len(su.slots) {
			panic("pipeline: state-update array overflow")
		}
		su.slots[i] = inst
		i++
	}
}
