package pipeline

import "github.com/archlab/procsim/internal/core"

// RegEntry is one register-file entry: a ready bit and the tag of the
// instruction currently producing its value (meaningful only while not
// ready).
type RegEntry struct {
	Ready       bool
	ProducerTag int
}

// RegFile is the 128-entry (or NumRegs-entry) register file. It is the only
// component that names producers; it is mutated in place, never
// allocated/freed per-instruction.
type RegFile struct {
	entries []RegEntry
}

// NewRegFile returns a register file with every entry ready and sentinel-
// tagged.
func NewRegFile(numRegs int) *RegFile {
	rf := &RegFile{entries: make([]RegEntry, numRegs)}
	for i := range rf.entries {
		rf.entries[i] = RegEntry{Ready: true, ProducerTag: core.SentinelTag}
	}
	return rf
}

// Rename implements the dispatch-to-schedule reservation step for a single
// instruction: it reads the current producer (or readiness) of each source
// register into the instruction, then claims the destination register for
// this instruction's tag, unconditionally overwriting any prior unfinished
// producer.
func (rf *RegFile) Rename(inst *core.Instruction) {
	inst.Src1Ready, inst.Src1Tag = rf.readSource(inst.Src1Reg)
	inst.Src2Ready, inst.Src2Tag = rf.readSource(inst.Src2Reg)

	if inst.DestReg != core.NoReg {
		rf.entries[inst.DestReg] = RegEntry{Ready: false, ProducerTag: inst.Tag}
	}
}

func (rf *RegFile) readSource(reg int) (ready bool, tag int) {
	if reg == core.NoReg {
		return true, core.SentinelTag
	}
	e := rf.entries[reg]
	if e.Ready {
		return true, core.SentinelTag
	}
	return false, e.ProducerTag
}

// WriteBack implements the state-update write-back step for a single
// retiring-this-cycle instruction: if the register entry's producer tag
// still names this instruction, mark it ready; otherwise a younger writer
// already owns it and the entry is left alone.
func (rf *RegFile) WriteBack(inst *core.Instruction) {
	if inst.DestReg == core.NoReg {
		return
	}
	e := &rf.entries[inst.DestReg]
	if e.ProducerTag == inst.Tag {
		e.Ready = true
		e.ProducerTag = core.SentinelTag
	}
}
