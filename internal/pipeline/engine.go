package pipeline

import (
	"sort"

	"github.com/archlab/procsim/internal/config"
	"github.com/archlab/procsim/internal/core"
	"github.com/archlab/procsim/internal/predictor"
)

// InstructionSource yields trace instructions one at a time. It returns
// ok=false once exhausted (end of trace or an I/O error, treated the same).
type InstructionSource interface {
	Next() (*core.Instruction, bool)
}

// Engine owns every piece of architectural state and advances it one cycle
// at a time via Step, in the exact phase order specified: Propagate, Stats
// sample, Mid-cycle work. All state is owned here; there is no concurrency
// and no locking.
type Engine struct {
	cfg    *config.Config
	source InstructionSource
	pred   *predictor.GSelect

	clock int

	regFile     *RegFile
	sched       *SchedQueue
	dispatch    *DispatchQueue
	fetch       *FetchBuffer
	k0, k1, k2  *FUPool
	stateUpdate *StateUpdate

	stallDispatch bool
	sourceDrained bool

	retired []RetiredRecord

	// statistics accumulators
	totalBranches    int64
	correctBranches  int64
	sumDispatchQueue float64
	maxDispatchQueue int64
}

// New constructs an Engine ready to run.
func New(cfg *config.Config, pred *predictor.GSelect, source InstructionSource) *Engine {
	return &Engine{
		cfg:         cfg,
		source:      source,
		pred:        pred,
		clock:       1,
		regFile:     NewRegFile(cfg.NumRegs),
		sched:       NewSchedQueue(),
		dispatch:    NewDispatchQueue(),
		fetch:       NewFetchBuffer(),
		k0:          NewFUPool(cfg.K0Size),
		k1:          NewFUPool(cfg.K1Size),
		k2:          NewFUPool(cfg.K2Size),
		stateUpdate: NewStateUpdate(cfg.R),
	}
}

// Clock returns the current (not-yet-elapsed) cycle number.
func (e *Engine) Clock() int {
	return e.clock
}

// RawStats is the engine's accumulated statistics counters, before the
// derived ratios (accuracy, averages) are computed by the simulator layer.
type RawStats struct {
	TotalBranches    int64
	CorrectBranches  int64
	SumDispatchQueue float64
	MaxDispatchQueue int64
}

// RawStats returns the engine's accumulated statistics counters.
func (e *Engine) RawStats() RawStats {
	return RawStats{
		TotalBranches:    e.totalBranches,
		CorrectBranches:  e.correctBranches,
		SumDispatchQueue: e.sumDispatchQueue,
		MaxDispatchQueue: e.maxDispatchQueue,
	}
}

// Retired returns the retirement records produced so far, in the order they
// were retired (not necessarily dest_tag order; callers sort for display).
func (e *Engine) Retired() []RetiredRecord {
	return e.retired
}

// Done reports whether the simulation has reached quiescence: the trace is
// exhausted and the fetch buffer, dispatch queue, scheduling queue, and
// state-update slots are all empty, and at least one cycle has elapsed.
func (e *Engine) Done() bool {
	if e.clock <= 1 {
		return false
	}
	if !e.sourceDrained {
		return false
	}
	if e.fetch.Len() != 0 || e.dispatch.Len() != 0 || e.sched.Len() != 0 {
		return false
	}
	if len(e.stateUpdate.Occupied()) != 0 {
		return false
	}
	return true
}

// Step advances the engine by exactly one cycle.
func (e *Engine) Step() {
	now := e.clock

	// stalledAtStart is evaluated before this cycle's resolution can clear
	// it: a resolution that clears stallDispatch during this cycle's Phase A
	// only permits admission starting next cycle, even though the flag
	// itself already reads false afterward.
	stalledAtStart := e.stallDispatch

	// Phase A, Propagate
	e.retireStateUpdate()
	e.drainFUToStateUpdate(now)
	e.resolveBranches()
	e.moveScheduleEntriesToFU(now)
	e.admitDispatchToSchedule(now)
	e.admitFetchToDispatch(now, stalledAtStart)
	e.refillFetchBuffer(now)

	// Phase B, Stats sample
	e.sampleDispatchQueue()

	// Phase C, Mid-cycle work
	e.writeBackRegFile()
	e.reevaluateFired()
	reserved := e.reserveDispatchSpots()
	e.readAndRenameReserved(reserved)
	e.broadcast()
	e.cleanupScheduleAfterStateUpdate()
	e.chooseForStateUpdate()
	e.markSendToExecute()

	e.clock++
}

// --- Phase A -----------------------------------------------------------

// retireStateUpdate drains the state-update slots (populated by the
// previous cycle's drainFUToStateUpdate) into the retirement record list.
func (e *Engine) retireStateUpdate() {
	for _, inst := range e.stateUpdate.DrainAll() {
		e.retired = append(e.retired, RetiredRecord{
			DestTag:       inst.Tag,
			FetchCycle:    inst.FetchCycle,
			DispatchCycle: inst.DispatchCycle,
			ScheduleCycle: inst.ScheduleCycle,
			ExecuteCycle:  inst.ExecuteCycle,
			StateCycle:    inst.StateCycle,
		})
	}
}

// drainFUToStateUpdate moves every FU occupant chosen last cycle into a
// state-update slot, stamping StateCycle.
func (e *Engine) drainFUToStateUpdate(now int) {
	var completed []*core.Instruction
	completed = append(completed, e.k0.DrainChosen()...)
	completed = append(completed, e.k1.DrainChosen()...)
	completed = append(completed, e.k2.DrainChosen()...)
	for _, inst := range completed {
		inst.StateCycle = now
	}
	e.stateUpdate.Fill(completed)
}

// moveScheduleEntriesToFU admits scheduling entries flagged SendToExecute
// (and not yet Waiting) into their target FU pool, stamping ExecuteCycle and
// setting Waiting; the scheduling entry itself is retained until state-
// update cleanup removes it.
func (e *Engine) moveScheduleEntriesToFU(now int) {
	e.sched.Each(func(entry *SchedEntry) {
		if entry.SendToExecute && !entry.Waiting {
			entry.Inst.ExecuteCycle = now
			e.poolFor(entry.Inst).Insert(entry.Inst)
			entry.Waiting = true
		}
	})
}

// admitDispatchToSchedule admits the dispatch-queue prefix reserved by the
// previous cycle's Phase C into the scheduling queue, stamping ScheduleCycle.
func (e *Engine) admitDispatchToSchedule(now int) {
	for _, node := range e.dispatch.PopMarked() {
		node.Inst.ScheduleCycle = now
		e.sched.PushBack(node.Inst)
	}
	if e.sched.Len() > e.cfg.MaxSchedQueue() {
		panic("pipeline: scheduling queue exceeded its bound")
	}
}

// admitFetchToDispatch admits up to F instructions from the fetch buffer
// into the dispatch queue, in order, halting immediately (even mid-batch)
// once stallDispatch becomes true, whether it was already true at the
// start of this cycle or becomes true from a mispredicted branch admitted
// this cycle. stalledAtStart gates whether admission may begin at all: a
// resolution earlier in this same cycle's Phase A may have already cleared
// e.stallDispatch, but that clearing only takes effect for the next cycle.
func (e *Engine) admitFetchToDispatch(now int, stalledAtStart bool) {
	if stalledAtStart {
		return
	}
	admitted := 0
	for admitted < e.cfg.F && e.fetch.Len() > 0 && !e.stallDispatch {
		inst := e.fetch.PopFront()
		inst.DispatchCycle = now

		if inst.IsBranch {
			e.totalBranches++
			predictedTaken := e.pred.Predict(inst.PC)
			inst.PredictedCorrect = predictedTaken == inst.Taken
			if inst.PredictedCorrect {
				e.correctBranches++
			} else {
				e.stallDispatch = true
			}
		}

		e.dispatch.PushBack(inst)
		admitted++
	}
}

// refillFetchBuffer reads up to F instructions from the trace into the
// fetch buffer, regardless of stallDispatch; only admission into dispatch
// is gated by the stall.
func (e *Engine) refillFetchBuffer(now int) {
	for i := 0; i < e.cfg.F; i++ {
		inst, ok := e.source.Next()
		if !ok {
			e.sourceDrained = true
			break
		}
		inst.FetchCycle = now
		e.fetch.PushBack(inst)
	}
}

// --- Phase B -------------------------------------------------------------

func (e *Engine) sampleDispatchQueue() {
	n := int64(e.dispatch.Len())
	e.sumDispatchQueue += float64(n)
	if n > e.maxDispatchQueue {
		e.maxDispatchQueue = n
	}
}

// --- Phase C -------------------------------------------------------------

// writeBackRegFile writes every state-update occupant back to the register
// file.
func (e *Engine) writeBackRegFile() {
	for _, inst := range e.stateUpdate.Occupied() {
		e.regFile.WriteBack(inst)
	}
}

// reevaluateFired marks any not-yet-fired scheduling entry whose operands
// are both ready as fired. Idempotent.
func (e *Engine) reevaluateFired() {
	e.sched.Each(func(entry *SchedEntry) {
		if !entry.Fired && entry.Inst.Src1Ready && entry.Inst.Src2Ready {
			entry.Fired = true
		}
	})
}

// reserveDispatchSpots marks a contiguous prefix of the dispatch queue, up
// to the scheduling queue's remaining room, for admission next cycle.
func (e *Engine) reserveDispatchSpots() int {
	avail := e.cfg.MaxSchedQueue() - e.sched.Len()
	if avail <= 0 {
		return 0
	}
	return e.dispatch.Reserve(avail)
}

// readAndRenameReserved performs renaming for every dispatch entry reserved
// this cycle, in dispatch order.
func (e *Engine) readAndRenameReserved(reserved int) {
	if reserved == 0 {
		return
	}
	for _, node := range e.dispatch.Reserved() {
		e.regFile.Rename(node.Inst)
	}
}

// broadcast forwards each state-update occupant's result onto the
// scheduling queue, matching on register and tag to guard against stale
// forwards after WAW overwrites.
func (e *Engine) broadcast() {
	for _, su := range e.stateUpdate.Occupied() {
		e.sched.Each(func(entry *SchedEntry) {
			if entry.Fired {
				return
			}
			inst := entry.Inst
			if !inst.Src1Ready && inst.Src1Reg == su.DestReg && inst.Src1Tag == su.Tag {
				inst.Src1Ready = true
				inst.Src1Tag = core.SentinelTag
			}
			if !inst.Src2Ready && inst.Src2Reg == su.DestReg && inst.Src2Tag == su.Tag {
				inst.Src2Ready = true
				inst.Src2Tag = core.SentinelTag
			}
			if inst.Src1Ready && inst.Src2Ready {
				entry.Fired = true
			}
		})
	}
}

// cleanupScheduleAfterStateUpdate removes scheduling entries whose
// instruction is currently occupying a state-update slot.
func (e *Engine) cleanupScheduleAfterStateUpdate() {
	for _, inst := range e.stateUpdate.Occupied() {
		e.sched.RemoveByTag(inst.Tag)
	}
}

// chooseForStateUpdate selects up to R FU occupants to mark Chosen for next
// cycle's result bus: minimum ExecuteCycle first, minimum DestTag to break
// ties. Ties on both keys cannot arise since DestTag is unique.
func (e *Engine) chooseForStateUpdate() {
	var candidates []*Occupant
	candidates = append(candidates, e.k0.Occupants()...)
	candidates = append(candidates, e.k1.Occupants()...)
	candidates = append(candidates, e.k2.Occupants()...)

	var unchosen []*Occupant
	for _, c := range candidates {
		if !c.Chosen {
			unchosen = append(unchosen, c)
		}
	}

	sort.Slice(unchosen, func(i, j int) bool {
		a, b := unchosen[i].Inst, unchosen[j].Inst
		if a.ExecuteCycle != b.ExecuteCycle {
			return a.ExecuteCycle < b.ExecuteCycle
		}
		return a.Tag < b.Tag
	})

	limit := e.cfg.R
	if limit > len(unchosen) {
		limit = len(unchosen)
	}
	for i := 0; i < limit; i++ {
		unchosen[i].Chosen = true
	}
}

// markSendToExecute marks scheduling entries eligible to move to an FU next
// cycle, per pool, scanning the scheduling queue in insertion order.
func (e *Engine) markSendToExecute() {
	e.markPool(e.k0.AvailableNextCycle(), core.FU0, core.FU0)
	e.markPool(e.k1.AvailableNextCycle(), core.FU1A, core.FU1B)
	e.markPool(e.k2.AvailableNextCycle(), core.FU2, core.FU2)
}

func (e *Engine) markPool(available int, classA, classB core.FUClass) {
	if available <= 0 {
		return
	}
	e.sched.Each(func(entry *SchedEntry) {
		if available <= 0 {
			return
		}
		if entry.Fired && !entry.Waiting && !entry.SendToExecute &&
			(entry.Inst.FUClass == classA || entry.Inst.FUClass == classB) {
			entry.SendToExecute = true
			available--
		}
	})
}

func (e *Engine) poolFor(inst *core.Instruction) *FUPool {
	switch inst.PoolIndex() {
	case 0:
		return e.k0
	case 1:
		return e.k1
	case 2:
		return e.k2
	default:
		panic("pipeline: invalid pool index")
	}
}
