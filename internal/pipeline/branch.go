package pipeline

import (
	"sort"

	"github.com/archlab/procsim/internal/core"
)

// resolveBranches resolves branches that just reached state update: among
// state-update slots holding unresolved branches, process them in
// (ExecuteCycle, DestTag) ascending order, updating the predictor's counter
// before shifting its GHR for each branch in turn, then clearing
// stallDispatch if this branch was the mispredicting one.
func (e *Engine) resolveBranches() {
	var unresolved []*core.Instruction
	for _, inst := range e.stateUpdate.Occupied() {
		if inst.IsBranch && !inst.Resolved {
			unresolved = append(unresolved, inst)
		}
	}

	sort.Slice(unresolved, func(i, j int) bool {
		a, b := unresolved[i], unresolved[j]
		if a.ExecuteCycle != b.ExecuteCycle {
			return a.ExecuteCycle < b.ExecuteCycle
		}
		return a.Tag < b.Tag
	})

	for _, inst := range unresolved {
		e.pred.Resolve(inst.PC, inst.Taken)

		if !inst.PredictedCorrect {
			if !e.stallDispatch {
				panic("pipeline: mispredicted branch resolved without stallDispatch set")
			}
			e.stallDispatch = false
		}

		inst.Resolved = true
	}
}
