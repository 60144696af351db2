// Copyright The Tacet Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package invariance decides, for one function and one group of shadows, whether
// the monitored property can never be violated by executing the function: the
// propagator runs a forward fixpoint over the function's instructions, tracking
// which monitor states are reachable, and reports whether every exit leaves the
// monitor in an initial state. A function with that guarantee needs no runtime
// instrumentation for the group.
package invariance

import (
	"golang.org/x/tools/go/ssa"

	"github.com/tacet-dev/tacet/analysis/monitor"
)

// A TransitionOracle answers how one monitor state evolves across one instruction.
// SuccessorStates must be pure: the same arguments always produce the same set,
// and the oracle mutates none of them. The binding maps describe how the group's
// monitored variables resolve to locals of the function, so the oracle can tell
// shadows operating on the same objects from shadows operating on unrelated ones.
type TransitionOracle interface {
	SuccessorStates(q *monitor.State, m *monitor.Monitor, instr ssa.Instruction,
		initialStates monitor.StateSet, actualToLocal map[ssa.Value]ssa.Value,
		formalToLocal map[string]ssa.Value) monitor.StateSet
}

// An EffectOracle answers whether executing an instruction may trigger a monitored
// event outside the propagator's view, for example through a call whose callee
// transitively reaches a shadow. A true answer makes the propagator give up.
type EffectOracle interface {
	MayTriggerEvent(instr ssa.Instruction) bool
}
