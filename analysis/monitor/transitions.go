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

package monitor

import (
	"golang.org/x/tools/go/ssa"
)

// Transitions computes the successor states contributed by the shadows of an
// instruction. It is backed by the registry and is a pure function of its
// arguments, so the flow analysis may re-run it at will.
type Transitions struct {
	registry *Registry
}

// NewTransitions returns the transition oracle over the registry's shadows.
func NewTransitions(r *Registry) *Transitions {
	return &Transitions{registry: r}
}

// SuccessorStates returns the states the monitor may be in after instr
// executes, for a monitored binding currently in state q.
//
// An instruction with no shadow of m leaves the state unchanged. A shadow
// observing the same binding steps the state machine; when q is initial the
// state is also kept, because the event may precede the start of monitoring.
// A shadow provably observing different variables is skipped. When the
// bindings cannot be separated, both outcomes are kept.
func (t *Transitions) SuccessorStates(q *State, m *Monitor, instr ssa.Instruction,
	initialStates StateSet, actualToLocal map[ssa.Value]ssa.Value,
	formalToLocal map[string]ssa.Value) StateSet {

	out := NewStateSet()
	contributed := false
	for _, shadow := range t.registry.ShadowsAt(instr) {
		if shadow.Monitor != m {
			continue
		}
		switch shadow.CompatibleWith(formalToLocal) {
		case CompatDifferent:
			continue
		case CompatSame:
			out.Union(m.Targets(q, shadow.Symbol.Name))
			if q.Initial {
				out.Add(q)
			}
			contributed = true
		case CompatUnknown:
			out.Union(m.Targets(q, shadow.Symbol.Name))
			out.Add(q)
			contributed = true
		}
	}
	if !contributed {
		return NewStateSet(q)
	}
	return out
}
