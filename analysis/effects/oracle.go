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

// Package effects answers whether executing an instruction may trigger a
// monitored event somewhere else in the program. Events fire exactly at the
// instrumented shadow call sites, so the functions containing shadows are the
// sources; every function that can reach one through the call graph inherits
// the mark, and a call into a marked function may trigger an event.
package effects

import (
	"fmt"
	"sort"

	"golang.org/x/tools/go/ssa"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/tacet-dev/tacet/analysis"
	"github.com/tacet-dev/tacet/internal/graphutil"
)

// An Oracle reports which instructions may trigger monitored events. It is
// immutable after construction and safe for concurrent queries.
type Oracle struct {
	state  *analysis.State
	cg     graphutil.CGraph
	marked map[*ssa.Function]bool
}

// NewOracle computes the set of functions that may trigger an event, starting
// from the functions containing shadows and walking the call graph backwards
// over its condensation. The state's call graph must have been built.
func NewOracle(state *analysis.State, containing map[*ssa.Function]bool) (*Oracle, error) {
	if state.Callgraph == nil {
		return nil, fmt.Errorf("effects: the call graph has not been built")
	}
	cg := graphutil.NewCallGraph(state.Callgraph)
	sccs := topo.TarjanSCC(cg)
	comps := make([][]int64, len(sccs))
	for i, scc := range sccs {
		ids := make([]int64, len(scc))
		for j, n := range scc {
			ids[j] = n.ID()
		}
		comps[i] = ids
	}
	cond := graphutil.Condense(comps, cg.Edges)

	marked := make(map[*ssa.Function]bool, len(containing))
	var seeds []int
	for fn := range containing {
		node := state.Callgraph.Nodes[fn]
		if node == nil {
			// The function holds shadows but the call graph never saw it.
			// It cannot be propagated from, but calls resolving to it must
			// still count as triggering.
			marked[fn] = true
			continue
		}
		seeds = append(seeds, cond.CompOf[int64(node.ID)])
	}
	for comp := range cond.PropagateBackwards(seeds) {
		for _, id := range cond.Comps[comp] {
			if fn := cg.IDMap[id].Node.Func; fn != nil {
				marked[fn] = true
			}
		}
	}
	state.Logger.Debugf("Effects: %d functions may trigger events (%d contain shadows).",
		len(marked), len(containing))
	return &Oracle{state: state, cg: cg, marked: marked}, nil
}

// MayTriggerEvent reports whether executing instr may trigger a monitored
// event. Only calls can: a call triggers if some possible callee is marked,
// and an unresolvable callee is conservatively assumed to trigger. Builtins
// never reach user code.
func (o *Oracle) MayTriggerEvent(instr ssa.Instruction) bool {
	call, ok := instr.(ssa.CallInstruction)
	if !ok {
		return false
	}
	if _, ok := call.Common().Value.(*ssa.Builtin); ok {
		return false
	}
	callees, err := o.state.ResolveCallee(call)
	if err != nil || len(callees) == 0 {
		return true
	}
	for _, callee := range callees {
		if o.marked[callee] {
			return true
		}
	}
	return false
}

// Marked reports whether fn may trigger an event when executed.
func (o *Oracle) Marked(fn *ssa.Function) bool {
	return o.marked[fn]
}

// MarkedFunctions returns the marked functions, sorted by name.
func (o *Oracle) MarkedFunctions() []*ssa.Function {
	fns := make([]*ssa.Function, 0, len(o.marked))
	for fn := range o.marked {
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].String() < fns[j].String() })
	return fns
}

// TriggerCycles returns the elementary cycles of the call graph on which every
// function may trigger an event. Such cycles re-enter monitored code
// recursively and are reported as diagnostics.
func (o *Oracle) TriggerCycles() [][]*ssa.Function {
	var cycles [][]int64
	for _, cycle := range graphutil.FindAllElementaryCycles(o.cg) {
		all := true
		for _, id := range cycle {
			fn := o.cg.IDMap[id].Node.Func
			if fn == nil || !o.marked[fn] {
				all = false
				break
			}
		}
		if all {
			cycles = append(cycles, cycle)
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		a, b := cycles[i], cycles[j]
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	result := make([][]*ssa.Function, 0, len(cycles))
	for _, cycle := range cycles {
		fns := make([]*ssa.Function, 0, len(cycle))
		for _, id := range cycle {
			fns = append(fns, o.cg.IDMap[id].Node.Func)
		}
		result = append(result, fns)
	}
	return result
}
