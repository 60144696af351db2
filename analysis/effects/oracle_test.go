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

package effects_test

import (
	"testing"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/tacet-dev/tacet/analysis"
	"github.com/tacet-dev/tacet/analysis/config"
	"github.com/tacet-dev/tacet/analysis/effects"
	"github.com/tacet-dev/tacet/analysis/lang"
	"github.com/tacet-dev/tacet/internal/analysistest"
)

func loadTriggers(t *testing.T) (*analysis.State, *effects.Oracle) {
	t.Helper()
	prog, cfg := analysistest.LoadTest(t, "testdata/triggers", nil)
	state := analysis.NewState(prog, config.NewLogGroup(cfg), cfg)
	if err := state.PopulateCallgraph(); err != nil {
		t.Fatalf("could not build the call graph: %s", err)
	}
	emit := findFunction(t, state, "emit")
	oracle, err := effects.NewOracle(state, map[*ssa.Function]bool{emit: true})
	if err != nil {
		t.Fatalf("could not build the oracle: %s", err)
	}
	return state, oracle
}

func findFunction(t *testing.T, state *analysis.State, name string) *ssa.Function {
	t.Helper()
	for fn := range ssautil.AllFunctions(state.Program) {
		if fn.Name() == name && fn.Synthetic == "" {
			return fn
		}
	}
	t.Fatalf("no function %s in the test program", name)
	return nil
}

func callTo(t *testing.T, fn *ssa.Function, callee string) ssa.CallInstruction {
	t.Helper()
	var found ssa.CallInstruction
	lang.IterateInstructions(fn, func(_ int, instr ssa.Instruction) {
		call, ok := instr.(ssa.CallInstruction)
		if !ok || found != nil {
			return
		}
		if static := call.Common().StaticCallee(); static != nil && static.Name() == callee {
			found = call
		}
	})
	if found == nil {
		t.Fatalf("no call to %s in %s", callee, fn)
	}
	return found
}

func TestCallsReachingShadowsTrigger(t *testing.T) {
	state, oracle := loadTriggers(t)
	callsEmit := findFunction(t, state, "callsEmit")
	if !oracle.MayTriggerEvent(callTo(t, callsEmit, "emit")) {
		t.Errorf("a call into the shadow-containing function must trigger")
	}
	deep := findFunction(t, state, "deep")
	if !oracle.MayTriggerEvent(callTo(t, deep, "callsEmit")) {
		t.Errorf("a call reaching the shadow-containing function transitively must trigger")
	}
}

func TestBenignCallsDoNotTrigger(t *testing.T) {
	state, oracle := loadTriggers(t)
	harmless := findFunction(t, state, "harmless")
	if oracle.MayTriggerEvent(callTo(t, harmless, "reset")) {
		t.Errorf("a call that cannot reach a shadow must not trigger")
	}
	// non-call instructions never trigger
	var nonCall ssa.Instruction
	lang.IterateInstructions(harmless, func(_ int, instr ssa.Instruction) {
		if _, ok := instr.(ssa.CallInstruction); !ok && nonCall == nil {
			nonCall = instr
		}
	})
	if nonCall == nil {
		t.Fatalf("no non-call instruction in harmless")
	}
	if oracle.MayTriggerEvent(nonCall) {
		t.Errorf("a non-call instruction must not trigger")
	}
}

func TestBuiltinsDoNotTrigger(t *testing.T) {
	state, oracle := loadTriggers(t)
	fill := findFunction(t, state, "fill")
	var builtin ssa.CallInstruction
	lang.IterateInstructions(fill, func(_ int, instr ssa.Instruction) {
		call, ok := instr.(ssa.CallInstruction)
		if !ok || builtin != nil {
			return
		}
		if _, ok := call.Common().Value.(*ssa.Builtin); ok {
			builtin = call
		}
	})
	if builtin == nil {
		t.Fatalf("no builtin call in fill")
	}
	if oracle.MayTriggerEvent(builtin) {
		t.Errorf("builtin calls must not trigger")
	}
}

func TestDynamicDispatchResolvesThroughCallGraph(t *testing.T) {
	state, oracle := loadTriggers(t)
	viaIface := findFunction(t, state, "viaIface")
	var invoke ssa.CallInstruction
	lang.IterateInstructions(viaIface, func(_ int, instr ssa.Instruction) {
		call, ok := instr.(ssa.CallInstruction)
		if ok && call.Common().IsInvoke() && invoke == nil {
			invoke = call
		}
	})
	if invoke == nil {
		t.Fatalf("no dynamic call in viaIface")
	}
	if !oracle.MayTriggerEvent(invoke) {
		t.Errorf("the dynamic call dispatches to a marked implementation and must trigger")
	}
}

func TestMarkedSetContainsTransitiveCallers(t *testing.T) {
	state, oracle := loadTriggers(t)
	if !oracle.Marked(findFunction(t, state, "deep")) {
		t.Errorf("deep reaches emit and must be marked")
	}
	if !oracle.Marked(findFunction(t, state, "main")) {
		t.Errorf("main reaches emit and must be marked")
	}
	if oracle.Marked(findFunction(t, state, "harmless")) {
		t.Errorf("harmless cannot reach emit and must not be marked")
	}
	if oracle.Marked(findFunction(t, state, "fill")) {
		t.Errorf("fill cannot reach emit and must not be marked")
	}
}

func TestTriggerCyclesReported(t *testing.T) {
	state, oracle := loadTriggers(t)
	m1 := findFunction(t, state, "mutual1")
	m2 := findFunction(t, state, "mutual2")
	for _, cycle := range oracle.TriggerCycles() {
		seen := map[*ssa.Function]bool{}
		for _, fn := range cycle {
			seen[fn] = true
		}
		if seen[m1] && seen[m2] && len(seen) == 2 {
			return
		}
	}
	t.Errorf("expected the mutual recursion through emit to be reported as a trigger cycle")
}
