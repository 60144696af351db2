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

package monitor_test

import (
	"testing"

	"github.com/tacet-dev/tacet/analysis/monitor"
	"golang.org/x/tools/go/ssa"
)

func onlyGroup(t *testing.T, registry *monitor.Registry, fn *ssa.Function) *monitor.ShadowGroup {
	t.Helper()
	groups := registry.GroupsIn(fn)
	if len(groups) != 1 {
		t.Fatalf("expected one shadow group in %s, got %d", fn.Name(), len(groups))
	}
	return groups[0]
}

func shadowOf(t *testing.T, g *monitor.ShadowGroup, symbol string) *monitor.Shadow {
	t.Helper()
	for _, sh := range g.Shadows {
		if sh.Symbol.Name == symbol {
			return sh
		}
	}
	t.Fatalf("no shadow of %s in %s", symbol, g)
	return nil
}

func TestShadowBoundLocal(t *testing.T) {
	state, registry := loadShadows(t)
	g := onlyGroup(t, registry, findFn(t, state, "same"))
	if len(g.Shadows) != 2 {
		t.Fatalf("expected the check and the read in one group, got %d shadows", len(g.Shadows))
	}
	check := shadowOf(t, g, "hasNext")
	read := shadowOf(t, g, "next")
	la, lb := check.BoundLocal("i"), read.BoundLocal("i")
	if la == nil || la != lb {
		t.Errorf("expected both shadows to bind i to the one parameter slot, got %v and %v", la, lb)
	}
	if check.BoundLocal("absent") != nil {
		t.Errorf("an unbound variable has no local")
	}
	bindings := g.Bindings()
	if len(bindings) != 1 || bindings["i"] != la {
		t.Errorf("expected the group binding {i: %v}, got %v", la, bindings)
	}
}

func TestChainedReceiverHasNoLocal(t *testing.T) {
	state, registry := loadShadows(t)
	g := onlyGroup(t, registry, findFn(t, state, "chained"))
	sh := g.Shadows[0]
	if sh.Operands["i"] == nil {
		t.Fatalf("the read still binds i to the chained call result")
	}
	if sh.BoundLocal("i") != nil {
		t.Errorf("a chained call result is not a local, got %v", sh.BoundLocal("i"))
	}
	if b := g.Bindings(); len(b) != 0 {
		t.Errorf("expected no known bindings, got %v", b)
	}
}

func TestCompatibleWith(t *testing.T) {
	state, registry := loadShadows(t)
	crossed := findFn(t, state, "crossed")
	groups := registry.GroupsIn(crossed)
	if len(groups) != 2 {
		t.Fatalf("expected the check and the read to separate, got %d groups", len(groups))
	}
	var check, read *monitor.Shadow
	for _, g := range groups {
		if len(g.Shadows) != 1 {
			t.Fatalf("expected singleton groups in crossed, got %s", g)
		}
		switch sh := g.Shadows[0]; sh.Symbol.Name {
		case "hasNext":
			check = sh
		case "next":
			read = sh
		}
	}
	if check == nil || read == nil {
		t.Fatalf("missing shadows in crossed")
	}

	if got := read.CompatibleWith(map[string]ssa.Value{"i": read.BoundLocal("i")}); got != monitor.CompatSame {
		t.Errorf("expected the read to observe its own binding, got %v", got)
	}
	if got := read.CompatibleWith(map[string]ssa.Value{"i": check.BoundLocal("i")}); got != monitor.CompatDifferent {
		t.Errorf("expected the read to be separable from the check's binding, got %v", got)
	}
	if got := read.CompatibleWith(map[string]ssa.Value{}); got != monitor.CompatUnknown {
		t.Errorf("expected no shared variable to stay unknown, got %v", got)
	}

	chained := onlyGroup(t, registry, findFn(t, state, "chained")).Shadows[0]
	if got := chained.CompatibleWith(map[string]ssa.Value{"i": read.BoundLocal("i")}); got != monitor.CompatUnknown {
		t.Errorf("expected a receiver without a local to stay unknown, got %v", got)
	}
}

func TestGroupingKeepsUnknownsTogether(t *testing.T) {
	state, registry := loadShadows(t)
	g := onlyGroup(t, registry, findFn(t, state, "produce"))
	if len(g.Shadows) != 2 || g.Monitor.Name != "written" {
		t.Fatalf("expected the open and the write in one written group, got %s", g)
	}
	// The open binds f to the call result, which is not a local, so the pair
	// cannot be separated and the write supplies the known binding.
	write := shadowOf(t, g, "write")
	bindings := g.Bindings()
	if len(bindings) != 1 || bindings["f"] != write.BoundLocal("f") {
		t.Errorf("expected the write to supply the group binding, got %v", bindings)
	}
}
