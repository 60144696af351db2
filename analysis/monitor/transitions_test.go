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

func TestSuccessorStatesWithoutShadows(t *testing.T) {
	state, registry := loadShadows(t)
	trans := monitor.NewTransitions(registry)
	m := registry.MonitorNamed("hasnext")
	pending := m.State("pending")

	plain := callsTo(t, findFn(t, state, "main"), "same")[0]
	got := trans.SuccessorStates(pending, m, plain, m.InitialStates(), nil, nil)
	if !got.Equals(monitor.NewStateSet(pending)) {
		t.Errorf("a call without shadows should leave the state unchanged, got %s", got)
	}
}

func TestSuccessorStatesStep(t *testing.T) {
	state, registry := loadShadows(t)
	trans := monitor.NewTransitions(registry)
	m := registry.MonitorNamed("hasnext")
	start, pending, fail := m.State("start"), m.State("pending"), m.State("fail")

	fn := findFn(t, state, "same")
	bindings := registry.GroupsIn(fn)[0].Bindings()
	read := callsTo(t, fn, "next")[0]
	check := callsTo(t, fn, "hasNext")[0]

	// A read before monitoring starts may also be the first observed event, so
	// the initial state survives alongside the stepped one.
	got := trans.SuccessorStates(start, m, read, m.InitialStates(), nil, bindings)
	if !got.Equals(monitor.NewStateSet(start, pending)) {
		t.Errorf("a read from start should keep start and enter pending, got %s", got)
	}

	got = trans.SuccessorStates(pending, m, read, m.InitialStates(), nil, bindings)
	if !got.Equals(monitor.NewStateSet(fail)) {
		t.Errorf("a read from pending should move to fail alone, got %s", got)
	}

	// hasNext has no transitions, so a check drops the partial match.
	got = trans.SuccessorStates(pending, m, check, m.InitialStates(), nil, bindings)
	if !got.IsEmpty() {
		t.Errorf("a check from pending should drop the partial match, got %s", got)
	}
	got = trans.SuccessorStates(start, m, check, m.InitialStates(), nil, bindings)
	if !got.Equals(monitor.NewStateSet(start)) {
		t.Errorf("a check from start should keep only start, got %s", got)
	}
}

func TestSuccessorStatesOnDifferentBinding(t *testing.T) {
	state, registry := loadShadows(t)
	trans := monitor.NewTransitions(registry)
	m := registry.MonitorNamed("hasnext")
	pending := m.State("pending")

	crossed := findFn(t, state, "crossed")
	read := callsTo(t, crossed, "next")[0]
	check := callsTo(t, crossed, "hasNext")[0]
	checkShadow := registry.ShadowsAt(check)[0]
	bindings := map[string]ssa.Value{"i": checkShadow.BoundLocal("i")}

	got := trans.SuccessorStates(pending, m, read, m.InitialStates(), nil, bindings)
	if !got.Equals(monitor.NewStateSet(pending)) {
		t.Errorf("a read on a provably different binding should leave the state unchanged, got %s", got)
	}
}

func TestSuccessorStatesOnUnknownBinding(t *testing.T) {
	state, registry := loadShadows(t)
	trans := monitor.NewTransitions(registry)
	m := registry.MonitorNamed("hasnext")
	pending, fail := m.State("pending"), m.State("fail")

	// The receiver in chained has no local, so the read may or may not observe
	// the monitored binding and both outcomes are kept.
	read := callsTo(t, findFn(t, state, "chained"), "next")[0]
	someLocal := registry.GroupsIn(findFn(t, state, "same"))[0].Bindings()["i"]
	bindings := map[string]ssa.Value{"i": someLocal}

	got := trans.SuccessorStates(pending, m, read, m.InitialStates(), nil, bindings)
	if !got.Equals(monitor.NewStateSet(pending, fail)) {
		t.Errorf("an unseparable read should keep pending and add fail, got %s", got)
	}
}

func TestSuccessorStatesIgnoreOtherMonitors(t *testing.T) {
	state, registry := loadShadows(t)
	trans := monitor.NewTransitions(registry)
	m := registry.MonitorNamed("hasnext")
	pending := m.State("pending")

	wrote := callsTo(t, findFn(t, state, "produce"), "writeTo")[0]
	got := trans.SuccessorStates(pending, m, wrote, m.InitialStates(), nil, nil)
	if !got.Equals(monitor.NewStateSet(pending)) {
		t.Errorf("a shadow of another monitor should not step hasnext, got %s", got)
	}
}
