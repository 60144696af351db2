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

// Package rt is the runtime support woven programs link against. The weaver
// inserts Emit calls before the monitored statements; Emit advances the
// defined property machines and reports a violation whenever a machine can
// reach a final state. Programs define their machines at startup, typically
// from the same property the static analysis checked. Events for monitors
// that were never defined are dropped.
//
// The package keeps only the standard library as a dependency, it is linked
// into instrumented programs.
package rt

import (
	"log"
	"reflect"
	"sort"
	"sync"
)

// maxKeyedVars is the number of bound variables distinguishing a monitored
// instance. Further bindings still reach the violation handler but do not
// separate instances.
const maxKeyedVars = 4

// A Machine describes one property at runtime: the nondeterministic state
// machine of the monitor. State and symbol names are plain strings, matching
// the monitor specification the weaver worked from.
type Machine struct {
	// Initial lists the states monitoring starts in
	Initial []string

	// Final lists the states whose reach is a violation
	Final []string

	// Delta maps a state and a symbol to the successor states
	Delta map[string]map[string][]string
}

// A Violation is one property match observed at runtime.
type Violation struct {
	// Monitor is the name of the violated monitor
	Monitor string

	// Symbol is the event completing the match
	Symbol string

	// State is the final state that was reached
	State string

	// Bindings holds the variable bindings of the emitting site, nil values
	// stand for bindings the weaver could not pass
	Bindings map[string]any
}

type instance struct {
	states map[string]bool
}

type runtimeMonitor struct {
	machine   Machine
	instances map[[maxKeyedVars]any]*instance
}

var (
	mu       sync.Mutex
	monitors = map[string]*runtimeMonitor{}
	handler  = func(v Violation) {
		log.Printf("tacet: property %s violated at %s (state %s)", v.Monitor, v.Symbol, v.State)
	}
)

// Define registers the machine of one monitor, replacing any previous
// definition and dropping its tracked instances.
func Define(name string, m Machine) {
	mu.Lock()
	defer mu.Unlock()
	monitors[name] = &runtimeMonitor{
		machine:   m,
		instances: map[[maxKeyedVars]any]*instance{},
	}
}

// OnViolation installs the violation handler. The default handler logs to
// the standard logger. The handler runs with the event lock held, so it must
// not call back into this package.
func OnViolation(h func(Violation)) {
	mu.Lock()
	defer mu.Unlock()
	handler = h
}

// Reset drops every defined monitor and tracked instance.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	monitors = map[string]*runtimeMonitor{}
}

// Emit records one event: the symbol of the named monitor fired with the
// given bindings. Bindings are alternating name, value pairs; a nil or
// non-comparable value leaves the binding unknown, and events with unknown
// bindings share one instance per monitor.
func Emit(monitor, symbol string, pairs ...any) {
	mu.Lock()
	defer mu.Unlock()
	rm, ok := monitors[monitor]
	if !ok {
		return
	}
	bindings := collectBindings(pairs)
	inst := rm.instanceFor(bindings)
	rm.step(inst, monitor, symbol, bindings)
}

// States returns the sorted states an instance is currently in. It is meant
// for tests and debugging.
func States(monitor string, pairs ...any) []string {
	mu.Lock()
	defer mu.Unlock()
	rm, ok := monitors[monitor]
	if !ok {
		return nil
	}
	inst := rm.instanceFor(collectBindings(pairs))
	states := make([]string, 0, len(inst.states))
	for s := range inst.states {
		states = append(states, s)
	}
	sort.Strings(states)
	return states
}

func collectBindings(pairs []any) map[string]any {
	bindings := map[string]any{}
	for i := 0; i+1 < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			continue
		}
		bindings[name] = pairs[i+1]
	}
	return bindings
}

// instanceFor returns the tracked instance for the bindings, keyed by the
// first comparable bound values in sorted variable order.
func (rm *runtimeMonitor) instanceFor(bindings map[string]any) *instance {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	var key [maxKeyedVars]any
	slot := 0
	for _, name := range names {
		if slot == maxKeyedVars {
			break
		}
		v := bindings[name]
		if v == nil || !reflect.TypeOf(v).Comparable() {
			continue
		}
		key[slot] = v
		slot++
	}

	inst, ok := rm.instances[key]
	if !ok {
		inst = &instance{states: map[string]bool{}}
		for _, s := range rm.machine.Initial {
			inst.states[s] = true
		}
		rm.instances[key] = inst
	}
	return inst
}

// step advances the instance: every current state takes the symbol's
// transitions, and the initial states stay active so that a new match can
// start at any later event. Final states are reported and dropped,
// monitoring continues. The instance always holds the initial states, so
// stepping the current states covers fresh matches too.
func (rm *runtimeMonitor) step(inst *instance, monitor, symbol string, bindings map[string]any) {
	next := map[string]bool{}
	for _, s := range rm.machine.Initial {
		next[s] = true
	}
	for s := range inst.states {
		for _, t := range rm.machine.Delta[s][symbol] {
			next[t] = true
		}
	}

	for _, f := range rm.machine.Final {
		if next[f] {
			handler(Violation{Monitor: monitor, Symbol: symbol, State: f, Bindings: bindings})
			delete(next, f)
		}
	}
	inst.states = next
}
