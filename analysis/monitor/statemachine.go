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

// Package monitor models the monitored properties of a program: finite state
// machines over observable events, the call sites (shadows) realizing those
// events, and the grouping of shadows that observe the same bound variables.
package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tacet-dev/tacet/analysis/config"
)

// A State is one state of a monitor's state machine. States are interned per
// monitor: two states of the same monitor are equal iff they are the same pointer.
type State struct {
	// Name identifies the state within its monitor
	Name string

	// Initial marks the state as part of the starting configuration
	Initial bool

	// Final marks the state as accepting: reaching it means the property matched
	Final bool
}

func (q *State) String() string {
	return q.Name
}

// A StateSet is a set of states of one monitor.
type StateSet map[*State]bool

// NewStateSet returns a set containing the given states.
func NewStateSet(states ...*State) StateSet {
	s := make(StateSet, len(states))
	for _, q := range states {
		s[q] = true
	}
	return s
}

// Add inserts q and reports whether the set changed.
func (s StateSet) Add(q *State) bool {
	if s[q] {
		return false
	}
	s[q] = true
	return true
}

// Union inserts every state of o and reports whether the set changed.
func (s StateSet) Union(o StateSet) bool {
	changed := false
	for q := range o {
		if s.Add(q) {
			changed = true
		}
	}
	return changed
}

// Contains reports whether q is in the set.
func (s StateSet) Contains(q *State) bool {
	return s[q]
}

// IsEmpty reports whether the set has no states.
func (s StateSet) IsEmpty() bool {
	return len(s) == 0
}

// Equals reports whether s and o contain the same states.
func (s StateSet) Equals(o StateSet) bool {
	return len(s) == len(o) && s.SubsetOf(o)
}

// SubsetOf reports whether every state of s is in o.
func (s StateSet) SubsetOf(o StateSet) bool {
	for q := range s {
		if !o[q] {
			return false
		}
	}
	return true
}

// Copy returns a new set with the same states.
func (s StateSet) Copy() StateSet {
	c := make(StateSet, len(s))
	for q := range s {
		c[q] = true
	}
	return c
}

// HasFinal reports whether the set contains an accepting state.
func (s StateSet) HasFinal() bool {
	for q := range s {
		if q.Final {
			return true
		}
	}
	return false
}

// Names returns the sorted names of the states in the set.
func (s StateSet) Names() []string {
	names := make([]string, 0, len(s))
	for q := range s {
		names = append(names, q.Name)
	}
	sort.Strings(names)
	return names
}

func (s StateSet) String() string {
	return "{" + strings.Join(s.Names(), ", ") + "}"
}

// A Monitor is the compiled form of a monitor specification: interned states,
// the transition function, and the symbols with their call matchers.
type Monitor struct {
	// Name identifies the monitor
	Name string

	// Vars lists the free variables of the property
	Vars []string

	states    []*State
	byName    map[string]*State
	initial   StateSet
	targets   map[*State]map[string]StateSet
	symbols   []*Symbol
	symByName map[string]*Symbol
}

// NewMonitor compiles a monitor specification. The specification is expected to
// have passed config validation; dangling state or symbol references are still
// reported as errors.
func NewMonitor(spec config.MonitorSpec) (*Monitor, error) {
	m := &Monitor{
		Name:      spec.Name,
		Vars:      spec.Vars,
		byName:    map[string]*State{},
		initial:   NewStateSet(),
		targets:   map[*State]map[string]StateSet{},
		symByName: map[string]*Symbol{},
	}
	for _, st := range spec.States {
		if m.byName[st.Name] != nil {
			return nil, fmt.Errorf("monitor %s: duplicate state %q", m.Name, st.Name)
		}
		q := &State{Name: st.Name, Initial: st.Initial, Final: st.Final}
		m.states = append(m.states, q)
		m.byName[st.Name] = q
		if q.Initial {
			m.initial.Add(q)
		}
	}
	for i := range spec.Symbols {
		sym := newSymbol(m, spec.Symbols[i])
		if m.symByName[sym.Name] != nil {
			return nil, fmt.Errorf("monitor %s: duplicate symbol %q", m.Name, sym.Name)
		}
		m.symbols = append(m.symbols, sym)
		m.symByName[sym.Name] = sym
	}
	for _, tr := range spec.Transitions {
		from, to := m.byName[tr.From], m.byName[tr.To]
		if from == nil || to == nil {
			return nil, fmt.Errorf("monitor %s: transition %s -%s-> %s references an unknown state",
				m.Name, tr.From, tr.On, tr.To)
		}
		if m.symByName[tr.On] == nil {
			return nil, fmt.Errorf("monitor %s: transition on unknown symbol %q", m.Name, tr.On)
		}
		if m.targets[from] == nil {
			m.targets[from] = map[string]StateSet{}
		}
		if m.targets[from][tr.On] == nil {
			m.targets[from][tr.On] = NewStateSet()
		}
		m.targets[from][tr.On].Add(to)
	}
	return m, nil
}

func (m *Monitor) String() string {
	return m.Name
}

// States returns the states of the monitor in declaration order.
func (m *Monitor) States() []*State {
	return m.states
}

// State returns the state with the given name, or nil.
func (m *Monitor) State(name string) *State {
	return m.byName[name]
}

// InitialStates returns the starting configuration of the monitor. A monitor
// without initial states is legal: its properties can never start matching.
// The returned set is shared and must not be mutated.
func (m *Monitor) InitialStates() StateSet {
	return m.initial
}

// Targets returns the states reached from q when symbol fires. The returned
// set is shared and must not be mutated; it is nil when no transition applies,
// which drops the partial match.
func (m *Monitor) Targets(q *State, symbol string) StateSet {
	return m.targets[q][symbol]
}

// Symbols returns the symbols of the monitor in declaration order.
func (m *Monitor) Symbols() []*Symbol {
	return m.symbols
}

// Symbol returns the symbol with the given name, or nil.
func (m *Monitor) Symbol(name string) *Symbol {
	return m.symByName[name]
}

// Transitions lists the compiled transitions as (from, symbol, to) triples,
// ordered by state declaration, then symbol name, then target declaration.
func (m *Monitor) Transitions() []Arrow {
	var arrows []Arrow
	for _, from := range m.states {
		onto := m.targets[from]
		syms := make([]string, 0, len(onto))
		for sym := range onto {
			syms = append(syms, sym)
		}
		sort.Strings(syms)
		for _, sym := range syms {
			for _, to := range m.states {
				if onto[sym].Contains(to) {
					arrows = append(arrows, Arrow{From: from, On: sym, To: to})
				}
			}
		}
	}
	return arrows
}

// An Arrow is one compiled transition of a monitor.
type Arrow struct {
	From *State
	On   string
	To   *State
}
