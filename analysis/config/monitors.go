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

package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tacet-dev/tacet/internal/funcutil"
)

// A MonitorSpec describes one monitored property: a finite state machine over
// observable events (symbols) with free variables bound at each event.
type MonitorSpec struct {
	// Name identifies the monitor in reports and woven hooks
	Name string `yaml:"name"`

	// Vars declares the free variables of the property
	Vars []string `yaml:"vars"`

	// States lists the states of the state machine
	States []StateSpec `yaml:"states"`

	// Transitions lists the transitions of the state machine
	Transitions []TransitionSpec `yaml:"transitions"`

	// Symbols lists the observable events of the property
	Symbols []SymbolSpec `yaml:"symbols"`
}

// A StateSpec declares one state of a monitor's state machine.
type StateSpec struct {
	Name string `yaml:"name"`

	// Initial marks the state as part of the starting configuration
	Initial bool `yaml:"initial"`

	// Final marks the state as accepting: reaching it means the property matched
	Final bool `yaml:"final"`
}

// A TransitionSpec declares one transition of a monitor's state machine,
// from state From to state To when symbol On fires.
type TransitionSpec struct {
	From string `yaml:"from"`
	On   string `yaml:"on"`
	To   string `yaml:"to"`
}

// A SymbolSpec declares an observable event: the code elements whose calls
// realize it, and how the property variables bind to the call operands.
type SymbolSpec struct {
	Name string `yaml:"name"`

	// Call identifies the called code element realizing this symbol
	Call CodeIdentifier `yaml:"call"`

	// Bind maps each property variable to an operand selector of the matched
	// call: recv, ret, or argN
	Bind map[string]string `yaml:"bind"`
}

var selectorRegex = regexp.MustCompile(`^(recv|ret|arg[0-9]+)$`)

// IsValidSelector reports whether s is a well-formed binding selector.
func IsValidSelector(s string) bool {
	return selectorRegex.MatchString(s)
}

// ArgSelectorIndex returns the zero-based argument index of an argN selector,
// or false when sel does not select an argument.
func ArgSelectorIndex(sel string) (int, bool) {
	n, ok := strings.CutPrefix(sel, SelectorArgPrefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(n)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// validateMonitors checks that every monitor specification is internally consistent:
// unique names, transitions over declared states and symbols, and bindings over
// declared variables with well-formed selectors. A monitor without initial states is
// legal but degenerate, so it is not rejected here.
func (c *Config) validateMonitors() error {
	seen := map[string]bool{}
	for i := range c.Monitors {
		m := &c.Monitors[i]
		if m.Name == "" {
			return fmt.Errorf("monitor %d has no name", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate monitor name %q", m.Name)
		}
		seen[m.Name] = true
		if err := m.validate(c); err != nil {
			return fmt.Errorf("monitor %q: %w", m.Name, err)
		}
	}
	return nil
}

func (m *MonitorSpec) validate(c *Config) error {
	if len(m.States) == 0 {
		return fmt.Errorf("no states declared")
	}
	if c.ExceedsMaxStates(len(m.States)) {
		return fmt.Errorf("%d states exceed the max-states limit (%d)", len(m.States), c.MaxStates)
	}
	states := map[string]bool{}
	for _, s := range m.States {
		if s.Name == "" {
			return fmt.Errorf("state with no name")
		}
		if states[s.Name] {
			return fmt.Errorf("duplicate state %q", s.Name)
		}
		states[s.Name] = true
	}
	symbols := map[string]bool{}
	for _, s := range m.Symbols {
		if s.Name == "" {
			return fmt.Errorf("symbol with no name")
		}
		if symbols[s.Name] {
			return fmt.Errorf("duplicate symbol %q", s.Name)
		}
		symbols[s.Name] = true
		for v, sel := range s.Bind {
			if !funcutil.Contains(m.Vars, v) {
				return fmt.Errorf("symbol %q binds undeclared variable %q", s.Name, v)
			}
			if !IsValidSelector(sel) {
				return fmt.Errorf("symbol %q binds %q to invalid selector %q", s.Name, v, sel)
			}
		}
	}
	for _, tr := range m.Transitions {
		if !states[tr.From] {
			return fmt.Errorf("transition from unknown state %q", tr.From)
		}
		if !states[tr.To] {
			return fmt.Errorf("transition to unknown state %q", tr.To)
		}
		if !symbols[tr.On] {
			return fmt.Errorf("transition on unknown symbol %q", tr.On)
		}
	}
	return nil
}
