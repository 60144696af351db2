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
	"fmt"

	"github.com/tacet-dev/tacet/analysis/lang"
	"golang.org/x/tools/go/ssa"
)

// A Shadow is a program point realizing an observable event: a call instruction
// matching one of the symbols of a monitor, together with the operands its
// property variables bind to at that site.
type Shadow struct {
	// Monitor is the monitor the shadow belongs to
	Monitor *Monitor

	// Symbol is the matched symbol of the monitor
	Symbol *Symbol

	// Fn is the function containing the call
	Fn *ssa.Function

	// Instr is the matched call instruction
	Instr ssa.CallInstruction

	// Operands maps each bound property variable to its operand value at this site
	Operands map[string]ssa.Value
}

// NewShadow builds the shadow of sym at the call instr.
func NewShadow(sym *Symbol, instr ssa.CallInstruction) *Shadow {
	return &Shadow{
		Monitor:  sym.Monitor(),
		Symbol:   sym,
		Fn:       instr.Parent(),
		Instr:    instr,
		Operands: sym.BoundValues(instr),
	}
}

func (s *Shadow) String() string {
	pos := lang.InstrPos(s.Instr)
	return fmt.Sprintf("%s at %s:%d", s.Symbol, pos.Filename, pos.Line)
}

// BoundLocal returns the local variable bound to the property variable v at
// this shadow, or nil when v is unbound here or its operand does not denote a
// plain local (a chained call result, a field read).
func (s *Shadow) BoundLocal(v string) ssa.Value {
	op, ok := s.Operands[v]
	if !ok {
		return nil
	}
	return lang.AsLocal(op)
}

// Compat is the result of comparing a shadow's bindings against the bindings
// of the monitored group.
type Compat int

const (
	// CompatUnknown means the bindings could not be separated: the shadow may
	// or may not observe the same variables.
	CompatUnknown Compat = iota

	// CompatSame means the shadow observes the same variables.
	CompatSame

	// CompatDifferent means the shadow provably observes different variables.
	CompatDifferent
)

// CompatibleWith compares the shadow's bindings with the group bindings
// formalToLocal. A variable bound to provably different locals separates the
// bindings; all shared variables bound to the same locals identifies them;
// anything else is unknown.
func (s *Shadow) CompatibleWith(formalToLocal map[string]ssa.Value) Compat {
	shared := 0
	unknown := false
	for v := range s.Symbol.Bind {
		local, ok := formalToLocal[v]
		if !ok {
			continue
		}
		shared++
		shadowLocal := s.BoundLocal(v)
		if shadowLocal == nil {
			unknown = true
			continue
		}
		if shadowLocal != local {
			return CompatDifferent
		}
	}
	if shared == 0 || unknown {
		return CompatUnknown
	}
	return CompatSame
}

// A ShadowGroup collects the shadows of one monitor within one function that
// may observe the same bound variables. Elision is decided per group.
type ShadowGroup struct {
	// Monitor is the monitor all shadows in the group belong to
	Monitor *Monitor

	// Fn is the function containing the shadows
	Fn *ssa.Function

	// Shadows lists the members of the group in instruction order
	Shadows []*Shadow
}

func (g *ShadowGroup) String() string {
	return fmt.Sprintf("%s in %s (%d shadows)", g.Monitor.Name, g.Fn.String(), len(g.Shadows))
}

// Bindings returns the variable-to-local bindings of the group: the union of
// the known bindings of its shadows. Each variable maps to the local bound by
// the first shadow binding it.
func (g *ShadowGroup) Bindings() map[string]ssa.Value {
	bindings := map[string]ssa.Value{}
	for _, s := range g.Shadows {
		for v := range s.Operands {
			if _, ok := bindings[v]; ok {
				continue
			}
			if local := s.BoundLocal(v); local != nil {
				bindings[v] = local
			}
		}
	}
	return bindings
}

// groupShadows partitions the shadows of one monitor in one function: two
// shadows stay together unless they bind a common variable to provably
// different locals. Merging is transitive, so over-grouping can occur; the
// analysis only loses precision, never soundness, from a larger group.
func groupShadows(m *Monitor, fn *ssa.Function, shadows []*Shadow) []*ShadowGroup {
	n := len(shadows)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		parent[find(i)] = find(j)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if separable(shadows[i], shadows[j]) {
				continue
			}
			union(i, j)
		}
	}

	members := map[int][]*Shadow{}
	var roots []int
	for i, s := range shadows {
		r := find(i)
		if members[r] == nil {
			roots = append(roots, r)
		}
		members[r] = append(members[r], s)
	}

	groups := make([]*ShadowGroup, 0, len(roots))
	for _, r := range roots {
		groups = append(groups, &ShadowGroup{Monitor: m, Fn: fn, Shadows: members[r]})
	}
	return groups
}

// separable reports whether two shadows provably observe different variables:
// some variable bound by both resolves to two distinct locals.
func separable(a, b *Shadow) bool {
	for v := range a.Operands {
		if _, ok := b.Operands[v]; !ok {
			continue
		}
		la, lb := a.BoundLocal(v), b.BoundLocal(v)
		if la != nil && lb != nil && la != lb {
			return true
		}
	}
	return false
}
