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

package invariance

import (
	"fmt"
	"sort"

	"golang.org/x/tools/go/ssa"

	"github.com/tacet-dev/tacet/analysis/lang"
	"github.com/tacet-dev/tacet/analysis/monitor"
)

// A Propagator is a solved forward flow analysis of one shadow group in one
// function. Construction extracts the group's variable bindings, runs the
// fixpoint to completion and leaves the instance immutable; IsSafelyInvariant
// and the Flow queries only read the solved state.
//
// The analysis is conservative. Whenever it cannot prove that the monitor
// stays within its initial states it gives up, and a propagator that gave up
// never reports a function as safely invariant. Giving up is a one-way latch:
// once set, the remaining transfers become no-ops while the worklist still
// drains normally.
type Propagator struct {
	graph   *lang.InstrGraph
	group   *monitor.ShadowGroup
	initial *monitor.Shadow
	m       *monitor.Monitor

	transitions TransitionOracle
	effects     EffectOracle

	// initialStates is this propagator's own copy of the monitor's initial
	// states; the oracle receives it on every query.
	initialStates monitor.StateSet
	initialIdx    int
	seeded        bool

	// actualToLocal maps each value bound by a shadow to the local it was
	// copied from; formalToLocal maps the monitor's variable names to the
	// same locals. Both are fixed before the fixpoint starts.
	actualToLocal map[ssa.Value]ssa.Value
	formalToLocal map[string]ssa.Value

	// watched holds the values of actualToLocal: redefining one of these
	// while monitor states are live invalidates the bindings.
	watched map[ssa.Value]bool

	in  []monitor.StateSet
	out []monitor.StateSet

	gaveUp bool
	reason string
}

// NewPropagator builds and solves the flow analysis for group inside g. The
// initial shadow marks the statement where monitoring begins; its instruction
// must belong to g, and a caller handing in a foreign instruction violates the
// constructor's contract, which panics rather than returning a degraded result.
//
// The returned propagator is fully solved. It never runs concurrently with
// itself and performs no synchronization.
func NewPropagator(g *lang.InstrGraph, group *monitor.ShadowGroup, initial *monitor.Shadow,
	transitions TransitionOracle, effects EffectOracle) *Propagator {
	idx, ok := g.IndexOf(initial.Instr)
	if !ok {
		panic(fmt.Sprintf("invariance: initial shadow %s is not an instruction of %s", initial, g.Fn))
	}
	p := &Propagator{
		graph:         g,
		group:         group,
		initial:       initial,
		m:             group.Monitor,
		transitions:   transitions,
		effects:       effects,
		initialStates: group.Monitor.InitialStates().Copy(),
		initialIdx:    idx,
		actualToLocal: make(map[ssa.Value]ssa.Value),
		formalToLocal: make(map[string]ssa.Value),
	}
	p.extractBindings()
	p.solve()
	return p
}

// IsSafelyInvariant reports whether the function can be left unmonitored for
// this group: the analysis never gave up and every exit of the function leaves
// the monitor within its initial states.
func (p *Propagator) IsSafelyInvariant() bool {
	if p.gaveUp {
		return false
	}
	for _, tail := range p.graph.Tails {
		if !p.out[tail].SubsetOf(p.initialStates) {
			return false
		}
	}
	return true
}

// GaveUp reports whether the analysis abandoned precision at some point.
func (p *Propagator) GaveUp() bool {
	return p.gaveUp
}

// Reason returns the first reason the analysis gave up, or "" if it never did.
func (p *Propagator) Reason() string {
	return p.reason
}

// InitialShadow returns the shadow where monitoring begins.
func (p *Propagator) InitialShadow() *monitor.Shadow {
	return p.initial
}

// Group returns the shadow group the propagator was solved for.
func (p *Propagator) Group() *monitor.ShadowGroup {
	return p.group
}

// FlowBefore returns a copy of the monitor states reaching instr.
func (p *Propagator) FlowBefore(instr ssa.Instruction) (monitor.StateSet, bool) {
	i, ok := p.graph.IndexOf(instr)
	if !ok {
		return nil, false
	}
	return p.in[i].Copy(), true
}

// FlowAfter returns a copy of the monitor states holding right after instr.
func (p *Propagator) FlowAfter(instr ssa.Instruction) (monitor.StateSet, bool) {
	i, ok := p.graph.IndexOf(instr)
	if !ok {
		return nil, false
	}
	return p.out[i].Copy(), true
}

// giveUp latches the analysis into its conservative mode. The first reason is
// kept; later ones describe consequences of the first and are dropped.
func (p *Propagator) giveUp(reason string) {
	if p.gaveUp {
		return
	}
	p.gaveUp = true
	p.reason = reason
}

// extractBindings fills the binding maps from every shadow of the group. A
// shadow binds a variable to the value at its call site; the maps record the
// local that value was copied from, so the fixpoint can detect redefinitions
// of the underlying variable. A binding that cannot be traced to a plain local
// makes the analysis give up, though the fixpoint still runs afterwards.
func (p *Propagator) extractBindings() {
	for _, shadow := range p.group.Shadows {
		vars := make([]string, 0, len(shadow.Operands))
		for v := range shadow.Operands {
			vars = append(vars, v)
		}
		sort.Strings(vars)
		for _, v := range vars {
			p.recordBinding(shadow, v, shadow.Operands[v])
		}
	}
	p.watched = make(map[ssa.Value]bool, len(p.actualToLocal))
	for _, local := range p.actualToLocal {
		p.watched[local] = true
	}
}

// recordBinding resolves one bound value to the local it stands for.
func (p *Propagator) recordBinding(shadow *monitor.Shadow, v string, operand ssa.Value) {
	switch operand.(type) {
	case *ssa.Parameter:
		p.record(v, operand, operand)
		return
	case *ssa.Alloc, *ssa.FreeVar:
		p.scanSlotAssignments(shadow, v, operand)
		return
	}
	instr, ok := operand.(ssa.Instruction)
	if !ok {
		p.giveUp(fmt.Sprintf("variable %s of %s is bound to %s, not to a local", v, shadow, operand.Name()))
		return
	}
	if lhs, rhs, ok := lang.LocalCopy(instr); ok && lhs == operand {
		p.record(v, operand, rhs)
		return
	}
	p.giveUp(fmt.Sprintf("variable %s of %s is not read from a local", v, shadow))
}

// scanSlotAssignments records every assignment to a bound local slot. Each
// store into the slot must copy a value local to the function; a store of the
// slot's address elsewhere, or a closure capturing it, would let the variable
// be rebound outside the instructions the fixpoint sees.
func (p *Propagator) scanSlotAssignments(shadow *monitor.Shadow, v string, slot ssa.Value) {
	recorded := false
	if refs := slot.Referrers(); refs != nil {
		for _, ref := range *refs {
			switch ref := ref.(type) {
			case *ssa.UnOp:
				// reads of the variable
			case *ssa.Store:
				if ref.Val == slot {
					p.giveUp(fmt.Sprintf("address of %s bound at %s is stored elsewhere", v, shadow))
					continue
				}
				if !lang.IsLocalValue(ref.Val) {
					p.giveUp(fmt.Sprintf("%s bound at %s is assigned from a non-local value", v, shadow))
					continue
				}
				p.record(v, slot, ref.Val)
				recorded = true
			case *ssa.MakeClosure:
				p.giveUp(fmt.Sprintf("%s bound at %s is captured by a closure", v, shadow))
			case ssa.CallInstruction:
				// the address handed to a call, the usual shape of a method
				// call on the variable itself
			default:
				p.giveUp(fmt.Sprintf("address of %s bound at %s escapes", v, shadow))
			}
		}
	}
	if !recorded {
		p.record(v, slot, slot)
	}
}

// record enters one binding into both maps. Two shadows of the group binding
// the same variable to distinct locals leave the binding ambiguous, so the
// analysis gives up rather than trusting either.
func (p *Propagator) record(v string, actual, local ssa.Value) {
	p.actualToLocal[actual] = local
	if prev, ok := p.formalToLocal[v]; ok && prev != local {
		p.giveUp(fmt.Sprintf("variable %s is bound to both %s and %s", v, prev.Name(), local.Name()))
	}
	p.formalToLocal[v] = local
}

// solve runs the worklist to exhaustion. Incoming states are recomputed as the
// union of the predecessors' outgoing states on every visit; the initial
// statement additionally receives the monitor's initial states once, on its
// first visit. Giving up does not stop the traversal, it only empties the
// remaining transfers.
func (p *Propagator) solve() {
	n := p.graph.Size()
	p.in = make([]monitor.StateSet, n)
	p.out = make([]monitor.StateSet, n)
	for i := 0; i < n; i++ {
		p.in[i] = monitor.NewStateSet()
		p.out[i] = monitor.NewStateSet()
	}
	queue := make([]int, 0, n)
	queued := make([]bool, n)
	for i := 0; i < n; i++ {
		queue = append(queue, i)
		queued[i] = true
	}
	// A stabilizing run revisits each instruction at most once per state the
	// monitor can add. Exceeding that budget means the flow is not settling,
	// and the only safe answer left is to give up.
	budget := (n + 1) * (len(p.m.States()) + 2)
	visits := 0
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		queued[i] = false
		visits++
		if visits > budget {
			p.giveUp("state propagation did not stabilize")
		}
		merged := monitor.NewStateSet()
		for _, pred := range p.graph.Preds[i] {
			merged.Union(p.out[pred])
		}
		p.in[i] = merged
		before := p.out[i]
		p.flowThrough(i)
		if !p.out[i].Equals(before) {
			for _, succ := range p.graph.Succs[i] {
				if !queued[succ] {
					queue = append(queue, succ)
					queued[succ] = true
				}
			}
		}
	}
}

// flowThrough transfers the incoming states of instruction i to its outgoing
// states, in a fixed order of checks:
//
//  1. a latched analysis transfers nothing;
//  2. an instruction that may trigger an event elsewhere makes the analysis
//     give up, leaving the outgoing states untouched;
//  3. the initial statement receives the monitor's initial states, once;
//  4. an instruction redefining a watched local while states are live makes
//     the analysis give up, but the transfer still completes;
//  5. every live state is advanced through the transition oracle. Reaching a
//     final state means the property can complete, and with it the possibility
//     of a violation the monitor must observe, so the analysis gives up and
//     abandons the rest of the statement.
func (p *Propagator) flowThrough(i int) {
	if p.gaveUp {
		return
	}
	instr := p.graph.Instrs[i]
	if p.effects.MayTriggerEvent(instr) {
		p.giveUp(fmt.Sprintf("%s may trigger a monitored event", lang.FmtInstr(instr)))
		return
	}
	in := p.in[i]
	if i == p.initialIdx && !p.seeded {
		in.Union(p.initialStates)
		p.seeded = true
	}
	if !in.IsEmpty() {
		for _, def := range lang.DefsOf(instr) {
			if p.watched[def] {
				p.giveUp(fmt.Sprintf("%s redefines the monitored binding %s", lang.FmtInstr(instr), def.Name()))
				break
			}
		}
	}
	out := monitor.NewStateSet()
	p.out[i] = out
	for q := range in {
		succ := p.transitions.SuccessorStates(q, p.m, instr, p.initialStates, p.actualToLocal, p.formalToLocal)
		if succ.HasFinal() {
			p.giveUp(fmt.Sprintf("%s can complete the property %s", lang.FmtInstr(instr), p.m.Name))
			return
		}
		out.Union(succ)
	}
}
