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
	"sort"

	"github.com/tacet-dev/tacet/analysis"
	"github.com/tacet-dev/tacet/analysis/lang"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// A Registry indexes the shadows of a program: which call instructions realize
// monitor events, and how the shadows group by function and bound variables.
type Registry struct {
	// Monitors lists the compiled monitors in configuration order
	Monitors []*Monitor

	shadows    map[ssa.Instruction][]*Shadow
	groups     []*ShadowGroup
	byFn       map[*ssa.Function][]*ShadowGroup
	containing map[*ssa.Function]bool
}

// NewRegistry compiles the monitors declared in the configuration and scans the
// program for their shadows. Only functions whose package passes the package
// filter are scanned, and call sites annotated with a tacet:ignore directive
// are skipped.
func NewRegistry(state *analysis.State) (*Registry, error) {
	r := &Registry{
		shadows:    map[ssa.Instruction][]*Shadow{},
		byFn:       map[*ssa.Function][]*ShadowGroup{},
		containing: map[*ssa.Function]bool{},
	}
	for _, spec := range state.Config.Monitors {
		m, err := NewMonitor(spec)
		if err != nil {
			return nil, fmt.Errorf("could not compile monitor: %w", err)
		}
		r.Monitors = append(r.Monitors, m)
	}

	funcs := make([]*ssa.Function, 0)
	for fn := range ssautil.AllFunctions(state.Program) {
		if state.Config.MatchPkgFilter(lang.PackageNameFromFunction(fn)) {
			funcs = append(funcs, fn)
		}
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].String() < funcs[j].String() })

	for _, fn := range funcs {
		r.scanFunction(state, fn)
	}

	state.Logger.Infof("Found %d shadows in %d functions (%d groups).",
		r.numShadows(), len(r.containing), len(r.groups))
	return r, nil
}

func (r *Registry) scanFunction(state *analysis.State, fn *ssa.Function) {
	byMonitor := map[*Monitor][]*Shadow{}
	lang.IterateInstructions(fn, func(_ int, instr ssa.Instruction) {
		call, ok := instr.(ssa.CallInstruction)
		if !ok {
			return
		}
		for _, m := range r.Monitors {
			for _, sym := range m.Symbols() {
				if !sym.MatchesCall(call) {
					continue
				}
				if state.Directives.Ignores(lang.InstrPos(instr)) {
					state.Logger.Debugf("Ignoring %s call at %s (directive).", sym, lang.InstrPos(instr))
					continue
				}
				shadow := NewShadow(sym, call)
				r.shadows[instr] = append(r.shadows[instr], shadow)
				byMonitor[m] = append(byMonitor[m], shadow)
				state.Logger.Debugf("Shadow %s in %s.", shadow, fn.String())
			}
		}
	})
	if len(byMonitor) == 0 {
		return
	}
	r.containing[fn] = true
	for _, m := range r.Monitors {
		shadows := byMonitor[m]
		if len(shadows) == 0 {
			continue
		}
		groups := groupShadows(m, fn, shadows)
		r.groups = append(r.groups, groups...)
		r.byFn[fn] = append(r.byFn[fn], groups...)
	}
}

func (r *Registry) numShadows() int {
	n := 0
	for _, shadows := range r.shadows {
		n += len(shadows)
	}
	return n
}

// ShadowsAt returns the shadows whose call is instr, or nil.
func (r *Registry) ShadowsAt(instr ssa.Instruction) []*Shadow {
	return r.shadows[instr]
}

// Groups returns every shadow group of the program, ordered by function.
func (r *Registry) Groups() []*ShadowGroup {
	return r.groups
}

// GroupsIn returns the shadow groups of one function.
func (r *Registry) GroupsIn(fn *ssa.Function) []*ShadowGroup {
	return r.byFn[fn]
}

// ContainingFuncs returns the set of functions containing at least one shadow.
// These are the functions whose execution can directly trigger an event.
func (r *Registry) ContainingFuncs() map[*ssa.Function]bool {
	return r.containing
}

// MonitorNamed returns the compiled monitor with the given name, or nil.
func (r *Registry) MonitorNamed(name string) *Monitor {
	for _, m := range r.Monitors {
		if m.Name == name {
			return m
		}
	}
	return nil
}
