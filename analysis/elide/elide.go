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

// Package elide decides which runtime monitoring hooks a program can do
// without. It runs the state propagation analysis over every shadow group of
// the registry, once per candidate initial shadow, and collects the verdicts
// into per-shadow elision decisions and per-function summaries.
package elide

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/tacet-dev/tacet/analysis"
	"github.com/tacet-dev/tacet/analysis/effects"
	"github.com/tacet-dev/tacet/analysis/invariance"
	"github.com/tacet-dev/tacet/analysis/lang"
	"github.com/tacet-dev/tacet/analysis/monitor"
	"github.com/tacet-dev/tacet/internal/formatutil"
	"github.com/tacet-dev/tacet/internal/funcutil"
	"golang.org/x/tools/go/ssa"
)

// A Verdict is the outcome of one propagator run: one shadow group, solved
// with one of its shadows as the start of monitoring. At runtime any shadow
// of the group may be the first to execute, so each one is tried in turn.
type Verdict struct {
	// Group is the analyzed shadow group
	Group *monitor.ShadowGroup

	// Initial is the candidate initial shadow of this run
	Initial *monitor.Shadow

	// Invariant reports that, with monitoring started at Initial, the
	// function provably keeps the monitor within its initial states
	Invariant bool

	// Reason is the give-up reason when the analysis abandoned precision,
	// and empty otherwise
	Reason string
}

// A FunctionSummary aggregates the verdicts concerning one function, keyed by
// monitor name. A monitor appears in exactly one of the two sets: it is
// invariant only when every one of its groups in the function is.
type FunctionSummary struct {
	// Fn is the summarized function
	Fn *ssa.Function

	// Invariant holds the monitors whose hooks can all be elided in Fn
	Invariant map[string]bool

	// Monitored holds the monitors for which Fn keeps at least one hook
	Monitored map[string]bool
}

// A Result holds the verdicts of one analysis run over a program.
type Result struct {
	// Verdicts lists one entry per group and candidate initial shadow
	Verdicts []Verdict

	// Functions summarizes the verdicts for each function containing shadows
	Functions map[*ssa.Function]*FunctionSummary

	elidable map[*monitor.Shadow]bool
}

// CanElide reports whether the shadow's runtime hook can be skipped. A hook
// is skippable only when its whole group was proven safely invariant from
// every candidate initial shadow.
func (r *Result) CanElide(s *monitor.Shadow) bool {
	return r.elidable[s]
}

// ElidedShadows returns the elidable shadows sorted by printed position.
func (r *Result) ElidedShadows() []*monitor.Shadow {
	shadows := make([]*monitor.Shadow, 0, len(r.elidable))
	for s := range r.elidable {
		shadows = append(shadows, s)
	}
	sort.Slice(shadows, func(i, j int) bool {
		if shadows[i].Fn != shadows[j].Fn {
			return shadows[i].Fn.String() < shadows[j].Fn.String()
		}
		return shadows[i].String() < shadows[j].String()
	})
	return shadows
}

// NumElided returns the number of elidable shadows.
func (r *Result) NumElided() int {
	return len(r.elidable)
}

// Run analyzes every shadow group of the registry with numRoutines parallel
// workers and returns the collected verdicts. The call graph of the state
// must have been built. The transition and effect oracles are shared across
// workers and are read-only; each propagator stays confined to one goroutine.
func Run(state *analysis.State, registry *monitor.Registry, numRoutines int) (*Result, error) {
	oracle, err := effects.NewOracle(state, registry.ContainingFuncs())
	if err != nil {
		return nil, fmt.Errorf("could not build the effect oracle: %w", err)
	}
	transitions := monitor.NewTransitions(registry)
	groups := registry.Groups()
	if numRoutines < 1 {
		numRoutines = 1
	}

	state.Logger.Infof("Analyzing %d shadow groups (%d workers)...", len(groups), numRoutines)
	start := time.Now()
	perGroup := funcutil.MapParallel(groups, func(g *monitor.ShadowGroup) []Verdict {
		return analyzeGroup(g, transitions, oracle)
	}, numRoutines)
	state.Logger.Infof("Shadow groups analyzed (%.2f s).", time.Since(start).Seconds())

	result := collect(groups, perGroup)
	logVerdicts(state, result)
	return result, nil
}

// analyzeGroup runs the propagator once per shadow of the group, each time
// with that shadow as the candidate initial one. The instruction graph of the
// enclosing function is shared by the runs.
func analyzeGroup(g *monitor.ShadowGroup, transitions invariance.TransitionOracle, oracle invariance.EffectOracle) []Verdict {
	graph := lang.NewInstrGraph(g.Fn)
	verdicts := make([]Verdict, 0, len(g.Shadows))
	for _, sh := range g.Shadows {
		p := invariance.NewPropagator(graph, g, sh, transitions, oracle)
		verdicts = append(verdicts, Verdict{
			Group:     g,
			Initial:   sh,
			Invariant: p.IsSafelyInvariant(),
			Reason:    p.Reason(),
		})
	}
	return verdicts
}

// collect assembles the flat verdict list, the elidable shadow set and the
// per-function summaries. A group is demoted as soon as one of its candidate
// runs is not invariant.
func collect(groups []*monitor.ShadowGroup, perGroup [][]Verdict) *Result {
	result := &Result{
		Functions: map[*ssa.Function]*FunctionSummary{},
		elidable:  map[*monitor.Shadow]bool{},
	}
	demoted := map[*monitor.ShadowGroup]bool{}
	for _, verdicts := range perGroup {
		for _, v := range verdicts {
			result.Verdicts = append(result.Verdicts, v)
			if !v.Invariant {
				demoted[v.Group] = true
			}
		}
	}

	for _, g := range groups {
		if !demoted[g] {
			for _, sh := range g.Shadows {
				result.elidable[sh] = true
			}
		}
		summary := result.Functions[g.Fn]
		if summary == nil {
			summary = &FunctionSummary{
				Fn:        g.Fn,
				Invariant: map[string]bool{},
				Monitored: map[string]bool{},
			}
			result.Functions[g.Fn] = summary
		}
		if demoted[g] {
			summary.Monitored[g.Monitor.Name] = true
		} else {
			summary.Invariant[g.Monitor.Name] = true
		}
	}

	// Separate groups of the same monitor can disagree within one function.
	// The function then still needs hooks for that monitor.
	for _, summary := range result.Functions {
		for name := range summary.Monitored {
			delete(summary.Invariant, name)
		}
	}
	return result
}

// logVerdicts prints the per-function summaries in a stable order, with the
// give-up reasons of the demoted groups at debug level.
func logVerdicts(state *analysis.State, result *Result) {
	fns := make([]*ssa.Function, 0, len(result.Functions))
	for fn := range result.Functions {
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].String() < fns[j].String() })

	for _, fn := range fns {
		summary := result.Functions[fn]
		for _, name := range funcutil.SortedKeys(summary.Invariant) {
			state.Logger.Infof("%s: monitoring of %s can be elided.", formatutil.Sanitize(fn.String()), name)
		}
		for _, name := range funcutil.SortedKeys(summary.Monitored) {
			state.Logger.Infof("%s: %s stays monitored.", formatutil.Sanitize(fn.String()), name)
		}
	}
	for _, v := range result.Verdicts {
		if v.Reason != "" {
			state.Logger.Debugf("%s, starting at %s: %s.", formatutil.SanitizeRepr(v.Group),
				formatutil.SanitizeRepr(v.Initial), formatutil.Sanitize(v.Reason))
		}
	}
	state.Logger.Infof("%d of %d shadows can be elided.", result.NumElided(), numShadows(result))
}

func numShadows(result *Result) int {
	seen := map[*monitor.ShadowGroup]bool{}
	n := 0
	for _, v := range result.Verdicts {
		if !seen[v.Group] {
			seen[v.Group] = true
			n += len(v.Group.Shadows)
		}
	}
	return n
}

// WriteReport appends the elided shadows to the report file configured for
// the analysis. It is a no-op unless report-elided is set.
func WriteReport(state *analysis.State, result *Result) error {
	if !state.Config.ReportElided {
		return nil
	}
	filename := state.Config.ReportElidedFile()
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open report file %s: %w", filename, err)
	}
	defer f.Close()
	for _, sh := range result.ElidedShadows() {
		if _, err := fmt.Fprintf(f, "%s in %s\n", sh, sh.Fn.String()); err != nil {
			return fmt.Errorf("could not write report file %s: %w", filename, err)
		}
	}
	state.Logger.Infof("Wrote the elided shadows to %s.", filename)
	return nil
}
