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

// Package render writes visualizations of the analyzed program: the state
// machines of the monitors and the call graph with the may-trigger functions
// highlighted, both as Graphviz dot, and the SSA form of the packages as
// text.
package render

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/types/typeutil"

	"github.com/tacet-dev/tacet/analysis/config"
	"github.com/tacet-dev/tacet/analysis/effects"
	"github.com/tacet-dev/tacet/analysis/lang"
	"github.com/tacet-dev/tacet/analysis/monitor"
)

// WriteMonitorGraphviz writes the state machine of the monitor to w as a
// Graphviz digraph. Initial states get an entry arrow, final states a double
// circle, and every transition is labeled with its symbol.
func WriteMonitorGraphviz(m *monitor.Monitor, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "digraph %q {\n  rankdir=LR;\n  node [shape=circle];\n", m.Name); err != nil {
		return fmt.Errorf("error while writing in file: %w", err)
	}
	entries := 0
	for _, q := range m.States() {
		if q.Final {
			if _, err := fmt.Fprintf(w, "  %q [shape=doublecircle];\n", q.Name); err != nil {
				return fmt.Errorf("error while writing in file: %w", err)
			}
		}
		if q.Initial {
			if _, err := fmt.Fprintf(w, "  _entry%d [shape=point, label=\"\"];\n  _entry%d -> %q;\n",
				entries, entries, q.Name); err != nil {
				return fmt.Errorf("error while writing in file: %w", err)
			}
			entries++
		}
	}
	for _, a := range m.Transitions() {
		if _, err := fmt.Fprintf(w, "  %q -> %q [label=%q];\n", a.From.Name, a.To.Name, a.On); err != nil {
			return fmt.Errorf("error while writing in file: %w", err)
		}
	}
	if _, err := io.WriteString(w, "}\n"); err != nil {
		return fmt.Errorf("error while writing in file: %w", err)
	}
	return nil
}

// MonitorToFile writes the monitor's state machine to a dot file.
func MonitorToFile(m *monitor.Monitor, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()
	return WriteMonitorGraphviz(m, w)
}

// ExcludedNodes are function names that only clutter the rendered call graph.
var ExcludedNodes = []string{"String", "GoString", "init", "Error"}

// edgeColor colors go call sites blue; other call sites keep the default.
func edgeColor(edge *callgraph.Edge) string {
	if _, isGo := edge.Site.(*ssa.Go); isGo {
		return " [color=blue]"
	}
	return ""
}

func included(cfg *config.Config, fn *ssa.Function) bool {
	if fn == nil || !cfg.MatchPkgFilter(lang.PackageNameFromFunction(fn)) {
		return false
	}
	for _, name := range ExcludedNodes {
		if fn.Name() == name {
			return false
		}
	}
	return true
}

// WriteTriggerGraphviz writes the call graph to w as a Graphviz digraph,
// restricted to the functions passing the package filter. Functions that may
// trigger a monitored event are filled, the ones containing shadows are
// drawn as boxes.
func WriteTriggerGraphviz(cfg *config.Config, oracle *effects.Oracle, containing map[*ssa.Function]bool,
	cg *callgraph.Graph, w io.Writer) error {

	if _, err := io.WriteString(w, "digraph triggers {\n"); err != nil {
		return fmt.Errorf("error while writing in file: %w", err)
	}

	fns := make([]*ssa.Function, 0, len(cg.Nodes))
	for fn := range cg.Nodes {
		if included(cfg, fn) && oracle.Marked(fn) {
			fns = append(fns, fn)
		}
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].String() < fns[j].String() })
	for _, fn := range fns {
		attrs := "style=filled"
		if containing[fn] {
			attrs += ", shape=box"
		}
		if _, err := fmt.Fprintf(w, "  %q [%s];\n", fn.String(), attrs); err != nil {
			return fmt.Errorf("error while writing in file: %w", err)
		}
	}

	if err := callgraph.GraphVisitEdges(cg, func(edge *callgraph.Edge) error {
		if !included(cfg, edge.Caller.Func) || !included(cfg, edge.Callee.Func) {
			return nil
		}
		_, err := fmt.Fprintf(w, "  %q -> %q%s;\n",
			edge.Caller.Func.String(), edge.Callee.Func.String(), edgeColor(edge))
		if err != nil {
			return fmt.Errorf("error while writing in file: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}

	if _, err := io.WriteString(w, "}\n"); err != nil {
		return fmt.Errorf("error while writing in file: %w", err)
	}
	return nil
}

// TriggersToFile writes the trigger-annotated call graph to a dot file.
func TriggersToFile(cfg *config.Config, oracle *effects.Oracle, containing map[*ssa.Function]bool,
	cg *callgraph.Graph, filename string) error {

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()
	return WriteTriggerGraphviz(cfg, oracle, containing, cg, w)
}

// OutputSSA writes the SSA form of every package of the program under
// dirName, one .ssa file per package in a folder mirroring its path.
func OutputSSA(p *ssa.Program, dirName string) error {
	allPackages := p.AllPackages()
	if len(allPackages) == 0 {
		return nil
	}
	if err := os.MkdirAll(dirName, 0700); err != nil {
		return fmt.Errorf("could not create directory %s: %w", dirName, err)
	}
	for _, pkg := range allPackages {
		dir, _ := filepath.Split(pkg.Pkg.Path())
		fullDirPath := dirName
		if dir != "" {
			fullDirPath = filepath.Join(fullDirPath, dir)
			if err := os.MkdirAll(fullDirPath, 0700); err != nil {
				return fmt.Errorf("could not create directory %s: %w", fullDirPath, err)
			}
		}
		filename := filepath.Join(fullDirPath, pkg.Pkg.Name()+".ssa")
		if err := packageToFile(p, pkg, filename); err != nil {
			return err
		}
	}
	return nil
}

func writeAnons(b *bytes.Buffer, f *ssa.Function) {
	for _, anon := range f.AnonFuncs {
		ssa.WriteFunction(b, anon)
		writeAnons(b, anon)
	}
}

func packageToFile(p *ssa.Program, pkg *ssa.Package, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	defer w.Flush()

	var b bytes.Buffer
	ssa.WritePackage(&b, pkg)
	for _, member := range pkg.Members {
		switch m := member.(type) {
		case *ssa.Function:
			ssa.WriteFunction(&b, m)
			writeAnons(&b, m)
		case *ssa.Global:
			fmt.Fprintf(&b, "%s\n", m.String())
		case *ssa.Type:
			methods := typeutil.IntuitiveMethodSet(m.Type(), &p.MethodSets)
			for _, sel := range methods {
				if fn := p.MethodValue(sel); fn != nil {
					ssa.WriteFunction(&b, fn)
				}
			}
		}
		if _, err := b.WriteTo(w); err != nil {
			return fmt.Errorf("error while writing in file: %w", err)
		}
		b.Reset()
	}
	return nil
}
