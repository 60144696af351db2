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

package weave_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tacet-dev/tacet/analysis"
	"github.com/tacet-dev/tacet/analysis/config"
	"github.com/tacet-dev/tacet/analysis/elide"
	"github.com/tacet-dev/tacet/analysis/monitor"
	"github.com/tacet-dev/tacet/analysis/weave"
	"github.com/tacet-dev/tacet/internal/analysistest"
)

func weaveIterator(t *testing.T, weaveDir string) (*weave.Report, error) {
	prog, cfg := analysistest.LoadTest(t, filepath.Join("testdata", "weave"), nil)
	cfg.WeaveDir = weaveDir
	state := analysis.NewState(prog, config.NewLogGroup(cfg), cfg)
	if err := state.PopulateCallgraph(); err != nil {
		t.Fatalf("could not build the call graph: %v", err)
	}
	registry, err := monitor.NewRegistry(state)
	if err != nil {
		t.Fatalf("could not build the registry: %v", err)
	}
	result, err := elide.Run(state, registry, 1)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return weave.Weave(state, registry, result)
}

func TestWeaveInsertsHooksAndMarkers(t *testing.T) {
	report, err := weaveIterator(t, t.TempDir())
	if err != nil {
		t.Fatalf("weaving failed: %v", err)
	}
	if len(report.Files) != 1 {
		t.Fatalf("expected 1 woven file, got %v", report.Files)
	}
	if report.NumHooks != 3 || report.NumElided != 2 {
		t.Errorf("expected 3 hooks and 2 elided sites, got %d and %d", report.NumHooks, report.NumElided)
	}

	b, err := os.ReadFile(report.Files[0])
	if err != nil {
		t.Fatalf("could not read the woven file: %v", err)
	}
	woven := string(b)

	for _, want := range []string{
		`"github.com/tacet-dev/tacet/rt"`,
		`rt.Emit("hasnext", "hasNext", "i", it)`,
		`rt.Emit("hasnext", "next", "i", it)`,
		"// tacet:elided hasnext.hasNext",
		"// tacet:elided hasnext.next",
		"if !(it.hasNext())",
	} {
		if !strings.Contains(woven, want) {
			t.Errorf("woven file does not contain %q:\n%s", want, woven)
		}
	}
	// The safe loop keeps its condition, only the demoted one is unrolled.
	if got := strings.Count(woven, "if !(it.hasNext())"); got != 1 {
		t.Errorf("expected exactly 1 rewritten loop condition, got %d", got)
	}
}

func TestWovenFileParses(t *testing.T) {
	report, err := weaveIterator(t, t.TempDir())
	if err != nil {
		t.Fatalf("weaving failed: %v", err)
	}
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, report.Files[0], nil, parser.ParseComments); err != nil {
		t.Errorf("woven file does not parse: %v", err)
	}
}

func TestWeaveLeavesSourcesAlone(t *testing.T) {
	if _, err := weaveIterator(t, t.TempDir()); err != nil {
		t.Fatalf("weaving failed: %v", err)
	}
	b, err := os.ReadFile(filepath.Join("testdata", "weave", "main.go"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "rt.Emit") || strings.Contains(string(b), "tacet:elided") {
		t.Errorf("the source under testdata was modified")
	}
}

func TestWeaveRequiresWeaveDir(t *testing.T) {
	if _, err := weaveIterator(t, ""); err == nil {
		t.Errorf("expected an error without a weave directory")
	}
}
