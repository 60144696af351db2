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

package analysis

import (
	"errors"
	"go/ast"
	"go/token"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tacet-dev/tacet/analysis/config"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

func loadDirectivesProgram(t *testing.T) LoadedProgram {
	t.Helper()
	files := []string{filepath.Join("testdata", "directives", "main.go")}
	prog, err := LoadProgram(nil, "", BuilderMode, files)
	if err != nil {
		t.Fatalf("error loading packages: %s", err)
	}
	return prog
}

func fnNamed(t *testing.T, prog *ssa.Program, name string) *ssa.Function {
	t.Helper()
	for fn := range ssautil.AllFunctions(prog) {
		if fn.Name() == name && fn.Synthetic == "" {
			return fn
		}
	}
	t.Fatalf("no function named %s in the loaded program", name)
	return nil
}

func callIn(t *testing.T, fn *ssa.Function, pred func(ssa.CallInstruction) bool) ssa.CallInstruction {
	t.Helper()
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if call, ok := instr.(ssa.CallInstruction); ok && pred(call) {
				return call
			}
		}
	}
	t.Fatalf("no matching call in %s", fn.Name())
	return nil
}

func TestLoadProgramBuildsSSA(t *testing.T) {
	prog := loadDirectivesProgram(t)
	if len(prog.Packages) != 1 || prog.Packages[0].PkgPath != "command-line-arguments" {
		t.Fatalf("expected the single ad-hoc package, got %v", prog.Packages)
	}
	pkgs := AllPackages(ssautil.AllFunctions(prog.Program))
	if len(pkgs) != 1 || pkgs[0].Pkg.Path() != "command-line-arguments" {
		t.Errorf("expected all functions to belong to one package, got %v", pkgs)
	}
	fnNamed(t, prog.Program, "main")

	stats := SSAStatistics(ssautil.AllFunctions(prog.Program))
	if stats.NumberOfFunctions < 5 || stats.NumberOfNonemptyFunctions > stats.NumberOfFunctions {
		t.Errorf("unexpected function counts %+v", stats)
	}
	if stats.NumberOfBlocks < stats.NumberOfNonemptyFunctions || stats.NumberOfInstructions < stats.NumberOfBlocks {
		t.Errorf("unexpected block and instruction counts %+v", stats)
	}
}

func TestDirectivesAreCollected(t *testing.T) {
	prog := loadDirectivesProgram(t)
	if len(prog.Directives) != 1 {
		t.Fatalf("expected one directive, got %v", prog.Directives)
	}
	for pos, d := range prog.Directives {
		if d.Kind != DirectiveIgnore || d.Comment.Text != "//tacet:ignore" {
			t.Errorf("unexpected directive %v at %v", d, pos)
		}
		if !strings.HasSuffix(pos.Filename, "main.go") {
			t.Errorf("unexpected directive position %v", pos)
		}
		if !prog.Directives.Ignores(token.Position{Filename: pos.Filename, Line: pos.Line}) {
			t.Errorf("expected the annotated line to be ignored")
		}
		if prog.Directives.Ignores(token.Position{Filename: pos.Filename, Line: pos.Line + 1}) {
			t.Errorf("the next line carries no directive")
		}
	}
	if prog.Directives.Ignores(token.Position{}) {
		t.Errorf("an invalid position is never ignored")
	}
}

func TestNewDirective(t *testing.T) {
	if d, ok := NewDirective(&ast.Comment{Text: "//tacet:ignore"}); !ok || d.Kind != DirectiveIgnore {
		t.Errorf("expected an ignore directive, got %v", d)
	}
	if _, ok := NewDirective(&ast.Comment{Text: "//tacet:frobnicate"}); ok {
		t.Errorf("an unknown directive kind should not parse")
	}
	if _, ok := NewDirective(&ast.Comment{Text: "// a plain comment"}); ok {
		t.Errorf("a plain comment should not parse")
	}
}

func TestCallgraphMode(t *testing.T) {
	modes := map[string]CallgraphAnalysisMode{
		"":        VariableTypeAnalysis,
		"vta":     VariableTypeAnalysis,
		"static":  StaticAnalysis,
		"cha":     ClassHierarchyAnalysis,
		"rta":     RapidTypeAnalysis,
		"pointer": PointerAnalysis,
	}
	for name, want := range modes {
		got, err := CallgraphMode(name)
		if err != nil || got != want {
			t.Errorf("CallgraphMode(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := CallgraphMode("bogus"); err == nil {
		t.Errorf("expected an error for an unknown mode")
	}
}

func TestResolveStaticCallee(t *testing.T) {
	prog := loadDirectivesProgram(t)
	cfg := config.NewDefault()
	state := NewState(prog, config.NewLogGroup(cfg), cfg)

	static := callIn(t, fnNamed(t, prog.Program, "main"), func(c ssa.CallInstruction) bool {
		callee := c.Common().StaticCallee()
		return callee != nil && callee.Name() == "greet"
	})
	callees, err := state.ResolveCallee(static)
	if err != nil || len(callees) != 1 || callees[0].Name() != "greet" {
		t.Errorf("expected the static callee greet, got %v, %v", callees, err)
	}

	invoke := callIn(t, fnNamed(t, prog.Program, "greet"), func(c ssa.CallInstruction) bool {
		return c.Common().IsInvoke()
	})
	if _, err := state.ResolveCallee(invoke); err == nil {
		t.Errorf("expected an error resolving an invoke without a call graph")
	}
}

func TestResolveCalleeWithCallgraph(t *testing.T) {
	prog := loadDirectivesProgram(t)
	cfg := config.NewDefault()
	state := NewState(prog, config.NewLogGroup(cfg), cfg)
	if err := state.PopulateCallgraph(); err != nil {
		t.Fatalf("could not build the call graph: %v", err)
	}

	invoke := callIn(t, fnNamed(t, prog.Program, "greet"), func(c ssa.CallInstruction) bool {
		return c.Common().IsInvoke()
	})
	callees, err := state.ResolveCallee(invoke)
	if err != nil {
		t.Fatalf("could not resolve the invoke: %v", err)
	}
	recvs := map[string]bool{}
	for _, callee := range callees {
		if callee.Name() != "say" {
			t.Errorf("unexpected callee %s", callee)
		}
		if recv := callee.Signature.Recv(); recv != nil {
			recvs[recv.Type().String()] = true
		}
	}
	if len(recvs) < 2 {
		t.Errorf("expected say on both dog and cat, got %v", recvs)
	}

	dynamic := callIn(t, fnNamed(t, prog.Program, "indirect"), func(c ssa.CallInstruction) bool {
		return !c.Common().IsInvoke() && c.Common().StaticCallee() == nil
	})
	callees, err = state.ResolveCallee(dynamic)
	if err != nil || len(callees) != 1 || callees[0].Name() != "quiet" {
		t.Errorf("expected the dynamic call to resolve to quiet, got %v, %v", callees, err)
	}
}

func TestResolveCalleeWithImplementations(t *testing.T) {
	prog := loadDirectivesProgram(t)
	cfg := config.NewDefault()
	cfg.Callgraph = "static"
	state := NewState(prog, config.NewLogGroup(cfg), cfg)
	if err := state.PopulateCallgraph(); err != nil {
		t.Fatalf("could not build the call graph: %v", err)
	}
	state.PopulateImplementations()
	if state.Size() == 0 {
		t.Fatalf("expected method implementations to be indexed")
	}

	// The static graph has no edge for the invoke, so resolution falls back to
	// the implementation index.
	invoke := callIn(t, fnNamed(t, prog.Program, "greet"), func(c ssa.CallInstruction) bool {
		return c.Common().IsInvoke()
	})
	callees, err := state.ResolveCallee(invoke)
	if err != nil || len(callees) < 2 {
		t.Fatalf("expected at least the two implementations of say, got %v, %v", callees, err)
	}
	for _, callee := range callees {
		if callee.Name() != "say" {
			t.Errorf("unexpected callee %s", callee)
		}
	}
}

func TestStateErrors(t *testing.T) {
	state := &State{errors: map[error]bool{}}
	state.AddError(nil)
	if err := state.CheckError(); err != nil {
		t.Errorf("expected no stored error, got %v", err)
	}
	stored := errors.New("callee index out of date")
	state.AddError(stored)
	if err := state.CheckError(); !errors.Is(err, stored) {
		t.Errorf("expected the stored error, got %v", err)
	}
	if err := state.CheckError(); err != nil {
		t.Errorf("expected the error to be consumed, got %v", err)
	}
}
