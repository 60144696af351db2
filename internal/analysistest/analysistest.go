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

// Package analysistest provides helpers for loading test programs and reading
// the expected analysis results annotated in their source.
package analysistest

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/tacet-dev/tacet/analysis"
	"github.com/tacet-dev/tacet/analysis/config"
)

// LoadTest loads the program in the directory dir, looking for a main.go and a config.yaml. If additional files
// are specified as extraFiles, the program will be loaded using those files too.
func LoadTest(t *testing.T, dir string, extraFiles []string) (analysis.LoadedProgram, *config.Config) {
	configFile := filepath.Join(dir, "config.yaml")
	config.SetGlobalConfig(configFile)
	files := []string{filepath.Join(dir, "main.go")}
	for _, extraFile := range extraFiles {
		files = append(files, filepath.Join(dir, extraFile))
	}

	prog, err := analysis.LoadProgram(nil, "", analysis.BuilderMode, files)
	if err != nil {
		t.Fatalf("error loading packages: %s", err)
	}
	cfg, err := config.LoadGlobal()
	if err != nil {
		t.Fatalf("error loading global config: %s", err)
	}
	return prog, cfg
}

// Match annotations of the form "@Invariant(Monitor1, Monitor2)"
var InvariantRegex = regexp.MustCompile(`//.*@Invariant\(((?:\s*\w+\s*,?)+)\)`)

// Match annotations of the form "@Monitored(Monitor1, Monitor2)"
var MonitoredRegex = regexp.MustCompile(`//.*@Monitored\(((?:\s*\w+\s*,?)+)\)`)

// Verdicts records the monitors a function is annotated with: the ones the
// analysis is expected to prove invariant, and the ones it must keep
// monitoring at runtime.
type Verdicts struct {
	Invariant map[string]bool
	Monitored map[string]bool
}

// GetExpectedVerdicts parses the Go files under dir and collects the
// @Invariant(M) and @Monitored(M) annotations written in function doc
// comments. The result maps function names to their annotated verdicts.
// Test programs keep function names unique so the name is a usable key.
func GetExpectedVerdicts(dir string) (map[string]Verdicts, error) {
	fset := token.NewFileSet()
	expected := map[string]Verdicts{}

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return err
		}
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if ok && fn.Doc != nil {
				collectVerdicts(expected, fn)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expected, nil
}

func collectVerdicts(expected map[string]Verdicts, fn *ast.FuncDecl) {
	v := Verdicts{Invariant: map[string]bool{}, Monitored: map[string]bool{}}
	for _, c := range fn.Doc.List {
		if a := InvariantRegex.FindStringSubmatch(c.Text); len(a) > 1 {
			for _, monitor := range splitIdents(a[1]) {
				v.Invariant[monitor] = true
			}
		}
		if a := MonitoredRegex.FindStringSubmatch(c.Text); len(a) > 1 {
			for _, monitor := range splitIdents(a[1]) {
				v.Monitored[monitor] = true
			}
		}
	}
	if len(v.Invariant) > 0 || len(v.Monitored) > 0 {
		expected[fn.Name.Name] = v
	}
}

func splitIdents(list string) []string {
	var idents []string
	for _, ident := range strings.Split(list, ",") {
		ident = strings.TrimSpace(ident)
		if ident != "" {
			idents = append(idents, ident)
		}
	}
	return idents
}
