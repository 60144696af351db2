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

// Package weave writes instrumented copies of the monitored sources. Shadow
// sites the analysis elided get a marker comment; every other site gets a
// call to the Emit hook of the configured hook package, inserted before the
// statement enclosing the monitored call. A hook therefore runs when its
// statement starts: for a call in a short-circuited operand the hook can
// fire even though the call does not, so the runtime monitor observes a
// superset of the real events at such sites. Loop conditions are the
// exception, they are moved into the loop body so that their hooks run on
// every evaluation.
package weave

import (
	"fmt"
	"go/ast"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/decorator/resolver/guess"
	"github.com/dave/dst/dstutil"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"

	"github.com/tacet-dev/tacet/analysis"
	"github.com/tacet-dev/tacet/analysis/config"
	"github.com/tacet-dev/tacet/analysis/elide"
	"github.com/tacet-dev/tacet/analysis/lang"
	"github.com/tacet-dev/tacet/analysis/monitor"
	"github.com/tacet-dev/tacet/internal/funcutil"
)

// A Report summarizes one weaving run.
type Report struct {
	// Files lists the woven files, as written under the weave directory
	Files []string

	// NumHooks is the number of hook calls inserted
	NumHooks int

	// NumElided is the number of sites marked as elided
	NumElided int
}

// Weave writes instrumented copies of the source files containing shadows to
// the weave directory of the configuration, mirroring the package paths. The
// source tree itself is never modified. Files without shadows are not
// copied.
func Weave(state *analysis.State, registry *monitor.Registry, result *elide.Result) (*Report, error) {
	if state.Config.WeaveDir == "" {
		return nil, fmt.Errorf("weave-dir is not configured")
	}

	byFile := shadowsByFile(registry)
	report := &Report{}
	for _, pkg := range state.Packages {
		if err := weavePackage(state, pkg, byFile, result, report); err != nil {
			return nil, err
		}
	}
	state.Logger.Infof("Wove %d hooks in %d files (%d sites elided).",
		report.NumHooks, len(report.Files), report.NumElided)
	return report, nil
}

// shadowsByFile indexes the registered shadows by the file containing their
// call, ordered by source offset.
func shadowsByFile(registry *monitor.Registry) map[string][]*monitor.Shadow {
	byFile := map[string][]*monitor.Shadow{}
	for _, g := range registry.Groups() {
		for _, sh := range g.Shadows {
			pos := lang.InstrPos(sh.Instr)
			byFile[pos.Filename] = append(byFile[pos.Filename], sh)
		}
	}
	for _, shadows := range byFile {
		sort.Slice(shadows, func(i, j int) bool {
			return lang.InstrPos(shadows[i].Instr).Offset < lang.InstrPos(shadows[j].Instr).Offset
		})
	}
	return byFile
}

func weavePackage(state *analysis.State, pkg *packages.Package, byFile map[string][]*monitor.Shadow,
	result *elide.Result, report *Report) error {

	var dec *decorator.Decorator
	for _, astFile := range pkg.Syntax {
		filename := pkg.Fset.Position(astFile.Pos()).Filename
		shadows := byFile[filename]
		if len(shadows) == 0 {
			continue
		}
		if dec == nil {
			dec = decorator.NewDecoratorFromPackage(pkg)
		}
		dstFile, err := dec.DecorateFile(astFile)
		if err != nil {
			return fmt.Errorf("could not decorate %s: %w", filename, err)
		}

		w := &fileWeaver{
			dec:     dec,
			fset:    pkg.Fset,
			shadows: shadows,
			result:  result,
			hookPkg: state.Config.HookPackage,
			claimed: map[*monitor.Shadow]bool{},
		}
		w.apply(dstFile)
		for _, sh := range shadows {
			if !w.claimed[sh] {
				state.Logger.Warnf("No statement found for %s, the site stays unwoven.", sh)
			}
		}
		if w.edits == 0 {
			continue
		}

		out, err := writeWoven(state.Config, pkg, dstFile, filename)
		if err != nil {
			return err
		}
		report.Files = append(report.Files, out)
		report.NumHooks += w.hooks
		report.NumElided += w.elided
		state.Logger.Debugf("Wove %s to %s (%d hooks, %d sites elided).", filename, out, w.hooks, w.elided)
	}
	return nil
}

// fileWeaver rewrites one decorated file. Shadows are claimed by the
// innermost enclosing statement that sits in a statement list, found by the
// post-order traversal visiting inner statements first.
type fileWeaver struct {
	dec     *decorator.Decorator
	fset    *token.FileSet
	shadows []*monitor.Shadow
	result  *elide.Result
	hookPkg string

	claimed map[*monitor.Shadow]bool
	edits   int
	hooks   int
	elided  int
}

func (w *fileWeaver) apply(f *dst.File) {
	dstutil.Apply(f, nil, func(c *dstutil.Cursor) bool {
		stmt, ok := c.Node().(dst.Stmt)
		if !ok || c.Index() < 0 {
			return true
		}
		w.weaveStmt(c, stmt)
		return true
	})
}

func (w *fileWeaver) weaveStmt(c *dstutil.Cursor, stmt dst.Stmt) {
	start, end, ok := w.sourceRange(stmt)
	if !ok {
		return
	}
	var sites []*monitor.Shadow
	for _, sh := range w.shadows {
		if w.claimed[sh] {
			continue
		}
		off := lang.InstrPos(sh.Instr).Offset
		if off >= start && off < end {
			w.claimed[sh] = true
			sites = append(sites, sh)
		}
	}
	if len(sites) == 0 {
		return
	}

	forStmt, isFor := stmt.(*dst.ForStmt)
	var condSites []*monitor.Shadow
	for _, sh := range sites {
		if w.result.CanElide(sh) {
			stmt.Decorations().Start.Append("// tacet:elided " + sh.Symbol.String())
			w.elided++
			w.edits++
			continue
		}
		if isFor && w.inCond(forStmt, sh) {
			condSites = append(condSites, sh)
			continue
		}
		c.InsertBefore(w.hookStmt(stmt, sh))
		w.hooks++
		w.edits++
	}
	if len(condSites) > 0 {
		w.rewriteForCond(forStmt, condSites)
	}
}

// inCond reports whether the shadow's call sits in the loop condition.
func (w *fileWeaver) inCond(stmt *dst.ForStmt, sh *monitor.Shadow) bool {
	if stmt.Cond == nil {
		return false
	}
	start, end, ok := w.sourceRange(stmt.Cond)
	if !ok {
		return false
	}
	off := lang.InstrPos(sh.Instr).Offset
	return off >= start && off < end
}

// rewriteForCond moves the loop condition into the body so that the hooks of
// the shadows it contains run on every evaluation:
//
//	for cond { body }
//
// becomes
//
//	for { hooks; if !(cond) { break }; body }
//
// The init and post statements of the loop are unaffected.
func (w *fileWeaver) rewriteForCond(stmt *dst.ForStmt, sites []*monitor.Shadow) {
	var inserted []dst.Stmt
	for _, sh := range sites {
		inserted = append(inserted, w.hookStmt(stmt, sh))
		w.hooks++
		w.edits++
	}
	cond := stmt.Cond
	stmt.Cond = nil
	guard := &dst.IfStmt{
		Cond: &dst.UnaryExpr{Op: token.NOT, X: &dst.ParenExpr{X: cond}},
		Body: &dst.BlockStmt{List: []dst.Stmt{&dst.BranchStmt{Tok: token.BREAK}}},
	}
	inserted = append(inserted, guard)
	stmt.Body.List = append(inserted, stmt.Body.List...)
}

// hookStmt builds the statement calling the runtime hook for the shadow:
//
//	rt.Emit("monitor", "symbol", "var", operand, ...)
//
// The bound variables follow the monitor and symbol names in sorted order.
func (w *fileWeaver) hookStmt(root dst.Node, sh *monitor.Shadow) dst.Stmt {
	call := w.findCall(root, sh)
	args := []dst.Expr{
		stringLit(sh.Monitor.Name),
		stringLit(sh.Symbol.Name),
	}
	for _, v := range funcutil.SortedKeys(sh.Symbol.Bind) {
		args = append(args, stringLit(v), operandExpr(call, sh.Symbol.Bind[v]))
	}
	return &dst.ExprStmt{
		X: &dst.CallExpr{
			Fun:  &dst.Ident{Name: "Emit", Path: w.hookPkg},
			Args: args,
		},
	}
}

// findCall locates the source call expression of the shadow within root. A
// plain call is anchored at its opening parenthesis, a go or defer shadow at
// its statement keyword.
func (w *fileWeaver) findCall(root dst.Node, sh *monitor.Shadow) *dst.CallExpr {
	target := lang.InstrPos(sh.Instr).Offset
	_, isGo := sh.Instr.(*ssa.Go)
	_, isDefer := sh.Instr.(*ssa.Defer)
	var found *dst.CallExpr
	dstutil.Apply(root, func(c *dstutil.Cursor) bool {
		if found != nil {
			return false
		}
		switch n := c.Node().(type) {
		case *dst.GoStmt:
			if isGo {
				if a, ok := w.dec.Ast.Nodes[n].(*ast.GoStmt); ok && w.offset(a.Go) == target {
					found = n.Call
					return false
				}
			}
		case *dst.DeferStmt:
			if isDefer {
				if a, ok := w.dec.Ast.Nodes[n].(*ast.DeferStmt); ok && w.offset(a.Defer) == target {
					found = n.Call
					return false
				}
			}
		case *dst.CallExpr:
			if !isGo && !isDefer {
				if a, ok := w.dec.Ast.Nodes[n].(*ast.CallExpr); ok && w.offset(a.Lparen) == target {
					found = n
					return false
				}
			}
		}
		return true
	}, nil)
	return found
}

// sourceRange returns the source offsets covered by the node in the original
// file. Nodes built by the weaver have no source counterpart.
func (w *fileWeaver) sourceRange(n dst.Node) (int, int, bool) {
	astNode, ok := w.dec.Ast.Nodes[n]
	if !ok {
		return 0, 0, false
	}
	return w.offset(astNode.Pos()), w.offset(astNode.End()), true
}

func (w *fileWeaver) offset(p token.Pos) int {
	return w.fset.Position(p).Offset
}

// operandExpr returns the hook argument for one bound variable: a copy of
// the operand when it is a plain identifier at the source level, and nil
// otherwise. Duplicating a compound operand before the statement could run
// its side effects twice, so the runtime is left to treat the binding as
// unknown.
func operandExpr(call *dst.CallExpr, sel string) dst.Expr {
	if call == nil {
		return dst.NewIdent("nil")
	}
	var op dst.Expr
	switch {
	case sel == config.SelectorRecv:
		if s, ok := call.Fun.(*dst.SelectorExpr); ok {
			op = s.X
		}
	case sel == config.SelectorRet:
		// The result does not exist before the call runs.
	default:
		if i, ok := config.ArgSelectorIndex(sel); ok && i < len(call.Args) {
			op = call.Args[i]
		}
	}
	if id, ok := op.(*dst.Ident); ok && id.Path == "" {
		return dst.Clone(id).(dst.Expr)
	}
	return dst.NewIdent("nil")
}

func stringLit(s string) dst.Expr {
	return &dst.BasicLit{Kind: token.STRING, Value: strconv.Quote(s)}
}

// writeWoven prints the restored file under the weave directory, mirroring
// the package path.
func writeWoven(cfg *config.Config, pkg *packages.Package, f *dst.File, filename string) (string, error) {
	dir := filepath.Join(cfg.WeaveDir, filepath.FromSlash(pkg.PkgPath))
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("could not create %s: %w", dir, err)
	}
	out := filepath.Join(dir, filepath.Base(filename))
	file, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("could not create %s: %w", out, err)
	}
	defer file.Close()

	r := decorator.NewRestorerWithImports(pkg.PkgPath, guess.New())
	if err := r.Fprint(file, f); err != nil {
		return "", fmt.Errorf("could not write %s: %w", out, err)
	}
	return out, nil
}
