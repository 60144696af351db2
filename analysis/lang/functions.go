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

package lang

import (
	"go/token"
	"strings"

	"golang.org/x/tools/go/ssa"
)

// IsExternal returns true if function is external (in ssa, when Blocks is nil)
func IsExternal(function *ssa.Function) bool {
	return function.Blocks == nil
}

// IterateInstructions iterates through all the instructions in the function, in block order.
// For an external function without a body it does nothing.
func IterateInstructions(function *ssa.Function, f func(index int, instruction ssa.Instruction)) {
	if function.Blocks == nil {
		return
	}
	for _, block := range function.Blocks {
		for index, instruction := range block.Instrs {
			f(index, instruction)
		}
	}
}

// PackageNameFromFunction returns the best possible package path for a ssa.Function:
// the function's own package if it has one, otherwise the package of the method's
// object, otherwise the package name encoded in the error method's string.
func PackageNameFromFunction(f *ssa.Function) string {
	if f == nil {
		return ""
	}

	pkg := f.Package()
	if pkg != nil {
		return pkg.Pkg.Path()
	}

	// this is a method, so need to get its Object first
	if f.Object() != nil {
		obj := f.Object().Pkg()
		if obj != nil {
			return obj.Path()
		}

		name := packageFromErrorName(f.String())
		if name != "" {
			return name
		}
	}

	return ""
}

// packageFromErrorName extracts the package path from strings like
// (*net/http.requestBodyReadError).Error produced for synthetic error methods.
func packageFromErrorName(name string) string {
	if !strings.HasSuffix(name, ").Error") {
		return ""
	}
	name = name[:len(name)-7]
	if !strings.HasPrefix(name, "(") {
		return ""
	}
	name = name[1:]
	if strings.HasPrefix(name, "*") {
		name = name[1:]
	}
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return name[:i]
}

// DummyPos is a dummy position returned to indicate that no position could be found.
var DummyPos = token.Position{
	Filename: "unknown",
	Offset:   -1,
	Line:     -1,
	Column:   -1,
}

// SafeFunctionPos returns the position of the function, and false when the program
// has no position information for it.
func SafeFunctionPos(function *ssa.Function) (token.Position, bool) {
	if function.Prog != nil && function.Prog.Fset != nil {
		return function.Prog.Fset.Position(function.Pos()), true
	}
	return DummyPos, false
}
