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
	"github.com/tacet-dev/tacet/analysis/config"
	"github.com/tacet-dev/tacet/internal/analysisutil"
	"golang.org/x/tools/go/ssa"
)

// A Symbol is an observable event of a monitor: a call matcher identifying the
// code elements realizing the event, and the binding of property variables to
// call operands.
type Symbol struct {
	// Name identifies the symbol within its monitor
	Name string

	// Call identifies the called code element realizing this symbol
	Call config.CodeIdentifier

	// Bind maps each property variable to an operand selector (recv, ret, argN)
	Bind map[string]string

	monitor *Monitor
}

func newSymbol(m *Monitor, spec config.SymbolSpec) *Symbol {
	return &Symbol{
		Name:    spec.Name,
		Call:    spec.Call,
		Bind:    spec.Bind,
		monitor: m,
	}
}

// Monitor returns the monitor declaring this symbol.
func (s *Symbol) Monitor() *Monitor {
	return s.monitor
}

func (s *Symbol) String() string {
	return s.monitor.Name + "." + s.Name
}

// MatchesCall reports whether the call realizes this symbol. Calls whose callee
// cannot be identified (dynamic closure calls) match no symbol; whether they may
// still trigger an event is the side-effect oracle's concern.
func (s *Symbol) MatchesCall(instr ssa.CallInstruction) bool {
	cid, ok := calleeIdentifier(instr.Common())
	if !ok {
		return false
	}
	return cid.MatchesOnNonEmptyFields(s.Call)
}

// BoundValues resolves the variable bindings of this symbol at the call site.
// The result maps each property variable to the operand value bound to it.
// Variables whose selector has no operand at this site (a ret binding on a go
// or defer, an argument index past the end) are absent from the map.
func (s *Symbol) BoundValues(instr ssa.CallInstruction) map[string]ssa.Value {
	bound := map[string]ssa.Value{}
	common := instr.Common()
	for v, sel := range s.Bind {
		switch {
		case sel == config.SelectorRecv:
			if recv := receiverValue(common); recv != nil {
				bound[v] = recv
			}
		case sel == config.SelectorRet:
			if val, ok := instr.(ssa.Value); ok {
				bound[v] = val
			}
		default:
			if i, ok := config.ArgSelectorIndex(sel); ok {
				args := plainArgs(common)
				if i < len(args) {
					bound[v] = args[i]
				}
			}
		}
	}
	return bound
}

// receiverValue returns the receiver operand of a method call, or nil for a
// plain function call.
func receiverValue(common *ssa.CallCommon) ssa.Value {
	if common.IsInvoke() {
		return common.Value
	}
	if callee := common.StaticCallee(); callee != nil && callee.Signature.Recv() != nil {
		if len(common.Args) > 0 {
			return common.Args[0]
		}
	}
	return nil
}

// plainArgs returns the non-receiver arguments of the call.
func plainArgs(common *ssa.CallCommon) []ssa.Value {
	if common.IsInvoke() {
		return common.Args
	}
	if callee := common.StaticCallee(); callee != nil && callee.Signature.Recv() != nil {
		return common.Args[1:]
	}
	return common.Args
}

// calleeIdentifier builds the code identifier of the call's callee: the package
// declaring it, the method or function name, and the receiver type name for
// method calls.
func calleeIdentifier(common *ssa.CallCommon) (config.CodeIdentifier, bool) {
	if common.IsInvoke() {
		pkg, ok := analysisutil.CalleePackage(common)
		if !ok {
			return config.CodeIdentifier{}, false
		}
		receiver := ""
		if _, name, err := analysisutil.FindTypePackage(common.Value.Type()); err == nil {
			receiver = name
		}
		return config.CodeIdentifier{Package: pkg, Method: common.Method.Name(), Receiver: receiver}, true
	}

	callee := common.StaticCallee()
	if callee == nil {
		return config.CodeIdentifier{}, false
	}
	pkg, ok := analysisutil.CalleePackage(common)
	if !ok {
		return config.CodeIdentifier{}, false
	}
	receiver := ""
	if recv := callee.Signature.Recv(); recv != nil {
		if _, name, err := analysisutil.FindTypePackage(recv.Type()); err == nil {
			receiver = name
		}
	}
	return config.CodeIdentifier{Package: pkg, Method: callee.Name(), Receiver: receiver}, true
}
