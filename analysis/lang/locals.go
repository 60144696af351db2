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

	"golang.org/x/tools/go/ssa"
)

// The local variables of a function are its parameters, the variables captured
// from an enclosing function, its allocation slots, and the SSA registers of its
// body. A register defined by loading an allocation slot denotes the same source
// variable as the slot, so both resolve to the slot.

// localSlot returns v when it is an addressable local variable, i.e. an
// allocation slot or a captured variable, and nil otherwise.
func localSlot(v ssa.Value) ssa.Value {
	switch v.(type) {
	case *ssa.Alloc, *ssa.FreeVar:
		return v
	}
	return nil
}

// AsLocal returns the plain local variable denoted by v: a parameter, an
// allocation slot, a captured variable, or a load of one of those. Returns nil
// when v does not denote a plain local (a constant, a global, a field read, a
// call result, ...).
func AsLocal(v ssa.Value) ssa.Value {
	switch v := v.(type) {
	case *ssa.Parameter:
		return v
	case *ssa.Alloc, *ssa.FreeVar:
		return v
	case *ssa.UnOp:
		if v.Op == token.MUL {
			return localSlot(v.X)
		}
	}
	return nil
}

// BaseLocal resolves v to the local slot it denotes when v is a plain local or a
// load of one, and to v itself otherwise. Two values with the same base local
// denote the same source variable.
func BaseLocal(v ssa.Value) ssa.Value {
	if l := AsLocal(v); l != nil {
		return l
	}
	return v
}

// DefsOf returns the local variables defined by instr: the stored-to slot of a
// store, and the register of a value instruction. An instruction that writes
// only through pointers, fields or globals defines no local.
func DefsOf(instr ssa.Instruction) []ssa.Value {
	if store, ok := instr.(*ssa.Store); ok {
		if slot := localSlot(store.Addr); slot != nil {
			return []ssa.Value{slot}
		}
		return nil
	}
	if v, ok := instr.(ssa.Value); ok {
		return []ssa.Value{v}
	}
	return nil
}

// IsLocalValue reports whether v is local to its enclosing function: a
// parameter, a local slot, or the register of an instruction. Constants,
// globals and function values are not local.
func IsLocalValue(v ssa.Value) bool {
	switch v.(type) {
	case *ssa.Parameter, *ssa.Alloc, *ssa.FreeVar:
		return true
	case *ssa.Const, *ssa.Global, *ssa.Function, *ssa.Builtin:
		return false
	}
	_, ok := v.(ssa.Instruction)
	return ok
}

// LocalCopy reports whether instr assigns one plain local to another: a store of
// a plain local into a local slot, or a register defined by loading a local slot.
// It returns the defined local and the copied local.
func LocalCopy(instr ssa.Instruction) (lhs ssa.Value, rhs ssa.Value, ok bool) {
	switch instr := instr.(type) {
	case *ssa.Store:
		if slot := localSlot(instr.Addr); slot != nil {
			if r := AsLocal(instr.Val); r != nil {
				return slot, r, true
			}
		}
	case *ssa.UnOp:
		if instr.Op == token.MUL {
			if slot := localSlot(instr.X); slot != nil {
				return instr, slot, true
			}
		}
	}
	return nil, nil, false
}
