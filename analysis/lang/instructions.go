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
	"fmt"
	"go/token"

	"github.com/tacet-dev/tacet/internal/analysisutil"
	"golang.org/x/tools/go/ssa"
)

// LastInstr returns the last instruction in a block. There is always a last instruction for a reachable block.
// Returns nil for an empty block (a block can be empty if it is non-reachable)
func LastInstr(block *ssa.BasicBlock) ssa.Instruction {
	if len(block.Instrs) == 0 {
		return nil
	}
	return block.Instrs[len(block.Instrs)-1]
}

// FirstInstr returns the first instruction in a block. There is always a first instruction for a reachable block.
// Returns nil for an empty block (a block can be empty if it is non-reachable)
func FirstInstr(block *ssa.BasicBlock) ssa.Instruction {
	if len(block.Instrs) == 0 {
		return nil
	}
	return block.Instrs[0]
}

// GetArgs returns the arguments of a function call including the receiver when the function called is a method.
// More precisely, it returns instr.Common().Args, but prepends instr.Common().Value if the call is "invoke" mode.
func GetArgs(instr ssa.CallInstruction) []ssa.Value {
	var args []ssa.Value
	if instr.Common().IsInvoke() {
		args = append(args, instr.Common().Value)
	}
	args = append(args, instr.Common().Args...)
	return args
}

// FmtInstr returns a string formatting instr to show the instruction type and operands.
// This is used mostly for debugging.
func FmtInstr(instr ssa.Instruction) string {
	switch instr := instr.(type) {
	case *ssa.Store:
		return fmt.Sprintf("[*%v = %v (%T)]", instr.Addr.Name(), instr.Val.Name(), instr)
	case *ssa.UnOp:
		return fmt.Sprintf("[%v = %v%v (%T)]", instr.Name(), instr.Op, instr.X.Name(), instr)
	case *ssa.FieldAddr:
		return fmt.Sprintf("[%v = &%v.%s (%T)]", instr.Name(), instr.X.Name(), analysisutil.FieldAddrFieldName(instr), instr)
	case *ssa.Field:
		return fmt.Sprintf("[%v = %v.%s (%T)]", instr.Name(), instr.X.Name(), analysisutil.FieldFieldName(instr), instr)
	default:
		return fmt.Sprintf("[%v (%T)]", instr, instr)
	}
}

// InstrPos returns the source position of instr, or a dummy position when the
// program has no position information for it.
func InstrPos(instr ssa.Instruction) token.Position {
	if instr.Parent() != nil && instr.Parent().Prog != nil && instr.Parent().Prog.Fset != nil {
		return instr.Parent().Prog.Fset.Position(instr.Pos())
	}
	return DummyPos
}
