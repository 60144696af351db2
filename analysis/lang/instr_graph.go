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

// Package lang provides functions to operate on the SSA representation of a program:
// an instruction-level view of control flow, and helpers to reason about the local
// variables an instruction defines or copies.
package lang

import (
	"golang.org/x/tools/go/ssa"
)

// An InstrGraph is an instruction-level view of the control flow of one function:
// every instruction has an index, edges connect an instruction to the instructions
// that may execute immediately after it, and Tails collects the exit instructions.
type InstrGraph struct {
	// Fn is the function the graph was built from
	Fn *ssa.Function

	// Instrs lists the instructions of Fn in block order
	Instrs []ssa.Instruction

	// Index maps an instruction to its position in Instrs
	Index map[ssa.Instruction]int

	// Succs[i] lists the indices of the possible successors of Instrs[i]
	Succs [][]int

	// Preds[i] lists the indices of the possible predecessors of Instrs[i]
	Preds [][]int

	// Tails lists the indices of the exit instructions: the last instruction of
	// every block with no successor blocks
	Tails []int
}

// NewInstrGraph builds the instruction graph of fn. For an external function
// without a body the graph has no instructions.
func NewInstrGraph(fn *ssa.Function) *InstrGraph {
	g := &InstrGraph{
		Fn:    fn,
		Index: make(map[ssa.Instruction]int),
	}
	for _, block := range fn.Blocks {
		for _, instr := range block.Instrs {
			g.Index[instr] = len(g.Instrs)
			g.Instrs = append(g.Instrs, instr)
		}
	}
	n := len(g.Instrs)
	g.Succs = make([][]int, n)
	g.Preds = make([][]int, n)

	addEdge := func(from, to int) {
		g.Succs[from] = append(g.Succs[from], to)
		g.Preds[to] = append(g.Preds[to], from)
	}

	for _, block := range fn.Blocks {
		if len(block.Instrs) == 0 {
			// only unreachable blocks are empty
			continue
		}
		for k := 0; k+1 < len(block.Instrs); k++ {
			addEdge(g.Index[block.Instrs[k]], g.Index[block.Instrs[k+1]])
		}
		last := g.Index[LastInstr(block)]
		if len(block.Succs) == 0 {
			g.Tails = append(g.Tails, last)
			continue
		}
		for _, succ := range block.Succs {
			if first := FirstInstr(succ); first != nil {
				addEdge(last, g.Index[first])
			}
		}
	}
	return g
}

// Size returns the number of instructions in the graph.
func (g *InstrGraph) Size() int {
	return len(g.Instrs)
}

// IndexOf returns the index of instr in the graph, and whether it belongs to it.
func (g *InstrGraph) IndexOf(instr ssa.Instruction) (int, bool) {
	i, ok := g.Index[instr]
	return i, ok
}
