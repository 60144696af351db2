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

package graphutil

import (
	"sort"
	"strconv"
	"strings"
	"testing"
)

// syntheticGraph builds a CGraph over the ids 0..n-1 with the given edges,
// without an underlying callgraph.
func syntheticGraph(n int, pairs ...[2]int64) CGraph {
	idmap := make(map[int64]CNode, n)
	keys := make([]int64, n)
	edges := make(map[int64]map[int64]bool, n)
	for i := int64(0); i < int64(n); i++ {
		idmap[i] = CNode{}
		keys[i] = i
		edges[i] = map[int64]bool{}
	}
	preds := map[int64]map[int64]bool{}
	for _, p := range pairs {
		edges[p[0]][p[1]] = true
		if preds[p[1]] == nil {
			preds[p[1]] = map[int64]bool{}
		}
		preds[p[1]][p[0]] = true
	}
	return CGraph{order: n, IDMap: idmap, Keys: keys, Edges: edges, Preds: preds}
}

func cycleStrings(cycles [][]int64) []string {
	res := make([]string, len(cycles))
	for i, cycle := range cycles {
		parts := make([]string, len(cycle))
		for j, x := range cycle {
			parts[j] = strconv.Itoa(int(x))
		}
		res[i] = strings.Join(parts, "")
	}
	sort.Strings(res)
	return res
}

func TestFindAllElementaryCycles(t *testing.T) {
	// Two disjoint cycles plus an acyclic tail.
	cg := syntheticGraph(6,
		[2]int64{0, 1}, [2]int64{1, 2}, [2]int64{2, 0},
		[2]int64{3, 4}, [2]int64{4, 3},
		[2]int64{2, 5},
	)
	got := cycleStrings(FindAllElementaryCycles(cg))
	want := []string{"0120", "343"}
	if len(got) != len(want) {
		t.Fatalf("expected %d elementary cycles, found %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cycles = %v, want %v", got, want)
		}
	}
}

func TestFindAllElementaryCyclesOverlapping(t *testing.T) {
	// Two cycles sharing the edge 0->1: 0-1-0 and 0-1-2-0.
	cg := syntheticGraph(3,
		[2]int64{0, 1}, [2]int64{1, 0},
		[2]int64{1, 2}, [2]int64{2, 0},
	)
	got := cycleStrings(FindAllElementaryCycles(cg))
	want := []string{"010", "0120"}
	if len(got) != len(want) {
		t.Fatalf("expected %d elementary cycles, found %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cycles = %v, want %v", got, want)
		}
	}
}

func TestFindAllElementaryCyclesAcyclic(t *testing.T) {
	cg := syntheticGraph(4, [2]int64{0, 1}, [2]int64{1, 2}, [2]int64{1, 3})
	if cycles := FindAllElementaryCycles(cg); len(cycles) != 0 {
		t.Fatalf("acyclic graph should have no elementary cycles, found %v", cycles)
	}
}
