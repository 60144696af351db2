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

// A Condensation is the quotient of a directed graph by its strongly connected
// components: one node per component, one edge per pair of distinct components
// connected by at least one edge of the original graph. The condensation of any
// graph is acyclic.
type Condensation struct {
	// Comps lists the original node ids of each component.
	Comps [][]int64

	// CompOf maps an original node id to the index of its component in Comps.
	CompOf map[int64]int

	// Succs[i] lists the components with an edge from component i, excluding i itself.
	Succs [][]int

	// Preds[i] lists the components with an edge into component i, excluding i itself.
	Preds [][]int
}

// Condense builds the condensation of a graph from its strongly connected
// components and its edge relation. comps must partition the node ids appearing
// in edges; edges inside a component are dropped.
func Condense(comps [][]int64, edges map[int64]map[int64]bool) *Condensation {
	c := &Condensation{
		Comps:  comps,
		CompOf: make(map[int64]int),
		Succs:  make([][]int, len(comps)),
		Preds:  make([][]int, len(comps)),
	}
	for i, comp := range comps {
		for _, id := range comp {
			c.CompOf[id] = i
		}
	}
	seen := make(map[[2]int]bool)
	for from, tos := range edges {
		i, ok := c.CompOf[from]
		if !ok {
			continue
		}
		for to := range tos {
			j, ok := c.CompOf[to]
			if !ok || i == j || seen[[2]int{i, j}] {
				continue
			}
			seen[[2]int{i, j}] = true
			c.Succs[i] = append(c.Succs[i], j)
			c.Preds[j] = append(c.Preds[j], i)
		}
	}
	return c
}

// PropagateBackwards computes the set of components from which some component
// in seeds is reachable, following the edges of the condensation backwards.
// The seeds themselves are part of the result.
func (c *Condensation) PropagateBackwards(seeds []int) map[int]bool {
	reached := make(map[int]bool, len(seeds))
	queue := make([]int, 0, len(seeds))
	for _, s := range seeds {
		if s < 0 || s >= len(c.Comps) || reached[s] {
			continue
		}
		reached[s] = true
		queue = append(queue, s)
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, p := range c.Preds[i] {
			if !reached[p] {
				reached[p] = true
				queue = append(queue, p)
			}
		}
	}
	return reached
}
