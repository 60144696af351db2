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

// Package graphutil adapts the call graphs produced by the analyses to
// existing graph libraries and provides the graph algorithms built on them.
package graphutil

import (
	"sort"

	"golang.org/x/tools/go/callgraph"
	"gonum.org/v1/gonum/graph"
)

// CGraph is an abstraction over a callgraph to work with existing graph libraries. It implements the
// methods to satisfy yourbasic's graph.Iterator and Gonum's graph.Directed.
type CGraph struct {
	// The order of the graph
	order int

	// The original callgraph the CGraph was constructed from
	Graph *callgraph.Graph

	// IDMap maps from node IDs to CNodes
	IDMap map[int64]CNode

	// Keys are all the node IDs, in increasing order
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge from IDMap[x] to IDMap[y]
	Edges map[int64]map[int64]bool

	// Preds is the reverse adjacency matrix: Preds[y][x] iff Edges[x][y]
	Preds map[int64]map[int64]bool
}

// NewCallGraph returns a new CGraph where node ids correspond to the Node.ID of each callgraph node.
func NewCallGraph(cg *callgraph.Graph) CGraph {
	n := len(cg.Nodes)
	idmap := make(map[int64]CNode, n)
	edges := make(map[int64]map[int64]bool, n)
	preds := make(map[int64]map[int64]bool, n)
	keys := make([]int64, 0, n)
	for _, node := range cg.Nodes {
		keys = append(keys, int64(node.ID))
		idmap[int64(node.ID)] = CNode{node}
		if edges[int64(node.ID)] == nil {
			edges[int64(node.ID)] = map[int64]bool{}
		}
		for _, e := range node.Out {
			if e.Callee == nil {
				continue
			}
			edges[int64(node.ID)][int64(e.Callee.ID)] = true
			if preds[int64(e.Callee.ID)] == nil {
				preds[int64(e.Callee.ID)] = map[int64]bool{}
			}
			preds[int64(e.Callee.ID)][int64(node.ID)] = true
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return CGraph{
		order: n,
		Graph: cg,
		IDMap: idmap,
		Edges: edges,
		Preds: preds,
		Keys:  keys,
	}
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges
// that have both the origin and destination nodes in the include nodes are kept in the resulting graph.
// The subgraph's order, Graph and IDMap are the same as in original, meaning that node indices stay
// consistent across subgraphs.
func Subgraph(original CGraph, include []int64) CGraph {
	idmap := make(map[int64]CNode, len(include))
	edges := make(map[int64]map[int64]bool, len(include))
	preds := make(map[int64]map[int64]bool, len(include))
	keys := make([]int64, len(include))

	for j, i := range include {
		keys[j] = i
		idmap[i] = original.IDMap[i]
	}

	for _, i := range include {
		edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if _, ok := idmap[e]; ok {
				edges[i][e] = true
				if preds[e] == nil {
					preds[e] = map[int64]bool{}
				}
				preds[e][i] = true
			}
		}
	}

	return CGraph{
		order: original.Order(),
		Graph: original.Graph,
		IDMap: original.IDMap,
		Edges: edges,
		Preds: preds,
		Keys:  keys,
	}
}

// Order implements the order of the graph.Iterator interface for the CGraph
func (c CGraph) Order() int {
	return c.order
}

// Visit implements the graph.Iterator interface for the CGraph
func (c CGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if _, ok := c.IDMap[int64(v)]; !ok {
		return false
	}
	for w := range c.Edges[int64(v)] {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** Gonum Directed interface implementation **********************

// Node returns the node with the given id, or nil if it does not exist
func (c CGraph) Node(v int64) graph.Node {
	if n, ok := c.IDMap[v]; ok {
		return n
	}
	return nil
}

// Nodes returns the set of nodes in the graph
func (c CGraph) Nodes() graph.Nodes {
	keys := make([]int64, 0, len(c.IDMap))
	for k := range c.IDMap {
		keys = append(keys, k)
	}
	return &NodeSet{nodes: c.IDMap, ids: keys, cur: -1}
}

// From returns the set of nodes reachable from the id by one edge
func (c CGraph) From(id int64) graph.Nodes {
	var keys []int64
	for out := range c.Edges[id] {
		keys = append(keys, out)
	}
	return &NodeSet{nodes: c.IDMap, ids: keys, cur: -1}
}

// To returns the set of nodes that reach the id by one edge
func (c CGraph) To(id int64) graph.Nodes {
	var keys []int64
	for in := range c.Preds[id] {
		keys = append(keys, in)
	}
	return &NodeSet{nodes: c.IDMap, ids: keys, cur: -1}
}

// HasEdgeBetween returns whether an edge exists between the two node identifiers, in either direction
func (c CGraph) HasEdgeBetween(xid, yid int64) bool {
	return c.Edges[xid][yid] || c.Edges[yid][xid]
}

// HasEdgeFromTo returns whether a directed edge exists from xid to yid
func (c CGraph) HasEdgeFromTo(xid, yid int64) bool {
	return c.Edges[xid][yid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (c CGraph) Edge(uid, vid int64) graph.Edge {
	if c.Edges[uid][vid] {
		return CEdge{from: c.IDMap[uid], to: c.IDMap[vid]}
	}
	return nil
}

// *************** Nodes implementation **********************

// CNode is a wrapper around a *callgraph.Node that implements the graph.Node interface
type CNode struct {
	Node *callgraph.Node
}

// ID returns the id of the node
func (n CNode) ID() int64 {
	return int64(n.Node.ID)
}

func (n CNode) String() string {
	if n.Node == nil {
		return ""
	}
	return n.Node.String()
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	// nodes is the set of nodes in the iterator
	nodes map[int64]CNode

	// ids is the set of node ids in the iterator
	ids []int64

	// cur is the index of the current node in ids, -1 before the first call to Next
	cur int
}

// Next moves the iterator to the next node and returns true if such a node exists.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the number of remaining nodes in the set
func (ns *NodeSet) Len() int {
	return len(ns.ids) - ns.cur - 1
}

// Reset returns the iterator to its initial state
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node returns the current node in the set
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	return ns.nodes[ns.ids[ns.cur]]
}

// *************** Edge implementation **********************

// CEdge implements the graph.Edge interface
type CEdge struct {
	from CNode
	to   CNode
}

// From returns the origin of the edge
func (e CEdge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e CEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e CEdge) ReversedEdge() graph.Edge {
	return CEdge{from: e.to, to: e.from}
}
