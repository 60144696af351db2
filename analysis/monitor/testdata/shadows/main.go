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

package main

type iter struct {
	xs []int
	i  int
}

func newIter(n int) *iter {
	return &iter{xs: make([]int, n)}
}

func (it *iter) hasNext() bool {
	return it.i < len(it.xs)
}

func (it *iter) next() int {
	v := it.xs[it.i]
	it.i++
	return v
}

// cursor has a next method of its own that realizes no symbol, the receiver
// type differs.
type cursor struct{ i int }

func (c *cursor) next() int {
	c.i++
	return c.i
}

type file struct{ n int }

func openFile() *file {
	return &file{}
}

func writeTo(f *file, n int) {
	f.n = n
}

// same checks and reads one iterator, so both calls observe one binding.
func same(it *iter) int {
	if it.hasNext() {
		return it.next()
	}
	return 0
}

// crossed checks one iterator and reads another, the bindings are provably
// distinct.
func crossed(a *iter, b *iter) int {
	if a.hasNext() {
		return b.next()
	}
	return 0
}

// chained reads from a receiver that never lands in a local.
func chained() int {
	return newIter(1).next()
}

func skipped(it *iter) int {
	return it.next() //tacet:ignore
}

// produce binds f first to the result of openFile, then to the local handed
// to writeTo.
func produce() {
	f := openFile()
	writeTo(f, 1)
}

// spawn discards the opened file, so the ret binding has no operand.
func spawn() {
	go openFile()
}

func advance(c *cursor) int {
	return c.next()
}

func viaPointer(g func() *file) *file {
	return g()
}

func main() {
	total := same(newIter(2)) + crossed(newIter(1), newIter(1)) + chained() + skipped(newIter(1))
	total += advance(&cursor{})
	produce()
	spawn()
	if viaPointer(openFile) != nil {
		println(total)
	}
}
