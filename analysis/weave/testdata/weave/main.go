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

// drain checks before every read, so all of its sites can be elided.
func drain(it *iter) int {
	sum := 0
	for it.hasNext() {
		sum += it.next()
	}
	return sum
}

// gulp reads twice per check, so all of its sites keep their hooks.
func gulp(it *iter) int {
	sum := 0
	for it.hasNext() {
		sum += it.next()
		sum += it.next()
	}
	return sum
}

func main() {
	println(drain(newIter(3)) + gulp(newIter(4)))
}
