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

// safeIterate drains the iterator, checking before every read.
//
// @Invariant(hasnext)
func safeIterate(it *iter) int {
	sum := 0
	for it.hasNext() {
		sum += it.next()
	}
	return sum
}

// unsafeSkip reads twice in a row without a check in between.
//
// @Monitored(hasnext)
func unsafeSkip(it *iter) int {
	return it.next() + it.next()
}

// checkedOnce checks and reads at most once, but exits right after the read,
// so a later read in the caller would go unchecked.
//
// @Monitored(hasnext)
func checkedOnce(it *iter) int {
	if it.hasNext() {
		return it.next()
	}
	return 0
}

// rebinds points it at another iterator while it is being monitored.
//
// @Monitored(hasnext)
func rebinds(it *iter, other *iter) bool {
	ok := it.hasNext()
	it = other
	return ok && it.hasNext()
}

// callsHelper hands the iterator to a function that reads from it.
//
// @Monitored(hasnext)
func callsHelper(it *iter) int {
	if it.hasNext() {
		return helper(it)
	}
	return 0
}

// @Monitored(hasnext)
func helper(it *iter) int {
	return it.next()
}

// twoIterators checks one iterator and reads from another. The check keeps
// its own hook only because the bindings are provably distinct.
//
// @Monitored(hasnext)
func twoIterators(a *iter, b *iter) int {
	if a.hasNext() {
		return b.next()
	}
	return 0
}

func ignored(it *iter) int {
	return it.next() //tacet:ignore
}

func main() {
	a := newIter(3)
	b := newIter(2)
	total := safeIterate(a)
	total += unsafeSkip(newIter(2))
	total += checkedOnce(b)
	if rebinds(a, b) {
		total += callsHelper(newIter(1))
	}
	total += helper(newIter(1))
	total += twoIterators(newIter(1), newIter(1))
	total += ignored(newIter(1))
	println(total)
}
