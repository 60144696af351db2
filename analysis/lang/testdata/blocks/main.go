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

import "math"

var global int

type box struct{ n int }

func (b *box) get() int {
	return b.n
}

func branchy(x int) int {
	v := 0
	if x > 0 {
		v = x
	} else {
		v = -x
	}
	return v
}

func loopy(xs []int) int {
	sum := 0
	for i := 0; i < len(xs); i++ {
		sum += xs[i]
	}
	return sum
}

func twoReturns(x int) int {
	if x > 0 {
		return 1
	}
	return 2
}

func copies(x int) int {
	y := x
	z := y
	return z
}

func viaPointer(b *box, v int) {
	b.n = v
	global = v
}

func main() {
	b := &box{n: 1}
	viaPointer(b, 2)
	total := branchy(3) + loopy([]int{1, 2}) + twoReturns(-1) + copies(5) + b.get()
	println(total + int(math.Sqrt(4)))
}
