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

type sensor struct {
	armed bool
}

func (s *sensor) ping() {
	s.armed = !s.armed
}

func (s *sensor) reset() {
	s.armed = false
}

func emit(s *sensor) {
	s.ping()
}

func callsEmit(s *sensor) {
	emit(s)
}

func deep(s *sensor) {
	callsEmit(s)
}

func harmless(s *sensor) {
	s.reset()
}

func fill() []int {
	x := make([]int, 0, 4)
	x = append(x, 1)
	return x
}

type runner interface {
	run()
}

type job struct {
	s *sensor
}

func (j *job) run() {
	emit(j.s)
}

func viaIface(r runner) {
	r.run()
}

func mutual1(s *sensor, n int) {
	if n > 0 {
		mutual2(s, n-1)
	}
}

func mutual2(s *sensor, n int) {
	emit(s)
	mutual1(s, n-1)
}

func main() {
	s := &sensor{}
	deep(s)
	harmless(s)
	fill()
	viaIface(&job{s: s})
	mutual1(s, 3)
}
