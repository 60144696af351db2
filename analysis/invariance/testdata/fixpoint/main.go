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

type probe struct {
	n int
}

func (p *probe) hit() bool {
	p.n++
	return p.n < 3
}

func (p *probe) miss() {
	p.n--
}

type source struct {
	p *probe
}

func newProbe() *probe {
	return &probe{}
}

func straight() {
	p := newProbe()
	p.hit()
}

func loop() {
	p := newProbe()
	for i := 0; i < 10; i++ {
		p.hit()
	}
}

func diamond(b bool) {
	p := newProbe()
	p.hit()
	if b {
		p.hit()
	} else {
		p.miss()
	}
}

func touch() {
	p := newProbe()
	p.hit()
	p.hit()
}

func rebind() {
	p := newProbe()
	p.hit()
	p = newProbe()
	p.hit()
}

func fromField(s *source) {
	s.p.hit()
}

func main() {
	straight()
	loop()
	diamond(true)
	touch()
	rebind()
	fromField(&source{p: newProbe()})
}
