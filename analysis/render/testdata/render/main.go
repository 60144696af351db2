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
	armed bool
}

func newProbe() *probe {
	return &probe{armed: true}
}

func (p *probe) fire() int {
	if p.armed {
		return 1
	}
	return 0
}

func trigger(p *probe) int {
	return p.fire()
}

func relay(p *probe) int {
	return trigger(p)
}

func spawn(p *probe) {
	go trigger(p)
}

func quiet() int {
	return 2
}

func main() {
	p := newProbe()
	spawn(p)
	println(relay(p) + quiet())
}
