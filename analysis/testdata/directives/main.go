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

type speaker interface {
	say() string
}

type dog struct{}

func (dog) say() string { return "woof" }

type cat struct{}

func (cat) say() string { return "meow" }

func greet(s speaker) string {
	return s.say()
}

func indirect(f func() string) string {
	return f()
}

func quiet() string {
	return "" //tacet:ignore
}

//tacet:frobnicate
func main() {
	total := 0
	for _, s := range []speaker{dog{}, cat{}} {
		total += len(greet(s))
	}
	total += len(indirect(quiet))
	println(total)
}
