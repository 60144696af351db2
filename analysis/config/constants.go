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

package config

const (
	// DefaultCallgraphMode is the callgraph construction algorithm used when the
	// config file does not specify one
	DefaultCallgraphMode = "vta"

	// DefaultMaxStates is the default limit on the number of states a single monitor
	// may declare. 0 or a negative value means the limit is ignored.
	DefaultMaxStates = 0

	// DefaultHookPackage is the package the weaver imports for the runtime hooks when
	// the config file does not specify one
	DefaultHookPackage = "github.com/tacet-dev/tacet/rt"

	// SelectorRecv binds a property variable to the receiver of the matched call
	SelectorRecv = "recv"

	// SelectorRet binds a property variable to the result of the matched call
	SelectorRet = "ret"

	// SelectorArgPrefix prefixes the zero-based index of a call argument in a binding selector
	SelectorArgPrefix = "arg"
)
