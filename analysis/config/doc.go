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

/*
Package config provides the configuration file format of the tool and the
loggers configured by it.

Use [Load](filename) to load a configuration from a specific filename.

Use [SetGlobalConfig](filename) to set filename as the global config, and then
[LoadGlobal]() to load the global config.

A config file is a yaml file. The top-level fields can be any of the fields
defined in the [Config] struct type; the monitored properties are listed under
the monitors field. For example, a valid config file is as follows:

	options:
	  log-level: 3
	  callgraph: vta

	monitors:
	  - name: HasNext
	    vars: [i]
	    states:
	      - {name: start, initial: true}
	      - {name: ready}
	      - {name: fail, final: true}
	    transitions:
	      - {from: start, on: hasnext, to: ready}
	      - {from: ready, on: next, to: start}
	      - {from: start, on: next, to: fail}
	    symbols:
	      - name: hasnext
	        call: {method: HasNext, receiver: Iterator}
	        bind: {i: recv}
	      - name: next
	        call: {method: Next, receiver: Iterator}
	        bind: {i: recv}

# Identifying code elements

The observable events of a monitor (its symbols) name code entities through a
[CodeIdentifier], which identifies specific functions in specific packages, or
methods of specific receiver types. The string specifications are seen as
regexes if they can be compiled to regexes, otherwise they are matched as
plain strings.

# Binding selectors

The bind field of a symbol maps each property variable of the monitor to an
operand of the matched call: "recv" for the receiver, "argN" for the N-th
argument (zero-based, receiver excluded), and "ret" for the call result.
*/
package config
