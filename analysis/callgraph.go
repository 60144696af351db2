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

package analysis

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/callgraph/rta"
	"golang.org/x/tools/go/callgraph/static"
	"golang.org/x/tools/go/callgraph/vta"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// CallgraphAnalysisMode selects the algorithm used to build the program call graph.
type CallgraphAnalysisMode uint64

const (
	PointerAnalysis        CallgraphAnalysisMode = iota // PointerAnalysis is over-approximating (slow)
	StaticAnalysis                                      // StaticAnalysis is under-approximating (fast)
	ClassHierarchyAnalysis                              // ClassHierarchyAnalysis is a coarse over-approximation (fast)
	RapidTypeAnalysis                                   // RapidTypeAnalysis requires a main package
	VariableTypeAnalysis                                // VariableTypeAnalysis is the default mode
)

// CallgraphMode parses name into a CallgraphAnalysisMode. Valid names are
// "pointer", "static", "cha", "rta" and "vta". The empty string selects the
// default mode, vta.
func CallgraphMode(name string) (CallgraphAnalysisMode, error) {
	switch name {
	case "pointer":
		return PointerAnalysis, nil
	case "static":
		return StaticAnalysis, nil
	case "cha":
		return ClassHierarchyAnalysis, nil
	case "rta":
		return RapidTypeAnalysis, nil
	case "", "vta":
		return VariableTypeAnalysis, nil
	default:
		return VariableTypeAnalysis, fmt.Errorf("unknown callgraph mode %q", name)
	}
}

// ComputeCallgraph computes the call graph of prog using the provided mode.
func (mode CallgraphAnalysisMode) ComputeCallgraph(prog *ssa.Program) (*callgraph.Graph, error) {
	switch mode {
	case PointerAnalysis:
		// Build the callgraph using the pointer analysis. This function returns only the
		// callgraph, and not the entire pointer analysis result.
		// Pointer analysis is using Andersen's analysis. The documentation claims that
		// the analysis is sound if the program does not use reflection or unsafe Go.
		result, err := DoPointerAnalysis(prog, func(_ *ssa.Function) bool { return false }, true)
		if err != nil {
			return nil, fmt.Errorf("pointer analysis failed: %w", err)
		}
		return result.CallGraph, nil
	case StaticAnalysis:
		// Build the callgraph using only static analysis.
		return static.CallGraph(prog), nil
	case ClassHierarchyAnalysis:
		// Build the callgraph using the Class Hierarchy Analysis
		// See the documentation, and
		// "Optimization of Object-Oriented Programs Using Static Class Hierarchy Analysis",
		// J. Dean, D. Grove, and C. Chambers, ECOOP'95.
		return cha.CallGraph(prog), nil
	case VariableTypeAnalysis:
		// Every source function is included so that library packages without
		// a main package still get a complete graph.
		return vta.CallGraph(ssautil.AllFunctions(prog), cha.CallGraph(prog)), nil
	case RapidTypeAnalysis:
		// Build the callgraph using rapid type analysis
		// See the documentation, and
		// "Fast Analysis of C++ Virtual Function Calls", D. Bacon & P. Sweeney, OOPSLA'96
		var roots []*ssa.Function
		mains := ssautil.MainPackages(prog.AllPackages())
		for _, m := range mains {
			// Start at all init and main functions in main packages
			roots = append(roots, m.Func("init"), m.Func("main"))
		}
		if len(roots) == 0 {
			return nil, fmt.Errorf("rta requires a main package")
		}
		return rta.Analyze(roots, true).CallGraph, nil
	default:
		return nil, fmt.Errorf("unsupported callgraph analysis mode %d", mode)
	}
}

// ComputeMethodImplementations populates a map from method implementation type string to the different implementations
// corresponding to that method.
// The map can be indexed by using the signature of an interface method and calling String() on it.
func ComputeMethodImplementations(p *ssa.Program, implementations map[string]map[*ssa.Function]bool) error {
	interfaceTypes := map[*types.Interface]map[string]*types.Selection{}
	// Fetch all interface types
	for _, pkg := range p.AllPackages() {
		for _, mem := range pkg.Members {
			switch memType := mem.(type) {
			case *ssa.Type:
				switch iType := memType.Type().Underlying().(type) {
				case *types.Interface:
					interfaceTypes[iType] = methodSetToNameMap(p.MethodSets.MethodSet(memType.Type()))
				}
			}
		}
	}

	// Fetch implementations of all interface methods
	for _, typ := range p.RuntimeTypes() {
		for interfaceType, interfaceMethods := range interfaceTypes {
			if types.Implements(typ.Underlying(), interfaceType) {
				set := p.MethodSets.MethodSet(typ)
				for i := 0; i < set.Len(); i++ {
					method := set.At(i)
					// Get the function implementation
					methodValue := p.MethodValue(method)
					if methodValue == nil {
						continue
					}
					// Get the interface method being implemented
					matchingInterfaceMethod := interfaceMethods[methodValue.Name()]
					if matchingInterfaceMethod != nil {
						key := matchingInterfaceMethod.Recv().String() + "." + methodValue.Name()
						addImplementation(implementations, key, methodValue)
					}
				}
			}
		}
	}
	return nil
}

func addImplementation(implementationMap map[string]map[*ssa.Function]bool, key string, function *ssa.Function) {
	if implementations, ok := implementationMap[key]; ok {
		if !implementations[function] {
			implementationMap[key][function] = true
		}
	} else {
		implementationMap[key] = map[*ssa.Function]bool{function: true}
	}
}

func methodSetToNameMap(methodSet *types.MethodSet) map[string]*types.Selection {
	nameMap := map[string]*types.Selection{}

	for i := 0; i < methodSet.Len(); i++ {
		method := methodSet.At(i)
		nameMap[method.Obj().Name()] = method
	}
	return nameMap
}
