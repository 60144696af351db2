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
	"io"
	"sync"
	"time"

	"github.com/tacet-dev/tacet/analysis/config"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
)

// State holds information that might need to be used during program analysis.
type State struct {
	// The logger used during the analysis (can be used to control output).
	Logger *config.LogGroup

	// The configuration file for the analysis
	Config *config.Config

	// The program to be analyzed. It should be a complete buildable program (e.g. loaded by LoadProgram).
	Program *ssa.Program

	// Packages is the list of initial packages, with syntax and type information.
	Packages []*packages.Package

	// Directives are the tacet directive comments found in the program.
	Directives Directives

	// Callgraph is the call graph of the program, built by PopulateCallgraph.
	Callgraph *callgraph.Graph

	// A map from types to functions implementing that type
	//
	// If t is the signature of an interface's method, then map[t.string()] will return all the implementations of
	// that method.
	implementationsByType map[string]map[*ssa.Function]bool

	// Stored errors
	errors     map[error]bool
	errorMutex sync.Mutex
}

// NewState returns a properly initialized analyzer state for the loaded program.
func NewState(prog LoadedProgram, l *config.LogGroup, c *config.Config) *State {
	return &State{
		Logger:                l,
		Config:                c,
		Program:               prog.Program,
		Packages:              prog.Packages,
		Directives:            prog.Directives,
		implementationsByType: map[string]map[*ssa.Function]bool{},
		errors:                map[error]bool{},
	}
}

// Size returns the number of method implementation entries stored in the state.
func (s *State) Size() int {
	return len(s.implementationsByType)
}

// PrintImplementations prints the map of implementations stored in the state.
func (s *State) PrintImplementations(w io.Writer) {
	for typString, implems := range s.implementationsByType {
		fmt.Fprintf(w, "KEY: %s\n", typString)
		for function := range implems {
			fmt.Fprintf(w, "\tFUNCTION: %s\n", function.String())
		}
	}
}

// AddError stores the error in the state so it can be inspected later.
func (s *State) AddError(e error) {
	s.errorMutex.Lock()
	defer s.errorMutex.Unlock()
	if e != nil {
		s.errors[e] = true
	}
}

// CheckError removes and returns an error from the state, if any is stored.
func (s *State) CheckError() error {
	s.errorMutex.Lock()
	defer s.errorMutex.Unlock()
	for e := range s.errors {
		delete(s.errors, e)
		return e
	}
	return nil
}

// PopulateCallgraph builds the call graph of the program using the mode set in
// the configuration and stores it in the state.
func (s *State) PopulateCallgraph() error {
	mode, err := CallgraphMode(s.Config.Callgraph)
	if err != nil {
		return err
	}
	s.Logger.Infof("Building call graph (%s mode)...", s.Config.Callgraph)
	start := time.Now()
	cg, err := mode.ComputeCallgraph(s.Program)
	if err != nil {
		return fmt.Errorf("failed to build call graph: %w", err)
	}
	s.Logger.Infof("Call graph built (%.2f s).", time.Since(start).Seconds())
	s.Callgraph = cg
	return nil
}

// PopulateImplementations populates the map from type strings to method implementations.
func (s *State) PopulateImplementations() {
	if err := ComputeMethodImplementations(s.Program, s.implementationsByType); err != nil {
		s.AddError(err)
	}
}

//
// Functions to retrieve results from the information stored in the state
//

// ResolveCallee resolves the callee(s) at the call instruction instr.
//
// If the callee is statically resolvable, then it returns a single callee.
//
// If the call instruction appears in the call graph, it returns all the callees at that callsite according to the
// call graph (requires it to be computed with PopulateCallgraph).
//
// If the call instruction does not appear in the call graph, then it returns all the functions that correspond to the
// type of the call variable at the location.
//
// Returns a non-nil error if it requires some information in the state that has not been computed.
func (s *State) ResolveCallee(instr ssa.CallInstruction) ([]*ssa.Function, error) {
	callee := instr.Common().StaticCallee()
	if callee != nil {
		return []*ssa.Function{callee}, nil
	}

	if s.Callgraph == nil {
		return nil, fmt.Errorf("cannot resolve non-static callee without a call graph")
	}

	var callees []*ssa.Function
	node, ok := s.Callgraph.Nodes[instr.Parent()]
	if ok {
		for _, callEdge := range node.Out {
			if callEdge.Site == instr {
				callees = append(callees, callEdge.Callee.Func)
			}
		}
	}
	// If we have found the callees using the call graph, return
	if len(callees) > 0 {
		return callees, nil
	}

	if len(s.implementationsByType) == 0 {
		return nil, fmt.Errorf("cannot resolve callee without information about possible implementations")
	}

	methodFunc := instr.Common().Method
	if methodFunc != nil {
		mInterface := instr.Common().Value
		key := mInterface.Type().String() + "." + methodFunc.Name()
		if implementations, ok := s.implementationsByType[key]; ok {
			for implementation := range implementations {
				callees = append(callees, implementation)
			}
		}
	}
	return callees, nil
}
