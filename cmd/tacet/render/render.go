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

// Package render implements a tool for rendering visualizations of monitored programs.
// -monitors Given a path for a folder, writes one .dot file per monitor state machine.
// -triggers Given a path for a .dot file, generates the call graph with the
// may-trigger functions highlighted in that file.
// -ssaout Given a path for a folder, generates subfolders with files containing
// the ssa representation of each package in that file.
package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tacet-dev/tacet/analysis"
	"github.com/tacet-dev/tacet/analysis/config"
	"github.com/tacet-dev/tacet/analysis/effects"
	"github.com/tacet-dev/tacet/analysis/monitor"
	"github.com/tacet-dev/tacet/analysis/render"
	"github.com/tacet-dev/tacet/cmd/tacet/tools"
	"github.com/tacet-dev/tacet/internal/formatutil"
)

const usage = `Render the monitor state machines, the trigger call graph or the ssa representation of your packages.
Usage:
  tacet render [options] <package path(s)>
Examples:
Write the state machine of every configured monitor
  % tacet render -config config.yaml -monitors dots package...
Render the call graph with the may-trigger functions highlighted
  % tacet render -config config.yaml -triggers triggers.dot package...
Print out all the packages in SSA form
  % tacet render -config config.yaml -ssaout tmpSsa package...
`

// Flags represents the parsed render sub-command flags.
type Flags struct {
	tools.CommonFlags
	monitorsOut string
	triggersOut string
	ssaOut      string
}

// NewFlags returns the parsed render sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("render")
	monitorsOut := flags.FlagSet.String("monitors", "", "output folder for monitor state machines (no output if not specified)")
	triggersOut := flags.FlagSet.String("triggers", "", "output file for the trigger call graph (no output if not specified)")
	ssaOut := flags.FlagSet.String("ssaout", "", "output folder for ssa (no output if not specified)")
	tools.SetUsage(flags.FlagSet, usage)
	if err := flags.FlagSet.Parse(args); err != nil {
		return Flags{}, fmt.Errorf("failed to parse command render with args %v: %v", args, err)
	}

	return Flags{
		CommonFlags: tools.CommonFlags{
			FlagSet:    flags.FlagSet,
			ConfigPath: *flags.ConfigPath,
			Verbose:    *flags.Verbose,
			WithTest:   *flags.WithTest,
		},
		monitorsOut: *monitorsOut,
		triggersOut: *triggersOut,
		ssaOut:      *ssaOut,
	}, nil
}

// Run runs the render tool with flags.
func Run(flags Flags) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.Verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}

	if flags.monitorsOut != "" {
		fmt.Fprintf(os.Stderr, formatutil.Faint("Writing monitor state machines in "+flags.monitorsOut)+"\n")
		if err := os.MkdirAll(flags.monitorsOut, 0750); err != nil {
			return fmt.Errorf("could not create directory %s: %v", flags.monitorsOut, err)
		}
		for _, spec := range cfg.Monitors {
			m, err := monitor.NewMonitor(spec)
			if err != nil {
				return fmt.Errorf("could not compile monitor %s: %v", spec.Name, err)
			}
			filename := filepath.Join(flags.monitorsOut, m.Name+".dot")
			if err := render.MonitorToFile(m, filename); err != nil {
				return fmt.Errorf("could not write monitor %s: %v", m.Name, err)
			}
		}
	}

	if flags.triggersOut == "" && flags.ssaOut == "" {
		return nil
	}

	fmt.Fprintf(os.Stderr, formatutil.Faint("Reading sources")+"\n")
	prog, err := tools.LoadProgram(flags.CommonFlags)
	if err != nil {
		return fmt.Errorf("could not load program: %v", err)
	}

	if flags.triggersOut != "" {
		state := analysis.NewState(prog, config.NewLogGroup(cfg), cfg)
		if err := state.PopulateCallgraph(); err != nil {
			return fmt.Errorf("could not build the call graph: %v", err)
		}
		registry, err := monitor.NewRegistry(state)
		if err != nil {
			return fmt.Errorf("could not locate the monitored shadows: %v", err)
		}
		oracle, err := effects.NewOracle(state, registry.ContainingFuncs())
		if err != nil {
			return fmt.Errorf("could not build the effect oracle: %v", err)
		}
		fmt.Fprintf(os.Stderr, formatutil.Faint("Writing trigger call graph in "+flags.triggersOut)+"\n")
		err = render.TriggersToFile(cfg, oracle, registry.ContainingFuncs(), state.Callgraph, flags.triggersOut)
		if err != nil {
			return fmt.Errorf("could not print call graph: %v", err)
		}
	}

	if flags.ssaOut != "" {
		fmt.Fprintf(os.Stderr, formatutil.Faint("Generating SSA in ")+flags.ssaOut+"\n")
		if err := render.OutputSSA(prog.Program, flags.ssaOut); err != nil {
			return fmt.Errorf("could not print ssa form: %v", err)
		}
	}

	return nil
}
