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

// Package weave implements the frontend of the instrumentation tool: it runs
// the invariance analysis, then writes copies of the sources with runtime
// hooks at the shadows that could not be elided.
package weave

import (
	"fmt"
	"runtime"

	"github.com/tacet-dev/tacet/analysis"
	"github.com/tacet-dev/tacet/analysis/config"
	"github.com/tacet-dev/tacet/analysis/elide"
	"github.com/tacet-dev/tacet/analysis/monitor"
	"github.com/tacet-dev/tacet/analysis/weave"
	"github.com/tacet-dev/tacet/cmd/tacet/tools"
	"github.com/tacet-dev/tacet/internal/formatutil"
)

const usage = `Instrument your program with runtime monitoring hooks, skipping provably invariant sites.
Usage:
  tacet weave [options] <package path(s)>
Examples:
  % tacet weave -config config.yaml -out woven package...
`

// Flags represents the parsed weave sub-command flags.
type Flags struct {
	tools.CommonFlags
	out string
}

// NewFlags returns the parsed weave sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("weave")
	out := flags.FlagSet.String("out", "", "output directory for woven sources (overrides weave-dir in config)")
	tools.SetUsage(flags.FlagSet, usage)
	if err := flags.FlagSet.Parse(args); err != nil {
		return Flags{}, fmt.Errorf("failed to parse command weave with args %v: %v", args, err)
	}

	return Flags{
		CommonFlags: tools.CommonFlags{
			FlagSet:    flags.FlagSet,
			ConfigPath: *flags.ConfigPath,
			Verbose:    *flags.Verbose,
			WithTest:   *flags.WithTest,
		},
		out: *out,
	}, nil
}

// Run runs the weave tool with flags.
func Run(flags Flags) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.Verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	if flags.out != "" {
		cfg.WeaveDir = flags.out
	}
	logger := config.NewLogGroup(cfg)
	logger.Infof(formatutil.Faint("Tacet weave - " + analysis.Version))
	logger.Infof(formatutil.Faint("Reading sources"))

	prog, err := tools.LoadProgram(flags.CommonFlags)
	if err != nil {
		return fmt.Errorf("could not load program: %v", err)
	}

	state := analysis.NewState(prog, logger, cfg)
	if err := state.PopulateCallgraph(); err != nil {
		return fmt.Errorf("could not build the call graph: %v", err)
	}
	registry, err := monitor.NewRegistry(state)
	if err != nil {
		return fmt.Errorf("could not locate the monitored shadows: %v", err)
	}
	result, err := elide.Run(state, registry, runtime.NumCPU()-1)
	if err != nil {
		return fmt.Errorf("invariance analysis failed: %v", err)
	}

	report, err := weave.Weave(state, registry, result)
	if err != nil {
		return fmt.Errorf("weaving failed: %v", err)
	}
	logger.Infof("RESULT:\n\t\t%s", formatutil.Green(
		fmt.Sprintf("%d files woven into %s ✓", len(report.Files), cfg.WeaveDir))) // safe %s
	return nil
}
