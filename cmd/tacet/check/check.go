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

// Package check implements the frontend of the invariance analysis: it loads
// the program, locates the monitored shadows and reports which runtime hooks
// can be elided.
package check

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/tacet-dev/tacet/analysis"
	"github.com/tacet-dev/tacet/analysis/config"
	"github.com/tacet-dev/tacet/analysis/elide"
	"github.com/tacet-dev/tacet/analysis/monitor"
	"github.com/tacet-dev/tacet/cmd/tacet/tools"
	"github.com/tacet-dev/tacet/internal/formatutil"
)

// Usage is the usage message of the check sub-command.
const Usage = `Analyze your program and report the runtime monitoring hooks it can do without.
Usage:
  tacet check [options] <package path(s)>
Examples:
  % tacet check -config config.yaml package...
`

// Run runs the invariance analysis with flags.
func Run(flags tools.CommonFlags) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.Verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	logger := config.NewLogGroup(cfg)
	logger.Infof(formatutil.Faint("Tacet check - " + analysis.Version))
	logger.Infof(formatutil.Faint("Reading sources"))

	prog, err := tools.LoadProgram(flags)
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

	start := time.Now()
	result, err := elide.Run(state, registry, runtime.NumCPU()-1)
	if err != nil {
		return fmt.Errorf("invariance analysis failed: %v", err)
	}
	duration := time.Since(start)

	logger.Infof("")
	logger.Infof(strings.Repeat("*", 80))
	logger.Infof("Analysis took %3.4f s", duration.Seconds())
	logger.Infof("")
	elided, total := result.NumElided(), numShadows(registry)
	if total == 0 {
		logger.Infof("RESULT:\n\t\t%s", "No monitored shadows found.")
	} else if elided == total {
		logger.Infof("RESULT:\n\t\t%s", formatutil.Green("All monitoring hooks can be elided ✓")) // safe %s
	} else {
		logger.Infof("RESULT:\n\t\t%s", formatutil.Yellow(
			fmt.Sprintf("%d of %d monitoring hooks stay", total-elided, total))) // safe %s
	}

	if err := elide.WriteReport(state, result); err != nil {
		return err
	}

	if flags.Verbose {
		stats := analysis.SSAStatistics(ssautil.AllFunctions(state.Program))
		logger.Debugf("SSA: %d functions (%d nonempty), %d blocks, %d instructions.",
			stats.NumberOfFunctions, stats.NumberOfNonemptyFunctions,
			stats.NumberOfBlocks, stats.NumberOfInstructions)
	}
	return nil
}

func numShadows(registry *monitor.Registry) int {
	n := 0
	for _, g := range registry.Groups() {
		n += len(g.Shadows)
	}
	return n
}
