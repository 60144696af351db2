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

import (
	"fmt"
	"os"

	"github.com/tacet-dev/tacet/analysis"
	"github.com/tacet-dev/tacet/cmd/tacet/check"
	"github.com/tacet-dev/tacet/cmd/tacet/render"
	"github.com/tacet-dev/tacet/cmd/tacet/tools"
	"github.com/tacet-dev/tacet/cmd/tacet/weave"
	"github.com/tacet-dev/tacet/internal/formatutil"
)

const usage = `Tacet: typestate monitoring without the overhead
Usage:
  tacet [tool] [options] <Go file path(s)>
Tools:
  - check: analyzes a program and reports which runtime monitoring hooks can be elided
  - weave: writes instrumented copies of the sources, with hooks only where monitoring must stay
  - render: renders the monitor state machines, the trigger call graph or the program's SSA form
Examples:
  Run the analysis: tacet check --config=config.yaml main.go
  Instrument a program: tacet weave --config=config.yaml --out=woven main.go`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "error: expected subcommand\n%s\n", usage)
		os.Exit(2)
	}

	// hardcode help flag
	if snd := os.Args[1]; snd == "-help" || snd == "--help" {
		fmt.Println(usage)
		return
	}

	// hardcode version flag
	if snd := os.Args[1]; snd == "-version" || snd == "--version" {
		fmt.Println(analysis.Version)
		return
	}

	args := os.Args[2:]
	switch cmd := os.Args[1]; cmd {
	case "check":
		flags, err := tools.NewCommonFlags("check", args, check.Usage)
		if err != nil {
			errExit(err)
		}
		if err := check.Run(flags); err != nil {
			errExit(err)
		}
	case "weave":
		flags, err := weave.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := weave.Run(flags); err != nil {
			errExit(err)
		}
	case "render":
		flags, err := render.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := render.Run(flags); err != nil {
			errExit(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unexpected command: %v\n", cmd)
		fmt.Fprintf(os.Stderr, "usage:\n%s\n", usage)
		os.Exit(2)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", formatutil.Red("error"), err)
	os.Exit(2)
}
