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

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config holds the options of the tool and the list of monitored properties.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// Private fields are not populated from a yaml file, but computed after initialization.
type Config struct {
	Options

	sourceFile string

	// elidedreportfile is a file name in ReportsDir when ReportElided is true
	elidedreportfile string

	// if the PkgFilter is specified
	pkgFilterRegex *regexp.Regexp

	// Monitors lists the monitored property specifications
	Monitors []MonitorSpec `yaml:"monitors"`
}

// Options groups the settings of the tool that are not monitor specifications.
type Options struct {
	// ReportsDir is the directory where the reports will be stored. If the yaml config file
	// does not specify a ReportsDir but sets ReportElided to true, then ReportsDir will be
	// created in the folder containing the config file.
	ReportsDir string `yaml:"reports-dir"`

	// PkgFilter restricts the functions scanned for shadows to those whose package path
	// matches the filter. The callgraph used for side-effect detection is never filtered.
	PkgFilter string `yaml:"pkg-filter"`

	// Callgraph selects the callgraph construction algorithm used for side-effect
	// detection: one of static, cha, rta, vta or pointer. Defaults to vta.
	Callgraph string `yaml:"callgraph"`

	// HookPackage is the import path of the package providing the runtime hooks inserted
	// by the weaver.
	HookPackage string `yaml:"hook-package"`

	// WeaveDir is the directory the weaver writes instrumented sources to. It is never the
	// source tree itself.
	WeaveDir string `yaml:"weave-dir"`

	// ReportElided specifies whether the set of elided shadows should be written to a
	// report file in ReportsDir.
	ReportElided bool `yaml:"report-elided"`

	// MaxStates limits the number of states a single monitor may declare.
	// If MaxStates <= 0, the limit is ignored.
	MaxStates int `yaml:"max-states"`

	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// SilenceWarn suppresses warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		sourceFile:       "",
		elidedreportfile: "",
		Monitors:         nil,
		Options: Options{
			ReportsDir:   "",
			PkgFilter:    "",
			Callgraph:    DefaultCallgraphMode,
			HookPackage:  DefaultHookPackage,
			WeaveDir:     "",
			ReportElided: false,
			MaxStates:    DefaultMaxStates,
			LogLevel:     int(InfoLevel),
			SilenceWarn:  false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}

	cfg.sourceFile = filename

	if cfg.ReportElided {
		if err := setReportsDir(cfg, filename); err != nil {
			return nil, err
		}
	}

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.Callgraph == "" {
		cfg.Callgraph = DefaultCallgraphMode
	}

	if cfg.HookPackage == "" {
		cfg.HookPackage = DefaultHookPackage
	}

	if cfg.PkgFilter != "" {
		r, err := regexp.Compile(cfg.PkgFilter)
		if err == nil {
			cfg.pkgFilterRegex = r
		}
	}

	if err := cfg.validateMonitors(); err != nil {
		return nil, fmt.Errorf("invalid monitors in %s: %w", filename, err)
	}

	for m := range cfg.Monitors {
		for s := range cfg.Monitors[m].Symbols {
			cfg.Monitors[m].Symbols[s].Call = CompileRegexes(cfg.Monitors[m].Symbols[s].Call)
		}
	}

	return cfg, nil
}

func setReportsDir(c *Config, filename string) error {
	if c.ReportsDir == "" {
		tmpdir, err := os.MkdirTemp(path.Dir(filename), "*-report")
		if err != nil {
			return fmt.Errorf("could not create temp dir for reports")
		}
		c.ReportsDir = tmpdir
	} else {
		err := os.Mkdir(c.ReportsDir, 0750)
		if err != nil && !os.IsExist(err) {
			return fmt.Errorf("could not create directory %s", c.ReportsDir)
		}
	}

	reportFile, err := os.CreateTemp(c.ReportsDir, "elided-*.out")
	if err != nil {
		return fmt.Errorf("could not create report file for elided shadows")
	}
	c.elidedreportfile = reportFile.Name()
	reportFile.Close() // the file will be reopened as needed
	return nil
}

// ReportElidedFile returns the file name that will contain the list of elided shadows
func (c Config) ReportElidedFile() string {
	return c.elidedreportfile
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// MatchPkgFilter returns true if the package name pkgname matches the package filter set in the
// config file. If no package filter has been set in the config file, the regex will match anything
// and return true. This function safely considers the case where a filter has been specified by
// the user, but it could not be compiled to a regex. The safe case is to check whether the package
// filter string is a prefix of the pkgname.
func (c Config) MatchPkgFilter(pkgname string) bool {
	if c.pkgFilterRegex != nil {
		return c.pkgFilterRegex.MatchString(pkgname)
	}
	if c.PkgFilter != "" {
		return strings.HasPrefix(pkgname, c.PkgFilter)
	}
	return true
}

// MonitorNamed returns the monitor specification with the given name, or nil when the config
// does not declare it.
func (c Config) MonitorNamed(name string) *MonitorSpec {
	for i := range c.Monitors {
		if c.Monitors[i].Name == name {
			return &c.Monitors[i]
		}
	}
	return nil
}

// Verbose returns true if the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}

// ExceedsMaxStates returns true if the input exceeds the maximum state count parameter of the
// configuration. If the configuration setting is <= 0, then this returns false.
func (c Config) ExceedsMaxStates(n int) bool {
	if c.MaxStates <= 0 {
		return false
	}
	return n > c.MaxStates
}
