// Copyright 2021 Google LLC
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

// Package cli implements the gprofToPprof command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/google/gprofToPprof/internal/config"
	"github.com/google/gprofToPprof/internal/logging"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

const rootHelp = `Converts the brief (-b) text report of GNU gprof to a pprof profile.

With no command, converts the report read from the given file, or from stdin
when the file is "-" or missing:
	$ gprof -b ./a.out gmon.out | gprofToPprof -o profile.pb.gz
	$ go tool pprof -top profile.pb.gz

The report can also be printed as a table, CSV or JSON, gprof can be run
directly with "run", and "serve" exposes reports to MCP clients on stdio.`

// globalOptions are shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
}

// load reads the configuration and builds the logger for a command.
func (g *globalOptions) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	loader := config.NewLoader()
	if g.configPath != "" {
		loader = config.NewLoaderForFile(g.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.Output = cmd.ErrOrStderr()
	logger := logging.New(logCfg)
	return cfg, logger, nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}
	convert := &convertOptions{}

	rootCmd := &cobra.Command{
		Use:           "gprofToPprof [gprof-report]",
		Short:         "Convert gprof -b output to pprof",
		Long:          rootHelp,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return convert.run(cmd, g, args)
		},
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default $GPROF_CONFIG or ~/.gprofToPprof/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	convert.output.addFlags(rootCmd.Flags())

	rootCmd.AddCommand(newConvertCmd(g))
	rootCmd.AddCommand(newRunCmd(g))
	rootCmd.AddCommand(newServeCmd(g))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("gprofToPprof version %s\n", Version)
		},
	}
}

// openInput opens the named file, or stdin for "" and "-".
func openInput(cmd *cobra.Command, name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return file, nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
