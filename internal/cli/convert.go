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

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/google/gprofToPprof/internal/logging"
	"github.com/google/gprofToPprof/internal/parsers"
)

type convertOptions struct {
	output outputOptions
}

func newConvertCmd(g *globalOptions) *cobra.Command {
	o := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert [gprof-report]",
		Short: "Convert saved gprof -b output",
		Long: `Reads gprof -b output from the given file, or from stdin when the file is
"-" or missing, and converts it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g, args)
		},
	}
	o.output.addFlags(cmd.Flags())
	return cmd
}

func (o *convertOptions) run(cmd *cobra.Command, g *globalOptions, args []string) error {
	_, logger, err := g.load(cmd)
	if err != nil {
		return err
	}
	var name string
	if len(args) > 0 {
		name = args[0]
	}
	input, err := openInput(cmd, name)
	if err != nil {
		return err
	}
	defer input.Close()

	report, err := parsers.ParseReport(input, logging.Component(logger, "parser"))
	if err != nil {
		return fmt.Errorf("failed to parse gprof report: %w", err)
	}
	return o.output.emit(cmd, report, logger)
}
