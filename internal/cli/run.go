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
	"github.com/spf13/cobra"

	"github.com/google/gprofToPprof/internal/session"
)

type runOptions struct {
	gprof       string
	executable  string
	profileData string
	dir         string
	output      outputOptions
}

func newRunCmd(g *globalOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run gprof -b on a profiled program and convert its report",
		Long: `Runs "<gprof> -b <executable> <profile-data>" in the working directory and
converts the report it prints. Defaults come from the config file and the
GPROF_COMMAND, GPROF_WORKDIR and GPROF_LOG_LEVEL environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g)
		},
	}
	cmd.Flags().StringVar(&o.gprof, "gprof", "", "gprof binary")
	cmd.Flags().StringVar(&o.executable, "executable", "", "Profiled program")
	cmd.Flags().StringVar(&o.profileData, "profile-data", "", "gmon.out file written by the program")
	cmd.Flags().StringVar(&o.dir, "dir", "", "Working directory gprof runs in")
	o.output.addFlags(cmd.Flags())
	return cmd
}

func (o *runOptions) run(cmd *cobra.Command, g *globalOptions) error {
	cfg, logger, err := g.load(cmd)
	if err != nil {
		return err
	}
	for _, override := range []struct {
		value string
		field *string
	}{
		{o.gprof, &cfg.GprofCommand},
		{o.executable, &cfg.Executable},
		{o.profileData, &cfg.ProfileData},
		{o.dir, &cfg.WorkingDirectory},
	} {
		if override.value != "" {
			*override.field = override.value
		}
	}

	report, err := session.New(cfg, logger).Run(cmd.Context())
	if err != nil {
		return err
	}
	return o.output.emit(cmd, report, logger)
}
