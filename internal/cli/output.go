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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/google/gprofToPprof/internal"
	"github.com/google/gprofToPprof/internal/render"
)

const formatPprof = "pprof"

const formatHelp = `The output format. Use,
--format=pprof to write a gzipped pprof profile to --output. This is the default.
--format=table, --format=csv or --format=json to print functions on stdout.
--format=collapsed to print folded stacks for flame graph tools.`

// outputOptions select what is done with a parsed report.
type outputOptions struct {
	output   string
	format   string
	flat     bool
	top      int
	sortBy   string
	function string
}

func (o *outputOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.output, "output", "o", "profile.pb.gz", "Output file of the pprof profile.")
	fs.StringVar(&o.format, "format", formatPprof, formatHelp)
	fs.BoolVar(&o.flat, "flat", false, "Excludes callers from all stack traces.")
	fs.IntVar(&o.top, "top", 0, "Print at most this many functions, 0 for all.")
	fs.StringVar(&o.sortBy, "sort", string(internal.SortBySelfTime), "Order printed functions by self, total or calls.")
	fs.StringVar(&o.function, "function", "", "Print a single function with its callers and subroutines.")
}

func (o *outputOptions) emit(cmd *cobra.Command, r *internal.Report, logger zerolog.Logger) error {
	if o.format == formatPprof {
		p := internal.ReportToPprof(r, !o.flat)
		if err := internal.WritePprof(p, o.output); err != nil {
			return err
		}
		logger.Info().Str("output", o.output).Int("samples", len(p.Sample)).Msg("wrote pprof profile")
		return nil
	}

	format, err := render.ParseFormat(o.format)
	if err != nil {
		return err
	}
	if o.function != "" {
		f := r.Function(o.function)
		if f == nil {
			return fmt.Errorf("function %q not found", o.function)
		}
		return render.FunctionDetail(cmd.OutOrStdout(), f, format)
	}
	top, err := r.TopFunctions(o.top, internal.SortKey(o.sortBy))
	if err != nil {
		return err
	}
	return render.Functions(cmd.OutOrStdout(), top, format)
}
