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

package render

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/google/gprofToPprof/internal"
)

// collapsedNanos converts seconds to the integer weight of a folded stack.
func collapsedNanos(seconds float64) int64 {
	if !internal.IsSet(seconds) {
		return 0
	}
	return int64(math.Round(seconds * 1e9))
}

// writeCollapsed prints folded stacks, "caller;function weight", with the
// self time in nanoseconds as weight. Self time not accounted for by a caller
// is printed as a single frame stack.
func writeCollapsed(w io.Writer, functions []*internal.Function) error {
	bw := bufio.NewWriter(w)
	for _, f := range functions {
		self := collapsedNanos(f.SelfTime)
		for _, c := range f.Callers {
			weight := collapsedNanos(c.TimeInCalledSelf)
			if weight <= 0 {
				continue
			}
			if _, err := fmt.Fprintf(bw, "%s;%s %d\n", c.Name, f.Name, weight); err != nil {
				return err
			}
			self -= weight
		}
		if self > 0 {
			if _, err := fmt.Fprintf(bw, "%s %d\n", f.Name, self); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
