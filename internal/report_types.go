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

package internal

import (
	"fmt"
	"sort"
)

// Unset marks a numeric field that has not been parsed yet. gprof never
// prints negative values, so it cannot collide with a parsed value. The
// unset name is the empty string.
const Unset = -1

// IsSet reports whether a float statistic has been parsed.
func IsSet(v float64) bool {
	return v != Unset
}

// IsSetInt reports whether an integer statistic has been parsed.
func IsSetInt(v int) bool {
	return v != Unset
}

// Function holds the statistics of one profiled function. Flat profile and
// call graph entries with the same name are merged into a single Function.
type Function struct {
	ID   int
	Name string

	// PercentSelfTime is the flat profile "% time" column.
	PercentSelfTime float64
	// PercentTotalTime is the call graph "% time" column (self + children).
	PercentTotalTime float64
	SelfTime         float64
	SubroutineTime   float64
	// TotalTime is the flat profile cumulative seconds column.
	TotalTime          float64
	CallCount          int
	RecursiveCallCount int
	SelfMsPerCall      float64
	TotalMsPerCall     float64

	Callers     []*Caller
	Subroutines []*Subroutine
}

// NewFunction returns a Function with every field unset.
func NewFunction() *Function {
	return &Function{
		ID:                 Unset,
		PercentSelfTime:    Unset,
		PercentTotalTime:   Unset,
		SelfTime:           Unset,
		SubroutineTime:     Unset,
		TotalTime:          Unset,
		CallCount:          Unset,
		RecursiveCallCount: Unset,
		SelfMsPerCall:      Unset,
		TotalMsPerCall:     Unset,
	}
}

func (f *Function) String() string {
	return fmt.Sprintf("function {id: %d name: %s self: %v children: %v calls: %d callers: %d subroutines: %d}",
		f.ID, f.Name, f.SelfTime, f.SubroutineTime, f.CallCount, len(f.Callers), len(f.Subroutines))
}

// Caller is a function that invoked the Function whose call graph entry it
// appears in. The times are the portion of that function's time spent on
// behalf of this caller.
type Caller struct {
	ID                      int
	Name                    string
	CallCount               int
	TimeInCalledSelf        float64
	TimeInCalledSubroutines float64
}

// NewCaller returns a Caller with every field unset.
func NewCaller() *Caller {
	return &Caller{
		ID:                      Unset,
		CallCount:               Unset,
		TimeInCalledSelf:        Unset,
		TimeInCalledSubroutines: Unset,
	}
}

func (c *Caller) String() string {
	return fmt.Sprintf("caller {id: %d name: %s calls: %d self: %v children: %v}",
		c.ID, c.Name, c.CallCount, c.TimeInCalledSelf, c.TimeInCalledSubroutines)
}

// Subroutine is a function called by the Function whose call graph entry it
// appears in.
type Subroutine struct {
	ID                          int
	Name                        string
	CallCount                   int
	TimeInSubroutineSelf        float64
	TimeInSubroutineSubroutines float64
}

// NewSubroutine returns a Subroutine with every field unset.
func NewSubroutine() *Subroutine {
	return &Subroutine{
		ID:                          Unset,
		CallCount:                   Unset,
		TimeInSubroutineSelf:        Unset,
		TimeInSubroutineSubroutines: Unset,
	}
}

func (s *Subroutine) String() string {
	return fmt.Sprintf("subroutine {id: %d name: %s calls: %d self: %v children: %v}",
		s.ID, s.Name, s.CallCount, s.TimeInSubroutineSelf, s.TimeInSubroutineSubroutines)
}

// Report is the ordered set of functions parsed from a gprof run. No two
// functions share a name.
type Report struct {
	Functions []*Function
}

// Function returns the first function with the given name, or nil.
func (r *Report) Function(name string) *Function {
	for _, f := range r.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// SortKey selects the statistic used by TopFunctions.
type SortKey string

const (
	SortBySelfTime  SortKey = "self"
	SortByTotalTime SortKey = "total"
	SortByCalls     SortKey = "calls"
)

// TopFunctions returns up to n functions ordered by the given statistic,
// largest first. Unset values sort last. n <= 0 returns every function.
func (r *Report) TopFunctions(n int, by SortKey) ([]*Function, error) {
	var key func(f *Function) float64
	switch by {
	case SortBySelfTime, "":
		key = func(f *Function) float64 { return f.SelfTime }
	case SortByTotalTime:
		key = func(f *Function) float64 {
			if !IsSet(f.SelfTime) {
				return Unset
			}
			if !IsSet(f.SubroutineTime) {
				return f.SelfTime
			}
			return f.SelfTime + f.SubroutineTime
		}
	case SortByCalls:
		key = func(f *Function) float64 { return float64(f.CallCount) }
	default:
		return nil, fmt.Errorf("unknown sort key %q", by)
	}
	sorted := make([]*Function, len(r.Functions))
	copy(sorted, r.Functions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]) > key(sorted[j])
	})
	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted, nil
}
