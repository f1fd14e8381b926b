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

package gprof

import "github.com/google/gprofToPprof/internal"

// assembler owns the working function list. Every function it holds has a
// distinct, non-empty name.
type assembler struct {
	functions []*internal.Function
}

func (a *assembler) lookup(name string) *internal.Function {
	for _, f := range a.functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// addFlat adds a flat profile entry. It reports false when a function with
// the same name is already present, in which case the first entry wins.
func (a *assembler) addFlat(f *internal.Function) bool {
	if a.lookup(f.Name) != nil {
		return false
	}
	a.functions = append(a.functions, f)
	return true
}

// registerCaller makes sure a function that only shows up as a caller is
// still part of the report.
func (a *assembler) registerCaller(c *internal.Caller) {
	if a.lookup(c.Name) != nil {
		return
	}
	f := internal.NewFunction()
	f.ID = c.ID
	f.Name = c.Name
	a.functions = append(a.functions, f)
}

// mergeCallGraph folds a call graph function entry into the list and returns
// the function now holding its statistics. Only fields present on the call
// graph line are copied, so the flat profile ms/call and cumulative figures
// survive. Self time from the flat profile takes precedence.
func (a *assembler) mergeCallGraph(f *internal.Function) *internal.Function {
	existing := a.lookup(f.Name)
	if existing == nil {
		a.functions = append(a.functions, f)
		return f
	}
	if internal.IsSet(f.PercentTotalTime) {
		existing.PercentTotalTime = f.PercentTotalTime
	}
	if internal.IsSet(f.SelfTime) && !internal.IsSet(existing.SelfTime) {
		existing.SelfTime = f.SelfTime
	}
	if internal.IsSet(f.SubroutineTime) {
		existing.SubroutineTime = f.SubroutineTime
	}
	if internal.IsSetInt(f.CallCount) {
		existing.CallCount = f.CallCount
	}
	if internal.IsSetInt(f.RecursiveCallCount) {
		existing.RecursiveCallCount = f.RecursiveCallCount
	}
	if internal.IsSetInt(f.ID) {
		existing.ID = f.ID
	}
	return existing
}

func attachCallers(f *internal.Function, callers []*internal.Caller) {
	if f == nil || len(callers) == 0 {
		return
	}
	f.Callers = append(f.Callers, callers...)
}

func attachSubroutines(f *internal.Function, subroutines []*internal.Subroutine) {
	if f == nil || len(subroutines) == 0 {
		return
	}
	f.Subroutines = append(f.Subroutines, subroutines...)
}

func (a *assembler) report() *internal.Report {
	return &internal.Report{Functions: a.functions}
}
