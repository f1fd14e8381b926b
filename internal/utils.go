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
	"math"
	"testing"
)

// Statistics are printed with two decimals, anything closer is equal.
const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func CallerEquals(t *testing.T, got *Caller, want *Caller) {
	t.Helper()
	if got.Name != want.Name {
		t.Errorf("caller name %q != %q", got.Name, want.Name)
	}
	if got.ID != want.ID {
		t.Errorf("caller %s id %d != %d", got.Name, got.ID, want.ID)
	}
	if got.CallCount != want.CallCount {
		t.Errorf("caller %s call count %d != %d", got.Name, got.CallCount, want.CallCount)
	}
	if !floatEquals(got.TimeInCalledSelf, want.TimeInCalledSelf) {
		t.Errorf("caller %s self time %v != %v", got.Name, got.TimeInCalledSelf, want.TimeInCalledSelf)
	}
	if !floatEquals(got.TimeInCalledSubroutines, want.TimeInCalledSubroutines) {
		t.Errorf("caller %s children time %v != %v", got.Name, got.TimeInCalledSubroutines, want.TimeInCalledSubroutines)
	}
}

func SubroutineEquals(t *testing.T, got *Subroutine, want *Subroutine) {
	t.Helper()
	if got.Name != want.Name {
		t.Errorf("subroutine name %q != %q", got.Name, want.Name)
	}
	if got.ID != want.ID {
		t.Errorf("subroutine %s id %d != %d", got.Name, got.ID, want.ID)
	}
	if got.CallCount != want.CallCount {
		t.Errorf("subroutine %s call count %d != %d", got.Name, got.CallCount, want.CallCount)
	}
	if !floatEquals(got.TimeInSubroutineSelf, want.TimeInSubroutineSelf) {
		t.Errorf("subroutine %s self time %v != %v", got.Name, got.TimeInSubroutineSelf, want.TimeInSubroutineSelf)
	}
	if !floatEquals(got.TimeInSubroutineSubroutines, want.TimeInSubroutineSubroutines) {
		t.Errorf("subroutine %s children time %v != %v", got.Name, got.TimeInSubroutineSubroutines, want.TimeInSubroutineSubroutines)
	}
}

func FunctionEquals(t *testing.T, got *Function, want *Function) {
	t.Helper()
	if got.Name != want.Name {
		t.Errorf("function name %q != %q", got.Name, want.Name)
	}
	if got.ID != want.ID {
		t.Errorf("%s id %d != %d", got.Name, got.ID, want.ID)
	}
	floats := []struct {
		field     string
		got, want float64
	}{
		{"percent self time", got.PercentSelfTime, want.PercentSelfTime},
		{"percent total time", got.PercentTotalTime, want.PercentTotalTime},
		{"self time", got.SelfTime, want.SelfTime},
		{"subroutine time", got.SubroutineTime, want.SubroutineTime},
		{"total time", got.TotalTime, want.TotalTime},
		{"self ms/call", got.SelfMsPerCall, want.SelfMsPerCall},
		{"total ms/call", got.TotalMsPerCall, want.TotalMsPerCall},
	}
	for _, f := range floats {
		if !floatEquals(f.got, f.want) {
			t.Errorf("%s %s %v != %v", got.Name, f.field, f.got, f.want)
		}
	}
	if got.CallCount != want.CallCount {
		t.Errorf("%s call count %d != %d", got.Name, got.CallCount, want.CallCount)
	}
	if got.RecursiveCallCount != want.RecursiveCallCount {
		t.Errorf("%s recursive call count %d != %d", got.Name, got.RecursiveCallCount, want.RecursiveCallCount)
	}
	if len(got.Callers) != len(want.Callers) {
		t.Fatalf("%s has %d callers, want %d: %v", got.Name, len(got.Callers), len(want.Callers), got.Callers)
	}
	for i, c := range got.Callers {
		CallerEquals(t, c, want.Callers[i])
	}
	if len(got.Subroutines) != len(want.Subroutines) {
		t.Fatalf("%s has %d subroutines, want %d: %v", got.Name, len(got.Subroutines), len(want.Subroutines), got.Subroutines)
	}
	for i, s := range got.Subroutines {
		SubroutineEquals(t, s, want.Subroutines[i])
	}
}

func ReportEquals(t *testing.T, got *Report, want *Report) {
	t.Helper()
	if len(got.Functions) != len(want.Functions) {
		t.Fatalf("reports have different number of functions %d != %d: %v",
			len(got.Functions), len(want.Functions), got.Functions)
	}
	for i, f := range got.Functions {
		FunctionEquals(t, f, want.Functions[i])
	}
}
