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
	"math"
	"os"
	"strconv"

	"github.com/google/pprof/profile"
)

const nanosPerSecond = 1e9

type reportToPprofConverter struct {
	report *Report
	// Settings
	includeCallers bool

	// functions and locations by function name
	functions      map[string]*profile.Function
	functionList   []*profile.Function
	nextFunctionID uint64
	locations      map[string]*profile.Location
	locationList   []*profile.Location
	nextLocationID uint64

	samples []*profile.Sample
}

func newPprofConverter(report *Report, includeCallers bool) *reportToPprofConverter {
	return &reportToPprofConverter{
		report:         report,
		includeCallers: includeCallers,
		functions:      make(map[string]*profile.Function),
		nextFunctionID: 1,
		locations:      make(map[string]*profile.Location),
		nextLocationID: 1,
		samples:        make([]*profile.Sample, 0),
	}
}

func (toPprof *reportToPprofConverter) getFunction(name string) *profile.Function {
	f, ok := toPprof.functions[name]
	if !ok {
		f = &profile.Function{
			ID:         toPprof.nextFunctionID,
			Name:       name,
			SystemName: name,
		}
		toPprof.functions[name] = f
		toPprof.functionList = append(toPprof.functionList, f)
		toPprof.nextFunctionID++
	}
	return f
}

func (toPprof *reportToPprofConverter) getLocation(name string) *profile.Location {
	loc, ok := toPprof.locations[name]
	if !ok {
		loc = &profile.Location{
			ID:   toPprof.nextLocationID,
			Line: []profile.Line{{Function: toPprof.getFunction(name)}},
		}
		toPprof.locations[name] = loc
		toPprof.locationList = append(toPprof.locationList, loc)
		toPprof.nextLocationID++
	}
	return loc
}

// nanos converts seconds to nanoseconds. Unset converts to 0.
func nanos(seconds float64) int64 {
	if !IsSet(seconds) {
		return 0
	}
	return int64(math.Round(seconds * nanosPerSecond))
}

func count(n int) int64 {
	if !IsSetInt(n) {
		return 0
	}
	return int64(n)
}

// addSample records a sample whose stack is the named functions, leaf first.
// Samples without any calls or time are dropped.
func (toPprof *reportToPprofConverter) addSample(f *Function, calls, selfNs int64, stack ...string) {
	if calls <= 0 && selfNs <= 0 {
		return
	}
	s := &profile.Sample{
		Location: make([]*profile.Location, 0, len(stack)),
		Value:    []int64{max(calls, 0), max(selfNs, 0)},
	}
	for _, name := range stack {
		s.Location = append(s.Location, toPprof.getLocation(name))
	}
	if IsSetInt(f.ID) {
		s.Label = map[string][]string{"index": {strconv.Itoa(f.ID)}}
	}
	toPprof.samples = append(toPprof.samples, s)
}

// convertFunction emits one sample per caller with the caller as the parent
// frame, and one leaf-only sample for whatever the callers do not account
// for.
func (toPprof *reportToPprofConverter) convertFunction(f *Function) {
	calls, selfNs := count(f.CallCount), nanos(f.SelfTime)
	if toPprof.includeCallers {
		for _, c := range f.Callers {
			cCalls, cSelf := count(c.CallCount), nanos(c.TimeInCalledSelf)
			toPprof.addSample(f, cCalls, cSelf, f.Name, c.Name)
			calls -= cCalls
			selfNs -= cSelf
		}
	}
	toPprof.addSample(f, calls, selfNs, f.Name)
}

func (toPprof *reportToPprofConverter) convertToPprof() *profile.Profile {
	for _, f := range toPprof.report.Functions {
		toPprof.convertFunction(f)
	}
	return &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "calls", Unit: "count"},
			{Type: "cpu", Unit: "nanoseconds"},
		},
		DefaultSampleType: "cpu",
		PeriodType:        &profile.ValueType{Type: "cpu", Unit: "nanoseconds"},
		Sample:            toPprof.samples,
		Location:          toPprof.locationList,
		Function:          toPprof.functionList,
	}
}

// ReportToPprof converts a Report to a pprof Profile with "calls" and "cpu"
// sample values. With includeCallers every call graph caller becomes the
// parent frame of the time it accounts for.
func ReportToPprof(report *Report, includeCallers bool) *profile.Profile {
	return newPprofConverter(report, includeCallers).convertToPprof()
}

// WritePprof validates p and writes it gzipped to path.
func WritePprof(p *profile.Profile, path string) error {
	if err := p.CheckValid(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output failed: %w", err)
	}
	if err := p.Write(out); err != nil {
		out.Close()
		return fmt.Errorf("failed to write: %w", err)
	}
	return out.Close()
}
