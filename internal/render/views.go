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

import "github.com/google/gprofToPprof/internal"

// The JSON views leave out unset statistics.

type functionView struct {
	ID                 *int       `json:"index,omitempty"`
	Name               string     `json:"name"`
	PercentSelfTime    *float64   `json:"percent_self_time,omitempty"`
	PercentTotalTime   *float64   `json:"percent_total_time,omitempty"`
	SelfTime           *float64   `json:"self_seconds,omitempty"`
	SubroutineTime     *float64   `json:"children_seconds,omitempty"`
	TotalTime          *float64   `json:"cumulative_seconds,omitempty"`
	CallCount          *int       `json:"calls,omitempty"`
	RecursiveCallCount *int       `json:"recursive_calls,omitempty"`
	SelfMsPerCall      *float64   `json:"self_ms_per_call,omitempty"`
	TotalMsPerCall     *float64   `json:"total_ms_per_call,omitempty"`
	Callers            []edgeView `json:"callers,omitempty"`
	Subroutines        []edgeView `json:"subroutines,omitempty"`
}

type edgeView struct {
	ID        *int     `json:"index,omitempty"`
	Name      string   `json:"name"`
	CallCount *int     `json:"calls,omitempty"`
	Self      *float64 `json:"self_seconds,omitempty"`
	Children  *float64 `json:"children_seconds,omitempty"`
}

func optFloat(v float64) *float64 {
	if !internal.IsSet(v) {
		return nil
	}
	return &v
}

func optInt(v int) *int {
	if !internal.IsSetInt(v) {
		return nil
	}
	return &v
}

func newFunctionView(f *internal.Function, withEdges bool) functionView {
	v := functionView{
		ID:                 optInt(f.ID),
		Name:               f.Name,
		PercentSelfTime:    optFloat(f.PercentSelfTime),
		PercentTotalTime:   optFloat(f.PercentTotalTime),
		SelfTime:           optFloat(f.SelfTime),
		SubroutineTime:     optFloat(f.SubroutineTime),
		TotalTime:          optFloat(f.TotalTime),
		CallCount:          optInt(f.CallCount),
		RecursiveCallCount: optInt(f.RecursiveCallCount),
		SelfMsPerCall:      optFloat(f.SelfMsPerCall),
		TotalMsPerCall:     optFloat(f.TotalMsPerCall),
	}
	if !withEdges {
		return v
	}
	for _, c := range f.Callers {
		v.Callers = append(v.Callers, edgeView{
			ID:        optInt(c.ID),
			Name:      c.Name,
			CallCount: optInt(c.CallCount),
			Self:      optFloat(c.TimeInCalledSelf),
			Children:  optFloat(c.TimeInCalledSubroutines),
		})
	}
	for _, s := range f.Subroutines {
		v.Subroutines = append(v.Subroutines, edgeView{
			ID:        optInt(s.ID),
			Name:      s.Name,
			CallCount: optInt(s.CallCount),
			Self:      optFloat(s.TimeInSubroutineSelf),
			Children:  optFloat(s.TimeInSubroutineSubroutines),
		})
	}
	return v
}
