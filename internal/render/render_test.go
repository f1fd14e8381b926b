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
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gprofToPprof/internal"
)

func sampleFunction() *internal.Function {
	f := internal.NewFunction()
	f.ID = 3
	f.Name = "helper"
	f.PercentSelfTime = 20
	f.SelfTime = 0.01
	f.SubroutineTime = 0
	f.CallCount = 4
	f.RecursiveCallCount = 2
	f.Callers = []*internal.Caller{
		{ID: 2, Name: "compute", CallCount: 4, TimeInCalledSelf: 0.01, TimeInCalledSubroutines: 0},
	}
	f.Subroutines = []*internal.Subroutine{
		{ID: 3, Name: "helper", CallCount: 2, TimeInSubroutineSelf: internal.Unset, TimeInSubroutineSubroutines: internal.Unset},
	}
	return f
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"table", "json", "csv", "collapsed"} {
		f, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, Format(name), f)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestFunctionsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Functions(&buf, []*internal.Function{sampleFunction()}, FormatTable))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "INDEX"))
	assert.Equal(t, []string{"[3]", "helper", "20.00", "-", "0.01", "0.00", "4+2", "-", "-"}, strings.Fields(lines[1]))
}

func TestFunctionsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Functions(&buf, []*internal.Function{sampleFunction()}, FormatCSV))

	assert.Equal(t, "INDEX,NAME,% SELF,% TOTAL,SELF,CHILDREN,CALLS,SELF MS/CALL,TOTAL MS/CALL\n"+
		"[3],helper,20.00,-,0.01,0.00,4+2,-,-\n", buf.String())
}

func TestFunctionsJSONOmitsUnset(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Functions(&buf, []*internal.Function{sampleFunction()}, FormatJSON))

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "helper", got[0]["name"])
	assert.Equal(t, 3.0, got[0]["index"])
	assert.Equal(t, 2.0, got[0]["recursive_calls"])
	assert.NotContains(t, got[0], "percent_total_time")
	assert.NotContains(t, got[0], "callers", "edges are only part of the detail view")
}

func TestFunctionDetail(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FunctionDetail(&buf, sampleFunction(), FormatTable))

	out := buf.String()
	assert.Contains(t, out, "Called by:")
	assert.Contains(t, out, "compute")
	assert.Contains(t, out, "Calls:")

	buf.Reset()
	require.NoError(t, FunctionDetail(&buf, sampleFunction(), FormatJSON))
	var got functionView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Callers, 1)
	assert.Equal(t, "compute", got.Callers[0].Name)
	require.Len(t, got.Subroutines, 1)
	assert.Nil(t, got.Subroutines[0].Self)

	assert.Error(t, FunctionDetail(&buf, sampleFunction(), FormatCSV))
}

func TestFunctionDetailWithoutEdges(t *testing.T) {
	f := internal.NewFunction()
	f.Name = "leaf"
	var buf bytes.Buffer
	require.NoError(t, FunctionDetail(&buf, f, FormatTable))
	assert.NotContains(t, buf.String(), "Called by:")
	assert.NotContains(t, buf.String(), "Calls:")
}

func TestFunctionsCollapsed(t *testing.T) {
	compute := internal.NewFunction()
	compute.Name = "compute"
	compute.SelfTime = 0.03
	compute.Callers = []*internal.Caller{
		{ID: 1, Name: "main", CallCount: 2, TimeInCalledSelf: 0.02, TimeInCalledSubroutines: 0},
		{ID: 4, Name: "idle caller", CallCount: 1, TimeInCalledSelf: 0, TimeInCalledSubroutines: 0},
	}
	leaf := internal.NewFunction()
	leaf.Name = "std::vector<int>::size() const"
	leaf.SelfTime = 0.005
	unset := internal.NewFunction()
	unset.Name = "never_sampled"

	var buf bytes.Buffer
	require.NoError(t, Functions(&buf, []*internal.Function{compute, leaf, unset}, FormatCollapsed))
	assert.Equal(t, "main;compute 20000000\n"+
		"compute 10000000\n"+
		"std::vector<int>::size() const 5000000\n", buf.String())
}
