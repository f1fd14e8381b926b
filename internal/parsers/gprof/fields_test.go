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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gprofToPprof/internal"
)

func TestParseCallCounts(t *testing.T) {
	tests := []struct {
		tok           string
		wantCalls     int
		wantRecursive int
		wantErr       bool
	}{
		{"10+2", 10, 2, false},
		{"10", 10, internal.Unset, false},
		{"0+472", 0, 472, false},
		{"x", 0, 0, true},
		{"10+", 0, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.tok, func(t *testing.T) {
			calls, recursive, err := parseCallCounts(tc.tok)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantCalls, calls)
			assert.Equal(t, tc.wantRecursive, recursive)
		})
	}
}

func TestParseCallCount(t *testing.T) {
	tests := map[string]int{
		"1/1":     1,
		"12/34":   12,
		"8":       8,
		"244+260": 244,
	}
	for tok, want := range tests {
		got, err := parseCallCount(tok)
		require.NoError(t, err, tok)
		assert.Equal(t, want, got, tok)
	}
	_, err := parseCallCount("/3")
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	id, err := parseID("[12]")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = parseID("12")
	assert.ErrorIs(t, err, errMissingBrackets)
	_, err = parseID("[x]")
	assert.Error(t, err)

	id, err = parseID("[10000")
	require.NoError(t, err)
	assert.Equal(t, internal.Unset, id, "cut index")
}

func TestIndexFieldsAcceptOnlyIndexes(t *testing.T) {
	for _, tok := range []string{"[1]", "[10000"} {
		assert.True(t, fieldID.accepts(tok), tok)
	}
	for _, tok := range []string{"[clone", "[x]", "[]", "[", "main"} {
		assert.False(t, fieldID.accepts(tok), tok)
		assert.False(t, fieldTrailingID.accepts(tok), tok)
	}
	assert.True(t, fieldTrailingID.accepts("[10000]"))
	assert.False(t, fieldTrailingID.accepts("[10000"))

	f := internal.NewFunction()
	rec := functionRecord{f}
	require.NoError(t, rec.set(fieldTrailingID, "[7]"))
	assert.Equal(t, 7, f.ID, "trailing index fills an unset id")
	require.NoError(t, rec.set(fieldTrailingID, "[8]"))
	assert.Equal(t, 7, f.ID)
}

func TestColumnOf(t *testing.T) {
	columns := []StatRange{{0, 4}, {8, 11}, {45, 48}}
	assert.Equal(t, 0, columnOf(StatRange{3, 6}, columns))
	assert.Equal(t, 1, columnOf(StatRange{9, 9}, columns))
	assert.Equal(t, -1, columnOf(StatRange{20, 22}, columns))
	assert.Equal(t, 2, columnOf(StatRange{60, 63}, columns), "past the last column")
	assert.Equal(t, -1, columnOf(StatRange{0, 1}, nil))
}

func TestPickPrefersFirstUnsetField(t *testing.T) {
	f := internal.NewFunction()
	rec := functionRecord{f}

	assert.Equal(t, fieldPercentSelfTime, flatFunctionSlots.pick(rec, 0, "60.00"))
	f.PercentSelfTime = 60
	assert.Equal(t, fieldTotalTime, flatFunctionSlots.pick(rec, 0, "0.03"))
	f.TotalTime = 0.03
	assert.Equal(t, fieldNone, flatFunctionSlots.pick(rec, 0, "0.03"))

	// Call counts must start with a digit, names never fill up.
	assert.Equal(t, fieldName, callGraphFunctionSlots.pick(rec, 4, "main"))
	assert.Equal(t, fieldCallCounts, callGraphFunctionSlots.pick(rec, 4, "3+1"))
	f.Name = "main"
	assert.Equal(t, fieldName, callGraphFunctionSlots.pick(rec, 5, "extra"))
	assert.Equal(t, fieldTrailingID, callGraphFunctionSlots.pick(rec, 5, "[1]"))

	assert.Equal(t, fieldNone, callGraphEdgeSlots.pick(callerRecord{internal.NewCaller()}, 0, "1.0"))
	assert.Equal(t, fieldNone, callGraphEdgeSlots.pick(rec, -1, "1.0"))
}

func TestFillRecordName(t *testing.T) {
	columns := columnRanges(flatProfileColumnsHeader, flatColumnsHeader)
	f := internal.NewFunction()
	dropped, err := fillRecord(functionRecord{f}, flatFunctionSlots, columns,
		" 50.00      0.01     0.01                             foo   bar")
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, "foo bar", f.Name)
	assert.Equal(t, 50.0, f.PercentSelfTime)
	assert.Equal(t, 0.01, f.TotalTime)
	assert.Equal(t, 0.01, f.SelfTime)
	assert.Equal(t, internal.Unset, f.CallCount)
}

func TestFillRecordDropsTokensBetweenColumns(t *testing.T) {
	columns := columnRanges(callGraphColumnsHeader, graphColumnsHeader)
	c := internal.NewCaller()
	// "7" sits between the self and children columns.
	dropped, err := fillRecord(callerRecord{c}, callGraphEdgeSlots, columns,
		"                0.00 7     0.02       1/1           main [2]")
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	internal.CallerEquals(t, c, &internal.Caller{ID: 2, Name: "main", CallCount: 1, TimeInCalledSelf: 0, TimeInCalledSubroutines: 0.02})
}

func TestFillRecordConversionError(t *testing.T) {
	columns := columnRanges(callGraphColumnsHeader, graphColumnsHeader)
	s := internal.NewSubroutine()
	_, err := fillRecord(subroutineRecord{s}, callGraphEdgeSlots, columns,
		"                0.00    0.x2       1/1           leaf [2]")
	var fe *fieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fieldSubroutineTime, fe.field)
	assert.Equal(t, "0.x2", fe.token)
}
