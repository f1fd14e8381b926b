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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gprofToPprof/internal"
)

// field is a logical statistic a column token can be stored in.
type field int

const (
	fieldNone field = iota
	fieldID
	// fieldTrailingID is the "[n]" repeated at the end of a call graph
	// function line.
	fieldTrailingID
	fieldName
	fieldPercentSelfTime
	fieldPercentTotalTime
	fieldSelfTime
	fieldSubroutineTime
	fieldTotalTime
	// fieldCallCount is "N" or "N/T" on caller and subroutine lines.
	fieldCallCount
	// fieldCallCounts is "N" or "N+M" (M recursive) on function lines.
	fieldCallCounts
	fieldSelfMsPerCall
	fieldTotalMsPerCall
)

var fieldNames = map[field]string{
	fieldNone:             "none",
	fieldID:               "id",
	fieldTrailingID:       "trailing id",
	fieldName:             "name",
	fieldPercentSelfTime:  "% self time",
	fieldPercentTotalTime: "% total time",
	fieldSelfTime:         "self time",
	fieldSubroutineTime:   "subroutine time",
	fieldTotalTime:        "total time",
	fieldCallCount:        "call count",
	fieldCallCounts:       "call counts",
	fieldSelfMsPerCall:    "self ms/call",
	fieldTotalMsPerCall:   "total ms/call",
}

func (f field) String() string {
	return fieldNames[f]
}

// accepts reports whether tok has the shape f expects.
func (f field) accepts(tok string) bool {
	switch f {
	case fieldID:
		_, _, ok := indexDigits(tok)
		return ok
	case fieldTrailingID:
		_, closed, ok := indexDigits(tok)
		return ok && closed
	case fieldCallCount, fieldCallCounts:
		// Names of uncalled functions can drift into the called column.
		return tok[0] >= '0' && tok[0] <= '9'
	}
	return true
}

// appendable fields take any number of tokens and are never "full".
func (f field) appendable() bool {
	return f == fieldName || f == fieldTrailingID
}

// slotTable lists, for every physical column, the logical fields that may
// occupy it in preference order. Several fields share a column because
// gprof prints values wider than their headers.
type slotTable [][]field

var (
	flatFunctionSlots = slotTable{
		{fieldPercentSelfTime, fieldTotalTime},
		{fieldTotalTime, fieldSelfTime},
		{fieldSelfTime, fieldCallCounts},
		{fieldCallCounts, fieldSelfMsPerCall},
		{fieldSelfMsPerCall, fieldTotalMsPerCall},
		{fieldTotalMsPerCall, fieldName},
		{fieldName},
	}

	callGraphFunctionSlots = slotTable{
		{fieldID, fieldPercentTotalTime},
		{fieldPercentTotalTime, fieldSelfTime},
		{fieldSelfTime, fieldSubroutineTime},
		{fieldSubroutineTime, fieldCallCounts},
		{fieldCallCounts, fieldName},
		{fieldTrailingID, fieldName},
	}

	// Callers and subroutines leave the index and % time columns empty.
	callGraphEdgeSlots = slotTable{
		{},
		{},
		{fieldSelfTime, fieldSubroutineTime},
		{fieldSubroutineTime, fieldCallCount},
		{fieldCallCount, fieldName},
		{fieldID, fieldName},
	}
)

// record is a model object being filled in one token at a time.
type record interface {
	isSet(f field) bool
	set(f field, tok string) error
}

// pick returns the field of column col that tok should be stored in, or
// fieldNone when every candidate is already set.
func (t slotTable) pick(rec record, col int, tok string) field {
	if col < 0 || col >= len(t) {
		return fieldNone
	}
	for _, f := range t[col] {
		if !f.accepts(tok) {
			continue
		}
		if f.appendable() || !rec.isSet(f) {
			return f
		}
	}
	return fieldNone
}

// columnOf returns the index of the first column r overlaps. Tokens past the
// start of the last column belong to it. -1 means r falls between columns.
func columnOf(r StatRange, columns []StatRange) int {
	for i, c := range columns {
		if r.Overlaps(c) {
			return i
		}
	}
	if n := len(columns); n > 0 && r.Start >= columns[n-1].Start {
		return n - 1
	}
	return -1
}

var errMissingBrackets = errors.New("missing brackets")

// fieldError is a token that could not be converted into its field.
type fieldError struct {
	field field
	token string
	err   error
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.field, e.token, e.err)
}

func (e *fieldError) Unwrap() error {
	return e.err
}

// fillRecord slices raw with columns and stores every token in rec. It
// returns the number of tokens that could not be placed.
func fillRecord(rec record, table slotTable, columns []StatRange, raw string) (dropped int, err error) {
	pos := 0
	for {
		r, ok := Range(raw, pos)
		if !ok {
			return dropped, nil
		}
		pos = r.End + 1
		tok := r.text(raw)
		f := table.pick(rec, columnOf(r, columns), tok)
		if f == fieldNone {
			dropped++
			continue
		}
		if err := rec.set(f, tok); err != nil {
			return dropped, err
		}
	}
}

func appendName(name, tok string) string {
	if name == "" {
		return tok
	}
	return name + " " + tok
}

func parseFloat(f field, tok string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, &fieldError{field: f, token: tok, err: err}
	}
	return v, nil
}

// indexDigits returns the digits of an index token "[12]". gprof cuts the
// index of a call graph function line to six characters, so "[10000" is an
// index too, reported as not closed.
func indexDigits(tok string) (digits string, closed bool, ok bool) {
	if !strings.HasPrefix(tok, "[") {
		return "", false, false
	}
	digits, closed = strings.CutSuffix(tok[1:], "]")
	if digits == "" {
		return "", false, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return "", false, false
		}
	}
	return digits, closed, true
}

// parseID converts "[12]" into 12. A cut index such as "[10000" leaves the
// id unset.
func parseID(tok string) (int, error) {
	digits, closed, ok := indexDigits(tok)
	if !ok {
		return 0, &fieldError{field: fieldID, token: tok, err: errMissingBrackets}
	}
	if !closed {
		return internal.Unset, nil
	}
	id, err := strconv.Atoi(digits)
	if err != nil {
		return 0, &fieldError{field: fieldID, token: tok, err: err}
	}
	return id, nil
}

// parseCallCounts converts "N" or "N+M" into the total and recursive call
// counts. The recursive count is internal.Unset when there is no '+'.
func parseCallCounts(tok string) (calls int, recursive int, err error) {
	recursive = internal.Unset
	head, tail, found := strings.Cut(tok, "+")
	calls, err = strconv.Atoi(head)
	if err != nil {
		return 0, 0, &fieldError{field: fieldCallCounts, token: tok, err: err}
	}
	if found {
		recursive, err = strconv.Atoi(tail)
		if err != nil {
			return 0, 0, &fieldError{field: fieldCallCounts, token: tok, err: err}
		}
	}
	return calls, recursive, nil
}

// parseCallCount converts "N", "N/T" or, for members of a cycle, "N+M" into
// N.
func parseCallCount(tok string) (int, error) {
	head, _, _ := strings.Cut(tok, "/")
	head, _, _ = strings.Cut(head, "+")
	calls, err := strconv.Atoi(head)
	if err != nil {
		return 0, &fieldError{field: fieldCallCount, token: tok, err: err}
	}
	return calls, nil
}

type functionRecord struct {
	*internal.Function
}

func (r functionRecord) isSet(f field) bool {
	switch f {
	case fieldID:
		return internal.IsSetInt(r.ID)
	case fieldName:
		return r.Name != ""
	case fieldPercentSelfTime:
		return internal.IsSet(r.PercentSelfTime)
	case fieldPercentTotalTime:
		return internal.IsSet(r.PercentTotalTime)
	case fieldSelfTime:
		return internal.IsSet(r.SelfTime)
	case fieldSubroutineTime:
		return internal.IsSet(r.SubroutineTime)
	case fieldTotalTime:
		return internal.IsSet(r.TotalTime)
	case fieldCallCounts:
		return internal.IsSetInt(r.CallCount)
	case fieldSelfMsPerCall:
		return internal.IsSet(r.SelfMsPerCall)
	case fieldTotalMsPerCall:
		return internal.IsSet(r.TotalMsPerCall)
	}
	return false
}

func (r functionRecord) set(f field, tok string) (err error) {
	switch f {
	case fieldID:
		r.ID, err = parseID(tok)
	case fieldTrailingID:
		// The repeated index stands in for a cut leading one.
		if !internal.IsSetInt(r.ID) {
			r.ID, err = parseID(tok)
		}
	case fieldName:
		r.Name = appendName(r.Name, tok)
	case fieldPercentSelfTime:
		r.PercentSelfTime, err = parseFloat(f, tok)
	case fieldPercentTotalTime:
		r.PercentTotalTime, err = parseFloat(f, tok)
	case fieldSelfTime:
		r.SelfTime, err = parseFloat(f, tok)
	case fieldSubroutineTime:
		r.SubroutineTime, err = parseFloat(f, tok)
	case fieldTotalTime:
		r.TotalTime, err = parseFloat(f, tok)
	case fieldCallCounts:
		r.CallCount, r.RecursiveCallCount, err = parseCallCounts(tok)
	case fieldSelfMsPerCall:
		r.SelfMsPerCall, err = parseFloat(f, tok)
	case fieldTotalMsPerCall:
		r.TotalMsPerCall, err = parseFloat(f, tok)
	default:
		err = fmt.Errorf("function has no %s field", f)
	}
	return err
}

type callerRecord struct {
	*internal.Caller
}

func (r callerRecord) isSet(f field) bool {
	switch f {
	case fieldID:
		return internal.IsSetInt(r.ID)
	case fieldName:
		return r.Name != ""
	case fieldSelfTime:
		return internal.IsSet(r.TimeInCalledSelf)
	case fieldSubroutineTime:
		return internal.IsSet(r.TimeInCalledSubroutines)
	case fieldCallCount:
		return internal.IsSetInt(r.CallCount)
	}
	return false
}

func (r callerRecord) set(f field, tok string) (err error) {
	switch f {
	case fieldID:
		r.ID, err = parseID(tok)
	case fieldName:
		r.Name = appendName(r.Name, tok)
	case fieldSelfTime:
		r.TimeInCalledSelf, err = parseFloat(f, tok)
	case fieldSubroutineTime:
		r.TimeInCalledSubroutines, err = parseFloat(f, tok)
	case fieldCallCount:
		r.CallCount, err = parseCallCount(tok)
	default:
		err = fmt.Errorf("caller has no %s field", f)
	}
	return err
}

type subroutineRecord struct {
	*internal.Subroutine
}

func (r subroutineRecord) isSet(f field) bool {
	switch f {
	case fieldID:
		return internal.IsSetInt(r.ID)
	case fieldName:
		return r.Name != ""
	case fieldSelfTime:
		return internal.IsSet(r.TimeInSubroutineSelf)
	case fieldSubroutineTime:
		return internal.IsSet(r.TimeInSubroutineSubroutines)
	case fieldCallCount:
		return internal.IsSetInt(r.CallCount)
	}
	return false
}

func (r subroutineRecord) set(f field, tok string) (err error) {
	switch f {
	case fieldID:
		r.ID, err = parseID(tok)
	case fieldName:
		r.Name = appendName(r.Name, tok)
	case fieldSelfTime:
		r.TimeInSubroutineSelf, err = parseFloat(f, tok)
	case fieldSubroutineTime:
		r.TimeInSubroutineSubroutines, err = parseFloat(f, tok)
	case fieldCallCount:
		r.CallCount, err = parseCallCount(tok)
	default:
		err = fmt.Errorf("subroutine has no %s field", f)
	}
	return err
}
