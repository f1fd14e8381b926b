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

import "strings"

// StatRange is the inclusive [Start, End] byte span of one token in a line.
type StatRange struct {
	Start int
	End   int
}

// Overlaps reports whether the two ranges share at least one index.
func (r StatRange) Overlaps(o StatRange) bool {
	return r.Start <= o.End && r.End >= o.Start
}

func (r StatRange) text(line string) string {
	return line[r.Start : r.End+1]
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// Range finds the next token of line at or after from. A bare '%' is never
// the start of a token, so the header "% time" yields the range of "time".
func Range(line string, from int) (StatRange, bool) {
	if from < 0 {
		from = 0
	}
	start := -1
	for i := from; i < len(line); i++ {
		if !isSpace(line[i]) && line[i] != '%' {
			start = i
			break
		}
	}
	if start == -1 {
		return StatRange{}, false
	}
	end := len(line) - 1
	for i := start; i < len(line); i++ {
		if isSpace(line[i]) {
			end = i - 1
			break
		}
	}
	return StatRange{Start: start, End: end}, true
}

// ranges returns at most n consecutive token ranges of line.
func ranges(line string, n int) []StatRange {
	out := make([]StatRange, 0, n)
	pos := 0
	for len(out) < n {
		r, ok := Range(line, pos)
		if !ok {
			break
		}
		out = append(out, r)
		pos = r.End + 1
	}
	return out
}

// headerKind names the fixed token sequences that delimit sections.
type headerKind int

const (
	noHeader headerKind = iota
	flatProfileHeader
	flatProfileColumnsHeader
	callGraphHeader
	callGraphColumnsHeader
)

const (
	flatProfileColumnCount = 7
	callGraphColumnCount   = 6
)

var headers = []struct {
	kind   headerKind
	tokens []string
}{
	{flatProfileHeader, []string{"Flat", "profile:"}},
	{flatProfileColumnsHeader, []string{"time", "seconds", "seconds", "calls", "ms/call", "ms/call", "name"}},
	{callGraphHeader, []string{"Call", "graph"}},
	{callGraphColumnsHeader, []string{"index", "%", "time", "self", "children", "called", "name"}},
}

func tokensMatch(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func matchHeader(tokens []string) headerKind {
	for _, h := range headers {
		if tokensMatch(h.tokens, tokens) {
			return h.kind
		}
	}
	return noHeader
}

// columnRanges computes the column ranges of a column header line.
func columnRanges(kind headerKind, line string) []StatRange {
	switch kind {
	case flatProfileColumnsHeader:
		return ranges(line, flatProfileColumnCount)
	case callGraphColumnsHeader:
		return ranges(line, callGraphColumnCount)
	}
	return nil
}

type lineKind int

const (
	blankLine lineKind = iota
	headerLine
	separatorLine
	dataLine
)

func (k lineKind) String() string {
	switch k {
	case blankLine:
		return "blank"
	case headerLine:
		return "header"
	case separatorLine:
		return "separator"
	}
	return "data"
}

// Call graph entries are separated by a line of dashes.
const separatorPrefix = "------------------"

// line is one classified input line.
type line struct {
	number int
	raw    string
	kind   lineKind
	header headerKind
	tokens []string
}

// classify splits raw into tokens and decides its kind. Lines holding only
// whitespace are blank: they end the flat profile and the call graph.
func classify(number int, raw string) line {
	l := line{number: number, raw: raw, tokens: strings.Fields(raw)}
	switch {
	case len(l.tokens) == 0:
		l.kind = blankLine
	case len(l.tokens) == 1 && strings.HasPrefix(l.tokens[0], separatorPrefix):
		l.kind = separatorLine
	default:
		if h := matchHeader(l.tokens); h != noHeader {
			l.kind = headerLine
			l.header = h
		} else {
			l.kind = dataLine
		}
	}
	return l
}
