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

// Package gprof parses the brief (-b) text report of GNU gprof.
package gprof

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/google/gprofToPprof/internal"
)

const (
	spontaneousCaller = "<spontaneous>"
	maxLineLength     = 1024 * 1024
)

type phase int

const (
	phaseNone phase = iota
	phaseFlatProfile
	phaseFlatProfileStats
	phaseFlatProfileStatsEnd
	phaseCallGraph
	phaseCallGraphCaller
	phaseCallGraphSubroutine
	phaseDone
)

var phaseNames = [...]string{
	phaseNone:                "none",
	phaseFlatProfile:         "flat profile",
	phaseFlatProfileStats:    "flat profile stats",
	phaseFlatProfileStatsEnd: "flat profile end",
	phaseCallGraph:           "call graph",
	phaseCallGraphCaller:     "call graph caller",
	phaseCallGraphSubroutine: "call graph subroutine",
	phaseDone:                "done",
}

func (p phase) String() string {
	return phaseNames[p]
}

// state is everything the parser knows between two lines. step receives a
// state and returns the next one.
type state struct {
	phase        phase
	flatColumns  []StatRange
	graphColumns []StatRange
	// Callers are listed above the function line they belong to.
	callers     []*internal.Caller
	subroutines []*internal.Subroutine
	current     *internal.Function
}

// ParseError reports a line whose statistics could not be converted.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Stats counts the input the parser had to ignore.
type Stats struct {
	Lines         int
	SkippedLines  int
	DroppedTokens int
}

// Option configures a GprofParser.
type Option func(*GprofParser)

// WithLogger sets the logger that receives skipped line diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *GprofParser) {
		g.logger = logger
	}
}

// GprofParser turns gprof -b output into an internal.Report. A parser is
// single use.
type GprofParser struct {
	input  io.Reader
	logger zerolog.Logger
	asm    *assembler
	stats  Stats
}

func MakeGprofParser(file io.Reader, opts ...Option) (*GprofParser, error) {
	if file == nil {
		return nil, errors.New("gprof parser needs an input")
	}
	g := &GprofParser{
		input:  file,
		logger: zerolog.Nop(),
		asm:    &assembler{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Stats returns the counters of the last ParseProfile call.
func (g *GprofParser) Stats() Stats {
	return g.stats
}

// ParseProfile reads lines until the call graph ends or the input is
// exhausted. Input after the call graph is left unread.
func (g *GprofParser) ParseProfile() (*internal.Report, error) {
	scanner := bufio.NewScanner(g.input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	s := state{phase: phaseNone}
	for s.phase != phaseDone && scanner.Scan() {
		g.stats.Lines++
		var err error
		s, err = g.step(s, classify(g.stats.Lines, scanner.Text()))
		if err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading gprof output: %w", err)
	}
	if s.phase != phaseDone {
		g.logger.Debug().Stringer("state", s.phase).Msg("gprof output ended before the call graph terminator")
		attachSubroutines(s.current, s.subroutines)
	}
	g.logger.Debug().
		Int("functions", len(g.asm.functions)).
		Int("lines", g.stats.Lines).
		Int("skipped_lines", g.stats.SkippedLines).
		Int("dropped_tokens", g.stats.DroppedTokens).
		Msg("parsed gprof report")
	return g.asm.report(), nil
}

func (g *GprofParser) step(s state, l line) (state, error) {
	switch s.phase {
	case phaseNone:
		if l.kind == headerLine && l.header == flatProfileHeader {
			s.phase = phaseFlatProfile
			return s, nil
		}
	case phaseFlatProfile:
		if l.kind == headerLine && l.header == flatProfileColumnsHeader {
			s.flatColumns = columnRanges(l.header, l.raw)
			s.phase = phaseFlatProfileStats
			return s, nil
		}
	case phaseFlatProfileStats:
		return g.stepFlatProfileStats(s, l)
	case phaseFlatProfileStatsEnd:
		if l.kind == headerLine && l.header == callGraphHeader {
			s.phase = phaseCallGraph
			return s, nil
		}
	case phaseCallGraph:
		if l.kind == headerLine && l.header == callGraphColumnsHeader {
			s.graphColumns = columnRanges(l.header, l.raw)
			s.phase = phaseCallGraphCaller
			return s, nil
		}
	case phaseCallGraphCaller:
		return g.stepCaller(s, l)
	case phaseCallGraphSubroutine:
		return g.stepSubroutine(s, l)
	}
	g.skip(s, l)
	return s, nil
}

func (g *GprofParser) stepFlatProfileStats(s state, l line) (state, error) {
	switch l.kind {
	case blankLine:
		s.phase = phaseFlatProfileStatsEnd
		return s, nil
	case dataLine:
		f := internal.NewFunction()
		if err := g.fill(l, functionRecord{f}, flatFunctionSlots, s.flatColumns); err != nil {
			return s, err
		}
		if f.Name == "" {
			break
		}
		if !g.asm.addFlat(f) {
			g.logger.Debug().Int("line", l.number).Str("function", f.Name).Msg("duplicate flat profile entry")
		}
		return s, nil
	}
	g.skip(s, l)
	return s, nil
}

func (g *GprofParser) stepCaller(s state, l line) (state, error) {
	switch l.kind {
	case blankLine:
		s.phase = phaseDone
		return s, nil
	case dataLine:
		if strings.TrimSpace(l.raw) == spontaneousCaller {
			return s, nil
		}
		if strings.HasPrefix(l.raw, "[") {
			return g.stepFunction(s, l)
		}
		c := internal.NewCaller()
		if err := g.fill(l, callerRecord{c}, callGraphEdgeSlots, s.graphColumns); err != nil {
			return s, err
		}
		if c.Name == "" {
			break
		}
		g.asm.registerCaller(c)
		s.callers = append(s.callers, c)
		return s, nil
	}
	g.skip(s, l)
	return s, nil
}

// stepFunction handles the "[n]" line that opens a call graph entry.
func (g *GprofParser) stepFunction(s state, l line) (state, error) {
	f := internal.NewFunction()
	if err := g.fill(l, functionRecord{f}, callGraphFunctionSlots, s.graphColumns); err != nil {
		return s, err
	}
	if f.Name == "" {
		g.skip(s, l)
		return s, nil
	}
	s.current = g.asm.mergeCallGraph(f)
	attachCallers(s.current, s.callers)
	s.callers = nil
	s.phase = phaseCallGraphSubroutine
	return s, nil
}

func (g *GprofParser) stepSubroutine(s state, l line) (state, error) {
	switch l.kind {
	case separatorLine, blankLine:
		attachSubroutines(s.current, s.subroutines)
		s.subroutines = nil
		s.current = nil
		s.phase = phaseCallGraphCaller
		if l.kind == blankLine {
			s.phase = phaseDone
		}
		return s, nil
	case dataLine:
		sub := internal.NewSubroutine()
		if err := g.fill(l, subroutineRecord{sub}, callGraphEdgeSlots, s.graphColumns); err != nil {
			return s, err
		}
		if sub.Name == "" {
			break
		}
		s.subroutines = append(s.subroutines, sub)
		return s, nil
	}
	g.skip(s, l)
	return s, nil
}

func (g *GprofParser) fill(l line, rec record, table slotTable, columns []StatRange) error {
	dropped, err := fillRecord(rec, table, columns, l.raw)
	if dropped > 0 {
		g.stats.DroppedTokens += dropped
		g.logger.Debug().Int("line", l.number).Int("tokens", dropped).Msg("dropped tokens outside known columns")
	}
	if err != nil {
		return &ParseError{Line: l.number, Text: l.raw, Err: err}
	}
	return nil
}

// skip records a line that does not fit the grammar of the current state.
// Such lines are ignored.
func (g *GprofParser) skip(s state, l line) {
	g.stats.SkippedLines++
	g.logger.Debug().
		Int("line", l.number).
		Stringer("state", s.phase).
		Stringer("kind", l.kind).
		Str("text", l.raw).
		Msg("skipping line")
}
