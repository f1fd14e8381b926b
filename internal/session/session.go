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

// Package session runs gprof on a profiled program and parses its report.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/google/gprofToPprof/internal"
	"github.com/google/gprofToPprof/internal/config"
	"github.com/google/gprofToPprof/internal/logging"
	"github.com/google/gprofToPprof/internal/parsers"
)

// stderrTailLines is how much of gprof's stderr is kept for error messages.
const stderrTailLines = 10

// LaunchError means gprof could not be found or started.
type LaunchError struct {
	Command []string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("the command '%s' could not be run: %v", strings.Join(e.Command, " "), e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// ExitError means gprof ran but did not exit cleanly.
type ExitError struct {
	Command []string
	Code    int
	// Stderr holds the last lines gprof wrote to stderr.
	Stderr []string
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command[0], e.Code)
	if len(e.Stderr) > 0 {
		msg += ": " + strings.Join(e.Stderr, "; ")
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Session runs gprof -b for one configuration.
type Session struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) *Session {
	return &Session{cfg: cfg, logger: logging.Component(logger, "session")}
}

// Command returns the gprof invocation, program first.
func (s *Session) Command() []string {
	return []string{s.cfg.GprofCommand, "-b", s.cfg.Executable, s.cfg.ProfileData}
}

// tail keeps the last n lines appended to it.
type tail struct {
	n     int
	lines []string
}

func (t *tail) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

// drainStderr logs every stderr line of gprof. It reads r to the end even
// when a line is too long to scan, so gprof never blocks on a full pipe.
func (s *Session) drainStderr(r io.Reader, t *tail) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		s.logger.Warn().Str("stderr", line).Msg("gprof")
		t.add(line)
	}
	err := scanner.Err()
	if err != nil {
		if _, copyErr := io.Copy(io.Discard, r); copyErr != nil {
			return errors.Join(err, copyErr)
		}
	}
	return err
}

// Run starts gprof, parses its stdout while logging its stderr, and waits
// for it to exit. Cancelling ctx kills gprof.
func (s *Session) Run(ctx context.Context) (*internal.Report, error) {
	args := s.Command()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = s.cfg.WorkingDirectory

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &LaunchError{Command: args, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &LaunchError{Command: args, Err: err}
	}
	s.logger.Debug().Strs("command", args).Str("dir", cmd.Dir).Msg("starting gprof")
	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Command: args, Err: err}
	}

	errTail := &tail{n: stderrTailLines}
	var g errgroup.Group
	g.Go(func() error {
		return s.drainStderr(stderr, errTail)
	})

	report, parseErr := parsers.ParseReport(stdout, logging.Component(s.logger, "parser"))
	// The parser stops at the end of the call graph. gprof must still be
	// able to write the rest.
	if _, err := io.Copy(io.Discard, stdout); err != nil {
		s.logger.Debug().Err(err).Msg("draining gprof stdout")
	}
	if err := g.Wait(); err != nil {
		s.logger.Debug().Err(err).Msg("reading gprof stderr")
	}
	waitErr := cmd.Wait()

	if parseErr != nil {
		return nil, fmt.Errorf("parsing output of %s: %w", args[0], parseErr)
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return nil, &ExitError{Command: args, Code: exitErr.ExitCode(), Stderr: errTail.lines, Err: waitErr}
	}
	if waitErr != nil {
		return nil, fmt.Errorf("waiting for %s: %w", args[0], waitErr)
	}
	s.logger.Info().Int("functions", len(report.Functions)).Msg("parsed gprof report")
	return report, nil
}
