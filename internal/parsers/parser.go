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

package parsers

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/google/gprofToPprof/internal"
	"github.com/google/gprofToPprof/internal/parsers/gprof"
)

type Parser interface {
	ParseProfile() (r *internal.Report, err error)
}

func MakeGprofParser(file io.Reader, logger zerolog.Logger) (Parser, error) {
	g, err := gprof.MakeGprofParser(file, gprof.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return g, nil
}

// ParseReport parses a complete gprof -b report from r.
func ParseReport(r io.Reader, logger zerolog.Logger) (*internal.Report, error) {
	p, err := MakeGprofParser(r, logger)
	if err != nil {
		return nil, err
	}
	return p.ParseProfile()
}
