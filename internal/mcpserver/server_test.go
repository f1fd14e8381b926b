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

package mcpserver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gprofToPprof/internal"
	"github.com/google/gprofToPprof/internal/config"
)

const briefReport = `Flat profile:

Each sample counts as 0.01 seconds.
  %   cumulative   self              self     total           
 time   seconds   seconds    calls  ms/call  ms/call  name    
 75.00      0.03     0.03        2    15.00    15.00  work
 25.00      0.04     0.01        1    10.00    40.00  main

			Call graph


granularity: each sample hit covers 2 byte(s) for 25.00% of 0.04 seconds

index % time    self  children    called     name
                                                 <spontaneous>
[1]    100.0    0.01    0.03       1         main [1]
                0.03    0.00       2/2           work [2]
-----------------------------------------------
                0.03    0.00       2/2           main [1]
[2]     75.0    0.03    0.00       2         work [2]
-----------------------------------------------

`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte(briefReport), 0644))
	return New(config.Default(), zerolog.Nop(), "test"), path
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "unexpected content %T", result.Content[0])
	return text.Text
}

func TestParseReportTool(t *testing.T) {
	s, path := newTestServer(t)

	result, err := s.handleParseReport(context.Background(), toolRequest("parse_gprof_report", map[string]interface{}{
		"file_path": path,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, "Loaded 2 functions as "+path)
	assert.Contains(t, text, "work")

	s.mu.Lock()
	_, cached := s.reports[path]
	s.mu.Unlock()
	assert.True(t, cached)
}

func TestParseReportToolErrors(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleParseReport(context.Background(), toolRequest("parse_gprof_report", map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleParseReport(context.Background(), toolRequest("parse_gprof_report", map[string]interface{}{
		"file_path": filepath.Join(t.TempDir(), "missing.txt"),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "failed to open")
}

func TestTopFunctionsTool(t *testing.T) {
	s, path := newTestServer(t)

	// The report is loaded on first use.
	result, err := s.handleTopFunctions(context.Background(), toolRequest("top_functions", map[string]interface{}{
		"file_path": path,
		"top_n":     1.0,
		"sort_by":   "calls",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	text := resultText(t, result)
	assert.Contains(t, text, "work")
	assert.NotContains(t, text, "main")

	result, err = s.handleTopFunctions(context.Background(), toolRequest("top_functions", map[string]interface{}{
		"file_path": path,
		"sort_by":   "bogus",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGetFunctionTool(t *testing.T) {
	s, path := newTestServer(t)

	result, err := s.handleGetFunction(context.Background(), toolRequest("get_function", map[string]interface{}{
		"file_path": path,
		"name":      "work",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	text := resultText(t, result)
	assert.Contains(t, text, "Called by:")
	assert.Contains(t, text, "main")

	result, err = s.handleGetFunction(context.Background(), toolRequest("get_function", map[string]interface{}{
		"file_path": path,
		"name":      "nope",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), `function "nope" not found`)
}

func TestRunGprofTool(t *testing.T) {
	s, _ := newTestServer(t)
	var got *config.Config
	s.run = func(ctx context.Context, cfg *config.Config) (*internal.Report, error) {
		got = cfg
		f := internal.NewFunction()
		f.Name = "main"
		f.SelfTime = 0.5
		return &internal.Report{Functions: []*internal.Function{f}}, nil
	}

	result, err := s.handleRunGprof(context.Background(), toolRequest("run_gprof", map[string]interface{}{
		"executable":        "bench",
		"working_directory": "/src",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	assert.Equal(t, "bench", got.Executable)
	assert.Equal(t, "gmon.out", got.ProfileData)
	assert.Equal(t, "/src", got.WorkingDirectory)
	assert.Equal(t, "a.out", s.cfg.Executable, "server config is not modified")

	key := filepath.Join("/src", "gmon.out")
	assert.Contains(t, resultText(t, result), "Loaded 1 functions as "+key)
	r, err := s.report(key)
	require.NoError(t, err)
	assert.Equal(t, "main", r.Functions[0].Name)

	s.run = func(ctx context.Context, cfg *config.Config) (*internal.Report, error) {
		return nil, errors.New("gprof exploded")
	}
	result, err = s.handleRunGprof(context.Background(), toolRequest("run_gprof", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "gprof exploded")
}

func TestExportPprofTool(t *testing.T) {
	s, path := newTestServer(t)
	output := filepath.Join(t.TempDir(), "out.pb.gz")

	result, err := s.handleExportPprof(context.Background(), toolRequest("export_pprof", map[string]interface{}{
		"file_path":       path,
		"output_path":     output,
		"include_callers": false,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	assert.Contains(t, resultText(t, result), "Wrote 2 samples")
	assert.FileExists(t, output)
}
