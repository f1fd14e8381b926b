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

// Package mcpserver exposes gprof reports to MCP clients over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/google/gprofToPprof/internal"
	"github.com/google/gprofToPprof/internal/config"
	"github.com/google/gprofToPprof/internal/logging"
	"github.com/google/gprofToPprof/internal/parsers"
	"github.com/google/gprofToPprof/internal/render"
	"github.com/google/gprofToPprof/internal/session"
)

const (
	serverName  = "gprof-to-pprof"
	defaultTopN = 10
)

// RunFunc produces a report by running gprof with cfg.
type RunFunc func(ctx context.Context, cfg *config.Config) (*internal.Report, error)

// Server holds the MCP tool set and the reports loaded so far, keyed by the
// path of the gprof output or profile data they came from.
type Server struct {
	mcp    *server.MCPServer
	cfg    *config.Config
	logger zerolog.Logger
	run    RunFunc

	mu      sync.Mutex
	reports map[string]*internal.Report
}

// New creates a server whose run_gprof tool starts from cfg.
func New(cfg *config.Config, logger zerolog.Logger, version string) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logging.Component(logger, "mcp"),
		reports: make(map[string]*internal.Report),
	}
	s.run = func(ctx context.Context, cfg *config.Config) (*internal.Report, error) {
		return session.New(cfg, s.logger).Run(ctx)
	}
	s.mcp = server.NewMCPServer(serverName, version,
		server.WithLogging(),
		server.WithRecovery(),
	)
	s.registerTools()
	return s
}

// ServeStdio serves MCP requests on stdin and stdout until the client goes
// away.
func (s *Server) ServeStdio() error {
	s.logger.Info().Msg("serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("parse_gprof_report",
		mcp.WithDescription("Parse a file holding the output of 'gprof -b' and summarize the hottest functions"),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the saved gprof -b output"),
		),
	), s.handleParseReport)

	s.mcp.AddTool(mcp.NewTool("run_gprof",
		mcp.WithDescription("Run gprof -b on a profiled program and its gmon.out, then summarize the hottest functions"),
		mcp.WithString("executable",
			mcp.Description("Profiled program, relative to the working directory"),
		),
		mcp.WithString("profile_data",
			mcp.Description("gmon.out file written by the program"),
		),
		mcp.WithString("working_directory",
			mcp.Description("Directory gprof runs in"),
		),
	), s.handleRunGprof)

	s.mcp.AddTool(mcp.NewTool("top_functions",
		mcp.WithDescription("List the functions of a report ordered by self time, total time or calls"),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Report key returned by parse_gprof_report or run_gprof"),
		),
		mcp.WithNumber("top_n",
			mcp.Description("Number of functions to return (default 10, 0 for all)"),
		),
		mcp.WithString("sort_by",
			mcp.Description("self, total or calls (default self)"),
		),
	), s.handleTopFunctions)

	s.mcp.AddTool(mcp.NewTool("get_function",
		mcp.WithDescription("Show one function with its callers and subroutines"),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Report key returned by parse_gprof_report or run_gprof"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Function name as printed by gprof"),
		),
	), s.handleGetFunction)

	s.mcp.AddTool(mcp.NewTool("export_pprof",
		mcp.WithDescription("Write a report as a gzipped pprof profile"),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Report key returned by parse_gprof_report or run_gprof"),
		),
		mcp.WithString("output_path",
			mcp.Required(),
			mcp.Description("Where to write the .pb.gz profile"),
		),
		mcp.WithBoolean("include_callers",
			mcp.Description("Use call graph callers as parent frames (default true)"),
		),
	), s.handleExportPprof)
}

func (s *Server) store(key string, r *internal.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[key] = r
}

// report returns the cached report for key, parsing the file named by key
// the first time.
func (s *Server) report(key string) (*internal.Report, error) {
	s.mu.Lock()
	r, ok := s.reports[key]
	s.mu.Unlock()
	if ok {
		return r, nil
	}
	return s.load(key)
}

func (s *Server) load(path string) (*internal.Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	r, err := parsers.ParseReport(file, logging.Component(s.logger, "parser"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	s.store(path, r)
	return r, nil
}

func summarize(key string, r *internal.Report) (string, error) {
	top, err := r.TopFunctions(defaultTopN, internal.SortBySelfTime)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Loaded %d functions as %s\n\n", len(r.Functions), key)
	if len(top) == 0 {
		return sb.String(), nil
	}
	sb.WriteString("Top functions by self time:\n")
	if err := render.Functions(&sb, top, render.FormatTable); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (s *Server) handleParseReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := s.load(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := summarize(path, r)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleRunGprof(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := *s.cfg
	cfg.Executable = request.GetString("executable", cfg.Executable)
	cfg.ProfileData = request.GetString("profile_data", cfg.ProfileData)
	cfg.WorkingDirectory = request.GetString("working_directory", cfg.WorkingDirectory)

	r, err := s.run(ctx, &cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key := filepath.Join(cfg.WorkingDirectory, cfg.ProfileData)
	s.store(key, r)
	text, err := summarize(key, r)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleTopFunctions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := s.report(key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n := int(request.GetFloat("top_n", defaultTopN))
	by := internal.SortKey(request.GetString("sort_by", string(internal.SortBySelfTime)))
	top, err := r.TopFunctions(n, by)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var sb strings.Builder
	if err := render.Functions(&sb, top, render.FormatTable); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleGetFunction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := s.report(key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f := r.Function(name)
	if f == nil {
		return mcp.NewToolResultError(fmt.Sprintf("function %q not found in %s", name, key)), nil
	}
	var sb strings.Builder
	if err := render.FunctionDetail(&sb, f, render.FormatTable); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleExportPprof(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output, err := request.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := s.report(key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p := internal.ReportToPprof(r, request.GetBool("include_callers", true))
	if err := internal.WritePprof(p, output); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Wrote %d samples to %s", len(p.Sample), output)), nil
}
