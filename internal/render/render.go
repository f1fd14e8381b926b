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

// Package render prints reports as tables, CSV, JSON or folded stacks.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/google/gprofToPprof/internal"
)

// Format is a textual output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"

	// FormatCollapsed prints folded stacks for flame graph tools.
	FormatCollapsed Format = "collapsed"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatTable, FormatJSON, FormatCSV, FormatCollapsed:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s", name)
}

// unset values print as "-".
func formatFloat(v float64) string {
	if !internal.IsSet(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatInt(v int) string {
	if !internal.IsSetInt(v) {
		return "-"
	}
	return strconv.Itoa(v)
}

func formatCalls(f *internal.Function) string {
	if internal.IsSetInt(f.RecursiveCallCount) {
		return formatInt(f.CallCount) + "+" + formatInt(f.RecursiveCallCount)
	}
	return formatInt(f.CallCount)
}

var functionHeaders = []string{"INDEX", "NAME", "% SELF", "% TOTAL", "SELF", "CHILDREN", "CALLS", "SELF MS/CALL", "TOTAL MS/CALL"}

func functionRow(f *internal.Function) []string {
	id := "-"
	if internal.IsSetInt(f.ID) {
		id = "[" + strconv.Itoa(f.ID) + "]"
	}
	return []string{
		id,
		f.Name,
		formatFloat(f.PercentSelfTime),
		formatFloat(f.PercentTotalTime),
		formatFloat(f.SelfTime),
		formatFloat(f.SubroutineTime),
		formatCalls(f),
		formatFloat(f.SelfMsPerCall),
		formatFloat(f.TotalMsPerCall),
	}
}

// writeTable prints a borderless, left aligned table.
func writeTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("   ")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}

func writeCSV(w io.Writer, headers []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Functions prints one row per function.
func Functions(w io.Writer, functions []*internal.Function, format Format) error {
	switch format {
	case FormatCollapsed:
		return writeCollapsed(w, functions)
	case FormatJSON:
		views := make([]functionView, 0, len(functions))
		for _, f := range functions {
			views = append(views, newFunctionView(f, false))
		}
		return writeJSON(w, views)
	}
	rows := make([][]string, 0, len(functions))
	for _, f := range functions {
		rows = append(rows, functionRow(f))
	}
	switch format {
	case FormatTable:
		writeTable(w, functionHeaders, rows)
		return nil
	case FormatCSV:
		return writeCSV(w, functionHeaders, rows)
	}
	return fmt.Errorf("unsupported format: %s", format)
}

var edgeHeaders = []string{"INDEX", "NAME", "CALLS", "SELF", "CHILDREN"}

func edgeRow(id int, name string, calls int, self, children float64) []string {
	index := "-"
	if internal.IsSetInt(id) {
		index = "[" + strconv.Itoa(id) + "]"
	}
	return []string{index, name, formatInt(calls), formatFloat(self), formatFloat(children)}
}

// FunctionDetail prints f followed by its callers and subroutines. CSV is
// not supported.
func FunctionDetail(w io.Writer, f *internal.Function, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, newFunctionView(f, true))
	case FormatTable:
	default:
		return fmt.Errorf("unsupported format for a single function: %s", format)
	}
	writeTable(w, functionHeaders, [][]string{functionRow(f)})
	if len(f.Callers) > 0 {
		rows := make([][]string, 0, len(f.Callers))
		for _, c := range f.Callers {
			rows = append(rows, edgeRow(c.ID, c.Name, c.CallCount, c.TimeInCalledSelf, c.TimeInCalledSubroutines))
		}
		if _, err := fmt.Fprintln(w, "\nCalled by:"); err != nil {
			return err
		}
		writeTable(w, edgeHeaders, rows)
	}
	if len(f.Subroutines) > 0 {
		rows := make([][]string, 0, len(f.Subroutines))
		for _, s := range f.Subroutines {
			rows = append(rows, edgeRow(s.ID, s.Name, s.CallCount, s.TimeInSubroutineSelf, s.TimeInSubroutineSubroutines))
		}
		if _, err := fmt.Fprintln(w, "\nCalls:"); err != nil {
			return err
		}
		writeTable(w, edgeHeaders, rows)
	}
	return nil
}
