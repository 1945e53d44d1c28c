// Package api renders command results for the CLI.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// OutputFormat defines the output format for CLI commands.
type OutputFormat string

const (
	OutputFormatYAML  OutputFormat = "yaml"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatTable OutputFormat = "table"
)

// DefaultOutput is the default output format.
var DefaultOutput OutputFormat = OutputFormatYAML

// globalOutputFormat is set by the root command's --output flag.
var globalOutputFormat OutputFormat = OutputFormatYAML

// Tabular is implemented by results that can render as a table.
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(format string) (OutputFormat, error) {
	switch OutputFormat(format) {
	case OutputFormatJSON, OutputFormatYAML, OutputFormatTable:
		return OutputFormat(format), nil
	case "":
		return DefaultOutput, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want yaml, json or table)", format)
	}
}

// SetOutputFormat sets the global output format. Unknown values fall back
// to DefaultOutput.
func SetOutputFormat(format string) {
	f, err := ParseOutputFormat(format)
	if err != nil {
		f = DefaultOutput
	}
	globalOutputFormat = f
}

// GetOutputFormat returns the current global output format.
func GetOutputFormat() OutputFormat {
	return globalOutputFormat
}

// Output writes data to stdout in the configured format.
func Output(data any) error {
	return OutputTo(os.Stdout, globalOutputFormat, data)
}

// OutputTo writes data to the given writer in the specified format.
// The table format requires data to implement Tabular and falls back to
// YAML otherwise.
func OutputTo(w io.Writer, format OutputFormat, data any) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	case OutputFormatTable:
		t, ok := data.(Tabular)
		if !ok {
			return OutputTo(w, OutputFormatYAML, data)
		}
		return writeTable(w, t)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func writeTable(w io.Writer, t Tabular) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if h := t.Header(); len(h) > 0 {
		fmt.Fprintln(tw, strings.Join(h, "\t"))
	}
	for _, row := range t.Rows() {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ReplaceAll(c, "\t", " ")
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
