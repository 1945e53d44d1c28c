package api

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

type sampleTable []sample

func (s sampleTable) Header() []string { return []string{"NAME", "COUNT"} }

func (s sampleTable) Rows() [][]string {
	rows := make([][]string, len(s))
	for i, r := range s {
		rows[i] = []string{r.Name, strings.Repeat("*", r.Count)}
	}
	return rows
}

func TestOutputTo(t *testing.T) {
	data := sampleTable{{Name: "chat", Count: 1}, {Name: "chien\tx", Count: 2}}

	tests := []struct {
		format OutputFormat
		want   []string
	}{
		{OutputFormatJSON, []string{`"name": "chat"`, `"count": 2`}},
		{OutputFormatYAML, []string{"- name: chat", "  count: 1"}},
		{OutputFormatTable, []string{"NAME", "chat", "chien x"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := OutputTo(&buf, tt.format, data); err != nil {
				t.Fatalf("OutputTo() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output missing %q:\n%s", w, buf.String())
				}
			}
		})
	}

	t.Run("table falls back to yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormatTable, sample{Name: "x", Count: 1}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "name: x") {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if err := OutputTo(&bytes.Buffer{}, "xml", data); err == nil {
			t.Error("expected error")
		}
	})
}

func TestSetOutputFormat(t *testing.T) {
	defer SetOutputFormat("yaml")

	SetOutputFormat("json")
	if GetOutputFormat() != OutputFormatJSON {
		t.Errorf("GetOutputFormat() = %q", GetOutputFormat())
	}
	SetOutputFormat("bogus")
	if GetOutputFormat() != DefaultOutput {
		t.Errorf("GetOutputFormat() = %q, want default", GetOutputFormat())
	}

	if _, err := ParseOutputFormat("csv"); err == nil {
		t.Error("expected error for csv")
	}
}
