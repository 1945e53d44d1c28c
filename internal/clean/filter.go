// Package clean turns raw OCR markdown into ordered, noise-free lines.
package clean

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter drops lines matching any of its configured patterns.
// The pattern set is configuration data; see config.DefaultConfig for the
// shipped defaults.
type Filter struct {
	sources  []string
	patterns []*regexp.Regexp
}

// Dropped records a line removed by the filter and the pattern that matched it.
type Dropped struct {
	Line    string `json:"line" yaml:"line"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// NewFilter compiles the given patterns. An empty list yields a filter that
// only trims and drops blank lines.
func NewFilter(patterns []string) (*Filter, error) {
	f := &Filter{
		sources:  make([]string, 0, len(patterns)),
		patterns: make([]*regexp.Regexp, 0, len(patterns)),
	}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid noise pattern %q: %w", p, err)
		}
		f.sources = append(f.sources, p)
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Patterns returns the source of every compiled pattern.
func (f *Filter) Patterns() []string {
	out := make([]string, len(f.sources))
	copy(out, f.sources)
	return out
}

// Match returns the first pattern matching line.
func (f *Filter) Match(line string) (string, bool) {
	for i, re := range f.patterns {
		if re.MatchString(line) {
			return f.sources[i], true
		}
	}
	return "", false
}

// Lines splits text into trimmed, non-empty lines that match no pattern.
func (f *Filter) Lines(text string) []string {
	kept, _ := f.Split(text)
	return kept
}

// Split is Lines plus the list of lines removed by a pattern.
// Blank lines are not reported as dropped.
func (f *Filter) Split(text string) ([]string, []Dropped) {
	var kept []string
	var dropped []Dropped

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if p, ok := f.Match(line); ok {
			dropped = append(dropped, Dropped{Line: line, Pattern: p})
			continue
		}
		kept = append(kept, line)
	}
	return kept, dropped
}
