package align

import (
	"regexp"
	"strings"

	"github.com/jackzampolin/rectoverso/internal/cards"
)

var (
	frontMarker = regexp.MustCompile(`(?i)^(?:[-*]\s+)?\**(?:front|recto)\**\s*:\s*\**\s*(.*)$`)
	backMarker  = regexp.MustCompile(`(?i)^(?:[-*]\s+)?\**(?:back|verso)\**\s*:\s*\**\s*(.*)$`)

	ordinalPrefix = regexp.MustCompile(`^(\d+)[\.\)]?\s+(.*)$`)
)

// ParseMarkers scans text for "Front: ..." and "Back: ..." lines
// (case-insensitive; "Recto:" and "Verso:" are accepted too). A pair is
// emitted as soon as both sides have been seen, then the accumulator is
// reset. Every other line is ignored.
func ParseMarkers(text string) []cards.Pair {
	var pairs []cards.Pair
	var front, back string

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := frontMarker.FindStringSubmatch(line); m != nil {
			if v := markerValue(m[1]); v != "" {
				front = v
			}
		} else if m := backMarker.FindStringSubmatch(line); m != nil {
			if v := markerValue(m[1]); v != "" {
				back = v
			}
		} else {
			continue
		}

		if front != "" && back != "" {
			pairs = append(pairs, cards.Pair{Front: front, Back: back})
			front, back = "", ""
		}
	}
	return pairs
}

func markerValue(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*"))
}

// ParsePipe reads pre-paired "ordinal front|back" records, splitting on the
// first pipe. A leading number becomes the ordinal. Lines without a pipe are
// kept as a front with an empty back so nothing is lost.
func ParsePipe(lines []string) []cards.Pair {
	pairs := make([]cards.Pair, 0, len(lines))
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		left, right, ok := strings.Cut(line, "|")
		if !ok {
			pairs = append(pairs, cards.Pair{Front: line})
			continue
		}

		p := cards.Pair{
			Front: strings.TrimSpace(left),
			Back:  strings.TrimSpace(right),
		}
		if m := ordinalPrefix.FindStringSubmatch(p.Front); m != nil {
			p.Ordinal = m[1]
			p.Front = strings.TrimSpace(m[2])
		}
		pairs = append(pairs, p)
	}
	return pairs
}

// ParseColon reads "front: back" lines, splitting on the first colon.
// Lines without a colon are dropped.
func ParseColon(lines []string) []cards.Pair {
	var pairs []cards.Pair
	for _, line := range lines {
		left, right, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		p := cards.Pair{Front: strings.TrimSpace(left), Back: strings.TrimSpace(right)}
		if p.Front == "" && p.Back == "" {
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs
}

// PipeLines keeps only the lines containing a pipe.
func PipeLines(text string) []string {
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if strings.Contains(line, "|") {
			out = append(out, line)
		}
	}
	return out
}
