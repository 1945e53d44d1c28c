// Package align pairs cleaned front and back lines into flashcards.
package align

import (
	"regexp"
	"strconv"

	"github.com/jackzampolin/rectoverso/internal/cards"
)

// MissingSide marks the absent half of a diagnostic row.
const MissingSide = "---"

var anchorPattern = regexp.MustCompile(`^\s*(\d{1,2})[\.\)]?\s+`)

// Report describes what alignment could not pair.
type Report struct {
	FrontCount int  `json:"front_count" yaml:"front_count"`
	BackCount  int  `json:"back_count" yaml:"back_count"`
	Paired     int  `json:"paired" yaml:"paired"`
	Truncated  bool `json:"truncated" yaml:"truncated"`

	// FrontTail and BackTail hold the lines left over once either stream ran out.
	FrontTail []string `json:"front_tail,omitempty" yaml:"front_tail,omitempty"`
	BackTail  []string `json:"back_tail,omitempty" yaml:"back_tail,omitempty"`

	// Skipped holds lines the anchored walk stepped over to resynchronize.
	Skipped []SkippedLine `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// SkippedLine is a line passed over by Anchored.
type SkippedLine struct {
	Side   string `json:"side" yaml:"side"` // "front" or "back"
	Index  int    `json:"index" yaml:"index"`
	Anchor int    `json:"anchor" yaml:"anchor"`
	Text   string `json:"text" yaml:"text"`
}

// MismatchRow is one diagnostic line of an unmatched-lines listing.
type MismatchRow struct {
	Line  int    `json:"line" yaml:"line"`
	Front string `json:"front" yaml:"front"`
	Back  string `json:"back" yaml:"back"`
}

// Mismatched reports whether any line was left unpaired.
func (r Report) Mismatched() bool {
	return r.Truncated || len(r.Skipped) > 0
}

// Rows lists the lines left unpaired, 1-based, with the absent side shown
// as MissingSide. Skipped lines come first, then the tails.
func (r Report) Rows() []MismatchRow {
	var rows []MismatchRow
	for _, s := range r.Skipped {
		row := MismatchRow{Line: s.Index + 1, Front: MissingSide, Back: MissingSide}
		if s.Side == "front" {
			row.Front = s.Text
		} else {
			row.Back = s.Text
		}
		rows = append(rows, row)
	}
	for i, l := range r.FrontTail {
		rows = append(rows, MismatchRow{Line: r.FrontCount - len(r.FrontTail) + i + 1, Front: l, Back: MissingSide})
	}
	for i, l := range r.BackTail {
		rows = append(rows, MismatchRow{Line: r.BackCount - len(r.BackTail) + i + 1, Front: MissingSide, Back: l})
	}
	return rows
}

// AnchorOf extracts the leading ordinal of a line ("12. foo", "3) bar", "7 baz").
func AnchorOf(line string) (int, bool) {
	m := anchorPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Positional pairs front[i] with back[i] up to the shorter stream. Lines
// beyond that are not paired; they are returned in the report tails.
func Positional(front, back []string) ([]cards.Pair, Report) {
	n := min(len(front), len(back))
	pairs := make([]cards.Pair, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, cards.Pair{Front: front[i], Back: back[i]})
	}
	return pairs, tailReport(front, back, n, n, len(pairs))
}

// Anchored pairs the two streams while using leading ordinals to recover from
// lines dropped or inserted by OCR. When both current lines carry different
// anchors, only the side with the smaller anchor advances; otherwise the
// lines are paired and both sides advance.
//
// This is a greedy single pass with no backtracking. It resynchronizes
// correctly when anchors are non-decreasing in each stream and drift is
// local; it is not an optimal sequence alignment.
func Anchored(front, back []string) ([]cards.Pair, Report) {
	var pairs []cards.Pair
	var skipped []SkippedLine

	i, j := 0, 0
	for i < len(front) && j < len(back) {
		fa, fok := AnchorOf(front[i])
		ba, bok := AnchorOf(back[j])

		if fok && bok && fa != ba {
			if fa < ba {
				skipped = append(skipped, SkippedLine{Side: "front", Index: i, Anchor: fa, Text: front[i]})
				i++
			} else {
				skipped = append(skipped, SkippedLine{Side: "back", Index: j, Anchor: ba, Text: back[j]})
				j++
			}
			continue
		}

		pairs = append(pairs, cards.Pair{Front: front[i], Back: back[j]})
		i++
		j++
	}

	r := tailReport(front, back, i, j, len(pairs))
	r.Skipped = skipped
	return pairs, r
}

// Interleave treats even-indexed lines as fronts and odd-indexed lines as
// the matching backs. A trailing unmatched line ends up in FrontTail.
func Interleave(lines []string) ([]cards.Pair, Report) {
	pairs := make([]cards.Pair, 0, len(lines)/2)
	for i := 0; i+1 < len(lines); i += 2 {
		pairs = append(pairs, cards.Pair{Front: lines[i], Back: lines[i+1]})
	}

	r := Report{
		FrontCount: (len(lines) + 1) / 2,
		BackCount:  len(lines) / 2,
		Paired:     len(pairs),
	}
	if len(lines)%2 == 1 {
		r.Truncated = true
		r.FrontTail = []string{lines[len(lines)-1]}
	}
	return pairs, r
}

func tailReport(front, back []string, i, j, paired int) Report {
	r := Report{
		FrontCount: len(front),
		BackCount:  len(back),
		Paired:     paired,
	}
	if i < len(front) {
		r.FrontTail = append([]string(nil), front[i:]...)
	}
	if j < len(back) {
		r.BackTail = append([]string(nil), back[j:]...)
	}
	r.Truncated = len(r.FrontTail) > 0 || len(r.BackTail) > 0
	return r
}
