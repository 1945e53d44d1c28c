// Package cards defines the flashcard pair shared by alignment, the store
// and the Anki sync.
package cards

import "strings"

// Column names of the persisted table.
const (
	ColumnFront   = "Front"
	ColumnBack    = "Back"
	ColumnOrdinal = "Ordinal"
)

// Pair is one flashcard: the question side, the answer side and an optional
// ordinal carried over from numbered source material.
type Pair struct {
	Ordinal string `json:"ordinal,omitempty" yaml:"ordinal,omitempty"`
	Front   string `json:"front" yaml:"front"`
	Back    string `json:"back" yaml:"back"`
}

// Key is the identity used for deduplication. Ordinal is not part of it.
type Key struct {
	Front string
	Back  string
}

// Key returns the pair's identity.
func (p Pair) Key() Key {
	return Key{Front: p.Front, Back: p.Back}
}

// Complete reports whether both sides carry text.
func (p Pair) Complete() bool {
	return strings.TrimSpace(p.Front) != "" && strings.TrimSpace(p.Back) != ""
}

// HasOrdinals reports whether any pair carries an ordinal.
func HasOrdinals(pairs []Pair) bool {
	for _, p := range pairs {
		if p.Ordinal != "" {
			return true
		}
	}
	return false
}
