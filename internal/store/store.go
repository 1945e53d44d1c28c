// Package store keeps the deduplicated flashcard table in an XLSX workbook.
//
// A Store assumes a single writer. Merge replaces the whole file atomically,
// so concurrent readers see either the old or the new table, but two
// concurrent Merge calls on the same path can lose rows.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jackzampolin/rectoverso/internal/cards"
)

// DefaultSheet is the sheet written by Merge.
const DefaultSheet = "Flashcards"

// ErrNoColumns is returned by Load when the header row has no front/back columns.
var ErrNoColumns = errors.New("store has no Front/Back columns")

// Header aliases accepted on read, lowercased.
var (
	frontHeaders   = []string{"front", "recto"}
	backHeaders    = []string{"back", "verso"}
	ordinalHeaders = []string{"ordinal", "numéro", "numero", "n°"}
)

// Config configures a Store.
type Config struct {
	Path   string
	Sheet  string // defaults to DefaultSheet
	Logger *slog.Logger
}

// Store is an XLSX flashcard table on disk.
type Store struct {
	path   string
	sheet  string
	logger *slog.Logger
}

// New creates a store handle. The file is not touched until Load or Merge.
func New(cfg Config) *Store {
	if cfg.Sheet == "" {
		cfg.Sheet = DefaultSheet
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{path: cfg.Path, sheet: cfg.Sheet, logger: cfg.Logger}
}

// Path returns the workbook path.
func (s *Store) Path() string {
	return s.path
}

// MergeResult summarizes a Merge.
type MergeResult struct {
	Path     string `json:"path" yaml:"path"`
	Existing int    `json:"existing" yaml:"existing"` // rows loaded from disk
	Incoming int    `json:"incoming" yaml:"incoming"`
	Added    int    `json:"added" yaml:"added"` // incoming rows that were not duplicates
	Total    int    `json:"total" yaml:"total"`

	// LoadErr is set when the existing file could not be read and was
	// replaced by the merged incoming rows.
	LoadErr error `json:"-" yaml:"-"`
}

// Load reads every pair of the store. The configured sheet is used when it
// exists, the first sheet otherwise. Header names are matched
// case-insensitively; Recto/Verso/Numéro are read as Front/Back/Ordinal.
func (s *Store) Load() ([]cards.Pair, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("store has no sheets")
	}
	sheet := sheets[0]
	if idx, _ := f.GetSheetIndex(s.sheet); idx != -1 {
		sheet = s.sheet
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	front, back, ordinal := -1, -1, -1
	for i, h := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(h))
		switch {
		case front < 0 && slices.Contains(frontHeaders, name):
			front = i
		case back < 0 && slices.Contains(backHeaders, name):
			back = i
		case ordinal < 0 && slices.Contains(ordinalHeaders, name):
			ordinal = i
		}
	}
	if front < 0 || back < 0 {
		return nil, fmt.Errorf("sheet %q: %w", sheet, ErrNoColumns)
	}

	pairs := make([]cards.Pair, 0, len(rows)-1)
	for _, row := range rows[1:] {
		p := cards.Pair{
			Front:   cell(row, front),
			Back:    cell(row, back),
			Ordinal: cell(row, ordinal),
		}
		if p.Front == "" && p.Back == "" {
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// Merge appends pairs to the stored table, removes duplicate (Front, Back)
// rows keeping the first occurrence, and atomically replaces the file.
// A store that cannot be read is logged and treated as empty.
func (s *Store) Merge(pairs []cards.Pair) (*MergeResult, error) {
	result := &MergeResult{Path: s.path, Incoming: len(pairs)}

	existing, err := s.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("store unreadable, starting from an empty table", "path", s.path, "error", err)
			result.LoadErr = err
		}
		existing = nil
	}
	result.Existing = len(existing)

	kept := Dedup(existing)
	merged := Dedup(append(kept, pairs...))
	result.Added = len(merged) - len(kept)
	result.Total = len(merged)

	if err := s.write(merged); err != nil {
		return nil, err
	}

	s.logger.Info("store merged",
		"path", s.path,
		"existing", result.Existing,
		"incoming", result.Incoming,
		"added", result.Added,
		"total", result.Total)
	return result, nil
}

// Dedup drops pairs whose (Front, Back) was already seen. Order is kept.
func Dedup(pairs []cards.Pair) []cards.Pair {
	seen := make(map[cards.Key]struct{}, len(pairs))
	out := make([]cards.Pair, 0, len(pairs))
	for _, p := range pairs {
		k := p.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (s *Store) write(pairs []cards.Pair) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", s.sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	withOrdinal := cards.HasOrdinals(pairs)
	header := []any{cards.ColumnFront, cards.ColumnBack}
	if withOrdinal {
		header = append(header, cards.ColumnOrdinal)
	}
	if err := f.SetSheetRow(s.sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, p := range pairs {
		row := []any{p.Front, p.Back}
		if withOrdinal {
			row = append(row, p.Ordinal)
		}
		cellName, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(s.sheet, cellName, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(s.sheet, "A", "B", 40)
	if withOrdinal {
		_ = f.SetColWidth(s.sheet, "C", "C", 10)
	}

	return writeAtomic(s.path, f)
}

// writeAtomic writes the workbook to a temp file next to path, syncs it and
// renames it over path.
func writeAtomic(path string, f *excelize.File) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".store-*.xlsx")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, 0o644)

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close store: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace store: %w", err)
	}

	_ = syncDir(dir)
	return nil
}

// syncDir persists the rename on filesystems that need a directory fsync.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
