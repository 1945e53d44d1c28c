package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackzampolin/rectoverso/internal/providers"
)

// Document is a PDF on disk. Label names it in logs and progress ("front").
type Document struct {
	Path  string
	Label string
}

// BatchOutcome records what one batch contributed.
type BatchOutcome struct {
	Batch    Batch         `json:"batch" yaml:"batch"`
	Pages    int           `json:"pages" yaml:"pages"` // pages returned by OCR
	Chars    int           `json:"chars" yaml:"chars"`
	CostUSD  float64       `json:"cost_usd" yaml:"cost_usd"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Result is the reassembled text of a document.
type Result struct {
	Text    string         `json:"-" yaml:"-"`
	Pages   int            `json:"pages" yaml:"pages"` // pages in the source document
	Batches []BatchOutcome `json:"batches" yaml:"batches"`
	Skipped []BatchOutcome `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// CostUSD sums the OCR cost of every batch.
func (r *Result) CostUSD() float64 {
	var total float64
	for _, b := range r.Batches {
		total += b.CostUSD
	}
	return total
}

// Progress is reported when a batch starts.
type Progress struct {
	Document string
	Batch    Batch
	Total    int
}

// Config configures a Splitter.
type Config struct {
	Provider      providers.OCRProvider
	Pager         Pager  // defaults to pdfcpu
	PagesPerBatch int    // defaults to DefaultPagesPerBatch
	ScratchDir    string // parent of the per-run temp dir; os.TempDir() when empty
	Logger        *slog.Logger
	OnBatch       func(Progress)
}

// Splitter OCRs documents batch by batch.
type Splitter struct {
	provider      providers.OCRProvider
	pager         Pager
	pagesPerBatch int
	scratchDir    string
	logger        *slog.Logger
	onBatch       func(Progress)
}

// NewSplitter creates a splitter.
func NewSplitter(cfg Config) (*Splitter, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("OCR provider is required")
	}
	if cfg.Pager == nil {
		cfg.Pager = NewPDFPager()
	}
	if cfg.PagesPerBatch <= 0 {
		cfg.PagesPerBatch = DefaultPagesPerBatch
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Splitter{
		provider:      cfg.Provider,
		pager:         cfg.Pager,
		pagesPerBatch: cfg.PagesPerBatch,
		scratchDir:    cfg.ScratchDir,
		logger:        cfg.Logger,
		onBatch:       cfg.OnBatch,
	}, nil
}

// Extract OCRs doc batch by batch and joins the text in page order.
//
// A batch whose OCR call fails or returns no pages is skipped and recorded in
// Result.Skipped. Errors wrapping providers.ErrUnavailable and context
// cancellation abort the extraction.
func (s *Splitter) Extract(ctx context.Context, doc Document) (*Result, error) {
	label := doc.Label
	if label == "" {
		label = filepath.Base(doc.Path)
	}
	log := s.logger.With("document", label)

	total, err := s.pager.PageCount(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Path, err)
	}

	tmpDir, err := os.MkdirTemp(s.scratchDir, "rectoverso-batch-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	plan := Plan(total, s.pagesPerBatch)
	log.Info("extracting document", "pages", total, "batches", len(plan), "provider", s.provider.Name())

	result := &Result{Pages: total}
	var blocks []string

	for _, b := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.onBatch != nil {
			s.onBatch(Progress{Document: label, Batch: b, Total: len(plan)})
		}

		outcome, text, err := s.runBatch(ctx, doc.Path, b, tmpDir)
		if err != nil {
			if errors.Is(err, providers.ErrUnavailable) || ctx.Err() != nil {
				return nil, fmt.Errorf("batch %s: %w", b.Name(), err)
			}
			outcome.Error = err.Error()
			result.Skipped = append(result.Skipped, outcome)
			log.Warn("batch skipped", "batch", b.Name(), "error", err)
			continue
		}

		result.Batches = append(result.Batches, outcome)
		if text != "" {
			blocks = append(blocks, text)
		}
		log.Debug("batch complete",
			"batch", b.Name(),
			"pages", outcome.Pages,
			"chars", outcome.Chars,
			"duration", outcome.Duration)
	}

	result.Text = strings.Join(blocks, "\n")
	log.Info("document extracted",
		"batches_ok", len(result.Batches),
		"batches_skipped", len(result.Skipped),
		"chars", len(result.Text))
	return result, nil
}

// runBatch materializes one sub-document, OCRs it and removes it.
func (s *Splitter) runBatch(ctx context.Context, path string, b Batch, tmpDir string) (BatchOutcome, string, error) {
	start := time.Now()
	outcome := BatchOutcome{Batch: b}

	chunk := filepath.Join(tmpDir, b.Name())
	defer os.Remove(chunk)

	if err := s.pager.Extract(path, b, chunk); err != nil {
		outcome.Duration = time.Since(start)
		return outcome, "", err
	}
	data, err := os.ReadFile(chunk)
	if err != nil {
		outcome.Duration = time.Since(start)
		return outcome, "", fmt.Errorf("failed to read chunk: %w", err)
	}

	ocr, err := s.provider.ProcessDocument(ctx, &providers.Document{
		Name:  b.Name(),
		Data:  data,
		Pages: b.PageNumbers(),
	})
	outcome.Duration = time.Since(start)
	if err != nil {
		return outcome, "", err
	}
	if ocr == nil || len(ocr.Pages) == 0 {
		return outcome, "", fmt.Errorf("OCR returned no pages")
	}

	text := ocr.Text()
	outcome.Pages = len(ocr.Pages)
	outcome.Chars = len(text)
	outcome.CostUSD = ocr.CostUSD
	return outcome, text, nil
}
