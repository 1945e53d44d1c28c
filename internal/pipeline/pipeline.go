// Package pipeline runs a document through OCR, noise filtering, alignment
// and the store merge.
//
// A run is synchronous. Progress is reported through a callback invoked on
// the caller's goroutine. Two runs must not share a store path at the same
// time; the store does no locking.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/rectoverso/internal/align"
	"github.com/jackzampolin/rectoverso/internal/batch"
	"github.com/jackzampolin/rectoverso/internal/cards"
	"github.com/jackzampolin/rectoverso/internal/clean"
	"github.com/jackzampolin/rectoverso/internal/providers"
	"github.com/jackzampolin/rectoverso/internal/store"
)

// ErrNoInput is returned when an input path is empty, missing or a directory.
var ErrNoInput = errors.New("input document not found")

// ErrOCRFailed is returned when every OCR batch of a document was skipped.
var ErrOCRFailed = errors.New("no OCR batch succeeded")

// Progress milestones, in percent.
const (
	progressStart     = 5
	progressBackOCR   = 35
	progressFiltering = 55
	progressAligning  = 70
	progressMerging   = 90
	progressDone      = 100
)

// ProgressFunc receives milestones. It is called synchronously and must not block.
type ProgressFunc func(percent int, message string)

// Config holds the collaborators of a Runner.
type Config struct {
	OCR providers.OCRProvider

	// LLM is optional; strategies that need it fail fast without it.
	LLM   providers.LLMClient
	Model string

	// Filter defaults to one without patterns.
	Filter        *clean.Filter
	FlattenTables bool

	PagesPerBatch int
	ScratchDir    string
	Pager         batch.Pager // defaults to pdfcpu

	// Store receives the pairs. Nil behaves like DryRun.
	Store  *store.Store
	DryRun bool

	Strategies *Registry // defaults to DefaultRegistry()
	Logger     *slog.Logger
	Progress   ProgressFunc
}

// RectoVersoRequest pairs a document of fronts with a document of backs.
type RectoVersoRequest struct {
	FrontPath string
	BackPath  string
	Strategy  string // empty selects the registry default
}

// CombinedRequest reads fronts and backs from one document.
type CombinedRequest struct {
	Path     string
	Strategy string
}

// Result describes a completed run.
type Result struct {
	RunID    string        `json:"run_id" yaml:"run_id"`
	Mode     Mode          `json:"mode" yaml:"mode"`
	Strategy string        `json:"strategy" yaml:"strategy"`
	Pairs    []cards.Pair  `json:"pairs" yaml:"pairs"`
	Report   align.Report  `json:"report" yaml:"report"`
	FrontOCR *batch.Result `json:"front_ocr,omitempty" yaml:"front_ocr,omitempty"`
	BackOCR  *batch.Result `json:"back_ocr,omitempty" yaml:"back_ocr,omitempty"`

	// Dropped lists the lines removed by the noise filter.
	Dropped []clean.Dropped `json:"dropped,omitempty" yaml:"dropped,omitempty"`

	// Merge is nil on dry runs and when no pairs were produced.
	Merge   *store.MergeResult `json:"merge,omitempty" yaml:"merge,omitempty"`
	Elapsed time.Duration      `json:"elapsed" yaml:"elapsed"`
}

// CostUSD sums the OCR cost of both documents.
func (r *Result) CostUSD() float64 {
	var total float64
	if r.FrontOCR != nil {
		total += r.FrontOCR.CostUSD()
	}
	if r.BackOCR != nil {
		total += r.BackOCR.CostUSD()
	}
	return total
}

// Runner executes pipeline runs.
type Runner struct {
	cfg        Config
	filter     *clean.Filter
	semantic   *align.SemanticSplitter
	strategies *Registry
	logger     *slog.Logger
}

// NewRunner validates cfg and creates a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.OCR == nil {
		return nil, fmt.Errorf("OCR provider is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Strategies == nil {
		cfg.Strategies = DefaultRegistry()
	}

	filter := cfg.Filter
	if filter == nil {
		var err error
		if filter, err = clean.NewFilter(nil); err != nil {
			return nil, err
		}
	}

	r := &Runner{
		cfg:        cfg,
		filter:     filter,
		strategies: cfg.Strategies,
		logger:     cfg.Logger,
	}
	if cfg.LLM != nil {
		r.semantic = align.NewSemanticSplitter(cfg.LLM, cfg.Model, cfg.Logger)
	}
	return r, nil
}

// Strategies returns the registry used by the runner.
func (r *Runner) Strategies() *Registry {
	return r.strategies
}

// RunRectoVerso OCRs both documents and pairs their lines.
func (r *Runner) RunRectoVerso(ctx context.Context, req RectoVersoRequest) (*Result, error) {
	start := time.Now()

	strategy, err := r.resolve(ModeRectoVerso, req.Strategy)
	if err != nil {
		return nil, err
	}
	if err := checkInput(req.FrontPath); err != nil {
		return nil, err
	}
	if err := checkInput(req.BackPath); err != nil {
		return nil, err
	}

	res := r.newResult(ModeRectoVerso, strategy)
	log := r.logger.With("run_id", res.RunID, "mode", res.Mode, "strategy", res.Strategy)
	log.Info("run started", "front", req.FrontPath, "back", req.BackPath)

	r.progress(progressStart, "OCR front document")
	res.FrontOCR, err = r.extract(ctx, log, batch.Document{Path: req.FrontPath, Label: "front"}, progressStart, progressBackOCR)
	if err != nil {
		return nil, fmt.Errorf("front document: %w", err)
	}

	r.progress(progressBackOCR, "OCR back document")
	res.BackOCR, err = r.extract(ctx, log, batch.Document{Path: req.BackPath, Label: "back"}, progressBackOCR, progressFiltering)
	if err != nil {
		return nil, fmt.Errorf("back document: %w", err)
	}

	r.progress(progressFiltering, "Filtering noise")
	front := r.clean(res.FrontOCR.Text, res)
	back := r.clean(res.BackOCR.Text, res)
	log.Debug("text cleaned", "front_lines", len(front), "back_lines", len(back), "dropped", len(res.Dropped))

	r.progress(progressAligning, fmt.Sprintf("Aligning (%s)", strategy.Name))
	res.Pairs, res.Report = strategy.Align(ctx, Input{Front: front, Back: back}, r.semantic)

	return r.finish(ctx, log, res, start)
}

// RunCombined OCRs one document holding both sides and splits it into pairs.
func (r *Runner) RunCombined(ctx context.Context, req CombinedRequest) (*Result, error) {
	start := time.Now()

	strategy, err := r.resolve(ModeCombined, req.Strategy)
	if err != nil {
		return nil, err
	}
	if err := checkInput(req.Path); err != nil {
		return nil, err
	}

	res := r.newResult(ModeCombined, strategy)
	log := r.logger.With("run_id", res.RunID, "mode", res.Mode, "strategy", res.Strategy)
	log.Info("run started", "document", req.Path)

	r.progress(progressStart, "OCR document")
	res.FrontOCR, err = r.extract(ctx, log, batch.Document{Path: req.Path, Label: "combined"}, progressStart, progressFiltering)
	if err != nil {
		return nil, err
	}

	r.progress(progressFiltering, "Filtering noise")
	lines := r.clean(res.FrontOCR.Text, res)
	log.Debug("text cleaned", "lines", len(lines), "dropped", len(res.Dropped))

	r.progress(progressAligning, fmt.Sprintf("Aligning (%s)", strategy.Name))
	res.Pairs, res.Report = strategy.Align(ctx, Input{Lines: lines}, r.semantic)

	return r.finish(ctx, log, res, start)
}

func (r *Runner) resolve(mode Mode, name string) (Strategy, error) {
	s, err := r.strategies.Resolve(mode, name)
	if err != nil {
		return Strategy{}, err
	}
	if s.NeedsLLM && r.semantic == nil {
		return Strategy{}, fmt.Errorf("strategy %q requires an LLM provider", s.Name)
	}
	return s, nil
}

func (r *Runner) newResult(mode Mode, s Strategy) *Result {
	return &Result{
		RunID:    uuid.New().String(),
		Mode:     mode,
		Strategy: s.Name,
	}
}

// extract OCRs one document, reporting batch starts between from and to percent.
func (r *Runner) extract(ctx context.Context, log *slog.Logger, doc batch.Document, from, to int) (*batch.Result, error) {
	splitter, err := batch.NewSplitter(batch.Config{
		Provider:      r.cfg.OCR,
		Pager:         r.cfg.Pager,
		PagesPerBatch: r.cfg.PagesPerBatch,
		ScratchDir:    r.cfg.ScratchDir,
		Logger:        log,
		OnBatch: func(p batch.Progress) {
			pct := from + (to-from)*p.Batch.Index/max(p.Total, 1)
			r.progress(pct, fmt.Sprintf("OCR %s: batch %d/%d (pages %s)",
				p.Document, p.Batch.Index+1, p.Total, p.Batch.Selection()))
		},
	})
	if err != nil {
		return nil, err
	}
	res, err := splitter.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}
	if len(res.Batches) == 0 && len(res.Skipped) > 0 {
		last := res.Skipped[len(res.Skipped)-1]
		return nil, fmt.Errorf("%w: all %d batches failed (last: %s)",
			ErrOCRFailed, len(res.Skipped), last.Error)
	}
	return res, nil
}

func (r *Runner) clean(text string, res *Result) []string {
	if r.cfg.FlattenTables {
		text = clean.FlattenTables(text)
	}
	lines, dropped := r.filter.Split(text)
	res.Dropped = append(res.Dropped, dropped...)
	return lines
}

func (r *Runner) finish(ctx context.Context, log *slog.Logger, res *Result, start time.Time) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res.Report.Mismatched() {
		log.Warn("unpaired lines",
			"front_count", res.Report.FrontCount,
			"back_count", res.Report.BackCount,
			"paired", res.Report.Paired,
			"skipped", len(res.Report.Skipped))
	}

	r.progress(progressMerging, "Merging into store")
	switch {
	case r.cfg.DryRun || r.cfg.Store == nil:
		log.Debug("store write skipped (dry run)")
	case len(res.Pairs) == 0:
		log.Warn("no pairs produced, store left untouched")
	default:
		merge, err := r.cfg.Store.Merge(res.Pairs)
		if err != nil {
			return nil, fmt.Errorf("failed to merge into store: %w", err)
		}
		res.Merge = merge
	}

	res.Elapsed = time.Since(start)
	log.Info("run complete",
		"pairs", len(res.Pairs),
		"cost_usd", res.CostUSD(),
		"elapsed", res.Elapsed)
	r.progress(progressDone, fmt.Sprintf("Done: %d pairs in %s", len(res.Pairs), res.Elapsed.Round(time.Millisecond)))
	return res, nil
}

func (r *Runner) progress(percent int, message string) {
	if r.cfg.Progress != nil {
		r.cfg.Progress(percent, message)
	}
}

func checkInput(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no path given", ErrNoInput)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNoInput, path)
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNoInput, path)
	}
	return nil
}
