package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/rectoverso/internal/align"
	"github.com/jackzampolin/rectoverso/internal/anki"
	"github.com/jackzampolin/rectoverso/internal/batch"
	"github.com/jackzampolin/rectoverso/internal/cards"
	"github.com/jackzampolin/rectoverso/internal/clean"
	"github.com/jackzampolin/rectoverso/internal/pipeline"
	"github.com/jackzampolin/rectoverso/internal/providers"
	"github.com/jackzampolin/rectoverso/internal/store"
)

// runFlags are shared by the run and inspect commands.
type runFlags struct {
	strategy      string
	storePath     string
	pagesPerBatch int
	ocrProvider   string
	llmProvider   string
	showPairs     bool
	sync          bool
	quiet         bool
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "OCR documents and merge the resulting flashcards into the store",
	Long: `Run the full pipeline: batch OCR, noise filtering, alignment and store merge.

Examples:
  rectoverso run recto-verso fronts.pdf backs.pdf
  rectoverso run recto-verso fronts.pdf backs.pdf --strategy positional
  rectoverso run combined sheet.pdf --strategy pipe
  rectoverso run combined sheet.pdf --strategy llm --sync`,
}

var runRectoVersoCmd = &cobra.Command{
	Use:   "recto-verso <front.pdf> <back.pdf>",
	Short: "Pair a document of fronts with a document of backs",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, runOpts, false, func(r *pipeline.Runner) (*pipeline.Result, error) {
			return r.RunRectoVerso(cmd.Context(), pipeline.RectoVersoRequest{
				FrontPath: args[0],
				BackPath:  args[1],
				Strategy:  runOpts.strategy,
			})
		})
	},
}

var runCombinedCmd = &cobra.Command{
	Use:   "combined <document.pdf>",
	Short: "Split one document holding both sides into flashcards",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, runOpts, false, func(r *pipeline.Runner) (*pipeline.Result, error) {
			return r.RunCombined(cmd.Context(), pipeline.CombinedRequest{
				Path:     args[0],
				Strategy: runOpts.strategy,
			})
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{runRectoVersoCmd, runCombinedCmd} {
		addRunFlags(c, &runOpts)
		c.Flags().StringVar(&runOpts.storePath, "store", "", "flashcard workbook (default: store.path or ~/.rectoverso/flashcards.xlsx)")
		c.Flags().BoolVar(&runOpts.sync, "sync", false, "push the new pairs to Anki after the merge")
	}
	runCmd.AddCommand(runRectoVersoCmd)
	runCmd.AddCommand(runCombinedCmd)
}

func addRunFlags(c *cobra.Command, f *runFlags) {
	c.Flags().StringVarP(&f.strategy, "strategy", "s", "", "alignment strategy (default: pipeline.alignment from config)")
	c.Flags().IntVar(&f.pagesPerBatch, "pages-per-batch", 0, "pages per OCR request (default: pipeline.pages_per_batch)")
	c.Flags().StringVar(&f.ocrProvider, "ocr-provider", "", "OCR provider name (default: defaults.ocr_provider)")
	c.Flags().StringVar(&f.llmProvider, "llm-provider", "", "LLM provider name (default: defaults.llm_provider)")
	c.Flags().BoolVar(&f.showPairs, "show-pairs", false, "include the pairs in the output")
	c.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "do not print progress")
}

// runSummary is the command output for a pipeline run.
type runSummary struct {
	RunID    string               `json:"run_id" yaml:"run_id"`
	Mode     pipeline.Mode        `json:"mode" yaml:"mode"`
	Strategy string               `json:"strategy" yaml:"strategy"`
	Pairs    int                  `json:"pairs" yaml:"pairs"`
	Dropped  int                  `json:"dropped_lines" yaml:"dropped_lines"`
	Report   align.Report         `json:"report" yaml:"report"`
	Skipped  []batch.BatchOutcome `json:"skipped_batches,omitempty" yaml:"skipped_batches,omitempty"`
	Store    *store.MergeResult   `json:"store,omitempty" yaml:"store,omitempty"`
	StoreErr string               `json:"store_load_error,omitempty" yaml:"store_load_error,omitempty"`
	Anki     *anki.SyncResult     `json:"anki,omitempty" yaml:"anki,omitempty"`
	CostUSD  float64              `json:"cost_usd" yaml:"cost_usd"`
	Elapsed  string               `json:"elapsed" yaml:"elapsed"`
	Cards    []cards.Pair         `json:"cards,omitempty" yaml:"cards,omitempty"`
}

func summarize(res *pipeline.Result, showPairs bool) *runSummary {
	s := &runSummary{
		RunID:    res.RunID,
		Mode:     res.Mode,
		Strategy: res.Strategy,
		Pairs:    len(res.Pairs),
		Dropped:  len(res.Dropped),
		Report:   res.Report,
		Store:    res.Merge,
		CostUSD:  res.CostUSD(),
		Elapsed:  res.Elapsed.Round(time.Millisecond).String(),
	}
	for _, ocr := range []*batch.Result{res.FrontOCR, res.BackOCR} {
		if ocr != nil {
			s.Skipped = append(s.Skipped, ocr.Skipped...)
		}
	}
	if res.Merge != nil && res.Merge.LoadErr != nil {
		s.StoreErr = res.Merge.LoadErr.Error()
	}
	if showPairs {
		s.Cards = res.Pairs
	}
	return s
}

// runPipeline builds a Runner from configuration, runs fn and prints the summary.
func runPipeline(cmd *cobra.Command, opts runFlags, dryRun bool, fn func(*pipeline.Runner) (*pipeline.Result, error)) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	runner, err := env.newRunner(cmd, opts, dryRun)
	if err != nil {
		return err
	}

	res, err := fn(runner)
	if err != nil {
		return err
	}

	summary := summarize(res, opts.showPairs || dryRun)
	if opts.sync && len(res.Pairs) > 0 {
		client := env.ankiClient()
		summary.Anki, err = client.Sync(cmd.Context(), res.Pairs, env.config.AnkiTarget())
		if err != nil {
			// The store is already written; report the sync failure after the summary.
			_ = output(cmd, summary)
			return fmt.Errorf("anki sync: %w", err)
		}
	}
	return output(cmd, summary)
}

func (e *appEnv) newRunner(cmd *cobra.Command, opts runFlags, dryRun bool) (*pipeline.Runner, error) {
	cfg := e.config

	regCfg := cfg.ToProviderRegistryConfig()
	regCfg.Logger = e.logger
	registry := providers.NewRegistryFromConfig(regCfg)

	ocrName := opts.ocrProvider
	if ocrName == "" {
		ocrName = cfg.Defaults.OCRProvider
	}
	ocr, err := registry.GetOCR(ocrName)
	if err != nil {
		return nil, fmt.Errorf("%w (is the provider enabled and its API key set? e.g. export MISTRAL_API_KEY=...)", err)
	}

	llmName := opts.llmProvider
	if llmName == "" {
		llmName = cfg.Defaults.LLMProvider
	}
	var llm providers.LLMClient
	var model string
	if llmName != "" {
		if llm, err = registry.GetLLM(llmName); err != nil {
			e.logger.Debug("no LLM provider available", "name", llmName, "error", err)
			llm = nil
		} else if p, ok := cfg.GetLLMProvider(llmName); ok {
			model = p.Model
		}
	}

	filter, err := clean.NewFilter(cfg.Pipeline.NoisePatterns)
	if err != nil {
		return nil, err
	}

	strategies := pipeline.DefaultRegistry()
	if s := cfg.Pipeline.Alignment.RectoVerso; s != "" {
		if err := strategies.SetDefault(pipeline.ModeRectoVerso, s); err != nil {
			return nil, err
		}
	}
	if s := cfg.Pipeline.Alignment.Combined; s != "" {
		if err := strategies.SetDefault(pipeline.ModeCombined, s); err != nil {
			return nil, err
		}
	}

	pagesPerBatch := opts.pagesPerBatch
	if pagesPerBatch <= 0 {
		pagesPerBatch = cfg.Pipeline.PagesPerBatch
	}

	var progress pipeline.ProgressFunc
	if !opts.quiet {
		progress = progressPrinter(cmd.ErrOrStderr())
	}

	return pipeline.NewRunner(pipeline.Config{
		OCR:           ocr,
		LLM:           llm,
		Model:         model,
		Filter:        filter,
		FlattenTables: cfg.Pipeline.FlattenTables,
		PagesPerBatch: pagesPerBatch,
		ScratchDir:    e.home.ScratchDir(),
		Store:         e.openStore(opts.storePath),
		DryRun:        dryRun,
		Strategies:    strategies,
		Logger:        e.logger,
		Progress:      progress,
	})
}

func (e *appEnv) ankiClient() *anki.Client {
	return anki.NewClient(anki.Config{
		URL:     e.config.Anki.URL,
		Timeout: time.Duration(e.config.Anki.TimeoutSeconds) * time.Second,
		Logger:  e.logger,
	})
}

func progressPrinter(w io.Writer) pipeline.ProgressFunc {
	return func(percent int, message string) {
		fmt.Fprintf(w, "[%3d%%] %s\n", percent, message)
	}
}
