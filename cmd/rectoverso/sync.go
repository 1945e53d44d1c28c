package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/rectoverso/internal/store"
)

var syncOpts struct {
	storePath  string
	url        string
	deck       string
	model      string
	fieldFront string
	fieldBack  string
	tags       []string
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push the flashcard store to Anki through AnkiConnect",
	Long: `Sync adds one Anki note per stored pair. Anki must be running with the
AnkiConnect add-on installed. The deck is created when missing; pairs that
Anki rejects (duplicates, unknown fields) are counted and listed, not fatal.

Defaults come from the anki section of the config.

Examples:
  rectoverso sync
  rectoverso sync --deck "Allemand::Leçon 3" --tag lesson3
  rectoverso sync --model "Basic (and reversed card)" --field-front Front --field-back Back`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnv(cmd)
		if err != nil {
			return err
		}

		s := env.openStore(syncOpts.storePath)
		if !fileExists(s.Path()) {
			return fmt.Errorf("no store at %s (run \"rectoverso run\" first)", s.Path())
		}
		pairs, err := s.Load()
		if err != nil {
			return err
		}
		pairs = store.Dedup(pairs)

		if syncOpts.url != "" {
			env.config.Anki.URL = syncOpts.url
		}
		target := env.config.AnkiTarget()
		if syncOpts.deck != "" {
			target.Deck = syncOpts.deck
		}
		if syncOpts.model != "" {
			target.Model = syncOpts.model
		}
		if syncOpts.fieldFront != "" {
			target.FieldFront = syncOpts.fieldFront
		}
		if syncOpts.fieldBack != "" {
			target.FieldBack = syncOpts.fieldBack
		}
		if len(syncOpts.tags) > 0 {
			target.Tags = syncOpts.tags
		}

		env.logger.Info("syncing store to Anki", "store", s.Path(), "pairs", len(pairs), "deck", target.Deck)
		result, err := env.ankiClient().Sync(cmd.Context(), pairs, target)
		if err != nil {
			return err
		}
		return output(cmd, result)
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncOpts.storePath, "store", "", "flashcard workbook (default: store.path or ~/.rectoverso/flashcards.xlsx)")
	syncCmd.Flags().StringVar(&syncOpts.url, "url", "", "AnkiConnect URL (default: anki.url)")
	syncCmd.Flags().StringVar(&syncOpts.deck, "deck", "", "target deck (default: anki.deck)")
	syncCmd.Flags().StringVar(&syncOpts.model, "model", "", "note type (default: anki.model)")
	syncCmd.Flags().StringVar(&syncOpts.fieldFront, "field-front", "", "note field receiving the front (default: anki.field_front)")
	syncCmd.Flags().StringVar(&syncOpts.fieldBack, "field-back", "", "note field receiving the back (default: anki.field_back)")
	syncCmd.Flags().StringSliceVar(&syncOpts.tags, "tag", nil, "note tags, repeatable (default: anki.tags)")
}
