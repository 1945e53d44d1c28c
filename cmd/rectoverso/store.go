package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/rectoverso/internal/cards"
	"github.com/jackzampolin/rectoverso/internal/store"
)

var storeFile string

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Flashcard store commands",
}

var storeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the flashcards in the store",
	Long: `Print every pair of the flashcard workbook.

Examples:
  rectoverso store show -o table
  rectoverso store show --store ~/cards/german.xlsx -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		s := env.openStore(storeFile)
		if !fileExists(s.Path()) {
			return fmt.Errorf("no store at %s (run \"rectoverso run\" first)", s.Path())
		}

		pairs, err := s.Load()
		if err != nil {
			return err
		}
		return output(cmd, pairTable(pairs))
	},
}

func init() {
	storeCmd.PersistentFlags().StringVar(&storeFile, "store", "", "flashcard workbook (default: store.path or ~/.rectoverso/flashcards.xlsx)")
	storeCmd.AddCommand(storeShowCmd)
}

func (e *appEnv) openStore(flag string) *store.Store {
	return store.New(store.Config{
		Path:   e.storePath(flag),
		Sheet:  e.config.Store.Sheet,
		Logger: e.logger,
	})
}

// pairTable renders pairs as Front/Back/Ordinal rows.
type pairTable []cards.Pair

func (t pairTable) Header() []string {
	if cards.HasOrdinals(t) {
		return []string{cards.ColumnFront, cards.ColumnBack, cards.ColumnOrdinal}
	}
	return []string{cards.ColumnFront, cards.ColumnBack}
}

func (t pairTable) Rows() [][]string {
	withOrdinal := cards.HasOrdinals(t)
	rows := make([][]string, len(t))
	for i, p := range t {
		if withOrdinal {
			rows[i] = []string{p.Front, p.Back, p.Ordinal}
		} else {
			rows[i] = []string{p.Front, p.Back}
		}
	}
	return rows
}
