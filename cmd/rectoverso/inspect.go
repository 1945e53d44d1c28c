package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/rectoverso/internal/align"
	"github.com/jackzampolin/rectoverso/internal/pipeline"
)

var inspectOpts runFlags

var inspectCmd = &cobra.Command{
	Use:   "inspect <front.pdf> [back.pdf]",
	Short: "Run the pipeline without writing the store and show the pairing",
	Long: `Inspect runs OCR, filtering and alignment exactly like "run" but never
touches the store. With one document the combined mode is used, with two the
recto-verso mode.

Unpaired lines are listed with "---" on the missing side.

Examples:
  rectoverso inspect fronts.pdf backs.pdf -o table
  rectoverso inspect sheet.pdf --strategy colon`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		runner, err := env.newRunner(cmd, inspectOpts, true)
		if err != nil {
			return err
		}

		var res *pipeline.Result
		if len(args) == 2 {
			res, err = runner.RunRectoVerso(cmd.Context(), pipeline.RectoVersoRequest{
				FrontPath: args[0],
				BackPath:  args[1],
				Strategy:  inspectOpts.strategy,
			})
		} else {
			res, err = runner.RunCombined(cmd.Context(), pipeline.CombinedRequest{
				Path:     args[0],
				Strategy: inspectOpts.strategy,
			})
		}
		if err != nil {
			return err
		}

		return output(cmd, &inspection{
			Summary:  summarize(res, true),
			Unpaired: res.Report.Rows(),
		})
	},
}

func init() {
	addRunFlags(inspectCmd, &inspectOpts)
}

// inspection renders as a table of pairs followed by unpaired lines.
type inspection struct {
	Summary  *runSummary         `json:"summary" yaml:"summary"`
	Unpaired []align.MismatchRow `json:"unpaired,omitempty" yaml:"unpaired,omitempty"`
}

func (i *inspection) Header() []string {
	return []string{"#", "FRONT", "BACK"}
}

func (i *inspection) Rows() [][]string {
	rows := make([][]string, 0, len(i.Summary.Cards)+len(i.Unpaired))
	for n, p := range i.Summary.Cards {
		id := p.Ordinal
		if id == "" {
			id = strconv.Itoa(n + 1)
		}
		rows = append(rows, []string{id, p.Front, p.Back})
	}
	for _, u := range i.Unpaired {
		rows = append(rows, []string{"line " + strconv.Itoa(u.Line), u.Front, u.Back})
	}
	return rows
}
