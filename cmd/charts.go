package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datalens-cli/internal/charts"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
)

var (
	chartsOut   string
	chartsSheet string
	chartsNoAI  bool
)

var chartsCmd = &cobra.Command{
	Use:   "charts <file>",
	Short: "Suggest and render charts for a dataset as PNG files",
	Example: `  datalens charts sales.csv --out ./charts
  datalens charts sales.csv --no-ai`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sum, err := loadSummary(args[0], chartsSheet)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		var completer charts.Completer
		if !chartsNoAI {
			client, err := newChatClient(cfg)
			if err != nil {
				_, _ = fmt.Fprintln(out, warnStyle.Render("⚠ "+err.Error()))
				_, _ = fmt.Fprintln(out, "Using column-type suggestions instead.")
			} else {
				completer = client
			}
		}

		if err := utils.EnsureDir(chartsOut); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		adv := charts.NewAdvisor(sum.Dataset(), sum, completer, getLogger())
		_, results := adv.Generate(cmd.Context())

		n := 0
		for _, r := range results {
			if !r.Rendered() {
				_, _ = fmt.Fprintf(out, "%s %s (%s): %s\n", mutedStyle.Render("- skipped"), r.Spec.Title, r.Spec.Type, r.Reason)
				continue
			}
			n++
			path := filepath.Join(chartsOut, fmt.Sprintf("chart-%d.png", n))
			if err := os.WriteFile(path, r.Chart.PNG, 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			_, _ = fmt.Fprintf(out, "✓ %s → %s\n", r.Chart.Title, path)
			if r.Chart.Description != "" {
				_, _ = fmt.Fprintln(out, mutedStyle.Render("  "+r.Chart.Description))
			}
		}
		if n == 0 {
			_, _ = fmt.Fprintln(out, "No charts could be rendered for this dataset.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartsCmd)
	chartsCmd.Flags().StringVarP(&chartsOut, "out", "o", "charts", "directory to write chart-N.png files")
	chartsCmd.Flags().StringVar(&chartsSheet, "sheet", "", "spreadsheet sheet name (default: first sheet)")
	chartsCmd.Flags().BoolVar(&chartsNoAI, "no-ai", false, "skip the model and suggest charts from column types")
}
