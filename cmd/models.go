package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datalens-cli/internal/ai"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the built-in model catalog",
	Example: `  datalens models show
  datalens models show --json`,
}

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show known models and their context windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cat := ai.Catalog()
		if modelsJSON {
			b, err := utils.PrettyJSON(cat)
			if err != nil {
				return err
			}
			_, err = out.Write(append(b, '\n'))
			return err
		}
		active := ""
		if cfg != nil {
			active = cfg.DefaultModel
		}
		t := newTable(out)
		t.AppendHeader(table.Row{"", "Provider", "Model", "Context tokens"})
		for _, m := range cat {
			mark := ""
			if m.Name == active {
				mark = "*"
			}
			t.AppendRow(table.Row{mark, m.Provider, m.Name, m.ContextTokens})
		}
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, Align: text.AlignRight}})
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsShowCmd.Flags().BoolVar(&modelsJSON, "json", false, "print the catalog as JSON")
}
