package cmd

import (
	"fmt"
	"io"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datalens-cli/internal/analysis"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
)

var (
	anaJSON  bool
	anaText  bool
	anaSheet string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Load a dataset and print its summary",
	Example: `  datalens analyze sales.csv
  datalens analyze report.xlsx --sheet Q3
  datalens analyze data.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sum, err := loadSummary(args[0], anaSheet)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch {
		case anaJSON:
			b, err := utils.PrettyJSON(sum.Summary())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, string(b))
		case anaText:
			_, _ = fmt.Fprintln(out, sum.SummaryText())
		default:
			printSummary(out, dataset.Stat(args[0]), sum)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "print the summary as JSON")
	analyzeCmd.Flags().BoolVar(&anaText, "text", false, "print the plain-text context block sent to the model")
	analyzeCmd.Flags().StringVar(&anaSheet, "sheet", "", "spreadsheet sheet name (default: first sheet)")
}

// loadSummary loads path and wraps it in a Summarizer.
func loadSummary(path, sheet string) (*analysis.Summarizer, error) {
	ds, err := dataset.LoadWithOptions(path, dataset.Options{Sheet: sheet})
	if err != nil {
		return nil, err
	}
	getLogger().Debug("dataset loaded", "file", path, "rows", ds.Rows(), "columns", ds.Width())
	return analysis.NewSummarizer(ds), nil
}

// printSummary renders the summary as styled tables.
func printSummary(w io.Writer, fi dataset.FileInfo, s *analysis.Summarizer) {
	sum := s.Summary()
	_, _ = fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s  (%s)", fi.Name, humanBytes(fi.SizeBytes))))
	_, _ = fmt.Fprintf(w, "%s rows · %d columns · %d empty values\n\n",
		formatCount(sum.RowCount), sum.ColumnCount, sum.TotalEmpty())

	cols := newTable(w)
	cols.SetTitle("Columns")
	cols.AppendHeader(table.Row{"Column", "Type", "Nulls", "Empty strings", "Empty %"})
	for _, c := range sum.Columns {
		e := sum.EmptyData[c]
		cols.AppendRow(table.Row{c, sum.ColumnTypes[c], e.NullCount, e.EmptyStringCount, analysis.FormatFloat(e.Percentage)})
	}
	cols.Render()

	if len(sum.BasicStats) > 0 {
		_, _ = fmt.Fprintln(w)
		st := newTable(w)
		st.SetTitle("Numeric statistics")
		st.AppendHeader(table.Row{"Column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"})
		for _, c := range sum.Columns {
			ns, ok := sum.BasicStats[c]
			if !ok {
				continue
			}
			row := table.Row{c}
			for _, e := range ns.Entries() {
				row = append(row, statCell(e.Value))
			}
			st.AppendRow(row)
		}
		st.SetColumnConfigs(numericColumns(2, 9))
		st.Render()
	}

	if len(sum.SampleData) > 0 {
		_, _ = fmt.Fprintln(w)
		sample := newTable(w)
		sample.SetTitle(fmt.Sprintf("First %d rows", len(sum.SampleData)))
		head := make(table.Row, len(sum.Columns))
		for i, c := range sum.Columns {
			head[i] = c
		}
		sample.AppendHeader(head)
		for _, rec := range sum.SampleData {
			row := make(table.Row, len(sum.Columns))
			for i, c := range sum.Columns {
				row[i] = analysis.FormatValue(rec[c])
			}
			sample.AppendRow(row)
		}
		sample.Render()
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func numericColumns(from, to int) []table.ColumnConfig {
	var out []table.ColumnConfig
	for i := from; i <= to; i++ {
		out = append(out, table.ColumnConfig{Number: i, Align: text.AlignRight})
	}
	return out
}

func statCell(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return fmt.Sprintf("%.2f", f)
}

func formatCount(n int) string {
	s := fmt.Sprint(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
