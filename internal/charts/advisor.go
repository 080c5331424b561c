package charts

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/KaramelBytes/datalens-cli/internal/ai"
	"github.com/KaramelBytes/datalens-cli/internal/analysis"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// Completer is the slice of ai.ChatClient the advisor needs.
type Completer interface {
	Chat(ctx context.Context, userMessage string, opts ai.ChatOptions) (string, error)
}

// Advisor picks charts for a dataset and renders them.
type Advisor struct {
	ds     *dataset.Dataset
	sum    *analysis.Summarizer
	c      Completer
	logger *slog.Logger
}

// NewAdvisor builds an advisor. A nil completer limits it to the
// type-driven fallback; a nil logger discards output.
func NewAdvisor(ds *dataset.Dataset, sum *analysis.Summarizer, c Completer, logger *slog.Logger) *Advisor {
	if sum == nil {
		sum = analysis.NewSummarizer(ds)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Advisor{ds: ds, sum: sum, c: c, logger: logger}
}

// Suggestions asks the model for up to three charts. Unparseable or empty
// answers and model errors fall back to Fallback.
func (a *Advisor) Suggestions(ctx context.Context) []ChartSpec {
	if a.c == nil {
		return Fallback(a.ds)
	}
	resp, err := a.c.Chat(ctx, buildPrompt(a.sum.Summary()), ai.ChatOptions{Temperature: suggestionTemperature})
	if err != nil {
		a.logger.Warn("chart suggestion failed; using fallback", "err", err)
		return Fallback(a.ds)
	}
	specs, err := parseStrict(resp)
	if err != nil {
		a.logger.Debug("strict parse failed", "err", err)
		specs, err = parseEmbedded(resp)
	}
	if err != nil {
		a.logger.Warn("could not parse chart suggestions; using fallback", "err", err)
		return Fallback(a.ds)
	}
	if len(specs) == 0 {
		a.logger.Warn("model suggested no charts; using fallback")
		return Fallback(a.ds)
	}
	return truncate(specs)
}

// Generate renders every suggestion. It returns the charts that rendered
// and the full result list, skipped entries included.
func (a *Advisor) Generate(ctx context.Context) ([]Chart, []RenderResult) {
	specs := a.Suggestions(ctx)
	charts := make([]Chart, 0, len(specs))
	results := make([]RenderResult, 0, len(specs))
	for _, s := range specs {
		r := a.Render(s)
		if r.Rendered() {
			charts = append(charts, *r.Chart)
		} else {
			a.logger.Info("chart skipped", "type", s.Type, "title", s.Title, "reason", r.Reason)
		}
		results = append(results, r)
	}
	return charts, results
}

// Fallback derives suggestions from column types alone: a histogram of the
// first numeric column, that column by the first text column as a bar
// chart, then a scatter of the first two numeric columns.
func Fallback(ds *dataset.Dataset) []ChartSpec {
	num := ds.NumericColumns()
	cat := ds.TextColumns()
	var out []ChartSpec
	if len(num) > 0 {
		out = append(out, ChartSpec{
			Type:        TypeHistogram,
			Column:      num[0],
			Title:       fmt.Sprintf("Distribution of %s", num[0]),
			Description: fmt.Sprintf("Shows the distribution of %s values", num[0]),
		})
	}
	if len(cat) > 0 && len(num) > 0 {
		out = append(out, ChartSpec{
			Type:        TypeBar,
			X:           cat[0],
			Y:           num[0],
			Title:       fmt.Sprintf("%s by %s", num[0], cat[0]),
			Description: fmt.Sprintf("Compares %s across %s categories", num[0], cat[0]),
		})
	}
	if len(num) >= 2 {
		out = append(out, ChartSpec{
			Type:        TypeScatter,
			X:           num[0],
			Y:           num[1],
			Title:       fmt.Sprintf("%s vs %s", num[0], num[1]),
			Description: fmt.Sprintf("Shows relationship between %s and %s", num[0], num[1]),
		})
	}
	return truncate(out)
}
