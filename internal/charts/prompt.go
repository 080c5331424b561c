package charts

import (
	"encoding/json"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/analysis"
)

const suggestionPrompt = `You are a data visualization expert. Analyze this dataset and suggest exactly 3 charts that would provide the most valuable insights.

Dataset Information:
- Columns: {columns}
- Column Types: {column_types}
- Row Count: {row_count}
- Sample Data (first 5 rows): {sample_data}
- Basic Statistics: {statistics}

Return ONLY a valid JSON object with this exact structure (no markdown, no explanation):
{
  "charts": [
    {
      "type": "bar|line|histogram|scatter|pie",
      "title": "Descriptive title",
      "x": "column_name_for_x_axis",
      "y": "column_name_for_y_axis",
      "description": "One sentence explaining the insight"
    }
  ]
}

Rules:
1. For histogram, only provide "column" instead of x/y
2. For pie, provide "column" for categories and "values" for the values column
3. Only use columns that exist in the dataset
4. Choose chart types that match the data types (categorical, numerical, temporal)
5. Prioritize charts that reveal meaningful patterns or distributions`

// suggestionTemperature keeps the JSON answer close to deterministic.
const suggestionTemperature = 0.3

func buildPrompt(sum *analysis.Summary) string {
	r := strings.NewReplacer(
		"{columns}", compactJSON(sum.Columns),
		"{column_types}", compactJSON(sum.ColumnTypes),
		"{row_count}", compactJSON(sum.RowCount),
		"{sample_data}", compactJSON(sum.SampleData),
		"{statistics}", compactJSON(sum.BasicStats),
	)
	return r.Replace(suggestionPrompt)
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
