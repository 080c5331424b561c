// Package charts suggests and renders charts for a dataset.
package charts

import (
	"encoding/json"
	"errors"
	"strings"
)

// Chart types understood by Render.
const (
	TypeBar       = "bar"
	TypeLine      = "line"
	TypeHistogram = "histogram"
	TypeScatter   = "scatter"
	TypePie       = "pie"
)

// MaxSuggestions caps how many charts are suggested.
const MaxSuggestions = 3

// ChartSpec is one suggested visualization. Histograms and pies name their
// category column in Column; pies may carry a Values column to sum.
type ChartSpec struct {
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	X           string `json:"x,omitempty"`
	Y           string `json:"y,omitempty"`
	Column      string `json:"column,omitempty"`
	Values      string `json:"values,omitempty"`
	Description string `json:"description,omitempty"`
}

// Chart is a rendered PNG plus the metadata shown next to it.
type Chart struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	PNG         []byte `json:"-"`
}

// RenderResult is either a rendered Chart or a skip with its reason.
type RenderResult struct {
	Spec   ChartSpec
	Chart  *Chart
	Reason string
}

// Rendered reports whether a chart was produced.
func (r RenderResult) Rendered() bool { return r.Chart != nil }

func skipped(spec ChartSpec, reason string) RenderResult {
	return RenderResult{Spec: spec, Reason: reason}
}

type suggestionEnvelope struct {
	Charts []ChartSpec `json:"charts"`
}

var errNoObject = errors.New("no JSON object in response")

// parseStrict decodes the whole trimmed response as {"charts": [...]}.
func parseStrict(resp string) ([]ChartSpec, error) {
	var env suggestionEnvelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp)), &env); err != nil {
		return nil, err
	}
	return env.Charts, nil
}

// parseEmbedded decodes the span from the first '{' to the last '}', which
// recovers objects wrapped in prose or markdown fences.
func parseEmbedded(resp string) ([]ChartSpec, error) {
	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start < 0 || end < start {
		return nil, errNoObject
	}
	return parseStrict(resp[start : end+1])
}

func truncate(specs []ChartSpec) []ChartSpec {
	if len(specs) > MaxSuggestions {
		return specs[:MaxSuggestions]
	}
	return specs
}
