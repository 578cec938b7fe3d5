package localize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featuremap/internal/index"
	"featuremap/internal/model"
)

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	reqs := Split("Parse configuration files. Render the dashboard! Expose a health endpoint")
	require.Len(t, reqs, 3)
	assert.Equal(t, "Parse configuration files", reqs[0].Text)
	assert.Equal(t, 1, reqs[0].Ordinal)
	assert.Equal(t, "Render the dashboard", reqs[1].Text)
	assert.Equal(t, 2, reqs[1].Ordinal)
	assert.Equal(t, "Expose a health endpoint", reqs[2].Text)
	assert.Equal(t, 3, reqs[2].Ordinal)
}

func TestSplitSingleClause(t *testing.T) {
	t.Parallel()

	reqs := Split("add retry logic to the uploader")
	require.Len(t, reqs, 1)
	assert.Equal(t, 1, reqs[0].Ordinal)
}

func TestSplitDropsEmptyClauses(t *testing.T) {
	t.Parallel()

	reqs := Split("First thing.\n\n   \nSecond thing...")
	require.Len(t, reqs, 2)
	assert.Equal(t, "First thing", reqs[0].Text)
	assert.Equal(t, "Second thing", reqs[1].Text)
}

func TestSplitCJKBoundaries(t *testing.T) {
	t.Parallel()

	reqs := Split("解析配置文件。渲染页面")
	require.Len(t, reqs, 2)
}

func fn(path, name string, start, end int, body string) model.CodeUnit {
	return model.CodeUnit{
		FilePath:    path,
		Kind:        model.Function,
		Name:        name,
		Signature:   name + "()",
		StartLine:   start,
		EndLine:     end,
		BodyExcerpt: body,
	}
}

func TestLocalizeRanksNameMatchesFirst(t *testing.T) {
	t.Parallel()

	idx := index.Build([]model.CodeUnit{
		fn("src/config.py", "parse_configuration_files", 10, 30, "yaml loading"),
		fn("src/misc.py", "helper", 1, 5, "parse configuration files here"),
		fn("src/render.py", "render_dashboard", 1, 40, "charts"),
	})

	reqs := Split("Parse configuration files. Render the dashboard")
	ev := Localize(reqs, idx, Options{})

	var first, second []model.LocalizationEvidence
	for _, e := range ev {
		switch e.RequirementOrdinal {
		case 1:
			first = append(first, e)
		case 2:
			second = append(second, e)
		}
	}

	require.NotEmpty(t, first)
	assert.Equal(t, "parse_configuration_files", first[0].Unit.Name)
	assert.InDelta(t, 1.0, first[0].Score, 1e-9)

	require.Len(t, second, 1)
	assert.Equal(t, "render_dashboard", second[0].Unit.Name)
	assert.Contains(t, second[0].MatchedTerms, "render")
	assert.Contains(t, second[0].MatchedTerms, "dashboard")
}

func TestLocalizeNoEvidenceWhenNothingMatches(t *testing.T) {
	t.Parallel()

	idx := index.Build([]model.CodeUnit{
		fn("a.py", "unrelated_helper", 1, 3, "totally different domain"),
	})
	ev := Localize(Split("stream telemetry packets"), idx, Options{})
	assert.Empty(t, ev)
}

func TestLocalizeMinScoreFiltersWeakMatches(t *testing.T) {
	t.Parallel()

	idx := index.Build([]model.CodeUnit{
		fn("a.py", "upload_retry_loop", 1, 10, "retry logic for the uploader backoff"),
		fn("b.py", "logger", 1, 200, "logic"),
	})

	strict := Localize(Split("add retry logic to the uploader"), idx, Options{MinScore: 0.9})
	require.Len(t, strict, 1)
	assert.Equal(t, "upload_retry_loop", strict[0].Unit.Name)

	loose := Localize(Split("add retry logic to the uploader"), idx, Options{MinScore: 0.01})
	assert.Len(t, loose, 2)
}

func TestLocalizeScoresNormalized(t *testing.T) {
	t.Parallel()

	idx := index.Build([]model.CodeUnit{
		fn("a.py", "save_report", 1, 10, "write report json"),
		fn("b.py", "load_report", 1, 10, "read report json"),
	})
	ev := Localize(Split("save the report as json"), idx, Options{MinScore: 0.01})
	require.NotEmpty(t, ev)
	assert.InDelta(t, 1.0, ev[0].Score, 1e-9)
	for _, e := range ev {
		assert.LessOrEqual(t, e.Score, 1.0)
		assert.Greater(t, e.Score, 0.0)
	}
}

func TestLocalizeDeterministic(t *testing.T) {
	t.Parallel()

	idx := index.Build([]model.CodeUnit{
		fn("a.py", "handle_order", 1, 10, "order total"),
		fn("b.py", "cancel_order", 1, 10, "order total"),
		fn("c.py", "ship_order", 1, 10, "order total"),
	})
	reqs := Split("compute the order total")

	first := Localize(reqs, idx, Options{})
	for range 20 {
		assert.Equal(t, first, Localize(reqs, idx, Options{}))
	}
}
