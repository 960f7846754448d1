package tui

import (
	"github.com/willothy/overseer/internal/orchestrator"
	"github.com/willothy/overseer/internal/tui/styles"
)

// RenderGrid returns the grid's lines with each highlight styled by st.
func RenderGrid(g orchestrator.Grid, st *styles.Styles) []string {
	lines := g.Lines()
	spans := make([][]styles.Span, len(lines))
	for _, hl := range g.Highlights() {
		if hl.Row < 0 || hl.Row >= len(lines) {
			continue
		}
		spans[hl.Row] = append(spans[hl.Row], styles.Span{Tag: hl.Tag, Start: hl.Start, End: hl.End})
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = st.Apply(line, spans[i])
	}
	return out
}
