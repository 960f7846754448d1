package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/willothy/overseer/internal/orchestrator"
	"github.com/willothy/overseer/internal/tui/styles"
)

// PlainSurface writes the progress grid to a writer each time it changes.
// It is used when stdout is not a terminal.
type PlainSurface struct {
	mu     sync.Mutex
	w      io.Writer
	styles *styles.Styles
	last   string
}

// NewPlainSurface creates a surface writing to w. A nil st writes plain text.
func NewPlainSurface(w io.Writer, st *styles.Styles) *PlainSurface {
	return &PlainSurface{w: w, styles: st}
}

// Update implements orchestrator.Surface.
func (p *PlainSurface) Update(g orchestrator.Grid) {
	text := g.String()

	p.mu.Lock()
	defer p.mu.Unlock()
	if text == "" || text == p.last {
		return
	}
	p.last = text

	lines := g.Lines()
	if p.styles != nil {
		lines = RenderGrid(g, p.styles)
	}
	for _, line := range lines {
		fmt.Fprintln(p.w, line)
	}
	fmt.Fprintln(p.w)
}

// Close implements orchestrator.Surface.
func (p *PlainSurface) Close() error {
	return nil
}
