package orchestrator

import (
	"strings"

	"github.com/willothy/overseer/internal/task"
	"github.com/willothy/overseer/internal/util"
)

// DefaultSeparator joins adjacent grid columns.
const DefaultSeparator = " -> "

// TagUnresolved styles cells whose task has not been created yet.
const TagUnresolved = task.TagPrefix + "Unresolved"

// Cell is one entry of the progress grid. A cell with empty Text is blank.
type Cell struct {
	Text string
	Tag  string
}

// Highlight marks the byte range [Start, End) of line Row as styled by Tag.
type Highlight struct {
	Tag   string
	Row   int
	Start int
	End   int
}

// Grid is a rendered progress grid. Columns are sections and rows are the
// parallel tasks of each section. A Grid is never modified after it is
// built.
type Grid struct {
	columns    [][]Cell
	lines      []string
	highlights []Highlight
	rows       int
}

// BuildGrid lays out columns side by side. Each column is padded to its
// own width and joined to the next with sep. The separator is blanked on
// rows where either neighbouring cell is empty.
func BuildGrid(columns [][]Cell, sep string) Grid {
	g := Grid{columns: make([][]Cell, len(columns))}
	widths := make([]int, len(columns))
	for c, col := range columns {
		g.columns[c] = append([]Cell(nil), col...)
		g.rows = max(g.rows, len(col))
		for _, cell := range col {
			widths[c] = max(widths[c], util.Width(cell.Text))
		}
	}

	sepBlank := util.Blank(util.Width(sep))
	g.lines = make([]string, g.rows)
	for r := 0; r < g.rows; r++ {
		var b strings.Builder
		for c := range g.columns {
			cell := g.Cell(r, c)
			if c > 0 {
				if cell.Text != "" && g.Cell(r, c-1).Text != "" {
					b.WriteString(sep)
				} else {
					b.WriteString(sepBlank)
				}
			}
			if cell.Text != "" && cell.Tag != "" {
				start := b.Len()
				g.highlights = append(g.highlights, Highlight{
					Tag:   cell.Tag,
					Row:   r,
					Start: start,
					End:   start + len(cell.Text),
				})
			}
			b.WriteString(util.PadRight(cell.Text, widths[c]))
		}
		g.lines[r] = strings.TrimRight(b.String(), " ")
	}
	return g
}

// Rows returns the number of lines in the grid.
func (g Grid) Rows() int { return g.rows }

// Cols returns the number of sections in the grid.
func (g Grid) Cols() int { return len(g.columns) }

// Cell returns the cell at row, col, or a blank cell when out of range.
func (g Grid) Cell(row, col int) Cell {
	if col < 0 || col >= len(g.columns) || row < 0 || row >= len(g.columns[col]) {
		return Cell{}
	}
	return g.columns[col][row]
}

// Width returns the display width of the widest line.
func (g Grid) Width() int {
	w := 0
	for _, l := range g.lines {
		w = max(w, util.Width(l))
	}
	return w
}

// Lines returns a copy of the rendered lines.
func (g Grid) Lines() []string {
	return append([]string(nil), g.lines...)
}

// Highlights returns a copy of the styled ranges, ordered by row then column.
func (g Grid) Highlights() []Highlight {
	return append([]Highlight(nil), g.highlights...)
}

func (g Grid) String() string {
	return strings.Join(g.lines, "\n")
}

// buildGrid projects the current slot state into cells.
func (o *Orchestrator) buildGrid() Grid {
	columns := make([][]Cell, len(o.job))
	for i, section := range o.job {
		columns[i] = make([]Cell, len(section))
		for j, spec := range section {
			columns[i][j] = o.cell(spec, o.slots[i][j])
		}
	}
	return BuildGrid(columns, o.separator)
}

func (o *Orchestrator) cell(spec TaskSpec, slot Slot) Cell {
	id, ok := slot.TaskID()
	if !ok {
		return Cell{
			Text: string(task.StatusPending) + " " + spec.Name,
			Tag:  TagUnresolved,
		}
	}
	t := o.tasks.Get(id)
	if t == nil || t.IsDisposed() {
		return Cell{}
	}
	status := t.Status()
	return Cell{
		Text: string(status) + " " + t.Name(),
		Tag:  status.Tag(),
	}
}

// render stores a fresh grid and hands it to the surface.
func (o *Orchestrator) render() {
	if o.disposed {
		return
	}
	g := o.buildGrid()

	o.gridMu.Lock()
	o.grid = g
	o.gridMu.Unlock()

	if o.surface != nil {
		o.surface.Update(g)
	}
}
