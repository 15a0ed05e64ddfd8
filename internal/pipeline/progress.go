package pipeline

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"sceneflow/internal/report"
)

// CellState is the per-key, per-stage mark shown in the progress table.
type CellState int

const (
	// CellPending marks a stage that has not run yet.
	CellPending CellState = iota
	// CellNotRun marks a stage that will never run this batch, either
	// because the run started later or because an earlier stage aborted.
	CellNotRun
	CellOK
	CellFailed
	CellSkipped
)

func (c CellState) mark() string {
	switch c {
	case CellNotRun:
		return "~"
	case CellOK:
		return "ok"
	case CellFailed:
		return "x"
	case CellSkipped:
		return "s"
	default:
		return "-"
	}
}

// progress tracks batch state and reprints the table in place on terminals.
type progress struct {
	keys      []string
	cells     map[string]map[Stage]CellState
	out       io.Writer
	inPlace   bool
	lastLines int
}

func newProgress(keys []string, out io.Writer) *progress {
	cells := make(map[string]map[Stage]CellState, len(keys))
	for _, key := range keys {
		row := make(map[Stage]CellState, len(Stages()))
		for _, stage := range Stages() {
			row[stage] = CellPending
		}
		cells[key] = row
	}
	return &progress{
		keys:    keys,
		cells:   cells,
		out:     out,
		inPlace: isTerminal(out),
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *progress) mark(key string, stage Stage, state CellState) {
	if row, ok := p.cells[key]; ok {
		row[stage] = state
	}
}

// markAll sets the state of one stage for every key.
func (p *progress) markAll(stage Stage, state CellState) {
	for _, row := range p.cells {
		row[stage] = state
	}
}

// apply transfers a stage report's outcomes into the table.
func (p *progress) apply(stage Stage, rep *report.Report) {
	for _, res := range rep.Results() {
		switch res.Outcome {
		case report.Succeeded:
			p.mark(res.Key, stage, CellOK)
		case report.Skipped:
			p.mark(res.Key, stage, CellSkipped)
		case report.Failed:
			p.mark(res.Key, stage, CellFailed)
		}
	}
}

func (p *progress) render() {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := table.Row{"KEY"}
	for _, stage := range Stages() {
		header = append(header, stage.Label())
	}
	tw.AppendHeader(header)

	for _, key := range p.keys {
		row := table.Row{key}
		for _, stage := range Stages() {
			row = append(row, p.cells[key][stage].mark())
		}
		tw.AppendRow(row)
	}

	configs := make([]table.ColumnConfig, 0, len(Stages())+1)
	configs = append(configs, table.ColumnConfig{Number: 1, Align: text.AlignLeft})
	for i := range Stages() {
		configs = append(configs, table.ColumnConfig{Number: i + 2, Align: text.AlignCenter, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	rendered := tw.Render() + "\n"
	if p.inPlace && p.lastLines > 0 {
		fmt.Fprintf(p.out, "\x1b[%dA\x1b[J", p.lastLines)
	}
	fmt.Fprint(p.out, rendered)
	p.lastLines = strings.Count(rendered, "\n")
}
