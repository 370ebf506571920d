package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// textTable collects rows for one console table. Missing cells render empty.
type textTable struct {
	headers []string
	aligns  []columnAlignment
	rows    [][]string
	footer  []string
}

func newTextTable(headers ...string) *textTable {
	return &textTable{headers: headers}
}

func (t *textTable) align(aligns ...columnAlignment) *textTable {
	t.aligns = aligns
	return t
}

func (t *textTable) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

// total sets a footer row, used for the summary counts under scan and
// history tables.
func (t *textTable) total(cells ...string) {
	t.footer = cells
}

func (t *textTable) empty() bool { return len(t.rows) == 0 }

func (t *textTable) String() string {
	columns := len(t.headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	tw.SetStyle(style)

	tw.AppendHeader(t.row(t.headers))
	for _, cells := range t.rows {
		tw.AppendRow(t.row(cells))
	}
	if len(t.footer) > 0 {
		tw.AppendFooter(t.row(t.footer))
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(t.aligns) && t.aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignFooter: align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func (t *textTable) row(cells []string) table.Row {
	r := make(table.Row, len(t.headers))
	for i := range r {
		if i < len(cells) {
			r[i] = cells[i]
		} else {
			r[i] = ""
		}
	}
	return r
}
