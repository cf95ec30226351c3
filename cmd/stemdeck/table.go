package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// locationWidth wraps stem URLs and export paths in result tables.
const locationWidth = 64

type tableColumn struct {
	Header   string
	Align    text.Align
	WidthMax int
}

// renderTable draws rows under columns with a rounded border. Short rows are
// padded; a non-empty footer is drawn below the rows.
func renderTable(columns []tableColumn, rows [][]string, footer ...string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(tableRow(columns, nil, func(c tableColumn) string { return c.Header }))
	for _, row := range rows {
		tw.AppendRow(tableRow(columns, row, nil))
	}
	if len(footer) > 0 {
		tw.AppendFooter(tableRow(columns, footer, nil))
	}

	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, column := range columns {
		config := table.ColumnConfig{
			Number:      i + 1,
			Align:       column.Align,
			AlignHeader: text.AlignLeft,
			AlignFooter: column.Align,
		}
		if column.WidthMax > 0 {
			config.WidthMax = column.WidthMax
			config.WidthMaxEnforcer = text.WrapHard
		}
		configs = append(configs, config)
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func tableRow(columns []tableColumn, cells []string, header func(tableColumn) string) table.Row {
	row := make(table.Row, len(columns))
	for i, column := range columns {
		switch {
		case header != nil:
			row[i] = header(column)
		case i < len(cells):
			row[i] = cells[i]
		default:
			row[i] = ""
		}
	}
	return row
}
