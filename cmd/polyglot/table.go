package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. Numeric columns align right.
type column struct {
	title   string
	numeric bool
}

var (
	queueStatusColumns = []column{{title: "Status"}, {title: "Count", numeric: true}}
	queueListColumns   = []column{
		{title: "ID", numeric: true},
		{title: "Post", numeric: true},
		{title: "Languages"},
		{title: "Status"},
		{title: "Created"},
		{title: "Error"},
	}
	postListColumns = []column{
		{title: "ID", numeric: true},
		{title: "Title"},
		{title: "Lang"},
		{title: "Status"},
		{title: "Size", numeric: true},
		{title: "Updated"},
	}
)

// renderTable draws rows under columns in the rounded style. Short rows are
// padded with blanks and extra cells are dropped.
func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		align := text.AlignLeft
		if col.numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(columns))
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		tw.AppendRow(cells)
	}
	return tw.Render() + "\n"
}
