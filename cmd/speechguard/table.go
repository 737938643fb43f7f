package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/kdimtricp/speechguard/internal/models"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment, rounded bool) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	if rounded {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderResult prints a summary line followed by one row per segment.
func renderResult(w io.Writer, result *models.AnalysisResult) {
	hate := 0
	rows := make([][]string, 0, len(result.Data))
	for _, seg := range result.Data {
		if seg.ClassPredicted == models.LabelHate {
			hate++
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", seg.ID),
			fmt.Sprintf("%.2f", seg.Start),
			fmt.Sprintf("%.2f", seg.End),
			string(seg.ClassPredicted),
			fmt.Sprintf("%.4f", seg.Probability),
			seg.Text,
		})
	}

	fmt.Fprintf(w, "Video %s: %d segment(s), %d flagged as hate\n", result.VideoID, len(result.Data), hate)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No speech detected")
		return
	}

	headers := []string{"#", "Start", "End", "Class", "Probability", "Text"}
	aligns := []columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignRight, alignLeft}
	fmt.Fprintln(w, renderTable(headers, rows, aligns, useRoundedStyle(w)))
}

func useRoundedStyle(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
