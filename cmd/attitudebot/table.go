package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/corpus"
	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/report"
	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/store"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func trendRows(points []report.DailyPoint) [][]string {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{
			p.Date.Format("2006-01-02"),
			fmt.Sprintf("%d", p.Count),
			fmt.Sprintf("%.3f", p.Mean),
		})
	}
	return rows
}

func printTrend(points []report.DailyPoint) {
	if len(points) == 0 {
		return
	}
	fmt.Println(renderTable(
		[]string{"Date", "Articles", "Mean"},
		trendRows(points),
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))
	mean, n := report.Overall(points)
	fmt.Printf("Overall: %.3f across %d articles on %d days\n", mean, n, len(points))
}

func printArticles(articles []corpus.Article, preview int) {
	rows := make([][]string, 0, len(articles))
	for i, a := range articles {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			a.Date.Format("2006-01-02"),
			a.Source,
			fmt.Sprintf("%d", utf8.RuneCountInString(a.Content)),
			previewText(a.Content, preview),
		})
	}
	fmt.Println(renderTable(
		[]string{"#", "Date", "Source", "Chars", "Text"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func printRuns(runs []store.Run) {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		halted := ""
		if r.Halted {
			halted = "yes"
		}
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d/%d", r.Labelled, r.Attempted),
			r.FinalModel,
			halted,
			fmt.Sprintf("$%.4f", r.Cost),
		})
	}
	fmt.Println(renderTable(
		[]string{"Run", "Started", "Labelled", "Final model", "Halted", "Cost"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight},
	))
}

// previewText collapses whitespace and cuts s to n characters.
func previewText(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
