// Package report renders a self-contained HTML view of a decode session's
// per-window activity statistics.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/wearlab-data/motion.report/internal/wearable/summary"
)

// Render writes an HTML page with a bar chart of mean magnitude per window
// and a line of the 95th percentile.
func Render(w io.Writer, title string, rows []summary.WindowSummary) error {
	labels := make([]string, len(rows))
	means := make([]opts.BarData, len(rows))
	p95s := make([]opts.LineData, len(rows))
	for i, r := range rows {
		labels[i] = fmt.Sprintf("w%d", r.Pair)
		means[i] = opts.BarData{Value: r.Mean}
		p95s[i] = opts.LineData{Value: r.P95}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "mean acceleration magnitude per day window (g)",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("mean |a| (g)", means)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "95th percentile magnitude per day window",
		}),
	)
	line.SetXAxis(labels).AddSeries("p95 |a| (g)", p95s)

	page := components.NewPage()
	page.AddCharts(bar, line)
	return page.Render(w)
}

// RenderFile writes the report to an HTML file at path.
func RenderFile(path, title string, rows []summary.WindowSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Render(f, title, rows)
}
