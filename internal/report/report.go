// Package report renders an operator-facing HTML page summarising an
// analyser's grouped packet report, using go-echarts. Rendering happens
// on demand from a report snapshot; nothing is cached or pre-rendered.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tlindal/nasasniff/internal/nasa/analyser"
)

const assetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Render writes an HTML page to w containing a bar chart of per-group
// packet counts and a scatter chart of groups plotted by first-seen
// order against count, from the given report snapshot.
func Render(w io.Writer, groups []analyser.Group, generatedAt time.Time) error {
	labels := make([]string, 0, len(groups))
	counts := make([]opts.BarData, 0, len(groups))
	scatterData := make([]opts.ScatterData, 0, len(groups))

	for i, g := range groups {
		labels = append(labels, g.Signature)
		counts = append(counts, opts.BarData{Value: g.Count})
		scatterData = append(scatterData, opts.ScatterData{Value: []interface{}{i, g.Count}})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "600px", AssetsHost: assetsHost}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Observed packet groups",
			Subtitle: fmt.Sprintf("%d groups, generated %s", len(groups), generatedAt.Format(time.RFC3339)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("count", counts, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px", AssetsHost: assetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Group discovery order vs. count"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "discovery order"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)
	scatter.AddSeries("groups", scatterData)

	page := components.NewPage()
	page.SetAssetsHost(assetsHost)
	page.AddCharts(bar, scatter)

	return page.Render(w)
}
