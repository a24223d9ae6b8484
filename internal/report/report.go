// Package report renders docking outcomes as a fixed-width console table,
// a standalone HTML bar chart and a PNG bar chart.
package report

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/results"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
)

// WriteTable prints the docking summary table. Pairs without a parsed
// affinity render as N/A.
func WriteTable(log runlog.Logger, rows []results.EnergyRow) {
	log.Print("")
	log.Print("=== Docking Summary ===")
	log.Printf("%-30s %-30s %20s", "Protein", "Ligand", "Affinity (kcal/mol)")
	log.Print(strings.Repeat("-", 80))
	for _, row := range rows {
		affinity := "N/A"
		if row.Affinity.Valid {
			affinity = fmt.Sprintf("%.2f", row.Affinity.Float64)
		}
		log.Printf("%-30s %-30s %20s", row.Protein, row.Ligand, affinity)
	}
}

func pairLabel(r results.DockingResult) string {
	return r.Receptor + " + " + r.Ligand
}

// WriteChartHTML renders a bar chart of binding affinities as a standalone
// HTML page. Rows are drawn in the order given; pairs without an affinity
// appear as gaps in the series.
func WriteChartHTML(w io.Writer, rs []results.DockingResult) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Docking Summary",
			Width:     "1100px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Binding Affinity by Pair",
			Subtitle: fmt.Sprintf("%d receptor/ligand pairs, strongest binding first", len(rs)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Affinity (kcal/mol)"}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Rotate: 45},
		}),
	)

	labels := make([]string, 0, len(rs))
	data := make([]opts.BarData, 0, len(rs))
	for _, r := range rs {
		labels = append(labels, pairLabel(r))
		if r.Affinity.Valid {
			data = append(data, opts.BarData{Value: r.Affinity.Float64})
		} else {
			data = append(data, opts.BarData{Value: nil})
		}
	}

	bar.SetXAxis(labels).AddSeries("affinity", data)
	return bar.Render(w)
}

// SaveChartPNG writes a PNG bar chart of affinities to path. Pairs without
// a parsed affinity are left out.
func SaveChartPNG(path string, rs []results.DockingResult) error {
	p := plot.New()
	p.Title.Text = "Binding Affinity by Pair"
	p.Y.Label.Text = "Affinity (kcal/mol)"

	values := make(plotter.Values, 0, len(rs))
	labels := make([]string, 0, len(rs))
	for _, r := range rs {
		if !r.Affinity.Valid {
			continue
		}
		values = append(values, r.Affinity.Float64)
		labels = append(labels, pairLabel(r))
	}

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = color.RGBA{R: 0x31, G: 0x68, B: 0x8e, A: 255}
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	// Widen the canvas as pairs accumulate so labels stay readable
	width := vg.Length(len(values))*vg.Points(28) + 2*vg.Inch
	if width < 6*vg.Inch {
		width = 6 * vg.Inch
	}
	return p.Save(width, 5*vg.Inch, path)
}
