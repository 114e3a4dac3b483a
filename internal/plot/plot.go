// Package plot renders the objective landscape of one enclosure as an HTML chart.
package plot

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/eugenenazirov/kegsizer/internal/geometry"
	"github.com/eugenenazirov/kegsizer/internal/optimizer"
)

// RenderLandscape draws total effective area against diameter, marking the optimum.
func RenderLandscape(w io.Writer, e geometry.Enclosure, samples []optimizer.Sample, best *optimizer.Result) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to plot for %s", e)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Total keg surface area for %s m enclosure", e),
			Subtitle: "Piecewise objective: packed count x effective area",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "diameter (m)",
			Type: "value",
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "total area (m²)",
			Type: "value",
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}))

	feasible := make([]opts.ScatterData, 0, len(samples))
	infeasible := make([]opts.ScatterData, 0)
	for _, s := range samples {
		point := opts.ScatterData{
			Value:      []float64{s.Diameter, s.TotalArea},
			Symbol:     "circle",
			SymbolSize: 3,
		}
		if s.Feasible {
			feasible = append(feasible, point)
		} else {
			infeasible = append(infeasible, point)
		}
	}

	scatter.AddSeries("Feasible", feasible)
	if len(infeasible) > 0 {
		scatter.AddSeries("Volume exceeded", infeasible)
	}
	if best != nil {
		scatter.AddSeries(fmt.Sprintf("Optimum (%s)", best.Method), []opts.ScatterData{{
			Value:      []float64{best.OptimalDiameter, best.TotalSurfaceArea},
			Symbol:     "triangle",
			SymbolSize: 12,
		}})
	}
	scatter.SetSeriesOptions(
		charts.WithLabelOpts(opts.Label{
			Show: opts.Bool(false),
		}),
		charts.WithEmphasisOpts(opts.Emphasis{}),
	)

	return scatter.Render(w)
}
