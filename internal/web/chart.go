package web

import (
	"helo/internal/back"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// renderHistory draws the rating of an entity over time as SVG, starting
// from the default rating at the entity's creation.
func renderHistory(w io.Writer, entity back.Entity, history []back.LedgerEntry, defaultRating int) error {
	start := entity.CreatedAt.Time()
	if len(history) > 0 && history[0].CreatedAt.Time().Before(start) {
		start = history[0].CreatedAt.Time()
	}

	xs := []time.Time{start}
	ys := []float64{float64(defaultRating)}
	for _, v := range history {
		xs = append(xs, v.CreatedAt.Time())
		ys = append(ys, float64(v.RatingAfter))
	}

	minY, maxY := ys[0], ys[0]
	for _, v := range ys {
		if v < minY {
			minY = v
		}
		if v > maxY {
			maxY = v
		}
	}

	end := xs[len(xs)-1]
	if !end.After(start) {
		end = start.Add(24 * time.Hour)
	}

	graph := chart.Chart{
		Title:  entity.Tag,
		Height: 300,
		Width:  600,
		Canvas: chart.Style{FillColor: chart.ColorTransparent},
		Background: chart.Style{
			FillColor: chart.ColorTransparent,
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
			Range: &chart.ContinuousRange{
				Min: chart.TimeToFloat64(start),
				Max: chart.TimeToFloat64(end),
			},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: minY - 20, Max: maxY + 20},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    entity.Tag,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("285577"),
					StrokeWidth: 2,
				},
			},
		},
	}

	return graph.Render(chart.SVG, w)
}
