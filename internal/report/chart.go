// Package report renders processed leaderboards as images and spreadsheets.
package report

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"uocsclub.net/aocstats/internal/calendar"
	"uocsclub.net/aocstats/internal/stats"
)

var (
	background = drawing.ColorFromHex("0f0f23")
	textColor  = drawing.ColorFromHex("cccccc")
)

// byScore orders members by local score, highest first, then by id.
func byScore(members stats.Members) []*stats.Member {
	out := make([]*stats.Member, 0, len(members))
	for _, m := range members {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *stats.Member) int {
		if c := cmp.Compare(b.LocalScore, a.LocalScore); c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})
	return out
}

// PointsChart draws the cumulative points per day of the topN members with
// the highest local score. topN <= 0 draws everyone.
func PointsChart(members stats.Members, year, topN int) ([]byte, error) {
	top := byScore(members)
	if topN > 0 && len(top) > topN {
		top = top[:topN]
	}
	if !slices.ContainsFunc(top, func(m *stats.Member) bool { return m.Score() > 0 }) {
		return renderNoDataPlaceholder(fmt.Sprintf("No points scored in %d yet", year))
	}

	days := calendar.Days()
	series := make([]chart.Series, 0, len(top))
	for i, m := range top {
		xValues := make([]float64, len(days))
		yValues := make([]float64, len(days))
		total := 0
		for j, day := range days {
			total += m.Points[day]
			xValues[j] = float64(day)
			yValues[j] = float64(total)
		}

		series = append(series, chart.ContinuousSeries{
			Name:    m.Name,
			XValues: xValues,
			YValues: yValues,
			Style: chart.Style{
				StrokeColor: chart.GetAlternateColor(i),
				StrokeWidth: 2,
			},
		})
	}

	graph := chart.Chart{
		Title:      fmt.Sprintf("Advent of Code %d", year),
		TitleStyle: chart.Style{FontColor: textColor},
		Width:      1000,
		Height:     500,
		Background: chart.Style{
			FillColor: background,
			Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		Canvas: chart.Style{
			FillColor: background,
		},
		XAxis: chart.XAxis{
			Name:           "Day",
			NameStyle:      chart.Style{FontColor: textColor},
			Style:          chart.Style{FontColor: textColor},
			ValueFormatter: wholeNumber,
			Range:          &chart.ContinuousRange{Min: 1, Max: calendar.NumDays},
		},
		YAxis: chart.YAxis{
			Name:           "Points",
			NameStyle:      chart.Style{FontColor: textColor},
			Style:          chart.Style{FontColor: textColor},
			ValueFormatter: wholeNumber,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func wholeNumber(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return ""
}

func renderNoDataPlaceholder(msg string) ([]byte, error) {
	const (
		width  = 400
		height = 200
	)

	graph := chart.Chart{
		Width:  width,
		Height: height,
		Background: chart.Style{
			FillColor: background,
		},
		Canvas: chart.Style{
			FillColor: background,
		},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, chartDefaults chart.Style) {
				r.SetFontColor(textColor)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
