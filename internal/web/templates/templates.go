// Package templates holds the HTML components of the site.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
	"uocsclub.net/aocstats/internal/boards"
	"uocsclub.net/aocstats/internal/calendar"
)

// Page is everything the landing page shows for one leaderboard.
type Page struct {
	Year            int
	Years           []int
	Boards          []boards.Board
	AchievableStars int
	FetchedAt       time.Time
	// Shared is set when the page was built from a share token rather than
	// the stored leaderboard.
	Shared     bool
	ShareToken string
}

// Index wraps a page body in the full document.
func Index(body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>uOttawa CS Club Advent of Code</title>`+
			`<script src="https://unpkg.com/htmx.org@2.0.3"></script>`+
			`<style>body{background:#0f0f23;color:#ccc;font-family:monospace}a{color:#090}`+
			`.board{display:inline-block;vertical-align:top;margin:1em}td{padding:0 .5em}</style>`+
			`</head><body hx-boost="true"><main id="content">`)
		if err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err = io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func LandingPage(page Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		fmt.Fprintf(&b, `<header><h1>Advent of Code %d</h1>`, page.Year)
		fmt.Fprintf(&b, `<p class="stars">%d / %d stars available</p>`, page.AchievableStars, calendar.MaxStars)
		if !page.FetchedAt.IsZero() {
			fmt.Fprintf(&b, `<p class="fetched">updated <time datetime="%s">%s</time></p>`,
				page.FetchedAt.Format(time.RFC3339), page.FetchedAt.Format("Jan 2 15:04 MST"))
		}
		if len(page.Years) > 1 {
			b.WriteString(`<nav>`)
			for _, year := range page.Years {
				fmt.Fprintf(&b, `<a href="/%d">%d</a> `, year, year)
			}
			b.WriteString(`</nav>`)
		}
		if page.ShareToken != "" {
			fmt.Fprintf(&b, `<p><a class="share" href="/s/%s">share</a> `, templ.EscapeString(page.ShareToken))
			if !page.Shared {
				fmt.Fprintf(&b, `<a href="/%d/chart.png">chart</a> <a href="/%d/export.xlsx">export</a>`, page.Year, page.Year)
			}
			b.WriteString(`</p>`)
		}
		b.WriteString(`</header>`)

		for _, board := range page.Boards {
			writeBoard(&b, board)
		}

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeBoard(b *strings.Builder, board boards.Board) {
	fmt.Fprintf(b, `<section class="board" id="%s"><h2>%s</h2><p>%s</p>`,
		templ.EscapeString(board.Key), templ.EscapeString(board.Title), templ.EscapeString(board.Description))
	if len(board.Rows) == 0 {
		b.WriteString(`<p class="empty">nobody yet</p></section>`)
		return
	}
	b.WriteString(`<table>`)
	for _, row := range board.Rows {
		fmt.Fprintf(b, `<tr><td>%d)</td><td>%s</td><td>%s</td></tr>`,
			row.Rank, templ.EscapeString(row.Value), templ.EscapeString(row.Name))
	}
	b.WriteString(`</table></section>`)
}

func ErrorPage(status int, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section class="error"><h1>%d</h1><p>%s</p><p><a href="/">back</a></p></section>`,
			status, templ.EscapeString(message))
		return err
	})
}
