// Package boards builds the themed leaderboards shown on the site from the
// processed member records.
package boards

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"uocsclub.net/aocstats/internal/calendar"
	"uocsclub.net/aocstats/internal/rank"
	"uocsclub.net/aocstats/internal/stats"
)

// minStars is the bar for the per-star efficiency board.
const minStars = 25

type Row struct {
	Rank  int    `json:"rank"`
	Id    int    `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
	Raw   int64  `json:"raw"`
}

type Board struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Rows        []Row  `json:"rows"`
}

type order int

const (
	descending order = iota
	ascending
)

type definition struct {
	key         string
	title       string
	description string
	order       order
	// value returns the sort value and its display form; ok=false leaves the
	// member off the board.
	value func(m *stats.Member) (raw int64, display string, ok bool)
}

var definitions = []definition{
	{
		key: "local-leaderboard", title: "Local Leaderboard",
		description: "points on the private leaderboard",
		value: func(m *stats.Member) (int64, string, bool) {
			return int64(m.LocalScore), fmt.Sprint(m.LocalScore), true
		},
	},
	{
		key: "prime-coders", title: "Prime Coders",
		description: "first to collect all stars", order: ascending,
		value: func(m *stats.Member) (int64, string, bool) {
			if !m.Finished || m.LastTimestamp == nil {
				return 0, "", false
			}
			return m.LastTimestamp.Unix(), m.LastTimestamp.Format(stampFormat), true
		},
	},
	{
		key: "late-bloomers", title: "Late Bloomers",
		description: "most recent star earned",
		value: func(m *stats.Member) (int64, string, bool) {
			if !m.Active || m.LastTimestamp == nil {
				return 0, "", false
			}
			return m.LastTimestamp.Unix(), m.LastTimestamp.Format(stampFormat), true
		},
	},
	{
		key: "rapid-coders", title: "Rapid Coders",
		description: "total time to complete all puzzles", order: ascending,
		value: func(m *stats.Member) (int64, string, bool) {
			return durationValue(m.TotalTime, m.Finished)
		},
	},
	{
		key: "overachieving-adapters", title: "Overachieving Adapters",
		description: "total time spent on part 2 after part 1", order: ascending,
		value: func(m *stats.Member) (int64, string, bool) {
			return durationValue(m.TotalDelta, m.Finished)
		},
	},
	{
		key: "steady-performers", title: "Steady Performers",
		description: "median time spent on part 2 after part 1", order: ascending,
		value: func(m *stats.Member) (int64, string, bool) {
			return durationValue(m.MedianDelta, m.Finished)
		},
	},
	{
		key: "star-efficient-coders", title: "Star-Efficient Coders",
		description: fmt.Sprintf("average time per star, for at least %d stars", minStars), order: ascending,
		value: func(m *stats.Member) (int64, string, bool) {
			raw, display, ok := durationValue(m.TimePerStar, m.TotalStars >= minStars)
			return raw, fmt.Sprintf("%s ★ %d", display, m.TotalStars), ok
		},
	},
	{
		key: "speed-runners", title: "Speed Runners",
		description: "days where both parts were solved first",
		value: func(m *stats.Member) (int64, string, bool) {
			return count(m.DayFirst)
		},
	},
	{
		key: "early-birds", title: "Early Birds",
		description: "days where part 1 was solved first",
		value: func(m *stats.Member) (int64, string, bool) {
			return count(m.PartAFirst)
		},
	},
	{
		key: "early-owls", title: "Early Owls",
		description: "days where part 2 was solved first",
		value: func(m *stats.Member) (int64, string, bool) {
			return count(m.PartBFirst)
		},
	},
	{
		key: "top-birds", title: "Top Birds",
		description: fmt.Sprintf("days where part 2 was solved among the first %d", calendar.MinRankDepth),
		value: func(m *stats.Member) (int64, string, bool) {
			return count(m.PartBMinRankCount[calendar.MinRankDepth])
		},
	},
	{
		key: "star-collectors", title: "Star Collectors",
		description: "number of stars earned",
		value: func(m *stats.Member) (int64, string, bool) {
			return int64(m.TotalStars), fmt.Sprintf("★ %d", m.TotalStars), true
		},
	},
	{
		key: "fast-minimalists", title: "Fast Minimalists",
		description: "points from the first part only",
		value: func(m *stats.Member) (int64, string, bool) {
			return int64(m.PartAScore), fmt.Sprint(m.PartAScore), true
		},
	},
	{
		key: "fast-perfectionists", title: "Fast Perfectionists",
		description: "points from the second part only",
		value: func(m *stats.Member) (int64, string, bool) {
			return int64(m.PartBScore), fmt.Sprint(m.PartBScore), true
		},
	},
	{
		key: "global-leaderboard", title: "Global Leaderboard",
		description: "points on the global leaderboard",
		value: func(m *stats.Member) (int64, string, bool) {
			if m.GlobalScore <= 0 {
				return 0, "", false
			}
			return int64(m.GlobalScore), fmt.Sprint(m.GlobalScore), true
		},
	},
}

const stampFormat = "Jan 2 15:04:05"

func count(n int) (int64, string, bool) {
	return int64(n), fmt.Sprint(n), n > 0
}

func durationValue(d *time.Duration, eligible bool) (int64, string, bool) {
	if !eligible || d == nil {
		return 0, "", false
	}
	return d.Milliseconds(), FormatDuration(*d), true
}

// FormatDuration renders short durations as a clock and longer ones in
// rounded hours or years.
func FormatDuration(d time.Duration) string {
	const year = 365 * 24 * time.Hour
	switch {
	case d < 24*time.Hour:
		total := int64(d / time.Second)
		sign := ""
		if total < 0 {
			sign, total = "-", -total
		}
		return fmt.Sprintf("%s%02d:%02d:%02d", sign, total/3600, total/60%60, total%60)
	case d < year:
		return fmt.Sprintf("~%dh", int64(d/time.Hour))
	default:
		return fmt.Sprintf("~%dy", int64(d/year))
	}
}

type Option func(*options)

type options struct {
	dense bool
	limit int
}

// Dense ranks without gaps after ties.
func Dense() Option {
	return func(o *options) { o.dense = true }
}

// Limit keeps at most n rows; n <= 0 keeps all.
func Limit(n int) Option {
	return func(o *options) { o.limit = n }
}

// All builds every board, in display order.
func All(members stats.Members, opts ...Option) []Board {
	out := make([]Board, 0, len(definitions))
	for _, def := range definitions {
		out = append(out, build(def, members, opts))
	}
	return out
}

func ByKey(members stats.Members, key string, opts ...Option) (Board, bool) {
	for _, def := range definitions {
		if def.key == key {
			return build(def, members, opts), true
		}
	}
	return Board{}, false
}

// Keys lists the known board keys in display order.
func Keys() []string {
	keys := make([]string, len(definitions))
	for i, def := range definitions {
		keys[i] = def.key
	}
	return keys
}

func build(def definition, members stats.Members, opts []Option) Board {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	rows := make([]Row, 0, len(members))
	for _, m := range members {
		raw, display, ok := def.value(m)
		if !ok {
			continue
		}
		rows = append(rows, Row{Id: m.Id, Name: m.Name, Value: display, Raw: raw})
	}

	slices.SortFunc(rows, func(a, b Row) int {
		c := cmp.Compare(a.Raw, b.Raw)
		if def.order == descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})

	ranked := rank.Sequence(rows, func(r Row) int64 { return r.Raw }, o.dense)
	for i, r := range ranked {
		rows[i].Rank = r.Rank
	}
	if o.limit > 0 && len(rows) > o.limit {
		rows = rows[:o.limit]
	}

	return Board{Key: def.key, Title: def.title, Description: def.description, Rows: rows}
}
