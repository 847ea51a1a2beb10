// Package stats turns a raw leaderboard into per-member metrics.
//
// Processing runs in two passes. The first derives everything that depends on
// a single member (completion times, deltas, totals). The second compares all
// members day by day to assign ranks and points, then folds those into
// per-member counters.
package stats

import (
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"uocsclub.net/aocstats/internal/types"
)

// Mismatch reports a member whose recomputed score differs from the score AoC
// reported.
type Mismatch struct {
	MemberId int
	Name     string
	Computed int
	Expected int
}

type Processor struct {
	logger      *slog.Logger
	onMismatch  func(Mismatch)
	parallelism int
}

type Option func(*Processor)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMismatchHandler is called for every member whose points do not add up
// to their local score.
func WithMismatchHandler(fn func(Mismatch)) Option {
	return func(p *Processor) {
		p.onMismatch = fn
	}
}

// WithParallelism bounds the number of goroutines used for the first pass.
// Values below 1 select GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(p *Processor) {
		p.parallelism = n
	}
}

func New(opts ...Option) *Processor {
	p := &Processor{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.parallelism < 1 {
		p.parallelism = runtime.GOMAXPROCS(0)
	}
	return p
}

// Process computes the final record of every member of event. A nil event
// yields an empty result.
func Process(event *types.AOCEvent) Members {
	return New().Process(event)
}

func (p *Processor) Process(event *types.AOCEvent) Members {
	if event == nil {
		return Members{}
	}
	year := int(event.Year)

	all := p.buildAll(event, year)
	rankings := rankMembers(all, year)

	result := make(Members, len(all))
	for id, s := range all {
		m := &Member{Stats: *s, Ranking: *rankings[id]}
		p.checkScore(m)
		result[id] = m
	}

	return result
}

// buildAll runs the first pass. Members are independent of each other, so
// they are built concurrently.
func (p *Processor) buildAll(event *types.AOCEvent, year int) map[int]*Stats {
	var (
		mu  sync.Mutex
		all = make(map[int]*Stats, len(event.Members))
		g   errgroup.Group
	)
	g.SetLimit(p.parallelism)

	for _, member := range event.Members {
		if member == nil {
			continue
		}
		g.Go(func() error {
			s := BuildMember(member, year)
			mu.Lock()
			all[s.Id] = s
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // builders never fail

	return all
}

func (p *Processor) checkScore(m *Member) {
	score := m.Score()
	if score == m.LocalScore {
		return
	}

	p.logger.Warn("computed score differs from local score",
		slog.Int("member_id", m.Id),
		slog.String("name", m.Name),
		slog.Int("computed", score),
		slog.Int("expected", m.LocalScore),
	)
	if p.onMismatch != nil {
		p.onMismatch(Mismatch{
			MemberId: m.Id,
			Name:     m.Name,
			Computed: score,
			Expected: m.LocalScore,
		})
	}
}
