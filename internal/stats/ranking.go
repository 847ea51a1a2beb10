package stats

import (
	"cmp"
	"slices"
	"time"

	"uocsclub.net/aocstats/internal/calendar"
	"uocsclub.net/aocstats/internal/rank"
)

// Ranking holds the metrics that only make sense relative to the other
// members of the leaderboard.
type Ranking struct {
	Points      map[int]int  `json:"points"`
	PartAPoints map[int]int  `json:"partaPoints"`
	PartBPoints map[int]int  `json:"partbPoints"`
	PartARanks  map[int]*int `json:"partaRanks"`
	PartBRanks  map[int]*int `json:"partbRanks"`
	DeltaRanks  map[int]*int `json:"deltaRanks"`

	PartAFirst int `json:"partaFirst"`
	PartBFirst int `json:"partbFirst"`
	DayFirst   int `json:"dayFirst"` // both parts first on the same day

	// PartBMinRankCount[k] counts the days part 2 was solved at rank k or better.
	PartBMinRankCount map[int]int `json:"partbMinRankCount"`

	PartAScore int `json:"partaScore"`
	PartBScore int `json:"partbScore"`
}

// Member is the final per-member record.
type Member struct {
	Stats
	Ranking
}

// Members is keyed by member id.
type Members = map[int]*Member

// boardEntry is one member's time on a single day's board.
type boardEntry struct {
	id   int
	time time.Duration
}

// sortBoard orders by time, then by member id: on equal times the lower id
// wins.
func sortBoard(entries []boardEntry) {
	slices.SortFunc(entries, func(a, b boardEntry) int {
		if c := cmp.Compare(a.time, b.time); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
}

func newRanking() *Ranking {
	r := &Ranking{
		Points:            make(map[int]int, calendar.NumDays),
		PartAPoints:       make(map[int]int, calendar.NumDays),
		PartBPoints:       make(map[int]int, calendar.NumDays),
		PartARanks:        make(map[int]*int, calendar.NumDays),
		PartBRanks:        make(map[int]*int, calendar.NumDays),
		DeltaRanks:        make(map[int]*int, calendar.NumDays),
		PartBMinRankCount: make(map[int]int, calendar.MinRankDepth),
	}
	for _, day := range calendar.Days() {
		r.Points[day] = 0
		r.PartAPoints[day] = 0
		r.PartBPoints[day] = 0
		r.PartARanks[day] = nil
		r.PartBRanks[day] = nil
		r.DeltaRanks[day] = nil
	}
	for k := 1; k <= calendar.MinRankDepth; k++ {
		r.PartBMinRankCount[k] = 0
	}
	return r
}

// rankMembers computes the cross-member metrics for every member. It reads
// the pass-1 stats and never modifies them.
func rankMembers(all map[int]*Stats, year int) map[int]*Ranking {
	rankings := make(map[int]*Ranking, len(all))
	for id := range all {
		rankings[id] = newRanking()
	}
	numMembers := len(all)

	for _, day := range calendar.Days() {
		var partA, partB, delta []boardEntry
		for id, s := range all {
			if t := s.PartATimes[day]; t != nil {
				partA = append(partA, boardEntry{id: id, time: *t})
			}
			if t := s.PartBTimes[day]; t != nil {
				partB = append(partB, boardEntry{id: id, time: *t})
			}
			if t := s.DeltaTimes[day]; t != nil {
				delta = append(delta, boardEntry{id: id, time: *t})
			}
		}
		sortBoard(partA)
		sortBoard(partB)
		sortBoard(delta)

		// ranks are shared between equal times
		assignRanks(partA, func(id, r int) { rankings[id].PartARanks[day] = ptr(r) })
		assignRanks(partB, func(id, r int) { rankings[id].PartBRanks[day] = ptr(r) })
		assignRanks(delta, func(id, r int) { rankings[id].DeltaRanks[day] = ptr(r) })

		// points are not: they follow the position on the id-broken board
		if !calendar.IsOutageDay(year, day) {
			for i, e := range partA {
				rankings[e.id].PartAPoints[day] = numMembers - i
			}
			for i, e := range partB {
				rankings[e.id].PartBPoints[day] = numMembers - i
			}
		}

		for _, r := range rankings {
			r.Points[day] = r.PartAPoints[day] + r.PartBPoints[day]
		}
	}

	for _, r := range rankings {
		r.summarize()
	}

	return rankings
}

func assignRanks(board []boardEntry, set func(id, rank int)) {
	byTime := func(e boardEntry) time.Duration { return e.time }
	for _, r := range rank.Sequence(board, byTime, false) {
		set(r.Item.id, r.Rank)
	}
}

func (r *Ranking) summarize() {
	for _, day := range calendar.Days() {
		a, b := r.PartARanks[day], r.PartBRanks[day]
		if a != nil && *a == 1 {
			r.PartAFirst++
		}
		if b != nil && *b == 1 {
			r.PartBFirst++
		}
		if a != nil && b != nil && *a == 1 && *b == 1 {
			r.DayFirst++
		}
		if b != nil {
			for k := *b; k <= calendar.MinRankDepth; k++ {
				r.PartBMinRankCount[k]++
			}
		}

		r.PartAScore += r.PartAPoints[day]
		r.PartBScore += r.PartBPoints[day]
	}
}

// Score is the sum of the daily points.
func (r *Ranking) Score() int {
	score := 0
	for _, p := range r.Points {
		score += p
	}
	return score
}
