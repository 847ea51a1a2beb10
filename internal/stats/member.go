package stats

import (
	"fmt"
	"slices"
	"time"

	"uocsclub.net/aocstats/internal/calendar"
	"uocsclub.net/aocstats/internal/types"
)

// Stats holds everything that can be derived from a single member without
// looking at the rest of the leaderboard. Per-day maps always carry all 25
// days; a nil value means "not completed".
type Stats struct {
	Id          int    `json:"id"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`   // earned at least one star
	Finished    bool   `json:"finished"` // earned all 50 stars
	TotalStars  int    `json:"totalStars"`
	LocalScore  int    `json:"localScore"`
	GlobalScore int    `json:"globalScore"`

	Stars map[int]int `json:"stars"`

	LastTimestamp *time.Time     `json:"lastTimestamp"`
	LastTime      *time.Duration `json:"lastTime"` // since the first unlock

	PartATimestamp map[int]*time.Time     `json:"partaTimestamp"`
	PartBTimestamp map[int]*time.Time     `json:"partbTimestamp"`
	PartATimes     map[int]*time.Duration `json:"partaTimes"`
	PartBTimes     map[int]*time.Duration `json:"partbTimes"`
	DeltaTimes     map[int]*time.Duration `json:"deltaTimes"`

	PartACompleted int `json:"partaCompleted"`
	PartBCompleted int `json:"partbCompleted"`

	TotalDelta  *time.Duration `json:"totalDelta"`
	MedianDelta *time.Duration `json:"medianDelta"`
	TotalTime   *time.Duration `json:"totalTime"`
	TimePerStar *time.Duration `json:"timePerStar"`
}

// BuildMember computes the single-member metrics of m for the given event year.
func BuildMember(m *types.AOCMember, year int) *Stats {
	s := &Stats{
		Id:             m.Id,
		Name:           fmt.Sprintf("#%d", m.Id),
		Active:         m.LastStarTimestamp != 0,
		Finished:       m.Stars == calendar.MaxStars,
		TotalStars:     m.Stars,
		LocalScore:     m.LocalScore,
		GlobalScore:    m.GlobalScore,
		Stars:          make(map[int]int, calendar.NumDays),
		PartATimestamp: make(map[int]*time.Time, calendar.NumDays),
		PartBTimestamp: make(map[int]*time.Time, calendar.NumDays),
		PartATimes:     make(map[int]*time.Duration, calendar.NumDays),
		PartBTimes:     make(map[int]*time.Duration, calendar.NumDays),
		DeltaTimes:     make(map[int]*time.Duration, calendar.NumDays),
	}
	if m.Name != nil {
		s.Name = *m.Name
	}

	if s.Active {
		last := time.Unix(m.LastStarTimestamp, 0).UTC()
		s.LastTimestamp = &last
		s.LastTime = ptr(last.Sub(calendar.UnlockInstant(year, 1)))
	}

	deltas := []time.Duration{}
	totalTime := time.Duration(0)

	for _, day := range calendar.Days() {
		unlock := calendar.UnlockInstant(year, day)

		a := timestamp(m.Completion(day, 1))
		b := timestamp(m.Completion(day, 2))
		s.PartATimestamp[day] = a
		s.PartBTimestamp[day] = b
		s.PartATimes[day] = since(a, unlock)
		s.PartBTimes[day] = since(b, unlock)

		stars := 0
		if a != nil {
			stars++
			s.PartACompleted++
		}
		if b != nil {
			stars++
			s.PartBCompleted++
		}
		s.Stars[day] = stars

		// defined whenever both parts are, even if part 2 precedes part 1
		partA, partB := s.PartATimes[day], s.PartBTimes[day]
		if partA != nil && partB != nil {
			s.DeltaTimes[day] = ptr(*partB - *partA)
			deltas = append(deltas, *partB-*partA)
		} else {
			s.DeltaTimes[day] = nil
		}

		// a day with only part 1 done still counts its part 1 time
		switch {
		case partB != nil:
			totalTime += *partB
		case partA != nil:
			totalTime += *partA
		}
	}

	if len(deltas) > 0 {
		s.MedianDelta = ptr(median(deltas))
	}

	if s.Active {
		totalDelta := time.Duration(0)
		for _, d := range deltas {
			totalDelta += d
		}
		s.TotalDelta = &totalDelta
		s.TotalTime = &totalTime
		s.TimePerStar = ptr(perStar(totalTime, s.TotalStars))
	}

	return s
}

func timestamp(c *types.AOCStarCompletion) *time.Time {
	if c == nil {
		return nil
	}
	ts := time.Unix(c.StarTS, 0).UTC()
	return &ts
}

func since(ts *time.Time, unlock time.Time) *time.Duration {
	if ts == nil {
		return nil
	}
	return ptr(ts.Sub(unlock))
}

// median of a non-empty slice; the mean of the two middle values for even
// lengths.
func median(values []time.Duration) time.Duration {
	items := slices.Clone(values)
	slices.Sort(items)

	half := len(items) / 2
	if len(items)%2 == 1 {
		return items[half]
	}
	return (items[half-1] + items[half]) / 2
}

// perStar divides total by stars, floored to whole milliseconds.
func perStar(total time.Duration, stars int) time.Duration {
	if stars <= 0 {
		return 0
	}
	ms := total.Milliseconds()
	q := ms / int64(stars)
	if ms%int64(stars) != 0 && ms < 0 {
		q--
	}
	return time.Duration(q) * time.Millisecond
}

func ptr[T any](v T) *T {
	return &v
}
