// Package calendar holds the fixed Advent of Code schedule: puzzle unlock
// times, days excluded from scoring, and how many stars were obtainable at a
// given moment.
package calendar

import "time"

const (
	NumDays  = 25
	NumParts = 2
	MaxStars = NumDays * NumParts

	// MinRankDepth is the deepest podium place tracked per member.
	MinRankDepth = 3

	unlockHourUTC = 5
)

type outage struct {
	year int
	day  int
}

// outages had service disruptions; AoC awarded no points for them.
var outages = map[outage]bool{
	{year: 2018, day: 6}: true,
	{year: 2020, day: 1}: true,
}

// Days returns 1..NumDays.
func Days() []int {
	days := make([]int, NumDays)
	for i := range days {
		days[i] = i + 1
	}
	return days
}

// UnlockInstant is the moment the puzzle of the given December day becomes
// available, midnight EST.
func UnlockInstant(year, day int) time.Time {
	return time.Date(year, time.December, day, unlockHourUTC, 0, 0, 0, time.UTC)
}

// IsOutageDay reports whether the day was excluded from scoring.
func IsOutageDay(year, day int) bool {
	return outages[outage{year: year, day: day}]
}

// AchievableStarsAsOf returns the number of stars anyone could have earned in
// the given event by t.
func AchievableStarsAsOf(t time.Time, year int) int {
	t = t.UTC()
	start := UnlockInstant(year, 1)
	end := UnlockInstant(year, NumDays).Add(24 * time.Hour)

	if t.Before(start) {
		return 0
	}
	if !t.Before(end) {
		return MaxStars
	}

	// t lies in December of the event year here, so its day of month is the
	// puzzle day.
	today := t.Day()
	if !t.Before(UnlockInstant(year, today)) {
		return today * NumParts
	}
	return (today - 1) * NumParts
}
