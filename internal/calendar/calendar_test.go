package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnlockInstant(t *testing.T) {
	assert.Equal(t, time.Date(2021, 12, 1, 5, 0, 0, 0, time.UTC), UnlockInstant(2021, 1))
	assert.Equal(t, time.Date(2020, 12, 25, 5, 0, 0, 0, time.UTC), UnlockInstant(2020, 25))
	assert.Equal(t, "2019-12-09T05:00:00Z", UnlockInstant(2019, 9).Format(time.RFC3339))
}

func TestIsOutageDay(t *testing.T) {
	assert.True(t, IsOutageDay(2018, 6))
	assert.True(t, IsOutageDay(2020, 1))
	assert.False(t, IsOutageDay(2018, 1))
	assert.False(t, IsOutageDay(2020, 6))
	assert.False(t, IsOutageDay(2021, 1))
}

func TestDays(t *testing.T) {
	days := Days()
	assert.Len(t, days, NumDays)
	assert.Equal(t, 1, days[0])
	assert.Equal(t, 25, days[24])
}

func TestAchievableStarsAsOf(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{name: "november", at: time.Date(2021, 11, 30, 12, 0, 0, 0, time.UTC), want: 0},
		{name: "just before first unlock", at: time.Date(2021, 12, 1, 4, 59, 59, 0, time.UTC), want: 0},
		{name: "first unlock", at: time.Date(2021, 12, 1, 5, 0, 0, 0, time.UTC), want: 2},
		{name: "day 10 before unlock", at: time.Date(2021, 12, 10, 3, 0, 0, 0, time.UTC), want: 18},
		{name: "day 10 after unlock", at: time.Date(2021, 12, 10, 6, 0, 0, 0, time.UTC), want: 20},
		{name: "last unlock", at: time.Date(2021, 12, 25, 5, 0, 0, 0, time.UTC), want: 50},
		{name: "after the event", at: time.Date(2021, 12, 28, 0, 0, 0, 0, time.UTC), want: 50},
		{name: "following year", at: time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), want: 50},
		{name: "non utc zone", at: time.Date(2021, 12, 10, 1, 0, 0, 0, time.FixedZone("EST", -5*3600)), want: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AchievableStarsAsOf(tt.at, 2021))
		})
	}
}

func TestAchievableStarsAsOfMonotonic(t *testing.T) {
	prev := 0
	at := time.Date(2020, 11, 29, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)
	for ; at.Before(end); at = at.Add(37 * time.Minute) {
		got := AchievableStarsAsOf(at, 2020)
		assert.GreaterOrEqual(t, got, prev, "at %s", at)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, MaxStars)
		prev = got
	}
	assert.Equal(t, MaxStars, prev)
}
