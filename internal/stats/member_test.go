package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uocsclub.net/aocstats/internal/types"
)

// at returns the unix time of the given offset after the unlock of day.
func at(year, day int, offset time.Duration) int64 {
	return time.Date(year, time.December, day, 5, 0, 0, 0, time.UTC).Add(offset).Unix()
}

// completions builds completion_day_level from day -> [part1 ts, part2 ts];
// a zero timestamp leaves the part out.
func completions(days map[int][2]int64) map[int]*types.AOCDayCompletion {
	out := map[int]*types.AOCDayCompletion{}
	for day, ts := range days {
		d := &types.AOCDayCompletion{}
		if ts[0] != 0 {
			d.Star1 = &types.AOCStarCompletion{StarTS: ts[0]}
		}
		if ts[1] != 0 {
			d.Star2 = &types.AOCStarCompletion{StarTS: ts[1]}
		}
		out[day] = d
	}
	return out
}

func member(id int, days map[int][2]int64) *types.AOCMember {
	return &types.AOCMember{Id: id, DayCompletions: completions(days)}
}

func durations(ds ...time.Duration) []time.Duration {
	return ds
}

func assertAllDays[V any](t *testing.T, m map[int]V) {
	t.Helper()
	require.Len(t, m, 25)
	for day := 1; day <= 25; day++ {
		_, ok := m[day]
		assert.True(t, ok, "day %d missing", day)
	}
}

func TestBuildMemberIdentity(t *testing.T) {
	name := "John Doe"
	m := &types.AOCMember{Id: 1337, Name: &name, Stars: 42, LocalScore: 99, GlobalScore: 4}

	s := BuildMember(m, 2021)

	assert.Equal(t, 1337, s.Id)
	assert.Equal(t, "John Doe", s.Name)
	assert.Equal(t, 42, s.TotalStars)
	assert.Equal(t, 99, s.LocalScore)
	assert.Equal(t, 4, s.GlobalScore)
	assert.False(t, s.Finished)
}

func TestBuildMemberDefaultName(t *testing.T) {
	s := BuildMember(&types.AOCMember{Id: 1}, 2021)
	assert.Equal(t, "#1", s.Name)
}

func TestBuildMemberActiveFinished(t *testing.T) {
	tests := []struct {
		name         string
		lastStar     int64
		stars        int
		wantActive   bool
		wantFinished bool
	}{
		{name: "no stars", lastStar: 0, stars: 0},
		{name: "some stars", lastStar: 1, stars: 3, wantActive: true},
		{name: "all stars", lastStar: 1, stars: 50, wantActive: true, wantFinished: true},
		{name: "stars without timestamp", lastStar: 0, stars: 50, wantFinished: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := BuildMember(&types.AOCMember{Id: 1, Stars: tt.stars, LastStarTimestamp: tt.lastStar}, 2021)
			assert.Equal(t, tt.wantActive, s.Active)
			assert.Equal(t, tt.wantFinished, s.Finished)
		})
	}
}

func TestBuildMemberLastTime(t *testing.T) {
	for _, year := range []int{2020, 2021} {
		ts := time.Date(year, 12, 1, 15, 0, 0, 0, time.UTC)
		s := BuildMember(&types.AOCMember{Id: 1, LastStarTimestamp: ts.Unix()}, year)

		require.NotNil(t, s.LastTimestamp)
		assert.True(t, ts.Equal(*s.LastTimestamp))
		require.NotNil(t, s.LastTime)
		assert.Equal(t, 10*time.Hour, *s.LastTime)
	}

	s := BuildMember(&types.AOCMember{Id: 1}, 2021)
	assert.Nil(t, s.LastTimestamp)
	assert.Nil(t, s.LastTime)
}

// The reference scenario: three days touched, inactive member.
func TestBuildMemberScenario(t *testing.T) {
	m := member(1, map[int][2]int64{
		1:  {10, 0},
		15: {150, 151},
		20: {200, 201},
	})

	s := BuildMember(m, 2021)

	assertAllDays(t, s.Stars)
	assertAllDays(t, s.PartATimestamp)
	assertAllDays(t, s.PartBTimestamp)
	assertAllDays(t, s.PartATimes)
	assertAllDays(t, s.PartBTimes)
	assertAllDays(t, s.DeltaTimes)

	for day, stars := range s.Stars {
		switch day {
		case 1:
			assert.Equal(t, 1, stars)
		case 15, 20:
			assert.Equal(t, 2, stars)
		default:
			assert.Equal(t, 0, stars, "day %d", day)
		}
	}

	assert.Equal(t, time.Unix(10, 0).UTC(), *s.PartATimestamp[1])
	assert.Equal(t, time.Unix(151, 0).UTC(), *s.PartBTimestamp[15])
	assert.Nil(t, s.PartBTimestamp[1])
	assert.Nil(t, s.PartATimestamp[25])

	assert.Equal(t, 3, s.PartACompleted)
	assert.Equal(t, 2, s.PartBCompleted)

	require.NotNil(t, s.DeltaTimes[15])
	require.NotNil(t, s.DeltaTimes[20])
	assert.Equal(t, time.Second, *s.DeltaTimes[15])
	assert.Equal(t, time.Second, *s.DeltaTimes[20])
	assert.Nil(t, s.DeltaTimes[1])

	assert.Nil(t, s.TotalDelta)
	assert.Nil(t, s.TotalTime)
	assert.Nil(t, s.TimePerStar)
	require.NotNil(t, s.MedianDelta)
	assert.Equal(t, time.Second, *s.MedianDelta)
}

func TestBuildMemberPartTimes(t *testing.T) {
	m := member(1, map[int][2]int64{
		1:  {at(2020, 1, 5*time.Hour), 0},
		15: {at(2020, 15, 10*time.Hour), at(2020, 15, 11*time.Hour)},
		20: {at(2020, 20, 24*time.Hour), at(2020, 20, 30*time.Hour)},
	})

	s := BuildMember(m, 2020)

	assert.Equal(t, 5*time.Hour, *s.PartATimes[1])
	assert.Equal(t, 10*time.Hour, *s.PartATimes[15])
	assert.Equal(t, 24*time.Hour, *s.PartATimes[20])
	assert.Nil(t, s.PartBTimes[1])
	assert.Equal(t, 11*time.Hour, *s.PartBTimes[15])
	assert.Equal(t, 30*time.Hour, *s.PartBTimes[20])
	assert.Equal(t, time.Hour, *s.DeltaTimes[15])
	assert.Equal(t, 6*time.Hour, *s.DeltaTimes[20])
}

func TestBuildMemberDeltaIgnoresOrder(t *testing.T) {
	// part 2 reported before part 1 still yields a (negative) delta
	m := member(1, map[int][2]int64{3: {at(2021, 3, time.Hour), at(2021, 3, 0)}})

	s := BuildMember(m, 2021)

	require.NotNil(t, s.DeltaTimes[3])
	assert.Equal(t, -time.Hour, *s.DeltaTimes[3])
}

func TestBuildMemberMedianDelta(t *testing.T) {
	tests := []struct {
		name   string
		deltas []time.Duration
		want   *time.Duration
	}{
		{name: "none", deltas: nil, want: nil},
		{name: "one", deltas: durations(4 * time.Second), want: ptr(4 * time.Second)},
		{name: "even", deltas: durations(time.Second, 2*time.Second), want: ptr(1500 * time.Millisecond)},
		{name: "odd", deltas: durations(time.Second, 2*time.Second, 3*time.Second), want: ptr(2 * time.Second)},
		{name: "unsorted", deltas: durations(9*time.Second, time.Second, 5*time.Second, 3*time.Second), want: ptr(4 * time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := map[int][2]int64{}
			for i, d := range tt.deltas {
				day := i + 1
				days[day] = [2]int64{at(2021, day, time.Minute), at(2021, day, time.Minute+d)}
			}
			m := member(1, days)
			m.LastStarTimestamp = 1

			s := BuildMember(m, 2021)

			assert.Equal(t, tt.want, s.MedianDelta)
		})
	}
}

func TestBuildMemberTotalDelta(t *testing.T) {
	m := member(1, map[int][2]int64{
		1: {at(2021, 1, time.Minute), at(2021, 1, 3*time.Minute)},
		2: {at(2021, 2, time.Minute), at(2021, 2, 2*time.Minute)},
		3: {at(2021, 3, time.Minute), 0},
	})
	m.LastStarTimestamp = 1

	s := BuildMember(m, 2021)

	require.NotNil(t, s.TotalDelta)
	assert.Equal(t, 3*time.Minute, *s.TotalDelta)
}

func TestBuildMemberZeroVersusNull(t *testing.T) {
	active := &types.AOCMember{Id: 1, LastStarTimestamp: 1}
	s := BuildMember(active, 2021)

	require.NotNil(t, s.TotalDelta)
	assert.Equal(t, time.Duration(0), *s.TotalDelta)
	require.NotNil(t, s.TotalTime)
	assert.Equal(t, time.Duration(0), *s.TotalTime)
	assert.Nil(t, s.MedianDelta)

	inactive := BuildMember(&types.AOCMember{Id: 2}, 2021)
	assert.Nil(t, inactive.TotalDelta)
	assert.Nil(t, inactive.TotalTime)
	assert.Nil(t, inactive.TimePerStar)
}

// A day with only part 1 done contributes its part 1 time to the total.
func TestBuildMemberTotalTimeUsesLatestPart(t *testing.T) {
	m := member(1, map[int][2]int64{
		1:  {at(2020, 1, 5*time.Hour), 0},
		15: {at(2020, 15, 10*time.Hour), at(2020, 15, 11*time.Hour)},
		20: {at(2020, 20, 24*time.Hour), at(2020, 20, 30*time.Hour)},
	})
	m.LastStarTimestamp = at(2020, 20, 30*time.Hour)
	m.Stars = 5

	s := BuildMember(m, 2020)

	require.NotNil(t, s.TotalTime)
	assert.Equal(t, 46*time.Hour, *s.TotalTime)
	require.NotNil(t, s.TimePerStar)
	assert.Equal(t, 46*time.Hour/5, *s.TimePerStar)
}

func TestBuildMemberTimePerStarFloors(t *testing.T) {
	m := member(1, map[int][2]int64{1: {at(2021, 1, 10*time.Second), 0}})
	m.LastStarTimestamp = at(2021, 1, 10*time.Second)
	m.Stars = 3

	s := BuildMember(m, 2021)

	require.NotNil(t, s.TimePerStar)
	assert.Equal(t, 3333*time.Millisecond, *s.TimePerStar)
}

func TestPerStar(t *testing.T) {
	assert.Equal(t, 3333*time.Millisecond, perStar(10*time.Second, 3))
	assert.Equal(t, -3334*time.Millisecond, perStar(-10*time.Second, 3))
	assert.Equal(t, time.Duration(0), perStar(10*time.Second, 0))
}

func TestBuildMemberDoesNotMutateInput(t *testing.T) {
	m := member(1, map[int][2]int64{1: {10, 20}})
	before := *m.DayCompletions[1].Star1

	BuildMember(m, 2021)

	assert.Len(t, m.DayCompletions, 1)
	assert.Equal(t, before, *m.DayCompletions[1].Star1)
	assert.Nil(t, m.Name)
}
