package database

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uocsclub.net/aocstats/internal/types"
)

func openTestDB(t *testing.T) *DatabaseInst {
	t.Helper()
	db, err := InitDatabase(filepath.Join(t.TempDir(), "test.sqlite3"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func event(year int) *types.AOCEvent {
	name := "Grace"
	return &types.AOCEvent{
		OwnerId: 7,
		Year:    types.Year(year),
		Members: map[int]*types.AOCMember{
			1: {
				Id:                1,
				Name:              &name,
				Stars:             3,
				LocalScore:        4,
				LastStarTimestamp: 1638432100,
				DayCompletions: map[int]*types.AOCDayCompletion{
					1: {
						Star1: &types.AOCStarCompletion{StarTS: 1638345700, Index: 4},
						Star2: &types.AOCStarCompletion{StarTS: 1638345900, Index: 9},
					},
					12: {Star1: &types.AOCStarCompletion{StarTS: 1639300000, Index: 311}},
				},
			},
			2: {Id: 2, DayCompletions: map[int]*types.AOCDayCompletion{}},
		},
	}
}

func TestStoreAndGetLeaderboard(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fetched := time.Date(2021, 12, 2, 6, 0, 0, 0, time.UTC)

	require.NoError(t, db.StoreLeaderboard(ctx, event(2021), fetched))

	got, at, err := db.GetLeaderboard(ctx, 2021)
	require.NoError(t, err)
	assert.Equal(t, fetched, at)
	if diff := cmp.Diff(event(2021), got); diff != "" {
		t.Fatalf("stored leaderboard changed (-want +got):\n%s", diff)
	}
}

func TestStoreReplacesMembers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.StoreLeaderboard(ctx, event(2021), time.Unix(1, 0)))

	next := event(2021)
	delete(next.Members, 2)
	renamed := "Hopper"
	next.Members[1].Name = &renamed
	require.NoError(t, db.StoreLeaderboard(ctx, next, time.Unix(2, 0)))

	got, at, err := db.GetLeaderboard(ctx, 2021)
	require.NoError(t, err)
	assert.Equal(t, int64(2), at.Unix())
	require.Len(t, got.Members, 1)
	assert.Equal(t, "Hopper", *got.Members[1].Name)
}

func TestGetLeaderboardNotFound(t *testing.T) {
	db := openTestDB(t)

	_, _, err := db.GetLeaderboard(context.Background(), 2015)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListYears(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	years, err := db.ListYears(ctx)
	require.NoError(t, err)
	assert.Empty(t, years)

	require.NoError(t, db.StoreLeaderboard(ctx, event(2020), time.Unix(1, 0)))
	require.NoError(t, db.StoreLeaderboard(ctx, event(2022), time.Unix(1, 0)))

	years, err = db.ListYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2022, 2020}, years)
}

func TestInvalidCompletionIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	db, err := InitDatabase(filepath.Join(t.TempDir(), "test.sqlite3"), slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.StoreLeaderboard(ctx, event(2021), time.Unix(1, 0)))
	_, err = db.db.Exec("UPDATE leaderboard_entry SET day_completions = '01d1@5,garbage' WHERE user_id = 1")
	require.NoError(t, err)

	got, _, err := db.GetLeaderboard(ctx, 2021)

	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Members[1].Completion(1, 1).StarTS)
	assert.Nil(t, got.Members[1].Completion(1, 2))
	assert.Contains(t, buf.String(), "invalid completion format")
}

func TestCompletionEncoding(t *testing.T) {
	m := event(2021).Members[1]

	assert.Equal(t, "01d1@1638345700#4,01d2@1638345900#9,12d1@1639300000#311", encodeCompletions(m))

	day, part, star, ok := parseCompletion("12d2@99#7")
	assert.True(t, ok)
	assert.Equal(t, []int{12, 2}, []int{day, part})
	assert.Equal(t, &types.AOCStarCompletion{StarTS: 99, Index: 7}, star)

	// rows written before the index was stored
	_, _, star, ok = parseCompletion("12d2@99")
	assert.True(t, ok)
	assert.Equal(t, &types.AOCStarCompletion{StarTS: 99}, star)

	for _, bad := range []string{"12d2", "xxd1@1", "01d3@1", "01d1@x", "01x1@1", "01d1@1#x"} {
		_, _, _, ok := parseCompletion(bad)
		assert.False(t, ok, bad)
	}
}
