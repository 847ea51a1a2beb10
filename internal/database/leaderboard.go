package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"uocsclub.net/aocstats/internal/types"
)

// GetLeaderboard rebuilds the most recently stored leaderboard of year.
func (d *DatabaseInst) GetLeaderboard(ctx context.Context, year int) (*types.AOCEvent, time.Time, error) {
	d.dbLock.Lock()
	defer d.dbLock.Unlock()

	var (
		ownerId   int
		fetchedAt int64
	)
	row := d.db.QueryRowContext(ctx, "SELECT owner_id, fetched_at FROM leaderboard WHERE year = ?", year)
	if err := row.Scan(&ownerId, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, ErrNotFound
		}
		return nil, time.Time{}, err
	}

	data := &types.AOCEvent{
		OwnerId: ownerId,
		Year:    types.Year(year),
		Members: map[int]*types.AOCMember{},
	}

	rows, err := d.db.QueryContext(ctx, `SELECT user_id, aoc_user.name, stars, score, global_score, last_star_ts, day_completions
		FROM leaderboard_entry LEFT JOIN aoc_user ON aoc_id = user_id
		WHERE year = ?`, year)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	for rows.Next() {
		entry := &types.AOCMember{
			DayCompletions: map[int]*types.AOCDayCompletion{},
		}
		var (
			name        sql.NullString
			completions string
		)

		err = rows.Scan(&entry.Id, &name, &entry.Stars, &entry.LocalScore, &entry.GlobalScore, &entry.LastStarTimestamp, &completions)
		if err != nil {
			return nil, time.Time{}, err
		}
		if name.Valid {
			entry.Name = &name.String
		}

		for completion := range strings.SplitSeq(completions, ",") {
			if len(completion) == 0 {
				continue
			}
			day, part, star, ok := parseCompletion(completion)
			if !ok {
				d.logger.Warn("invalid completion format", slog.String("completion", completion), slog.Int("user_id", entry.Id))
				continue
			}

			if entry.DayCompletions[day] == nil {
				entry.DayCompletions[day] = &types.AOCDayCompletion{}
			}
			if part == 1 {
				entry.DayCompletions[day].Star1 = star
			} else {
				entry.DayCompletions[day].Star2 = star
			}
		}

		data.Members[entry.Id] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}

	return data, time.Unix(fetchedAt, 0).UTC(), nil
}

// StoreLeaderboard replaces the stored leaderboard of the event's year.
func (d *DatabaseInst) StoreLeaderboard(ctx context.Context, data *types.AOCEvent, fetchedAt time.Time) error {
	if data == nil {
		return errors.New("no leaderboard to store")
	}

	d.dbLock.Lock()
	defer d.dbLock.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = ensureUsers(ctx, tx, data)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO leaderboard (year, owner_id, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT (year) DO UPDATE SET owner_id = excluded.owner_id, fetched_at = excluded.fetched_at;`,
		int(data.Year), data.OwnerId, fetchedAt.Unix())
	if err != nil {
		return err
	}

	// members may have left the leaderboard since the last fetch
	_, err = tx.ExecContext(ctx, "DELETE FROM leaderboard_entry WHERE year = ?;", int(data.Year))
	if err != nil {
		return err
	}

	for _, entry := range data.Members {
		if entry == nil {
			continue
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO leaderboard_entry
			(year, user_id, stars, score, global_score, last_star_ts, day_completions)
			VALUES (?, ?, ?, ?, ?, ?, ?);`,
			int(data.Year), entry.Id, entry.Stars, entry.LocalScore, entry.GlobalScore, entry.LastStarTimestamp,
			encodeCompletions(entry))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListYears returns the stored years, newest first.
func (d *DatabaseInst) ListYears(ctx context.Context) ([]int, error) {
	d.dbLock.Lock()
	defer d.dbLock.Unlock()

	rows, err := d.db.QueryContext(ctx, "SELECT year FROM leaderboard ORDER BY year DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	years := []int{}
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, err
		}
		years = append(years, year)
	}
	return years, rows.Err()
}

func ensureUsers(ctx context.Context, tx *sql.Tx, data *types.AOCEvent) error {
	for _, user := range data.Members {
		if user == nil {
			continue
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO aoc_user (aoc_id, name) VALUES (?, ?)
			ON CONFLICT (aoc_id) DO UPDATE SET name = excluded.name;`, user.Id, user.Name)
		if err != nil {
			return err
		}
	}

	return nil
}

// encodeCompletions stores stars as "DDdP@TS#INDEX", e.g.
// "01d2@1638345600#123", sorted by day and part.
func encodeCompletions(m *types.AOCMember) string {
	completions := make([]string, 0, len(m.DayCompletions)*2)

	for day, completion := range m.DayCompletions {
		if completion == nil {
			continue
		}
		if completion.Star1 != nil {
			completions = append(completions, fmt.Sprintf("%02dd1@%d#%d", day, completion.Star1.StarTS, completion.Star1.Index))
		}
		if completion.Star2 != nil {
			completions = append(completions, fmt.Sprintf("%02dd2@%d#%d", day, completion.Star2.StarTS, completion.Star2.Index))
		}
	}
	slices.Sort(completions)

	return strings.Join(completions, ",")
}

// parseCompletion also reads "DDdP@TS" without an index.
func parseCompletion(s string) (day, part int, star *types.AOCStarCompletion, ok bool) {
	key, stamp, found := strings.Cut(s, "@")
	if !found {
		return 0, 0, nil, false
	}
	dayStr, partStr, found := strings.Cut(key, "d")
	if !found {
		return 0, 0, nil, false
	}

	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return 0, 0, nil, false
	}
	part, err = strconv.Atoi(partStr)
	if err != nil || (part != 1 && part != 2) {
		return 0, 0, nil, false
	}

	star = &types.AOCStarCompletion{}
	stamp, index, hasIndex := strings.Cut(stamp, "#")
	star.StarTS, err = strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return 0, 0, nil, false
	}
	if hasIndex {
		star.Index, err = strconv.ParseInt(index, 10, 64)
		if err != nil {
			return 0, 0, nil, false
		}
	}

	return day, part, star, true
}
