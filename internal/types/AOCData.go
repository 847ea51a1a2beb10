package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AOCEvent is a private leaderboard as served by adventofcode.com.
type AOCEvent struct {
	OwnerId int                `json:"owner_id"`
	Year    Year               `json:"event"`
	Members map[int]*AOCMember `json:"members"`
}

type AOCMember struct {
	Id                int                       `json:"id"`
	Name              *string                   `json:"name"`
	Stars             int                       `json:"stars"`
	LocalScore        int                       `json:"local_score"`
	GlobalScore       int                       `json:"global_score"`
	LastStarTimestamp int64                     `json:"last_star_ts"` // 0 until the first star
	DayCompletions    map[int]*AOCDayCompletion `json:"completion_day_level"`
}

type AOCDayCompletion struct {
	Star1 *AOCStarCompletion `json:"1,omitempty"`
	Star2 *AOCStarCompletion `json:"2,omitempty"`
}

type AOCStarCompletion struct {
	StarTS int64 `json:"get_star_ts"`
	Index  int64 `json:"star_index"`
}

// Completion returns the star record for the given day and part, or nil.
func (m *AOCMember) Completion(day, part int) *AOCStarCompletion {
	if m == nil {
		return nil
	}
	d := m.DayCompletions[day]
	if d == nil {
		return nil
	}
	switch part {
	case 1:
		return d.Star1
	case 2:
		return d.Star2
	}
	return nil
}

// Year is the event year. AoC sends it as a string, older exports as a number.
type Year int

func (y Year) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(y))), nil
}

func (y *Year) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}

	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil || v != float64(int(v)) {
		return fmt.Errorf("invalid event year %q", string(b))
	}
	*y = Year(int(v))
	return nil
}
