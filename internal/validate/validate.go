// Package validate checks that an untrusted JSON document has the shape of
// an AoC private leaderboard before anything decodes or processes it.
package validate

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"uocsclub.net/aocstats/internal/calendar"
)

// Error describes the first violation found in a payload.
type Error struct {
	Path   string
	Reason string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "invalid payload: " + e.Reason
	}
	return fmt.Sprintf("invalid payload: %s: %s", e.Path, e.Reason)
}

// Payload validates raw leaderboard JSON.
func Payload(data []byte) error {
	if !gjson.ValidBytes(data) {
		return &Error{Reason: "not valid JSON"}
	}
	return Result(gjson.ParseBytes(data))
}

// Result validates an already parsed leaderboard document.
func Result(doc gjson.Result) error {
	if !doc.IsObject() {
		return &Error{Reason: "must be an object"}
	}

	if err := requireNumber(doc, "owner_id", "owner_id"); err != nil {
		return err
	}
	if err := requireYear(doc.Get("event")); err != nil {
		return err
	}

	members := doc.Get("members")
	if absent(members) {
		return nil
	}
	if !members.IsObject() {
		return &Error{Path: "members", Reason: "must be an object"}
	}

	var err error
	members.ForEach(func(key, value gjson.Result) bool {
		path := "members." + key.String()
		if _, convErr := strconv.ParseFloat(key.String(), 64); convErr != nil {
			err = &Error{Path: path, Reason: "key must be numeric"}
			return false
		}
		err = member(path, value)
		return err == nil
	})
	return err
}

// absent treats null like a missing key; encoding/json writes nil maps as null.
func absent(r gjson.Result) bool {
	return !r.Exists() || r.Type == gjson.Null
}

func member(path string, m gjson.Result) error {
	if m.Type == gjson.Null {
		return nil
	}
	if !m.IsObject() {
		return &Error{Path: path, Reason: "must be an object"}
	}

	for _, field := range []string{"id", "stars", "local_score", "global_score", "last_star_ts"} {
		if err := requireNumber(m, field, path+"."+field); err != nil {
			return err
		}
	}

	if name := m.Get("name"); name.Exists() && name.Type != gjson.String && name.Type != gjson.Null {
		return &Error{Path: path + ".name", Reason: "must be a string or null"}
	}

	levels := m.Get("completion_day_level")
	if absent(levels) {
		return nil
	}
	if !levels.IsObject() {
		return &Error{Path: path + ".completion_day_level", Reason: "must be an object"}
	}

	var err error
	levels.ForEach(func(dayKey, day gjson.Result) bool {
		dayPath := path + ".completion_day_level." + dayKey.String()
		if !inRange(dayKey.String(), 1, calendar.NumDays) {
			err = &Error{Path: dayPath, Reason: fmt.Sprintf("day must be within 1..%d", calendar.NumDays)}
			return false
		}
		err = dayLevel(dayPath, day)
		return err == nil
	})
	return err
}

func dayLevel(path string, day gjson.Result) error {
	if day.Type == gjson.Null {
		return nil
	}
	if !day.IsObject() {
		return &Error{Path: path, Reason: "must be an object"}
	}

	var err error
	day.ForEach(func(partKey, part gjson.Result) bool {
		partPath := path + "." + partKey.String()
		if !inRange(partKey.String(), 1, calendar.NumParts) {
			err = &Error{Path: partPath, Reason: fmt.Sprintf("part must be within 1..%d", calendar.NumParts)}
			return false
		}
		if !part.IsObject() {
			err = &Error{Path: partPath, Reason: "must be an object"}
			return false
		}
		err = requireNumber(part, "get_star_ts", partPath+".get_star_ts")
		if err == nil {
			if idx := part.Get("star_index"); idx.Exists() && idx.Type != gjson.Number {
				err = &Error{Path: partPath + ".star_index", Reason: "must be a number"}
			}
		}
		return err == nil
	})
	return err
}

func requireNumber(obj gjson.Result, field, path string) error {
	v := obj.Get(field)
	if !v.Exists() {
		return &Error{Path: path, Reason: "is required"}
	}
	if v.Type != gjson.Number {
		return &Error{Path: path, Reason: "must be a number"}
	}
	return nil
}

// requireYear accepts a number or a numeric string, as AoC serves the year as
// a string.
func requireYear(v gjson.Result) error {
	switch {
	case !v.Exists():
		return &Error{Path: "event", Reason: "is required"}
	case v.Type == gjson.Number:
		return nil
	case v.Type == gjson.String:
		if _, err := strconv.Atoi(v.String()); err == nil {
			return nil
		}
	}
	return &Error{Path: "event", Reason: "must be a year"}
}

func inRange(key string, lo, hi int) bool {
	n, err := strconv.Atoi(key)
	return err == nil && n >= lo && n <= hi
}
