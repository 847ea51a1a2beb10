package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"uocsclub.net/aocstats/internal/boards"
	"uocsclub.net/aocstats/internal/calendar"
	"uocsclub.net/aocstats/internal/stats"
)

const (
	MembersSheet = "Members"
	DaysSheet    = "Days"
)

var membersHeader = []any{
	"Id", "Name", "Stars", "Local score", "Computed points", "Part 1 points", "Part 2 points",
	"Part 1 firsts", "Part 2 firsts", "Total time", "Median delta", "Time per star",
}

// Workbook exports one row per member, ordered by local score, and a member
// by day grid of points.
func Workbook(members stats.Members, year int) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), MembersSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(DaysSheet); err != nil {
		return nil, err
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: fmt.Sprintf("Advent of Code %d", year)}); err != nil {
		return nil, err
	}

	if err := setRow(f, MembersSheet, 1, membersHeader); err != nil {
		return nil, err
	}
	daysHeader := []any{"Id", "Name"}
	for _, day := range calendar.Days() {
		daysHeader = append(daysHeader, day)
	}
	if err := setRow(f, DaysSheet, 1, daysHeader); err != nil {
		return nil, err
	}

	for i, m := range byScore(members) {
		row := []any{
			m.Id, m.Name, m.TotalStars, m.LocalScore, m.Score(), m.PartAScore, m.PartBScore,
			m.PartAFirst, m.PartBFirst, duration(m.TotalTime), duration(m.MedianDelta), duration(m.TimePerStar),
		}
		if err := setRow(f, MembersSheet, i+2, row); err != nil {
			return nil, err
		}

		points := []any{m.Id, m.Name}
		for _, day := range calendar.Days() {
			points = append(points, m.Points[day])
		}
		if err := setRow(f, DaysSheet, i+2, points); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, axis, &values)
}

func duration(d *time.Duration) string {
	if d == nil {
		return ""
	}
	return boards.FormatDuration(*d)
}
