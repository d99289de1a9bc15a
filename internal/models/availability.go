package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DayLabels maps dia_semana (0 = Monday) to its display label.
var DayLabels = [7]string{"Lunes", "Martes", "Miercoles", "Jueves", "Viernes", "Sabado", "Domingo"}

// DayLabel returns the label for day, or an empty string when out of range.
func DayLabel(day int) string {
	if day < 0 || day > 6 {
		return ""
	}
	return DayLabels[day]
}

// WeekdayIndex converts a time.Weekday to the Monday-based index.
func WeekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into minutes after midnight.
func ParseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, fmt.Errorf("invalid time %q", raw)
}

// AvailabilitySlot is one recurring weekly opening.
type AvailabilitySlot struct {
	ID     ID     `json:"id"`
	Day    int    `json:"dia_semana"`
	Start  string `json:"hora_inicio"`
	End    string `json:"hora_fin"`
	Active bool   `json:"activo"`
}

// UnmarshalJSON treats a missing activo flag as true.
func (s *AvailabilitySlot) UnmarshalJSON(b []byte) error {
	type alias AvailabilitySlot
	a := alias{Active: true}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*s = AvailabilitySlot(a)
	return nil
}

// Minutes returns the slot length, zero when the times do not parse.
func (s AvailabilitySlot) Minutes() int {
	start, err := ParseClock(s.Start)
	if err != nil {
		return 0
	}
	end, err := ParseClock(s.End)
	if err != nil || end <= start {
		return 0
	}
	return end - start
}

// DaySchedule is one column of the weekly view.
type DaySchedule struct {
	Day   int                `json:"dia_semana"`
	Label string             `json:"label"`
	Slots []AvailabilitySlot `json:"slots"`
}

// GroupByWeekday returns seven columns, Monday first, each sorted by start time.
// Slots with an out-of-range day are dropped.
func GroupByWeekday(slots []AvailabilitySlot) []DaySchedule {
	week := make([]DaySchedule, 7)
	for i := range week {
		week[i] = DaySchedule{Day: i, Label: DayLabels[i], Slots: []AvailabilitySlot{}}
	}
	for _, s := range slots {
		if s.Day < 0 || s.Day > 6 {
			continue
		}
		week[s.Day].Slots = append(week[s.Day].Slots, s)
	}
	for i := range week {
		sort.SliceStable(week[i].Slots, func(a, b int) bool {
			return week[i].Slots[a].Start < week[i].Slots[b].Start
		})
	}
	return week
}

// TotalWeeklyHours sums the length of active slots.
func TotalWeeklyHours(slots []AvailabilitySlot) float64 {
	minutes := 0
	for _, s := range slots {
		if s.Active && s.Day >= 0 && s.Day <= 6 {
			minutes += s.Minutes()
		}
	}
	return float64(minutes) / 60
}

// BlockedInterval is a one-off period in which the tutor is unavailable.
type BlockedInterval struct {
	ID     ID        `json:"id"`
	Start  Timestamp `json:"inicio"`
	End    Timestamp `json:"fin"`
	Reason string    `json:"motivo,omitempty"`
}

// Ongoing reports whether now falls inside the interval.
func (b BlockedInterval) Ongoing(now time.Time) bool {
	return !now.Before(b.Start.Time) && now.Before(b.End.Time)
}

// NextBlock returns the earliest interval that has not ended yet.
func NextBlock(blocks []BlockedInterval, now time.Time) (BlockedInterval, bool) {
	var (
		next  BlockedInterval
		found bool
	)
	for _, b := range blocks {
		if b.End.IsZero() || !b.End.After(now) {
			continue
		}
		if !found || b.Start.Before(next.Start.Time) {
			next, found = b, true
		}
	}
	return next, found
}

// SortBlocks orders intervals by start time.
func SortBlocks(blocks []BlockedInterval) {
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Start.Before(blocks[j].Start.Time)
	})
}
