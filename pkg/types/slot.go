package types

import (
	"fmt"
	"sort"
	"time"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
)

// SlotDateLayout is the calendar-date wire format for meetup slots.
const SlotDateLayout = "2006-01-02"

// Slot is a composite meetup key: a calendar date plus a campus time window.
// It is an immutable value type with no independent lifecycle.
type Slot struct {
	Date   string           `json:"date"`
	Period enums.SlotPeriod `json:"period"`
}

// ParseDate returns the slot's calendar date.
func (s Slot) ParseDate() (time.Time, error) {
	day, err := time.Parse(SlotDateLayout, s.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot date %q: %w", s.Date, err)
	}
	return day, nil
}

// Equal compares both components.
func (s Slot) Equal(other Slot) bool {
	return s.Date == other.Date && s.Period == other.Period
}

func (s Slot) String() string {
	return s.Date + "/" + string(s.Period)
}

// SlotSet is an ordered collection of candidate slots, persisted as JSON.
type SlotSet []Slot

// Contains reports closed-world membership of the given slot.
func (ss SlotSet) Contains(slot Slot) bool {
	for _, candidate := range ss {
		if candidate.Equal(slot) {
			return true
		}
	}
	return false
}

// DistinctDates returns the sorted distinct calendar dates across the set.
func (ss SlotSet) DistinctDates() []string {
	seen := map[string]struct{}{}
	dates := make([]string, 0, len(ss))
	for _, slot := range ss {
		if _, ok := seen[slot.Date]; ok {
			continue
		}
		seen[slot.Date] = struct{}{}
		dates = append(dates, slot.Date)
	}
	sort.Strings(dates)
	return dates
}

// StringSet is an ordered collection of strings persisted as JSON,
// used for candidate meetup locations.
type StringSet []string

// Contains reports membership of the given value.
func (ss StringSet) Contains(value string) bool {
	for _, candidate := range ss {
		if candidate == value {
			return true
		}
	}
	return false
}
