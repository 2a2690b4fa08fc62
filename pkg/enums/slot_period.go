package enums

import "fmt"

// SlotPeriod enumerates the campus time windows a meetup can target.
type SlotPeriod string

const (
	SlotPeriodLunchBreak        SlotPeriod = "lunch_break"
	SlotPeriodAfterSecondPeriod SlotPeriod = "after_second_period"
	SlotPeriodAfterFourthPeriod SlotPeriod = "after_fourth_period"
	SlotPeriodAfterSchool       SlotPeriod = "after_school"
	SlotPeriodOther             SlotPeriod = "other"
)

var validSlotPeriods = []SlotPeriod{
	SlotPeriodLunchBreak,
	SlotPeriodAfterSecondPeriod,
	SlotPeriodAfterFourthPeriod,
	SlotPeriodAfterSchool,
	SlotPeriodOther,
}

// AllSlotPeriods returns the canonical period set in display order.
func AllSlotPeriods() []SlotPeriod {
	return append([]SlotPeriod(nil), validSlotPeriods...)
}

// String implements fmt.Stringer.
func (p SlotPeriod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known SlotPeriod.
func (p SlotPeriod) IsValid() bool {
	for _, candidate := range validSlotPeriods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ClassDayOnly reports whether the period only makes sense on class days.
// The "other" window stays selectable on any date.
func (p SlotPeriod) ClassDayOnly() bool {
	return p != SlotPeriodOther
}

// ParseSlotPeriod converts raw input into a SlotPeriod.
func ParseSlotPeriod(value string) (SlotPeriod, error) {
	for _, candidate := range validSlotPeriods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid slot period %q", value)
}
