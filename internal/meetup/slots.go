package meetup

import (
	"time"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/types"
)

// AvailablePeriods returns the periods selectable for the given date.
// Campus period windows only exist on class days, so they are filtered out
// on weekends; the "other" window is offered on any date. This filter shapes
// what clients present, it is never re-applied to already-submitted sets.
func AvailablePeriods(date string) ([]enums.SlotPeriod, error) {
	day, err := time.Parse(types.SlotDateLayout, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date")
	}

	all := enums.AllSlotPeriods()
	if !isWeekend(day) {
		return all, nil
	}
	periods := make([]enums.SlotPeriod, 0, len(all))
	for _, period := range all {
		if period.ClassDayOnly() {
			continue
		}
		periods = append(periods, period)
	}
	return periods, nil
}

func isWeekend(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	default:
		return false
	}
}
