// Package meetup holds the pure negotiation rules for candidate meetup
// slots and locations. It has no storage of its own; the transactions
// service calls into it before touching the database.
package meetup

import (
	"fmt"
	"strings"

	pkgerrors "github.com/Gitttomo/AntiTextNext-sub000/pkg/errors"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/types"
)

const (
	// MinDistinctDates is the anti-deadlock floor for a candidate offer:
	// a single-date offer gives the seller no real choice.
	MinDistinctDates = 2
)

// ValidateCandidateSet enforces the offer-shape rules for a new purchase
// request: at least MinDistinctDates distinct dates, at least one location,
// no duplicate slots, and every period must be a known value.
func ValidateCandidateSet(slots types.SlotSet, locations types.StringSet) error {
	if len(slots) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one candidate time slot is required")
	}
	for i, slot := range slots {
		if !slot.Period.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown slot period %q", slot.Period))
		}
		if _, err := slot.ParseDate(); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "candidate slot has an invalid date")
		}
		for _, prior := range slots[:i] {
			if prior.Equal(slot) {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate candidate slot %s", slot))
			}
		}
	}
	if len(slots.DistinctDates()) < MinDistinctDates {
		return pkgerrors.New(pkgerrors.CodeValidation, "candidate slots must span at least two distinct dates")
	}

	if len(locations) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one candidate location is required")
	}
	seen := map[string]struct{}{}
	for _, location := range locations {
		trimmed := strings.TrimSpace(location)
		if trimmed == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "candidate locations must not be blank")
		}
		if _, ok := seen[trimmed]; ok {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate candidate location %q", trimmed))
		}
		seen[trimmed] = struct{}{}
	}
	return nil
}

// SelectFinal checks a seller's chosen slot and location against the buyer's
// original candidate sets. Selection is closed-world: anything outside the
// offered sets is rejected, so the seller cannot substitute an out-of-band
// meetup the buyer never agreed to.
func SelectFinal(candidateSlots types.SlotSet, candidateLocations types.StringSet, chosenSlot types.Slot, chosenLocation string) error {
	if !candidateSlots.Contains(chosenSlot) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("slot %s was not offered", chosenSlot))
	}
	if chosenLocation == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "a meetup location must be selected")
	}
	if !candidateLocations.Contains(chosenLocation) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("location %q was not offered", chosenLocation))
	}
	return nil
}
