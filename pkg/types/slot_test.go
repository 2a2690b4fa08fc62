package types

import (
	"testing"

	"github.com/Gitttomo/AntiTextNext-sub000/pkg/enums"
)

func TestSlotSetContains(t *testing.T) {
	set := SlotSet{
		{Date: "2026-05-11", Period: enums.SlotPeriodLunchBreak},
		{Date: "2026-05-12", Period: enums.SlotPeriodAfterSchool},
	}

	if !set.Contains(Slot{Date: "2026-05-11", Period: enums.SlotPeriodLunchBreak}) {
		t.Fatalf("expected membership")
	}
	if set.Contains(Slot{Date: "2026-05-11", Period: enums.SlotPeriodAfterSchool}) {
		t.Fatalf("period must match too")
	}
	if set.Contains(Slot{Date: "2026-05-13", Period: enums.SlotPeriodLunchBreak}) {
		t.Fatalf("date must match too")
	}
}

func TestSlotSetDistinctDates(t *testing.T) {
	set := SlotSet{
		{Date: "2026-05-12", Period: enums.SlotPeriodLunchBreak},
		{Date: "2026-05-11", Period: enums.SlotPeriodLunchBreak},
		{Date: "2026-05-12", Period: enums.SlotPeriodAfterSchool},
	}

	dates := set.DistinctDates()
	if len(dates) != 2 {
		t.Fatalf("expected 2 distinct dates, got %d", len(dates))
	}
	if dates[0] != "2026-05-11" || dates[1] != "2026-05-12" {
		t.Fatalf("expected sorted dates, got %v", dates)
	}
}

func TestSlotParseDate(t *testing.T) {
	slot := Slot{Date: "2026-05-11", Period: enums.SlotPeriodOther}
	day, err := slot.ParseDate()
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if day.Weekday().String() != "Monday" {
		t.Fatalf("expected Monday, got %s", day.Weekday())
	}

	if _, err := (Slot{Date: "05/11/2026"}).ParseDate(); err == nil {
		t.Fatalf("expected error for bad layout")
	}
}

func TestStringSetContains(t *testing.T) {
	set := StringSet{"library", "cafeteria"}
	if !set.Contains("library") {
		t.Fatalf("expected membership")
	}
	if set.Contains("gym") {
		t.Fatalf("unexpected membership")
	}
}
