package slots

import (
	"testing"
	"time"

	"defensebook/pkg/model"
)

var kyiv = time.FixedZone("UTC+3", 3*3600)

func newTestCalculator() *Calculator {
	return NewCalculator(9, 17, kyiv, 30*24*time.Hour)
}

func booking(start time.Time, status model.BookingStatus, deleted bool) *model.Booking {
	return &model.Booking{
		StartDate: start,
		EndDate:   start.Add(model.SlotDuration),
		Status:    status,
		IsDeleted: deleted,
	}
}

func at(day, hour int) time.Time {
	return time.Date(2024, 4, day, hour, 0, 0, 0, kyiv)
}

func TestDay_ListsBusinessHours(t *testing.T) {
	c := newTestCalculator()
	now := at(10, 12)

	schedule := c.Day(at(15, 0), now, nil)

	if schedule.Date != "2024-04-15" {
		t.Errorf("expected date 2024-04-15, got %s", schedule.Date)
	}
	if len(schedule.Slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(schedule.Slots))
	}
	for i, slot := range schedule.Slots {
		if slot.Hour != 9+i {
			t.Errorf("slot %d: expected hour %d, got %d", i, 9+i, slot.Hour)
		}
		if !slot.Available {
			t.Errorf("slot %d: expected available", i)
		}
		if slot.End.Sub(slot.Start) != time.Hour {
			t.Errorf("slot %d: expected one hour duration, got %s", i, slot.End.Sub(slot.Start))
		}
	}
	if schedule.Full {
		t.Error("expected empty day not to be full")
	}
	if !schedule.Selectable {
		t.Error("expected empty future day to be selectable")
	}
}

func TestDay_MarksOccupiedHours(t *testing.T) {
	c := newTestCalculator()
	active := []*model.Booking{
		booking(at(15, 10), model.StatusPending, false),
		booking(at(15, 14), model.StatusApproved, false),
		booking(at(15, 11), model.StatusRejected, false),
		booking(at(15, 12), model.StatusPending, true),
		booking(at(16, 9), model.StatusPending, false),
	}

	schedule := c.Day(at(15, 0), at(10, 12), active)

	taken := map[int]bool{}
	for _, slot := range schedule.Slots {
		if !slot.Available {
			taken[slot.Hour] = true
		}
	}
	if len(taken) != 2 || !taken[10] || !taken[14] {
		t.Errorf("expected only 10 and 14 to be taken, got %v", taken)
	}
}

func TestDay_FullDayIsNotSelectable(t *testing.T) {
	c := newTestCalculator()
	var active []*model.Booking
	for hour := 9; hour < 17; hour++ {
		active = append(active, booking(at(15, hour), model.StatusPending, false))
	}
	now := at(10, 12)

	schedule := c.Day(at(15, 0), now, active)

	if !schedule.Full {
		t.Error("expected 2024-04-15 to be full")
	}
	if schedule.Selectable {
		t.Error("expected full day to be excluded from selectable dates")
	}
	if c.Selectable(at(15, 0), now, active) {
		t.Error("expected Selectable to reject full day")
	}
	for _, slot := range schedule.Slots {
		if slot.Available {
			t.Errorf("expected hour %d to be unavailable", slot.Hour)
		}
	}
}

func TestSelectable_Horizon(t *testing.T) {
	c := newTestCalculator()
	now := at(10, 12)

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"today", at(10, 0), false},
		{"yesterday", at(9, 0), false},
		{"tomorrow", at(11, 0), true},
		{"inside horizon", now.AddDate(0, 0, 29), true},
		{"beyond horizon", now.AddDate(0, 0, 31), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Selectable(tt.date, now, nil); got != tt.want {
				t.Errorf("Selectable(%s) = %v, want %v", tt.date.Format(time.RFC3339), got, tt.want)
			}
		})
	}
}

func TestCalendar(t *testing.T) {
	c := newTestCalculator()
	now := at(10, 12)
	var active []*model.Booking
	for hour := 9; hour < 17; hour++ {
		active = append(active, booking(at(15, hour), model.StatusApproved, false))
	}
	active = append(active, booking(at(12, 9), model.StatusPending, false))

	days := c.Calendar(now, active)

	if len(days) != 31 {
		t.Fatalf("expected 31 days from today through the horizon, got %d", len(days))
	}
	if days[0].Date != "2024-04-10" || days[0].Selectable {
		t.Errorf("expected today first and not selectable, got %+v", days[0])
	}

	byDate := map[string]DayStatus{}
	for _, d := range days {
		byDate[d.Date] = d
	}
	if d := byDate["2024-04-15"]; !d.Full || d.Selectable || d.Booked != 8 {
		t.Errorf("expected 2024-04-15 full and unselectable, got %+v", d)
	}
	if d := byDate["2024-04-12"]; d.Full || !d.Selectable || d.Booked != 1 {
		t.Errorf("expected 2024-04-12 selectable with one booking, got %+v", d)
	}
}

func TestInBusinessHours(t *testing.T) {
	c := newTestCalculator()

	tests := []struct {
		name  string
		start time.Time
		want  bool
	}{
		{"opening hour", at(15, 9), true},
		{"last slot", at(15, 16), true},
		{"closing hour", at(15, 17), false},
		{"before opening", at(15, 8), false},
		{"half past", at(15, 10).Add(30 * time.Minute), false},
		{"same instant in UTC", time.Date(2024, 4, 15, 7, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.InBusinessHours(tt.start); got != tt.want {
				t.Errorf("InBusinessHours(%s) = %v, want %v", tt.start.Format(time.RFC3339), got, tt.want)
			}
		})
	}
}
