// Package slots derives bookable hourly slots from business hours and the
// active bookings of a day. Everything here is a pure function of its inputs.
package slots

import (
	"time"

	"defensebook/pkg/model"
)

type Slot struct {
	Hour      int       `json:"hour"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

type DaySchedule struct {
	Date       string `json:"date"`
	Slots      []Slot `json:"slots"`
	Full       bool   `json:"full"`
	Selectable bool   `json:"selectable"`
}

type DayStatus struct {
	Date       string `json:"date"`
	Booked     int    `json:"booked"`
	Full       bool   `json:"full"`
	Selectable bool   `json:"selectable"`
}

type Calculator struct {
	OpenHour  int
	CloseHour int
	Location  *time.Location
	Horizon   time.Duration
}

func NewCalculator(openHour, closeHour int, loc *time.Location, horizon time.Duration) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{
		OpenHour:  openHour,
		CloseHour: closeHour,
		Location:  loc,
		Horizon:   horizon,
	}
}

// Capacity is the number of slots in one business day.
func (c *Calculator) Capacity() int {
	return c.CloseHour - c.OpenHour
}

// DayStart returns local midnight of the calendar day containing t.
func (c *Calculator) DayStart(t time.Time) time.Time {
	local := t.In(c.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location)
}

// SlotStart returns the instant the given business hour begins on date.
func (c *Calculator) SlotStart(date time.Time, hour int) time.Time {
	day := c.DayStart(date)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, c.Location)
}

// InBusinessHours reports whether a slot may start at t: on the hour and
// inside the open/close window.
func (c *Calculator) InBusinessHours(t time.Time) bool {
	local := t.In(c.Location)
	if local.Minute() != 0 || local.Second() != 0 || local.Nanosecond() != 0 {
		return false
	}
	return local.Hour() >= c.OpenHour && local.Hour() < c.CloseHour
}

func (c *Calculator) Day(date time.Time, now time.Time, active []*model.Booking) DaySchedule {
	day := c.DayStart(date)
	occupied := c.occupiedHours(day, active)

	schedule := DaySchedule{
		Date:  day.Format("2006-01-02"),
		Slots: make([]Slot, 0, c.Capacity()),
	}
	for hour := c.OpenHour; hour < c.CloseHour; hour++ {
		start := c.SlotStart(day, hour)
		schedule.Slots = append(schedule.Slots, Slot{
			Hour:      hour,
			Start:     start,
			End:       start.Add(model.SlotDuration),
			Available: !occupied[hour],
		})
	}

	schedule.Full = c.full(c.countOnDay(day, active))
	schedule.Selectable = c.selectable(day, now, schedule.Full)
	return schedule
}

// Selectable reports whether a caller may offer date for booking. Full days
// and days outside (now, now+horizon) are not selectable.
func (c *Calculator) Selectable(date time.Time, now time.Time, active []*model.Booking) bool {
	day := c.DayStart(date)
	return c.selectable(day, now, c.full(c.countOnDay(day, active)))
}

// Calendar lists every day from today through the end of the horizon.
func (c *Calculator) Calendar(now time.Time, active []*model.Booking) []DayStatus {
	counts := make(map[string]int)
	for _, b := range active {
		if b.IsActive() {
			counts[b.StartDate.In(c.Location).Format("2006-01-02")]++
		}
	}

	last := now.Add(c.Horizon)
	var days []DayStatus
	for day := c.DayStart(now); !day.After(last); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		full := c.full(counts[key])
		days = append(days, DayStatus{
			Date:       key,
			Booked:     counts[key],
			Full:       full,
			Selectable: c.selectable(day, now, full),
		})
	}
	return days
}

func (c *Calculator) selectable(day time.Time, now time.Time, full bool) bool {
	if full {
		return false
	}
	return day.After(now) && day.Before(now.Add(c.Horizon))
}

func (c *Calculator) full(count int) bool {
	return count >= c.Capacity()
}

func (c *Calculator) sameDay(day time.Time, t time.Time) bool {
	local := t.In(c.Location)
	return local.Year() == day.Year() && local.Month() == day.Month() && local.Day() == day.Day()
}

func (c *Calculator) countOnDay(day time.Time, active []*model.Booking) int {
	n := 0
	for _, b := range active {
		if b.IsActive() && c.sameDay(day, b.StartDate) {
			n++
		}
	}
	return n
}

func (c *Calculator) occupiedHours(day time.Time, active []*model.Booking) map[int]bool {
	occupied := make(map[int]bool)
	for _, b := range active {
		if !b.IsActive() || !c.sameDay(day, b.StartDate) {
			continue
		}
		local := b.StartDate.In(c.Location)
		if local.Minute() == 0 {
			occupied[local.Hour()] = true
		}
	}
	return occupied
}
