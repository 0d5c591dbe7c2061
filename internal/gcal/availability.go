package gcal

import (
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
)

const (
	businessDayStartHour = 9
	businessDayEndHour   = 17
	slotDuration         = 30 * time.Minute
)

// Slot is a free window on the calendar.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BusyPeriod is a window during which the calendar owner is occupied.
type BusyPeriod struct {
	Start time.Time
	End   time.Time
}

// CheckAvailability queries FreeBusy for the calendar and returns open
// 30-minute slots within business hours between from and to.
func (c *Client) CheckAvailability(calendarID string, from, to time.Time) ([]Slot, error) {
	if c.service == nil {
		return nil, fmt.Errorf("calendar service not initialized")
	}
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: end is before start")
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	resp, err := c.service.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query free/busy: %w", err)
	}

	var busy []BusyPeriod
	if cal, ok := resp.Calendars[calendarID]; ok {
		for _, period := range cal.Busy {
			start, err := time.Parse(time.RFC3339, period.Start)
			if err != nil {
				continue
			}
			end, err := time.Parse(time.RFC3339, period.End)
			if err != nil {
				continue
			}
			busy = append(busy, BusyPeriod{Start: start, End: end})
		}
	}

	return FreeSlots(from, to, busy), nil
}

// FreeSlots generates open 30-minute slots between from and to, limited
// to business hours and skipping any slot that overlaps a busy period.
func FreeSlots(from, to time.Time, busy []BusyPeriod) []Slot {
	var slots []Slot

	cursor := from.Truncate(slotDuration)
	if cursor.Before(from) {
		cursor = cursor.Add(slotDuration)
	}

	for cursor.Add(slotDuration).Before(to) || cursor.Add(slotDuration).Equal(to) {
		slotEnd := cursor.Add(slotDuration)
		if withinBusinessHours(cursor, slotEnd) && !overlapsBusy(cursor, slotEnd, busy) {
			slots = append(slots, Slot{Start: cursor, End: slotEnd})
		}
		cursor = slotEnd
	}

	return slots
}

func withinBusinessHours(start, end time.Time) bool {
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), businessDayStartHour, 0, 0, 0, start.Location())
	dayEnd := time.Date(start.Year(), start.Month(), start.Day(), businessDayEndHour, 0, 0, 0, start.Location())
	return !start.Before(dayStart) && !end.After(dayEnd)
}

func overlapsBusy(start, end time.Time, busy []BusyPeriod) bool {
	for _, period := range busy {
		if start.Before(period.End) && period.Start.Before(end) {
			return true
		}
	}
	return false
}
