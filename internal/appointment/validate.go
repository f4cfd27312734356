package appointment

import (
	"time"

	"github.com/golang-sql/civil"
)

// ValidateReservation checks a reservation request against the booking rules.
// Rules run in a fixed order and the first failure is returned:
//
//  1. the requested date must be later than tomorrow (calendar dates, not elapsed hours)
//  2. the provider must have a window on that date
//  3. the requested time must fall in [window.StartTime, window.EndTime)
//
// A nil error means a pending appointment may be stored.
func ValidateReservation(req ReservationRequest, now time.Time, window *AvailabilityWindow) error {
	if !req.Date.After(civil.DateOf(now).AddDays(1)) {
		return ErrInsufficientNotice
	}

	if window == nil {
		return ErrNoAvailability
	}

	slot := civil.DateTime{Date: req.Date, Time: req.Time}.In(time.UTC)
	start := civil.DateTime{Date: window.Date, Time: window.StartTime}.In(time.UTC)
	end := civil.DateTime{Date: window.Date, Time: window.EndTime}.In(time.UTC)
	if slot.Before(start) || !slot.Before(end) {
		return ErrInvalidSlot
	}

	return nil
}

// ensureSlotFree rejects a time already held by a confirmed appointment.
func ensureSlotFree(t civil.Time, confirmed []civil.Time) error {
	for _, c := range confirmed {
		if sinceMidnight(c) == sinceMidnight(t) {
			return ErrSlotAlreadyBooked
		}
	}
	return nil
}
