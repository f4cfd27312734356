package appointment

import "time"

// GracePeriod is how long a pending reservation can still be confirmed.
const GracePeriod = 30 * time.Minute

// IsExpired reports whether a pending appointment has outlived its grace period.
// Confirmed appointments never expire.
func IsExpired(a Appointment, now time.Time) bool {
	return !a.IsConfirmed && now.After(a.ReservedAt.Add(GracePeriod))
}

// Confirm moves a pending appointment to confirmed. An expired reservation is
// returned untouched with ErrReservationExpired; confirming twice is a no-op.
func Confirm(a Appointment, now time.Time) (Appointment, error) {
	if a.IsConfirmed {
		return a, nil
	}
	if IsExpired(a, now) {
		return a, ErrReservationExpired
	}
	a.IsConfirmed = true
	return a, nil
}

// StatusAt classifies an appointment. Expired is computed, never stored.
func StatusAt(a Appointment, now time.Time) Status {
	switch {
	case a.IsConfirmed:
		return StatusConfirmed
	case IsExpired(a, now):
		return StatusExpired
	default:
		return StatusPending
	}
}
