package appointment

import (
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusExpired   Status = "expired"
)

type Provider struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// AvailabilityWindow is one provider's bookable window on a single date.
// Build it with NewAvailabilityWindow so that EndTime is always after StartTime.
type AvailabilityWindow struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	Date       civil.Date
	StartTime  civil.Time
	EndTime    civil.Time
	CreatedAt  time.Time
}

func NewAvailabilityWindow(providerID uuid.UUID, date civil.Date, start, end civil.Time) (AvailabilityWindow, error) {
	if providerID == uuid.Nil || !date.IsValid() || !start.IsValid() || !end.IsValid() {
		return AvailabilityWindow{}, ErrMissingFields
	}
	if sinceMidnight(end) <= sinceMidnight(start) {
		return AvailabilityWindow{}, ErrInvalidWindow
	}
	return AvailabilityWindow{
		ProviderID: providerID,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
	}, nil
}

type Appointment struct {
	ID          uuid.UUID
	ProviderID  uuid.UUID
	Date        civil.Date
	Time        civil.Time
	ClientName  *string
	ReservedAt  time.Time
	IsConfirmed bool
}

// ReservationRequest is the part of a booking that the validator looks at.
type ReservationRequest struct {
	ProviderID uuid.UUID
	Date       civil.Date
	Time       civil.Time
	ClientName *string
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

func sinceMidnight(t civil.Time) time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second +
		time.Duration(t.Nanosecond)
}

func timeOfDay(d time.Duration) civil.Time {
	return civil.Time{
		Hour:       int(d / time.Hour),
		Minute:     int(d % time.Hour / time.Minute),
		Second:     int(d % time.Minute / time.Second),
		Nanosecond: int(d % time.Second),
	}
}
