package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
)

var (
	ErrProviderNotFound    = errors.New("provider not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	ErrInvalidWindow      = errors.New("end time must be after start time")
	ErrMissingFields      = errors.New("required fields are missing")
	ErrInsufficientNotice = errors.New("appointments must be reserved at least 24 hours in advance")
	ErrNoAvailability     = errors.New("no availability exists for the selected date")
	ErrInvalidSlot        = errors.New("invalid time slot")
	ErrReservationExpired = errors.New("cannot confirm expired reservation")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// Providers
	CreateProvider(ctx context.Context, name string) (*Provider, error)
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	ListProviders(ctx context.Context) ([]Provider, error)
	DeleteProvider(ctx context.Context, id uuid.UUID) error

	// Availability. FindAvailabilityWindow returns nil, nil when no window exists.
	CreateAvailabilityWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error)
	FindAvailabilityWindow(ctx context.Context, providerID uuid.UUID, date civil.Date) (*AvailabilityWindow, error)

	// For slot listing and conflict checks
	ListConfirmedAppointmentTimes(ctx context.Context, providerID uuid.UUID, date civil.Date) ([]civil.Time, error)

	// Creation and updates
	CreatePendingAppointment(ctx context.Context, req ReservationRequest, reservedAt time.Time) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ConfirmAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Expiry worker: pending appointments reserved before cutoff with no expiry event yet
	FindExpiredPending(ctx context.Context, cutoff time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
