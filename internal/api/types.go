package api

import (
	"time"

	"github.com/google/uuid"
)

type CreateProviderRequest struct {
	Name string `json:"name" validate:"required"`
}

type CreateAvailabilityRequest struct {
	ProviderID string `json:"provider_id" validate:"required,uuid"`
	Date       string `json:"date" validate:"required,date"`
	StartTime  string `json:"start_time" validate:"required,clock"`
	EndTime    string `json:"end_time" validate:"required,clock"`
}

type CreateAppointmentRequest struct {
	ProviderID string  `json:"provider_id" validate:"required,uuid"`
	Date       string  `json:"date" validate:"required,date"`
	Time       string  `json:"time" validate:"required,clock"`
	ClientName *string `json:"client_name,omitempty" validate:"omitempty,max=255"`
}

type ProviderResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ProviderListResponse struct {
	Providers []ProviderResponse `json:"providers"`
}

type AvailabilityResponse struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
}

type SlotsResponse struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	Slots      []string  `json:"slots"`
}

type AppointmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	ProviderID  uuid.UUID  `json:"provider_id"`
	Date        string     `json:"date"`
	Time        string     `json:"time"`
	ClientName  *string    `json:"client_name,omitempty"`
	ReservedAt  time.Time  `json:"reserved_at"`
	IsConfirmed bool       `json:"is_confirmed"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
