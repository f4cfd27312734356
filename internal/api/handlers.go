package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/hackgods/provider-booking/internal/appointment"
	redisclient "github.com/hackgods/provider-booking/internal/redis"
)

// Providers

func createProviderHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProviderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if vErr := validateRequest(req); vErr != nil {
			writeValidationError(w, vErr)
			return
		}

		p, err := svc.CreateProvider(r.Context(), req.Name)
		if err != nil {
			handleProviderError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toProviderResponse(*p))
	}
}

func listProvidersHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providers, err := svc.ListProviders(r.Context())
		if err != nil {
			handleProviderError(w, err)
			return
		}

		resp := ProviderListResponse{Providers: make([]ProviderResponse, 0, len(providers))}
		for _, p := range providers {
			resp.Providers = append(resp.Providers, toProviderResponse(p))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getProviderHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id", "invalid_provider_id")
		if !ok {
			return
		}

		p, err := svc.GetProvider(r.Context(), id)
		if err != nil {
			handleProviderError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toProviderResponse(*p))
	}
}

func deleteProviderHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id", "invalid_provider_id")
		if !ok {
			return
		}

		if err := svc.DeleteProvider(r.Context(), id); err != nil {
			handleProviderError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// Availability

func createAvailabilityHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if vErr := validateRequest(req); vErr != nil {
			writeValidationError(w, vErr)
			return
		}

		// formats were checked by the validator
		providerID := uuid.MustParse(req.ProviderID)
		date, _ := civil.ParseDate(req.Date)
		start, _ := parseClock(req.StartTime)
		end, _ := parseClock(req.EndTime)

		window, err := svc.CreateAvailabilityWindow(r.Context(), providerID, date, start, end)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, AvailabilityResponse{
			ID:         window.ID,
			ProviderID: window.ProviderID,
			Date:       window.Date.String(),
			StartTime:  window.StartTime.String(),
			EndTime:    window.EndTime.String(),
		})
	}
}

func listSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := uuidParam(w, r, "id", "invalid_provider_id")
		if !ok {
			return
		}

		raw := r.URL.Query().Get("date")
		if raw == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "date query parameter is required")
			return
		}
		date, err := civil.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.ListSlots(r.Context(), providerID, date)
		if err != nil {
			if errors.Is(err, appointment.ErrNoAvailability) {
				writeError(w, http.StatusNotFound, "no_availability", "No availability found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := SlotsResponse{
			ProviderID: providerID,
			Date:       date.String(),
			Slots:      make([]string, 0, len(slots)),
		}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, s.String())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Appointments

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if vErr := validateRequest(req); vErr != nil {
			writeValidationError(w, vErr)
			return
		}

		providerID := uuid.MustParse(req.ProviderID)
		date, _ := civil.ParseDate(req.Date)
		slot, _ := parseClock(req.Time)

		appt, err := svc.CreateAppointment(r.Context(), appointment.ReservationRequest{
			ProviderID: providerID,
			Date:       date,
			Time:       slot,
			ClientName: req.ClientName,
		})
		if err != nil {
			handleCreateError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(svc, *appt))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleConfirmError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(svc, *appt))
	}
}

func confirmAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		appt, err := svc.ConfirmAppointment(r.Context(), id)
		if err != nil {
			handleConfirmError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(svc, *appt))
	}
}

// Helpers

func uuidParam(w http.ResponseWriter, r *http.Request, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, code, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func toProviderResponse(p appointment.Provider) ProviderResponse {
	return ProviderResponse{ID: p.ID, Name: p.Name}
}

func toAppointmentResponse(svc *appointment.Service, a appointment.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:          a.ID,
		ProviderID:  a.ProviderID,
		Date:        a.Date.String(),
		Time:        a.Time.String(),
		ClientName:  a.ClientName,
		ReservedAt:  a.ReservedAt,
		IsConfirmed: a.IsConfirmed,
		Status:      string(svc.StatusOf(a)),
	}
	if !a.IsConfirmed {
		expiresAt := a.ReservedAt.Add(appointment.GracePeriod)
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

func writeValidationError(w http.ResponseWriter, vErr *validationError) {
	if len(vErr.missing) > 0 {
		writeError(w, http.StatusBadRequest, "missing_fields", vErr.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_fields", vErr.Error())
}

func handleProviderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, appointment.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "missing_fields", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleAvailabilityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
	case errors.Is(err, appointment.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "missing_fields", err.Error())
	case errors.Is(err, appointment.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, appointment.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "missing_fields", err.Error())
	case errors.Is(err, appointment.ErrInsufficientNotice):
		writeError(w, http.StatusBadRequest, "insufficient_notice", err.Error())
	case errors.Is(err, appointment.ErrNoAvailability):
		writeError(w, http.StatusBadRequest, "no_availability", err.Error())
	case errors.Is(err, appointment.ErrInvalidSlot):
		writeError(w, http.StatusBadRequest, "invalid_slot", err.Error())
	case errors.Is(err, appointment.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleConfirmError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrReservationExpired):
		writeError(w, http.StatusBadRequest, "reservation_expired", err.Error())
	case errors.Is(err, appointment.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
