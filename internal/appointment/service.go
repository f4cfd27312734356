package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/hackgods/provider-booking/internal/redis"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentExpired   = "APPOINTMENT_EXPIRED"
)

// ExpiryRunLockKey guards RecordExpiredReservations across worker replicas.
const ExpiryRunLockKey = "expiry-worker"

var (
	ErrSlotAlreadyBooked = errors.New("slot already has a confirmed appointment")
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")
)

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	windows *WindowCache
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires the service. windows may be nil, in which case every
// window lookup goes to the repository.
func NewService(repo Repository, locker redisclient.Locker, windows *WindowCache, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		windows: windows,
		logger:  logger.Named("appointment"),
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests and tooling.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// StatusOf classifies an appointment at the service clock's current time.
func (s *Service) StatusOf(a Appointment) Status {
	return StatusAt(a, s.now())
}

// Providers

func (s *Service) CreateProvider(ctx context.Context, name string) (*Provider, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingFields
	}

	p, err := s.repo.CreateProvider(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	s.logger.Info("provider created", zap.Stringer("provider_id", p.ID))
	return p, nil
}

func (s *Service) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	p, err := s.repo.GetProviderByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load provider: %w", err)
	}
	return p, nil
}

func (s *Service) ListProviders(ctx context.Context) ([]Provider, error) {
	providers, err := s.repo.ListProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return providers, nil
}

// DeleteProvider removes a provider together with its windows and appointments.
func (s *Service) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteProvider(ctx, id); err != nil {
		return fmt.Errorf("delete provider: %w", err)
	}
	if s.windows != nil {
		s.windows.Purge()
	}
	s.logger.Info("provider deleted", zap.Stringer("provider_id", id))
	return nil
}

// Availability

func (s *Service) CreateAvailabilityWindow(ctx context.Context, providerID uuid.UUID, date civil.Date, start, end civil.Time) (*AvailabilityWindow, error) {
	w, err := NewAvailabilityWindow(providerID, date, start, end)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		return nil, fmt.Errorf("load provider: %w", err)
	}

	created, err := s.repo.CreateAvailabilityWindow(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("create availability window: %w", err)
	}
	return created, nil
}

// ListSlots returns the bookable slot start times for a provider on a date.
// A provider missing from the store has no availability, whatever the
// window cache still holds.
func (s *Service) ListSlots(ctx context.Context, providerID uuid.UUID, date civil.Date) ([]civil.Time, error) {
	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, ErrNoAvailability
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	window, err := s.findWindow(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("find availability window: %w", err)
	}
	if window == nil {
		return nil, ErrNoAvailability
	}

	confirmed, err := s.repo.ListConfirmedAppointmentTimes(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("list confirmed appointments: %w", err)
	}

	return GenerateSlots(*window, confirmed), nil
}

// Appointments

// CreateAppointment validates a reservation and stores it as pending.
// The conflict check and the insert run under a per slot lock so that two
// requests for the same slot are serialized.
func (s *Service) CreateAppointment(ctx context.Context, req ReservationRequest) (*Appointment, error) {
	if req.ProviderID == uuid.Nil || !req.Date.IsValid() || !req.Time.IsValid() {
		return nil, ErrMissingFields
	}

	if _, err := s.repo.GetProviderByID(ctx, req.ProviderID); err != nil {
		return nil, fmt.Errorf("load provider: %w", err)
	}

	window, err := s.findWindow(ctx, req.ProviderID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("find availability window: %w", err)
	}

	now := s.now()
	if err := ValidateReservation(req, now, window); err != nil {
		return nil, err
	}

	var created *Appointment

	err = s.withSlotLock(ctx, req.ProviderID, req.Date, req.Time, func(lockCtx context.Context) error {
		confirmed, err := s.repo.ListConfirmedAppointmentTimes(lockCtx, req.ProviderID, req.Date)
		if err != nil {
			return fmt.Errorf("check confirmed appointments: %w", err)
		}
		if err := ensureSlotFree(req.Time, confirmed); err != nil {
			return err
		}

		appt, err := s.repo.CreatePendingAppointment(lockCtx, req, now)
		if err != nil {
			return fmt.Errorf("create pending appointment: %w", err)
		}
		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"provider_id": req.ProviderID.String(),
			"date":        req.Date.String(),
			"time":        req.Time.String(),
			"expires_at":  now.Add(GracePeriod),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return appt, nil
}

// ConfirmAppointment confirms a pending reservation that is still inside its
// grace period. Confirming an already confirmed appointment returns it as is.
func (s *Service) ConfirmAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if _, err := Confirm(*appt, s.now()); err != nil {
		s.logger.Info("confirmation rejected",
			zap.Stringer("appointment_id", appt.ID),
			zap.Time("reserved_at", appt.ReservedAt),
			zap.Error(err),
		)
		return nil, err
	}
	if appt.IsConfirmed {
		return appt, nil
	}

	var updated *Appointment

	err = s.withSlotLock(ctx, appt.ProviderID, appt.Date, appt.Time, func(lockCtx context.Context) error {
		confirmed, err := s.repo.ListConfirmedAppointmentTimes(lockCtx, appt.ProviderID, appt.Date)
		if err != nil {
			return fmt.Errorf("check confirmed appointments: %w", err)
		}
		if err := ensureSlotFree(appt.Time, confirmed); err != nil {
			return err
		}

		updated, err = s.repo.ConfirmAppointment(lockCtx, appt.ID)
		if errors.Is(err, ErrAppointmentNotFound) {
			// confirmed by a concurrent request in the meantime
			updated, err = s.repo.GetAppointmentByID(lockCtx, appt.ID)
			return err
		}
		if err != nil {
			return fmt.Errorf("confirm appointment: %w", err)
		}

		s.logEvent(lockCtx, updated.ID, EventAppointmentConfirmed, map[string]any{})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// RecordExpiredReservations is intended to be called by the worker periodically.
// It writes one expiry event per lapsed reservation and never touches the
// appointment rows: expiry stays a computed state. Only one run at a time
// proceeds across replicas; the others return zero.
func (s *Service) RecordExpiredReservations(ctx context.Context) (int, error) {
	recorded := 0
	err := s.locker.WithSlotLock(ctx, ExpiryRunLockKey, func(lockCtx context.Context) error {
		n, err := s.recordExpired(lockCtx)
		recorded = n
		return err
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		s.logger.Debug("expiry run already in progress elsewhere")
		return 0, nil
	}
	return recorded, err
}

func (s *Service) recordExpired(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.repo.FindExpiredPending(ctx, now.Add(-GracePeriod))
	if err != nil {
		return 0, fmt.Errorf("find expired pending appointments: %w", err)
	}

	recorded := 0
	for _, appt := range candidates {
		if !IsExpired(appt, now) {
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentExpired, map[string]any{
			"reserved_at": appt.ReservedAt,
			"reason":      "worker",
		})
		recorded++
	}

	return recorded, nil
}

// findWindow goes through the cache when there is one.
func (s *Service) findWindow(ctx context.Context, providerID uuid.UUID, date civil.Date) (*AvailabilityWindow, error) {
	if s.windows == nil {
		return s.repo.FindAvailabilityWindow(ctx, providerID, date)
	}
	return s.windows.Find(ctx, providerID, date)
}

func (s *Service) withSlotLock(ctx context.Context, providerID uuid.UUID, date civil.Date, t civil.Time, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("%s:%s:%s", providerID, date, t)

	err := s.locker.WithSlotLock(ctx, key, fn)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrSlotBeingBooked
	}
	return err
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error("failed to insert event log",
			zap.String("event_type", eventType),
			zap.Stringer("appointment_id", appointmentID),
			zap.Error(err),
		)
	}
}
