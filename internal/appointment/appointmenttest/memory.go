// Package appointmenttest provides in-memory stand-ins for the appointment
// record store and slot locker.
package appointmenttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/hackgods/provider-booking/internal/appointment"
	redisclient "github.com/hackgods/provider-booking/internal/redis"
)

// Repository is a map backed appointment.Repository. It mirrors the Postgres
// behaviour that matters to the service: cascade delete, first window wins,
// and a single confirmed appointment per slot.
type Repository struct {
	mu           sync.Mutex
	providers    map[uuid.UUID]appointment.Provider
	windows      []appointment.AvailabilityWindow
	appointments map[uuid.UUID]appointment.Appointment
	Events       []appointment.EventLog

	// WindowLookups counts FindAvailabilityWindow calls.
	WindowLookups int
}

var _ appointment.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		providers:    make(map[uuid.UUID]appointment.Provider),
		appointments: make(map[uuid.UUID]appointment.Appointment),
	}
}

func (r *Repository) CreateProvider(_ context.Context, name string) (*appointment.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := appointment.Provider{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	r.providers[p.ID] = p
	return &p, nil
}

func (r *Repository) GetProviderByID(_ context.Context, id uuid.UUID) (*appointment.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return nil, appointment.ErrProviderNotFound
	}
	return &p, nil
}

func (r *Repository) ListProviders(_ context.Context) ([]appointment.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]appointment.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) DeleteProvider(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[id]; !ok {
		return appointment.ErrProviderNotFound
	}
	delete(r.providers, id)

	kept := r.windows[:0]
	for _, w := range r.windows {
		if w.ProviderID != id {
			kept = append(kept, w)
		}
	}
	r.windows = kept

	for apptID, a := range r.appointments {
		if a.ProviderID == id {
			delete(r.appointments, apptID)
		}
	}
	return nil
}

func (r *Repository) CreateAvailabilityWindow(_ context.Context, w appointment.AvailabilityWindow) (*appointment.AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[w.ProviderID]; !ok {
		return nil, appointment.ErrProviderNotFound
	}
	w.ID = uuid.New()
	w.CreatedAt = time.Now()
	r.windows = append(r.windows, w)
	return &w, nil
}

func (r *Repository) FindAvailabilityWindow(_ context.Context, providerID uuid.UUID, date civil.Date) (*appointment.AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.WindowLookups++
	for _, w := range r.windows {
		if w.ProviderID == providerID && w.Date == date {
			return &w, nil
		}
	}
	return nil, nil
}

func (r *Repository) ListConfirmedAppointmentTimes(_ context.Context, providerID uuid.UUID, date civil.Date) ([]civil.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []civil.Time
	for _, a := range r.appointments {
		if a.ProviderID == providerID && a.Date == date && a.IsConfirmed {
			out = append(out, a.Time)
		}
	}
	return out, nil
}

func (r *Repository) CreatePendingAppointment(_ context.Context, req appointment.ReservationRequest, reservedAt time.Time) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[req.ProviderID]; !ok {
		return nil, appointment.ErrProviderNotFound
	}
	a := appointment.Appointment{
		ID:         uuid.New(),
		ProviderID: req.ProviderID,
		Date:       req.Date,
		Time:       req.Time,
		ClientName: req.ClientName,
		ReservedAt: reservedAt,
	}
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *Repository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *Repository) ConfirmAppointment(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.IsConfirmed {
		return nil, appointment.ErrAppointmentNotFound
	}
	for _, other := range r.appointments {
		if other.IsConfirmed && other.ProviderID == a.ProviderID && other.Date == a.Date && other.Time == a.Time {
			return nil, appointment.ErrSlotAlreadyBooked
		}
	}
	a.IsConfirmed = true
	r.appointments[id] = a
	return &a, nil
}

func (r *Repository) FindExpiredPending(_ context.Context, cutoff time.Time) ([]appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uuid.UUID]bool)
	for _, ev := range r.Events {
		if ev.EventType == appointment.EventAppointmentExpired && ev.AppointmentID != nil {
			seen[*ev.AppointmentID] = true
		}
	}

	var out []appointment.Appointment
	for _, a := range r.appointments {
		if !a.IsConfirmed && a.ReservedAt.Before(cutoff) && !seen[a.ID] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservedAt.Before(out[j].ReservedAt) })
	return out, nil
}

func (r *Repository) InsertEvent(_ context.Context, ev appointment.EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.Events) + 1)
	r.Events = append(r.Events, ev)
	return nil
}

// EventsOfType returns the recorded events with the given type.
func (r *Repository) EventsOfType(eventType string) []appointment.EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []appointment.EventLog
	for _, ev := range r.Events {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// Locker is an in-process redisclient.Locker. Keys listed in Busy behave as if
// another request already holds them.
type Locker struct {
	mu   sync.Mutex
	held map[string]bool
	Busy map[string]bool
}

var _ redisclient.Locker = (*Locker)(nil)

func NewLocker() *Locker {
	return &Locker{held: make(map[string]bool), Busy: make(map[string]bool)}
}

func (l *Locker) WithSlotLock(ctx context.Context, slotKey string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.held[slotKey] || l.Busy[slotKey] {
		l.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	l.held[slotKey] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, slotKey)
		l.mu.Unlock()
	}()

	return fn(ctx)
}
