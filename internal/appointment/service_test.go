package appointment_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/provider-booking/internal/appointment"
	"github.com/hackgods/provider-booking/internal/appointment/appointmenttest"
)

type fixture struct {
	repo   *appointmenttest.Repository
	locker *appointmenttest.Locker
	svc    *appointment.Service
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:   appointmenttest.NewRepository(),
		locker: appointmenttest.NewLocker(),
		now:    time.Date(2026, time.October, 17, 10, 0, 0, 0, time.UTC),
	}
	cache, err := appointment.NewWindowCache(f.repo, 16, zap.NewNop())
	require.NoError(t, err)

	f.svc = appointment.NewService(f.repo, f.locker, cache, zap.NewNop()).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) provider(t *testing.T) *appointment.Provider {
	t.Helper()
	p, err := f.svc.CreateProvider(context.Background(), "Dr. Jekyll")
	require.NoError(t, err)
	return p
}

func (f *fixture) window(t *testing.T, providerID uuid.UUID, date civil.Date) {
	t.Helper()
	_, err := f.svc.CreateAvailabilityWindow(context.Background(), providerID, date, clock(8, 0), clock(15, 0))
	require.NoError(t, err)
}

func TestServiceCreateProvider_RequiresName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateProvider(context.Background(), "   ")

	assert.ErrorIs(t, err, appointment.ErrMissingFields)
}

func TestServiceCreateAvailabilityWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)

	_, err := f.svc.CreateAvailabilityWindow(ctx, p.ID, date, clock(15, 0), clock(8, 0))
	assert.ErrorIs(t, err, appointment.ErrInvalidWindow)

	_, err = f.svc.CreateAvailabilityWindow(ctx, uuid.New(), date, clock(8, 0), clock(15, 0))
	assert.ErrorIs(t, err, appointment.ErrProviderNotFound)

	w, err := f.svc.CreateAvailabilityWindow(ctx, p.ID, date, clock(8, 0), clock(15, 0))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, w.ID)
	assert.Equal(t, date, w.Date)
}

func TestServiceListSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)

	_, err := f.svc.ListSlots(ctx, p.ID, date)
	assert.ErrorIs(t, err, appointment.ErrNoAvailability)

	f.window(t, p.ID, date)

	slots, err := f.svc.ListSlots(ctx, p.ID, date)
	require.NoError(t, err)
	assert.Len(t, slots, 28)

	appt, err := f.svc.CreateAppointment(ctx, appointment.ReservationRequest{ProviderID: p.ID, Date: date, Time: clock(8, 0)})
	require.NoError(t, err)

	slots, err = f.svc.ListSlots(ctx, p.ID, date)
	require.NoError(t, err)
	assert.Len(t, slots, 28, "pending reservations do not block slots")

	_, err = f.svc.ConfirmAppointment(ctx, appt.ID)
	require.NoError(t, err)

	slots, err = f.svc.ListSlots(ctx, p.ID, date)
	require.NoError(t, err)
	assert.Len(t, slots, 27)
	assert.Equal(t, clock(8, 15), slots[0])
}

func TestServiceListSlots_CachesWindows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)
	f.window(t, p.ID, date)

	for i := 0; i < 3; i++ {
		_, err := f.svc.ListSlots(ctx, p.ID, date)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.repo.WindowLookups)
}

func TestServiceCreateAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)
	f.window(t, p.ID, date)
	name := "Edward Hyde"

	appt, err := f.svc.CreateAppointment(ctx, appointment.ReservationRequest{
		ProviderID: p.ID,
		Date:       date,
		Time:       clock(9, 30),
		ClientName: &name,
	})
	require.NoError(t, err)

	assert.False(t, appt.IsConfirmed)
	assert.True(t, appt.ReservedAt.Equal(f.now))
	require.NotNil(t, appt.ClientName)
	assert.Equal(t, name, *appt.ClientName)
	assert.Len(t, f.repo.EventsOfType(appointment.EventAppointmentCreated), 1)
}

func TestServiceCreateAppointment_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	booked := today.AddDays(2)
	f.window(t, p.ID, booked)
	f.window(t, p.ID, today.AddDays(1))

	tests := []struct {
		name string
		req  appointment.ReservationRequest
		want error
	}{
		{"unknown provider", appointment.ReservationRequest{ProviderID: uuid.New(), Date: booked, Time: clock(9, 0)}, appointment.ErrProviderNotFound},
		{"missing provider", appointment.ReservationRequest{Date: booked, Time: clock(9, 0)}, appointment.ErrMissingFields},
		{"tomorrow", appointment.ReservationRequest{ProviderID: p.ID, Date: today.AddDays(1), Time: clock(9, 0)}, appointment.ErrInsufficientNotice},
		{"no window", appointment.ReservationRequest{ProviderID: p.ID, Date: today.AddDays(4), Time: clock(9, 0)}, appointment.ErrNoAvailability},
		{"at window end", appointment.ReservationRequest{ProviderID: p.ID, Date: booked, Time: clock(15, 0)}, appointment.ErrInvalidSlot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateAppointment(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestServiceCreateAppointment_SlotAlreadyConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)
	f.window(t, p.ID, date)
	req := appointment.ReservationRequest{ProviderID: p.ID, Date: date, Time: clock(10, 0)}

	first, err := f.svc.CreateAppointment(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.CreateAppointment(ctx, req)
	require.NoError(t, err, "a second pending reservation is allowed while the slot is unconfirmed")

	_, err = f.svc.ConfirmAppointment(ctx, first.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateAppointment(ctx, req)
	assert.ErrorIs(t, err, appointment.ErrSlotAlreadyBooked)
}

func TestServiceCreateAppointment_SlotLocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)
	f.window(t, p.ID, date)
	f.locker.Busy[p.ID.String()+":"+date.String()+":"+clock(10, 0).String()] = true

	_, err := f.svc.CreateAppointment(ctx, appointment.ReservationRequest{ProviderID: p.ID, Date: date, Time: clock(10, 0)})

	assert.ErrorIs(t, err, appointment.ErrSlotBeingBooked)
}

func TestServiceConfirmAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)
	f.window(t, p.ID, date)

	appt, err := f.svc.CreateAppointment(ctx, appointment.ReservationRequest{ProviderID: p.ID, Date: date, Time: clock(9, 0)})
	require.NoError(t, err)

	f.now = f.now.Add(29 * time.Minute)
	confirmed, err := f.svc.ConfirmAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.IsConfirmed)
	assert.Len(t, f.repo.EventsOfType(appointment.EventAppointmentConfirmed), 1)

	f.now = f.now.Add(24 * time.Hour)
	again, err := f.svc.ConfirmAppointment(ctx, appt.ID)
	require.NoError(t, err, "confirming twice is a no-op")
	assert.True(t, again.IsConfirmed)
	assert.Len(t, f.repo.EventsOfType(appointment.EventAppointmentConfirmed), 1)
}

func TestServiceConfirmAppointment_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)
	f.window(t, p.ID, date)

	appt, err := f.svc.CreateAppointment(ctx, appointment.ReservationRequest{ProviderID: p.ID, Date: date, Time: clock(9, 0)})
	require.NoError(t, err)

	f.now = f.now.Add(31 * time.Minute)
	_, err = f.svc.ConfirmAppointment(ctx, appt.ID)
	assert.ErrorIs(t, err, appointment.ErrReservationExpired)

	stored, err := f.svc.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsConfirmed)
}

func TestServiceConfirmAppointment_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ConfirmAppointment(context.Background(), uuid.New())

	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
}

func TestServiceConfirmAppointment_SlotTakenMeanwhile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)
	f.window(t, p.ID, date)
	req := appointment.ReservationRequest{ProviderID: p.ID, Date: date, Time: clock(11, 0)}

	first, err := f.svc.CreateAppointment(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.CreateAppointment(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.ConfirmAppointment(ctx, second.ID)
	require.NoError(t, err)

	_, err = f.svc.ConfirmAppointment(ctx, first.ID)
	assert.ErrorIs(t, err, appointment.ErrSlotAlreadyBooked)
}

func TestServiceDeleteProvider_Cascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)
	f.window(t, p.ID, date)

	appt, err := f.svc.CreateAppointment(ctx, appointment.ReservationRequest{ProviderID: p.ID, Date: date, Time: clock(9, 0)})
	require.NoError(t, err)
	_, err = f.svc.ListSlots(ctx, p.ID, date)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteProvider(ctx, p.ID))

	_, err = f.svc.GetProvider(ctx, p.ID)
	assert.ErrorIs(t, err, appointment.ErrProviderNotFound)
	_, err = f.svc.GetAppointment(ctx, appt.ID)
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
	_, err = f.svc.ListSlots(ctx, p.ID, date)
	assert.ErrorIs(t, err, appointment.ErrNoAvailability, "cached window must be dropped")

	assert.ErrorIs(t, f.svc.DeleteProvider(ctx, p.ID), appointment.ErrProviderNotFound)
}

func TestServiceRecordExpiredReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)
	f.window(t, p.ID, date)

	stale, err := f.svc.CreateAppointment(ctx, appointment.ReservationRequest{ProviderID: p.ID, Date: date, Time: clock(9, 0)})
	require.NoError(t, err)
	kept, err := f.svc.CreateAppointment(ctx, appointment.ReservationRequest{ProviderID: p.ID, Date: date, Time: clock(9, 15)})
	require.NoError(t, err)
	_, err = f.svc.ConfirmAppointment(ctx, kept.ID)
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	n, err := f.svc.RecordExpiredReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	events := f.repo.EventsOfType(appointment.EventAppointmentExpired)
	require.Len(t, events, 1)
	assert.Equal(t, stale.ID, *events[0].AppointmentID)

	n, err = f.svc.RecordExpiredReservations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "each expiry is recorded once")

	stored, err := f.svc.GetAppointment(ctx, stale.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsConfirmed)
	assert.Equal(t, appointment.StatusExpired, appointment.StatusAt(*stored, f.now))
}

func TestServiceListSlots_ProviderDeletedByAnotherInstance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)
	f.window(t, p.ID, date)

	otherCache, err := appointment.NewWindowCache(f.repo, 16, zap.NewNop())
	require.NoError(t, err)
	other := appointment.NewService(f.repo, f.locker, otherCache, zap.NewNop()).
		WithClock(func() time.Time { return f.now })

	slots, err := other.ListSlots(ctx, p.ID, date)
	require.NoError(t, err)
	require.Len(t, slots, 28)

	require.NoError(t, f.svc.DeleteProvider(ctx, p.ID))

	_, err = other.ListSlots(ctx, p.ID, date)
	assert.ErrorIs(t, err, appointment.ErrNoAvailability)
}

func TestServiceListSlots_WithoutCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)
	f.window(t, p.ID, date)
	svc := appointment.NewService(f.repo, f.locker, nil, zap.NewNop())

	slots, err := svc.ListSlots(ctx, p.ID, date)
	require.NoError(t, err)
	assert.Len(t, slots, 28)
	require.NoError(t, svc.DeleteProvider(ctx, p.ID))
}

func TestServiceRecordExpiredReservations_RunInProgressElsewhere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t)
	date := today.AddDays(2)
	f.window(t, p.ID, date)

	_, err := f.svc.CreateAppointment(ctx, appointment.ReservationRequest{ProviderID: p.ID, Date: date, Time: clock(9, 0)})
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)

	f.locker.Busy[appointment.ExpiryRunLockKey] = true
	n, err := f.svc.RecordExpiredReservations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.repo.EventsOfType(appointment.EventAppointmentExpired))

	delete(f.locker.Busy, appointment.ExpiryRunLockKey)
	n, err = f.svc.RecordExpiredReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
