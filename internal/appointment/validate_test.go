package appointment_test

import (
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/provider-booking/internal/appointment"
)

var today = civil.Date{Year: 2026, Month: time.October, Day: 17}

func windowOn(t *testing.T, providerID uuid.UUID, date civil.Date) *appointment.AvailabilityWindow {
	t.Helper()
	w, err := appointment.NewAvailabilityWindow(providerID, date, clock(8, 0), clock(15, 0))
	require.NoError(t, err)
	return &w
}

func TestValidateReservation_InsufficientNotice(t *testing.T) {
	providerID := uuid.New()
	nows := []time.Time{
		time.Date(2026, time.October, 17, 0, 0, 1, 0, time.UTC),
		time.Date(2026, time.October, 17, 23, 59, 59, 0, time.UTC),
	}

	for _, now := range nows {
		for _, offset := range []int{-1, 0, 1} {
			date := today.AddDays(offset)
			req := appointment.ReservationRequest{ProviderID: providerID, Date: date, Time: clock(9, 0)}

			err := appointment.ValidateReservation(req, now, windowOn(t, providerID, date))

			assert.ErrorIs(t, err, appointment.ErrInsufficientNotice, "now=%s date=%s", now, date)
		}
	}
}

func TestValidateReservation_DateRuleIgnoresTimeOfDay(t *testing.T) {
	providerID := uuid.New()
	date := today.AddDays(2)
	req := appointment.ReservationRequest{ProviderID: providerID, Date: date, Time: clock(8, 0)}

	early := time.Date(2026, time.October, 17, 0, 1, 0, 0, time.UTC)
	late := time.Date(2026, time.October, 17, 23, 59, 0, 0, time.UTC)

	assert.NoError(t, appointment.ValidateReservation(req, early, windowOn(t, providerID, date)))
	assert.NoError(t, appointment.ValidateReservation(req, late, windowOn(t, providerID, date)))
}

func TestValidateReservation_NoticeBoundary(t *testing.T) {
	providerID := uuid.New()
	now := time.Date(2026, time.October, 17, 10, 0, 0, 0, time.UTC)

	tomorrow := today.AddDays(1)
	err := appointment.ValidateReservation(
		appointment.ReservationRequest{ProviderID: providerID, Date: tomorrow, Time: clock(9, 0)},
		now, windowOn(t, providerID, tomorrow))
	assert.ErrorIs(t, err, appointment.ErrInsufficientNotice)

	dayAfter := today.AddDays(2)
	err = appointment.ValidateReservation(
		appointment.ReservationRequest{ProviderID: providerID, Date: dayAfter, Time: clock(9, 0)},
		now, windowOn(t, providerID, dayAfter))
	assert.NoError(t, err)
}

func TestValidateReservation_NoAvailability(t *testing.T) {
	now := time.Date(2026, time.October, 17, 10, 0, 0, 0, time.UTC)
	req := appointment.ReservationRequest{ProviderID: uuid.New(), Date: today.AddDays(3), Time: clock(9, 0)}

	err := appointment.ValidateReservation(req, now, nil)

	assert.ErrorIs(t, err, appointment.ErrNoAvailability)
}

func TestValidateReservation_NoticeCheckedBeforeAvailability(t *testing.T) {
	now := time.Date(2026, time.October, 17, 10, 0, 0, 0, time.UTC)
	req := appointment.ReservationRequest{ProviderID: uuid.New(), Date: today, Time: clock(9, 0)}

	err := appointment.ValidateReservation(req, now, nil)

	assert.ErrorIs(t, err, appointment.ErrInsufficientNotice)
}

func TestValidateReservation_SlotBounds(t *testing.T) {
	providerID := uuid.New()
	now := time.Date(2026, time.October, 17, 10, 0, 0, 0, time.UTC)
	date := today.AddDays(5)
	window := windowOn(t, providerID, date)

	tests := []struct {
		name string
		at   civil.Time
		want error
	}{
		{"start is bookable", clock(8, 0), nil},
		{"inside", clock(11, 30), nil},
		{"last slot", clock(14, 45), nil},
		{"end is excluded", clock(15, 0), appointment.ErrInvalidSlot},
		{"before start", clock(7, 59), appointment.ErrInvalidSlot},
		{"after end", clock(18, 0), appointment.ErrInvalidSlot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := appointment.ReservationRequest{ProviderID: providerID, Date: date, Time: tt.at}
			err := appointment.ValidateReservation(req, now, window)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewAvailabilityWindow(t *testing.T) {
	providerID := uuid.New()
	date := today.AddDays(2)

	_, err := appointment.NewAvailabilityWindow(providerID, date, clock(15, 0), clock(8, 0))
	assert.ErrorIs(t, err, appointment.ErrInvalidWindow)

	_, err = appointment.NewAvailabilityWindow(providerID, date, clock(8, 0), clock(8, 0))
	assert.ErrorIs(t, err, appointment.ErrInvalidWindow)

	_, err = appointment.NewAvailabilityWindow(uuid.Nil, date, clock(8, 0), clock(9, 0))
	assert.ErrorIs(t, err, appointment.ErrMissingFields)

	_, err = appointment.NewAvailabilityWindow(providerID, civil.Date{}, clock(8, 0), clock(9, 0))
	assert.ErrorIs(t, err, appointment.ErrMissingFields)

	w, err := appointment.NewAvailabilityWindow(providerID, date, clock(8, 0), clock(15, 0))
	require.NoError(t, err)
	assert.Equal(t, providerID, w.ProviderID)
	assert.Equal(t, date, w.Date)
}
