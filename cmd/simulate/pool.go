package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/hackgods/provider-booking/internal/api"
)

// SlotTarget is one bookable slot as reported by GET /slots/{id}.
type SlotTarget struct {
	ProviderID uuid.UUID
	Date       string
	Time       string
}

// DataPool is the set of slots workers book from plus the appointments they
// created along the way.
type DataPool struct {
	Targets []SlotTarget

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

func (dp *DataPool) RandomTarget(rng *rand.Rand) SlotTarget {
	return dp.Targets[rng.Intn(len(dp.Targets))]
}

// loadDataPool asks the API for providers and their free slots on the days
// starting at from, keeping at most slotLimit targets.
func loadDataPool(ctx context.Context, client *http.Client, baseURL string, from civil.Date, days, slotLimit int) (*DataPool, error) {
	var providers api.ProviderListResponse
	if err := getJSON(ctx, client, baseURL+"/providers", &providers); err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	if len(providers.Providers) == 0 {
		return nil, fmt.Errorf("no providers, run cmd/seed first")
	}

	pool := &DataPool{}
	for _, p := range providers.Providers {
		for d := 0; d < days; d++ {
			date := from.AddDays(d)

			var slots api.SlotsResponse
			err := getJSON(ctx, client, fmt.Sprintf("%s/slots/%s?date=%s", baseURL, p.ID, date), &slots)
			if errors.Is(err, errNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("list slots for %s on %s: %w", p.ID, date, err)
			}

			for _, s := range slots.Slots {
				pool.Targets = append(pool.Targets, SlotTarget{ProviderID: p.ID, Date: slots.Date, Time: s})
				if len(pool.Targets) >= slotLimit {
					return pool, nil
				}
			}
		}
	}

	if len(pool.Targets) == 0 {
		return nil, fmt.Errorf("no free slots between %s and %s", from, from.AddDays(days-1))
	}
	return pool, nil
}

var errNotFound = errors.New("not found")

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
