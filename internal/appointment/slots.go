package appointment

import (
	"time"

	"github.com/golang-sql/civil"
)

// SlotGranularity is the fixed length of a bookable slot.
const SlotGranularity = 15 * time.Minute

// GenerateSlots returns the slot start times within [window.StartTime, window.EndTime)
// at SlotGranularity steps, skipping any time already held by a confirmed appointment.
//
// The window is expected to come from NewAvailabilityWindow; the result is never nil.
func GenerateSlots(window AvailabilityWindow, confirmed []civil.Time) []civil.Time {
	taken := make(map[time.Duration]struct{}, len(confirmed))
	for _, t := range confirmed {
		taken[sinceMidnight(t)] = struct{}{}
	}

	start := sinceMidnight(window.StartTime)
	end := sinceMidnight(window.EndTime)

	slots := make([]civil.Time, 0, max(int((end-start)/SlotGranularity)+1, 0))
	for t := start; t < end; t += SlotGranularity {
		if _, ok := taken[t]; ok {
			continue
		}
		slots = append(slots, timeOfDay(t))
	}
	return slots
}
