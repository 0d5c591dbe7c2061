package gcal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(hour, min int) time.Time {
	return time.Date(2026, time.March, 2, hour, min, 0, 0, time.UTC)
}

func TestFreeSlotsFullBusinessDay(t *testing.T) {
	slots := FreeSlots(day(9, 0), day(17, 0), nil)

	// 8 hours of 30-minute slots.
	require.Len(t, slots, 16)
	assert.Equal(t, day(9, 0), slots[0].Start)
	assert.Equal(t, day(9, 30), slots[0].End)
	assert.Equal(t, day(16, 30), slots[15].Start)
	assert.Equal(t, day(17, 0), slots[15].End)
}

func TestFreeSlotsSkipsBusyOverlaps(t *testing.T) {
	busy := []BusyPeriod{
		{Start: day(10, 0), End: day(11, 0)},
		{Start: day(14, 15), End: day(14, 45)}, // straddles two slots
	}

	slots := FreeSlots(day(9, 0), day(17, 0), busy)

	for _, slot := range slots {
		assert.False(t, overlapsBusy(slot.Start, slot.End, busy),
			"slot %v-%v overlaps a busy period", slot.Start, slot.End)
	}
	// 16 total minus 2 busy at 10:00 and 2 straddled at 14:00 and 14:30.
	assert.Len(t, slots, 12)
}

func TestFreeSlotsClampsToBusinessHours(t *testing.T) {
	slots := FreeSlots(day(6, 0), day(22, 0), nil)

	require.NotEmpty(t, slots)
	assert.Equal(t, day(9, 0), slots[0].Start)
	assert.Equal(t, day(17, 0), slots[len(slots)-1].End)
}

func TestFreeSlotsAlignsUnevenStart(t *testing.T) {
	slots := FreeSlots(day(9, 10), day(12, 0), nil)

	require.NotEmpty(t, slots)
	assert.Equal(t, day(9, 30), slots[0].Start)
}

func TestFreeSlotsEmptyWindow(t *testing.T) {
	assert.Empty(t, FreeSlots(day(12, 0), day(12, 0), nil))
	assert.Empty(t, FreeSlots(day(12, 0), day(12, 15), nil))
}
