package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestComputeSlotMonotonicAcrossDays(t *testing.T) {
	now := at(8, 0)
	times := []string{"09:00", "18:00"}

	want := []time.Time{at(9, 0), at(18, 0), at(9, 0).AddDate(0, 0, 1), at(18, 0).AddDate(0, 0, 1)}
	var prev time.Time
	for i, w := range want {
		got, err := ComputeSlot(now, times, "UTC", i)
		require.NoError(t, err)
		assert.Equal(t, w, got, "index %d", i)
		assert.True(t, got.After(prev))
		prev = got
	}
}

func TestComputeSlotRollsOverPastTime(t *testing.T) {
	got, err := ComputeSlot(at(20, 0), []string{"09:00"}, "UTC", 0)
	require.NoError(t, err)
	assert.Equal(t, at(9, 0).AddDate(0, 0, 1), got)
}

func TestComputeSlotEqualToNowRollsOver(t *testing.T) {
	got, err := ComputeSlot(at(9, 0), []string{"09:00"}, "UTC", 0)
	require.NoError(t, err)
	assert.Equal(t, at(9, 0).AddDate(0, 0, 1), got)
}

func TestComputeSlotIndependentIndices(t *testing.T) {
	now := at(10, 0)
	times := []string{"09:00", "15:00"}

	first, err := ComputeSlot(now, times, "UTC", 0)
	require.NoError(t, err)
	second, err := ComputeSlot(now, times, "UTC", 1)
	require.NoError(t, err)

	assert.Equal(t, at(9, 0).AddDate(0, 0, 1), first)
	assert.Equal(t, at(15, 0), second)
}

func TestComputeSlotWithoutPreferredTimes(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 37, 12, 0, time.UTC)

	got, err := ComputeSlot(now, nil, "UTC", 0)
	require.NoError(t, err)
	assert.Equal(t, at(9, 0), got)

	got, err = ComputeSlot(now, nil, "UTC", 2)
	require.NoError(t, err)
	assert.Equal(t, at(11, 0), got)
}

func TestComputeSlotWithoutPreferredTimesInHalfHourZone(t *testing.T) {
	// 08:37 UTC is 14:07 in Kolkata (UTC+5:30)
	now := time.Date(2025, 3, 10, 8, 37, 12, 0, time.UTC)

	got, err := ComputeSlot(now, nil, "Asia/Kolkata", 0)
	require.NoError(t, err)
	assert.Equal(t, at(9, 30), got)

	got, err = ComputeSlot(now, nil, "Asia/Kolkata", 1)
	require.NoError(t, err)
	assert.Equal(t, at(10, 30), got)
	assert.Zero(t, got.In(loadLocation("Asia/Kolkata")).Minute())
}

func TestComputeSlotTimeZone(t *testing.T) {
	// 08:00 UTC is 04:00 in New York (EDT, UTC-4)
	got, err := ComputeSlot(at(8, 0), []string{"09:00"}, "America/New_York", 0)
	require.NoError(t, err)
	assert.Equal(t, at(13, 0), got)

	// 15:00 UTC is 11:00 in New York, so 09:00 local is tomorrow
	got, err = ComputeSlot(at(15, 0), []string{"09:00"}, "America/New_York", 0)
	require.NoError(t, err)
	assert.Equal(t, at(13, 0).AddDate(0, 0, 1), got)
}

func TestComputeSlotUnknownZoneFallsBackToUTC(t *testing.T) {
	got, err := ComputeSlot(at(8, 0), []string{"09:00"}, "Mars/Olympus", 0)
	require.NoError(t, err)
	assert.Equal(t, at(9, 0), got)
}

func TestComputeSlotRejectsMalformedTimes(t *testing.T) {
	for _, bad := range []string{"9:00", "24:00", "12:60", "noon", "12:00:00", ""} {
		_, err := ComputeSlot(at(8, 0), []string{bad}, "UTC", 0)
		assert.ErrorIs(t, err, ErrInvalidTimeOfDay, bad)
		assert.Equal(t, KindValidation, KindOf(err))
	}
}

func TestDayWindow(t *testing.T) {
	start, end := DayWindow(at(2, 0), "America/New_York")
	// 02:00 UTC on the 10th is still the 9th in New York, a 23 hour day (DST starts)
	assert.Equal(t, time.Date(2025, 3, 9, 5, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC), end)

	start, end = DayWindow(at(2, 0), "UTC")
	assert.Equal(t, at(0, 0), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}
