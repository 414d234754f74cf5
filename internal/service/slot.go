package service

import (
	"fmt"
	log "log/slog"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// ComputeSlot returns the publish instant of the index-th item of a batch.
// preferredTimes are HH:MM wall-clock times in timeZone, cycled by index, each reuse one day later.
// A candidate at or before now moves one day forward. Without preferred times the slot is
// the next whole local hour after now plus index hours.
func ComputeSlot(now time.Time, preferredTimes []string, timeZone string, index int) (time.Time, error) {
	if index < 0 {
		return time.Time{}, ErrParamInvalid
	}
	loc := loadLocation(timeZone)
	local := now.In(loc)

	if len(preferredTimes) == 0 {
		return time.Date(local.Year(), local.Month(), local.Day(), local.Hour()+1+index, 0, 0, 0, loc).UTC(), nil
	}

	hour, minute, err := parseTimeOfDay(preferredTimes[index%len(preferredTimes)])
	if err != nil {
		return time.Time{}, err
	}
	dayOffset := index / len(preferredTimes)

	slot := time.Date(local.Year(), local.Month(), local.Day()+dayOffset, hour, minute, 0, 0, loc)
	if !slot.After(now) {
		slot = time.Date(local.Year(), local.Month(), local.Day()+dayOffset+1, hour, minute, 0, 0, loc)
	}
	return slot.UTC(), nil
}

// DayWindow the [start, end) bounds of the calendar day of now in timeZone
func DayWindow(now time.Time, timeZone string) (time.Time, time.Time) {
	loc := loadLocation(timeZone)
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return start.UTC(), end.UTC()
}

// ValidatePreferredTimes checks every entry is a valid HH:MM
func ValidatePreferredTimes(times []string) error {
	for _, t := range times {
		if _, _, err := parseTimeOfDay(t); err != nil {
			return err
		}
	}
	return nil
}

func parseTimeOfDay(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return hour, minute, nil
}

func loadLocation(timeZone string) *time.Location {
	if timeZone == "" || timeZone == "UTC" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		log.Warn("unknown time zone, falling back to UTC", "time_zone", timeZone)
		return time.UTC
	}
	return loc
}

// SlotAllocator binds ComputeSlot to a clock
type SlotAllocator struct {
	Now func() time.Time
}

func NewSlotAllocator(now func() time.Time) *SlotAllocator {
	if now == nil {
		now = time.Now
	}
	return &SlotAllocator{Now: now}
}

func (a *SlotAllocator) Slot(preferredTimes []string, timeZone string, index int) (time.Time, error) {
	return ComputeSlot(a.Now(), preferredTimes, timeZone, index)
}
