// Package simclock implements pure tick/time conversions for the simulated
// work day. A day consists of hoursPerDay ticks spread evenly across 24
// wall-clock hours; tick 0 is the pre-start instant (day 0, 00:00) and for
// tick >= 1 the tick-of-day is (tick-1) mod hoursPerDay.
//
// Every function is a pure total function. Malformed schedule strings must
// never abort a running simulation, so unparsable input degrades to a
// best-effort default (tick 0, or the full-day window) instead of an error.
package simclock

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	minutesPerDay = 24 * 60
	daysPerWeek   = 5
)

// TickOfDay returns the 0-based position of tick within its day.
func TickOfDay(tick int64, hoursPerDay int) int {
	if tick <= 0 || hoursPerDay <= 0 {
		return 0
	}
	return int((tick - 1) % int64(hoursPerDay))
}

// DayIndex returns the 0-based day the tick falls in. Tick 0 maps to day 0.
func DayIndex(tick int64, hoursPerDay int) int64 {
	if tick <= 0 || hoursPerDay <= 0 {
		return 0
	}
	return (tick - 1) / int64(hoursPerDay)
}

// CurrentWeek returns the 1-based simulation week for tick, assuming five
// workdays per week. Tick 0 is week 1.
func CurrentWeek(tick int64, hoursPerDay int) int {
	return int(DayIndex(tick, hoursPerDay)/daysPerWeek) + 1
}

// TickToTimeOfDay renders the wall-clock time of day for tick as "HH:MM".
func TickToTimeOfDay(tick int64, hoursPerDay int) string {
	if hoursPerDay <= 0 {
		return "00:00"
	}
	minutes := TickOfDay(tick, hoursPerDay) * minutesPerDay / hoursPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// TimeToTick converts an "HH:MM" wall-clock string to a tick-of-day offset
// in [0, hoursPerDay]. With roundUp a partial tick rounds toward the end of
// the interval, which is what closing bounds of a window want. Unparsable
// input returns 0.
func TimeToTick(hhmm string, hoursPerDay int, roundUp bool) int {
	if hoursPerDay <= 0 {
		return 0
	}
	minutes, ok := parseHHMM(hhmm)
	if !ok {
		return 0
	}
	scaled := minutes * hoursPerDay
	tick := scaled / minutesPerDay
	if roundUp && scaled%minutesPerDay != 0 {
		tick++
	}
	if tick > hoursPerDay {
		tick = hoursPerDay
	}
	return tick
}

// WorkWindow converts a "HH:MM-HH:MM" schedule string into a half-open
// tick-of-day window [start, end). Degenerate configurations (a day of
// five or fewer ticks, an unparsable schedule, a zero-width or inverted
// window) degrade to the full day (0, hoursPerDay).
func WorkWindow(workHours string, hoursPerDay int) (start, end int) {
	if hoursPerDay <= 5 {
		return 0, hoursPerDay
	}
	from, to, ok := strings.Cut(workHours, "-")
	if !ok {
		return 0, hoursPerDay
	}
	if _, valid := parseHHMM(strings.TrimSpace(from)); !valid {
		return 0, hoursPerDay
	}
	if _, valid := parseHHMM(strings.TrimSpace(to)); !valid {
		return 0, hoursPerDay
	}
	start = TimeToTick(strings.TrimSpace(from), hoursPerDay, false)
	end = TimeToTick(strings.TrimSpace(to), hoursPerDay, true)
	if start >= end {
		return 0, hoursPerDay
	}
	return start, end
}

// InWorkWindow reports whether tick falls inside the worker's schedule.
func InWorkWindow(tick int64, workHours string, hoursPerDay int) bool {
	start, end := WorkWindow(workHours, hoursPerDay)
	tod := TickOfDay(tick, hoursPerDay)
	return tod >= start && tod < end
}

func parseHHMM(s string) (minutes int, ok bool) {
	h, m, found := strings.Cut(s, ":")
	if !found {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}
