package simclock

import "testing"

func TestTickToTimeOfDay(t *testing.T) {
	tests := []struct {
		name        string
		tick        int64
		hoursPerDay int
		want        string
	}{
		{"tick zero is midnight", 0, 8, "00:00"},
		{"first tick of day", 1, 8, "00:00"},
		{"second tick of 8-hour day", 2, 8, "03:00"},
		{"last tick of 8-hour day", 8, 8, "21:00"},
		{"wraps into second day", 9, 8, "00:00"},
		{"24-hour day maps ticks to hours", 10, 24, "09:00"},
		{"degenerate hoursPerDay", 5, 0, "00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TickToTimeOfDay(tt.tick, tt.hoursPerDay); got != tt.want {
				t.Errorf("TickToTimeOfDay(%d, %d) = %q, want %q", tt.tick, tt.hoursPerDay, got, tt.want)
			}
		})
	}
}

func TestTimeToTick(t *testing.T) {
	tests := []struct {
		name        string
		hhmm        string
		hoursPerDay int
		roundUp     bool
		want        int
	}{
		{"midnight", "00:00", 8, false, 0},
		{"nine am on 8-tick day", "09:00", 8, false, 3},
		{"five pm rounds down", "17:00", 8, false, 5},
		{"five pm rounds up", "17:00", 8, true, 6},
		{"noon on 24-tick day", "12:00", 24, false, 12},
		{"garbage input", "not-a-time", 8, false, 0},
		{"missing colon", "0900", 8, false, 0},
		{"out-of-range hour", "25:00", 8, false, 0},
		{"zero hoursPerDay", "09:00", 0, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeToTick(tt.hhmm, tt.hoursPerDay, tt.roundUp); got != tt.want {
				t.Errorf("TimeToTick(%q, %d, %v) = %d, want %d", tt.hhmm, tt.hoursPerDay, tt.roundUp, got, tt.want)
			}
		})
	}
}

func TestWorkWindow(t *testing.T) {
	tests := []struct {
		name        string
		workHours   string
		hoursPerDay int
		wantStart   int
		wantEnd     int
	}{
		{"standard office hours", "09:00-17:00", 8, 3, 6},
		{"full day on 24 ticks", "09:00-17:00", 24, 9, 17},
		{"unparsable degrades to full day", "whenever", 8, 0, 8},
		{"half-parsable degrades to full day", "09:00-late", 8, 0, 8},
		{"inverted window degrades to full day", "17:00-09:00", 8, 0, 8},
		{"equal bounds degrade to full day", "09:00-09:00", 24, 0, 24},
		{"tiny day degrades to full day", "09:00-17:00", 5, 0, 5},
		{"zero-tick day", "09:00-17:00", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := WorkWindow(tt.workHours, tt.hoursPerDay)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("WorkWindow(%q, %d) = (%d, %d), want (%d, %d)",
					tt.workHours, tt.hoursPerDay, start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestCurrentWeek(t *testing.T) {
	tests := []struct {
		name        string
		tick        int64
		hoursPerDay int
		want        int
	}{
		{"tick zero is week one", 0, 8, 1},
		{"first tick is week one", 1, 8, 1},
		{"last tick of week one", 40, 8, 1},
		{"first tick of week two", 41, 8, 2},
		{"third week", 81, 8, 3},
		{"degenerate day length", 100, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CurrentWeek(tt.tick, tt.hoursPerDay); got != tt.want {
				t.Errorf("CurrentWeek(%d, %d) = %d, want %d", tt.tick, tt.hoursPerDay, got, tt.want)
			}
		})
	}
}

func TestDayIndex(t *testing.T) {
	if got := DayIndex(0, 8); got != 0 {
		t.Errorf("DayIndex(0, 8) = %d, want 0", got)
	}
	if got := DayIndex(8, 8); got != 0 {
		t.Errorf("DayIndex(8, 8) = %d, want 0", got)
	}
	if got := DayIndex(9, 8); got != 1 {
		t.Errorf("DayIndex(9, 8) = %d, want 1", got)
	}
}

func TestInWorkWindow(t *testing.T) {
	// 8-tick day, window [3,6): ticks 4..6 of each day are working ticks.
	if InWorkWindow(1, "09:00-17:00", 8) {
		t.Error("tick 1 (00:00) should be outside 09:00-17:00")
	}
	if !InWorkWindow(4, "09:00-17:00", 8) {
		t.Error("tick 4 (09:00) should be inside 09:00-17:00")
	}
	if InWorkWindow(7, "09:00-17:00", 8) {
		t.Error("tick 7 should be outside 09:00-17:00")
	}
	// Zero-length day never has a working tick.
	if InWorkWindow(1, "09:00-17:00", 0) {
		t.Error("zero hoursPerDay should never be in window")
	}
}
