package market

import (
	"testing"
	"time"
)

// 2026-08-26 is a Wednesday, 2026-08-28 a Friday, 2026-08-29 a Saturday,
// 2026-08-31 a Monday. All instants use UTC; the policy only reads wall
// clock components.
var (
	wednesdayNoon = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	fridayNoon    = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	saturdayMorn  = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	sundayEvening = time.Date(2026, 8, 30, 21, 0, 0, 0, time.UTC)
	mondayEarly   = time.Date(2026, 8, 31, 8, 59, 0, 0, time.UTC)
	mondayOpen    = time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
)

func TestWeekendMode(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"wednesday", wednesdayNoon, false},
		{"friday", fridayNoon, false},
		{"saturday", saturdayMorn, true},
		{"sunday", sundayEvening, true},
		{"monday 08:59", mondayEarly, true},
		{"monday 09:00", mondayOpen, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekendMode(tt.now); got != tt.want {
				t.Errorf("WeekendMode(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestIsRecent_WeekdayHourBoundary(t *testing.T) {
	tests := []struct {
		marker string
		want   bool
	}{
		{"17小时前", true},
		{"18小时前", true}, // inclusive boundary
		{"19小时前", false},
		{"17 hours ago", true},
		{"19 hours ago", false},
	}
	for _, tt := range tests {
		if got := IsRecent(tt.marker, wednesdayNoon); got != tt.want {
			t.Errorf("IsRecent(%q, weekday) = %v, want %v", tt.marker, got, tt.want)
		}
	}
}

func TestIsRecent_WeekdayMarkers(t *testing.T) {
	tests := []struct {
		marker string
		want   bool
	}{
		{"今天", true},
		{"刚刚", true},
		{"5分钟前", true},
		{"昨天", true},
		{"1天前", true},
		{"2天前", false},
		{"小时前", true},   // unit without number defaults to recent
		{"天前", false},   // unit without number defaults to stale
		{"直播回放", false}, // unparseable
		{"", false},
	}
	for _, tt := range tests {
		if got := IsRecent(tt.marker, wednesdayNoon); got != tt.want {
			t.Errorf("IsRecent(%q, weekday) = %v, want %v", tt.marker, got, tt.want)
		}
	}
}

func TestIsRecent_WeekdayAbsoluteDates(t *testing.T) {
	tests := []struct {
		marker string
		want   bool
	}{
		{"2026-08-26", true},  // midnight today, 12h ago
		{"08-26", true},       // MM-DD, current year
		{"2026-08-25", false}, // 36h ago
		{"2026-08-27", true},  // future date, zero distance spills negative
	}
	for _, tt := range tests {
		if got := IsRecent(tt.marker, wednesdayNoon); got != tt.want {
			t.Errorf("IsRecent(%q, weekday) = %v, want %v", tt.marker, got, tt.want)
		}
	}
}

func TestIsRecent_WeekendFridayCloseBoundary(t *testing.T) {
	// Saturday 10:00. Friday close is 2026-08-28 15:00.
	tests := []struct {
		marker string
		want   bool
	}{
		{"19小时前", true},  // lands exactly on Friday 15:00, inclusive
		{"20小时前", false}, // Friday 14:00, before the close
		{"3小时前", true},
		{"今天", true},
		{"30分钟前", true},
		{"昨天", true},
		{"2天前", true},
		{"3天前", false},
	}
	for _, tt := range tests {
		if got := IsRecent(tt.marker, saturdayMorn); got != tt.want {
			t.Errorf("IsRecent(%q, saturday) = %v, want %v", tt.marker, got, tt.want)
		}
	}
}

func TestIsRecent_WeekendAbsoluteDates(t *testing.T) {
	tests := []struct {
		marker string
		now    time.Time
		want   bool
	}{
		{"2026-08-28", saturdayMorn, true},  // Friday itself
		{"2026-08-29", saturdayMorn, true},  // Saturday
		{"2026-08-27", saturdayMorn, false}, // Thursday
		{"08-28", sundayEvening, true},
		{"08-26", sundayEvening, false},
	}
	for _, tt := range tests {
		if got := IsRecent(tt.marker, tt.now); got != tt.want {
			t.Errorf("IsRecent(%q, %v) = %v, want %v", tt.marker, tt.now.Weekday(), got, tt.want)
		}
	}
}

func TestIsRecent_MondayPreMarketUsesWeekendWindow(t *testing.T) {
	// Monday 08:59 still honors the Friday-close cutoff; 09:00 flips back
	// to the 18-hour window.
	if !IsRecent("2026-08-28", mondayEarly) {
		t.Error("Friday content should be recent on Monday pre-market")
	}
	if IsRecent("2026-08-28", mondayOpen) {
		t.Error("Friday content is outside the 18h window once the market opens")
	}
	if !IsRecent("40小时前", mondayEarly) {
		t.Error("Sunday-evening content (40h back lands Saturday) should be recent pre-market")
	}
	if IsRecent("40小时前", mondayOpen) {
		t.Error("40h-old content should be stale in weekday mode")
	}
}

func TestMostRecentFriday(t *testing.T) {
	friday := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		t    time.Time
	}{
		{"friday itself", fridayNoon},
		{"saturday", saturdayMorn},
		{"sunday", sundayEvening},
		{"monday", time.Date(2026, 8, 31, 13, 0, 0, 0, time.UTC)},
		{"thursday", time.Date(2026, 9, 3, 13, 0, 0, 0, time.UTC)},
	}
	wantByName := map[string]time.Time{
		"friday itself": friday,
		"saturday":      friday,
		"sunday":        friday,
		"monday":        friday,
		"thursday":      friday,
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MostRecentFriday(tt.t); !got.Equal(wantByName[tt.name]) {
				t.Errorf("MostRecentFriday(%v) = %v, want %v", tt.t, got, wantByName[tt.name])
			}
		})
	}
}

func TestFridayCutoff(t *testing.T) {
	want := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	if got := FridayCutoff(saturdayMorn); !got.Equal(want) {
		t.Errorf("FridayCutoff(saturday) = %v, want %v", got, want)
	}
}
