package market

import (
	"testing"
	"time"
)

func TestParseMarker_Relative(t *testing.T) {
	now := wednesdayNoon
	tests := []struct {
		raw      string
		wantKind MarkerKind
		wantQty  int
	}{
		{"3小时前", KindHours, 3},
		{"18小时前", KindHours, 18},
		{"2 hours ago", KindHours, 2},
		{"小时前", KindHours, -1},
		{"45分钟前", KindMinutes, 45},
		{"3天前", KindDays, 3},
		{"天前", KindDays, -1},
		{"昨天", KindYesterday, 0},
		{"yesterday", KindYesterday, 0},
		{"今天 10:30", KindInstant, 0},
		{"刚刚", KindInstant, 0},
		{"", KindUnknown, 0},
		{"直播回放", KindUnknown, 0},
	}
	for _, tt := range tests {
		m := ParseMarker(tt.raw, now)
		if m.Kind != tt.wantKind {
			t.Errorf("ParseMarker(%q).Kind = %v, want %v", tt.raw, m.Kind, tt.wantKind)
			continue
		}
		if m.Kind == KindHours || m.Kind == KindMinutes || m.Kind == KindDays {
			if m.Qty != tt.wantQty {
				t.Errorf("ParseMarker(%q).Qty = %d, want %d", tt.raw, m.Qty, tt.wantQty)
			}
		}
	}
}

func TestParseMarker_Absolute(t *testing.T) {
	now := wednesdayNoon
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2026-08-25", time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)},
		{"08-25", time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)},
		{"8-5", time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)},
		{"2025-12-31", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		m := ParseMarker(tt.raw, now)
		if m.Kind != KindAbsolute {
			t.Errorf("ParseMarker(%q).Kind = %v, want KindAbsolute", tt.raw, m.Kind)
			continue
		}
		if !m.Date.Equal(tt.want) {
			t.Errorf("ParseMarker(%q).Date = %v, want %v", tt.raw, m.Date, tt.want)
		}
	}
}

func TestParseMarker_YearRollback(t *testing.T) {
	// Early January: a bare "12-31" must mean last year's New Year's Eve.
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	m := ParseMarker("12-31", now)
	if m.Kind != KindAbsolute {
		t.Fatalf("ParseMarker(12-31).Kind = %v, want KindAbsolute", m.Kind)
	}
	want := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	if !m.Date.Equal(want) {
		t.Errorf("ParseMarker(12-31).Date = %v, want %v", m.Date, want)
	}
}

func TestParseMarker_ImpossibleDate(t *testing.T) {
	if m := ParseMarker("02-30", wednesdayNoon); m.Kind != KindUnknown {
		t.Errorf("ParseMarker(02-30).Kind = %v, want KindUnknown", m.Kind)
	}
	if m := ParseMarker("13-01", wednesdayNoon); m.Kind != KindUnknown {
		t.Errorf("ParseMarker(13-01).Kind = %v, want KindUnknown", m.Kind)
	}
}

func TestRelativeMarker(t *testing.T) {
	now := wednesdayNoon
	tests := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "刚刚"},
		{now.Add(-5 * time.Minute), "5分钟前"},
		{now.Add(-3 * time.Hour), "3小时前"},
		{now.Add(-50 * time.Hour), "2天前"},
	}
	for _, tt := range tests {
		if got := RelativeMarker(tt.t, now); got != tt.want {
			t.Errorf("RelativeMarker(-%v) = %q, want %q", now.Sub(tt.t), got, tt.want)
		}
	}
}

func TestRelativeMarkerRoundTrips(t *testing.T) {
	// A timestamp 3 hours back must survive render → parse → policy.
	now := wednesdayNoon
	marker := RelativeMarker(now.Add(-3*time.Hour), now)
	if !IsRecent(marker, now) {
		t.Errorf("IsRecent(%q) = false, want true", marker)
	}
	stale := RelativeMarker(now.Add(-72*time.Hour), now)
	if IsRecent(stale, now) {
		t.Errorf("IsRecent(%q) = true, want false", stale)
	}
}
