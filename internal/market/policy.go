package market

import "time"

const (
	// Window is how far back a weekday run reaches for fresh content.
	Window = 18 * time.Hour

	// marketOpenHour is the local hour before which a run still belongs
	// to the previous trading day.
	marketOpenHour = 9

	// marketCloseHour is the Friday close that anchors the weekend window.
	marketCloseHour = 15
)

// WeekendMode reports whether now falls in the weekend window: Saturday,
// Sunday, or Monday before the market opens.
func WeekendMode(now time.Time) bool {
	switch wd := now.Weekday(); wd {
	case time.Saturday, time.Sunday:
		return true
	case time.Monday:
		return now.Hour() < marketOpenHour
	default:
		return false
	}
}

// MostRecentFriday returns midnight of the Friday on or before t.
// If t is itself a Friday, that Friday is returned.
func MostRecentFriday(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch wd := d.Weekday(); wd {
	case time.Friday:
		return d
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, -2)
	default: // Monday through Thursday
		return d.AddDate(0, 0, -(int(wd) + 2))
	}
}

// FridayCutoff returns the most recent Friday's market close (15:00 local)
// relative to now. Weekend-mode items must have been published at or after
// this instant.
func FridayCutoff(now time.Time) time.Time {
	friday := MostRecentFriday(now)
	return friday.Add(marketCloseHour * time.Hour)
}

// IsRecent decides whether an item whose publish marker reads raw should be
// included in the analysis window anchored at now.
//
// On weekdays the window is Window (inclusive) behind now. In weekend mode
// (Sat/Sun, or Monday pre-market) everything published since Friday's close
// counts. Markers the parser cannot classify are excluded; bare relative
// markers without a number ("今天", "刚刚") are included.
func IsRecent(raw string, now time.Time) bool {
	m := ParseMarker(raw, now)
	if WeekendMode(now) {
		return recentWeekend(m, now)
	}
	return recentWeekday(m, now)
}

func recentWeekday(m Marker, now time.Time) bool {
	switch m.Kind {
	case KindInstant, KindMinutes:
		return true
	case KindHours:
		if m.Qty < 0 {
			return true
		}
		return time.Duration(m.Qty)*time.Hour <= Window
	case KindYesterday:
		return true
	case KindDays:
		if m.Qty < 0 {
			return false
		}
		return m.Qty <= 1
	case KindAbsolute:
		return now.Sub(m.Date) <= Window
	default:
		return false
	}
}

func recentWeekend(m Marker, now time.Time) bool {
	cutoff := FridayCutoff(now)
	switch m.Kind {
	case KindInstant, KindMinutes:
		return !now.Before(cutoff)
	case KindHours:
		if m.Qty < 0 {
			return true
		}
		published := now.Add(-time.Duration(m.Qty) * time.Hour)
		return !published.Before(cutoff)
	case KindYesterday:
		return true
	case KindDays:
		if m.Qty < 0 {
			return true
		}
		return m.Qty <= 2
	case KindAbsolute:
		// Calendar-date comparison: Friday itself is in, regardless of hour.
		fridayDate := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, cutoff.Location())
		return !m.Date.Before(fridayDate)
	default:
		return false
	}
}
