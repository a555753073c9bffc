// Package market implements the market-calendar rules that decide which
// published content belongs to the current analysis window and under which
// date a run's outputs are archived.
package market

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MarkerKind classifies a parsed publish marker.
type MarkerKind int

const (
	// KindUnknown is anything the parser could not make sense of.
	KindUnknown MarkerKind = iota
	// KindInstant covers bare relative phrases with no numeric qualifier
	// ("今天", "刚刚", "just now").
	KindInstant
	// KindMinutes is "N分钟前" / "N minutes ago".
	KindMinutes
	// KindHours is "N小时前" / "N hours ago".
	KindHours
	// KindYesterday is "昨天" / "yesterday".
	KindYesterday
	// KindDays is "N天前" / "N days ago".
	KindDays
	// KindAbsolute is a calendar date, either YYYY-MM-DD or MM-DD.
	KindAbsolute
)

// Marker is the typed form of a platform's publish timestamp display.
// Qty is the numeric qualifier for minutes/hours/days kinds; -1 means the
// phrase named the unit but carried no parseable number.
type Marker struct {
	Kind MarkerKind
	Qty  int
	Date time.Time
}

var (
	absoluteRe = regexp.MustCompile(`^(?:(\d{4})-)?(\d{1,2})-(\d{1,2})`)
	minutesRe  = regexp.MustCompile(`(\d+)\s*(?:分钟前|minutes? ago)`)
	hoursRe    = regexp.MustCompile(`(\d+)\s*(?:小时前|hours? ago)`)
	daysRe     = regexp.MustCompile(`(\d+)\s*(?:天前|days? ago)`)
)

// ParseMarker normalizes a raw publish marker into a Marker. Absolute
// MM-DD dates are assumed to be in now's year, rolled back a year when the
// resulting date would land in the future.
func ParseMarker(raw string, now time.Time) Marker {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Marker{Kind: KindUnknown}
	}

	if m := absoluteRe.FindStringSubmatch(s); m != nil {
		if d, ok := absoluteDate(m, now); ok {
			return Marker{Kind: KindAbsolute, Date: d}
		}
		return Marker{Kind: KindUnknown}
	}

	switch {
	case strings.Contains(s, "分钟前"), strings.Contains(s, "minute"):
		return unitMarker(KindMinutes, minutesRe, s)
	case strings.Contains(s, "今天"), strings.Contains(s, "刚刚"),
		strings.Contains(s, "today"), strings.Contains(s, "just now"),
		strings.Contains(s, "moment ago"):
		return Marker{Kind: KindInstant}
	case strings.Contains(s, "小时前"), strings.Contains(s, "hour"):
		return unitMarker(KindHours, hoursRe, s)
	case strings.Contains(s, "昨天"), strings.Contains(s, "yesterday"):
		return Marker{Kind: KindYesterday}
	case strings.Contains(s, "天前"), strings.Contains(s, "days ago"), strings.Contains(s, "day ago"):
		return unitMarker(KindDays, daysRe, s)
	}

	return Marker{Kind: KindUnknown}
}

func unitMarker(kind MarkerKind, re *regexp.Regexp, s string) Marker {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return Marker{Kind: kind, Qty: -1}
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Marker{Kind: kind, Qty: -1}
	}
	return Marker{Kind: kind, Qty: n}
}

func absoluteDate(m []string, now time.Time) (time.Time, bool) {
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	year := now.Year()
	explicitYear := m[1] != ""
	if explicitYear {
		year, _ = strconv.Atoi(m[1])
	}

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if d.Month() != time.Month(month) || d.Day() != day {
		// time.Date normalized an impossible date like 02-30.
		return time.Time{}, false
	}
	if !explicitYear && d.After(now) {
		d = d.AddDate(-1, 0, 0)
	}
	return d, true
}

// RelativeMarker renders a timestamp as the relative display string the
// platforms use, so adapters with real timestamps feed the same parser as
// adapters that only see display text.
func RelativeMarker(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "刚刚"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "分钟前"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + "小时前"
	default:
		return strconv.Itoa(int(d.Hours()/24)) + "天前"
	}
}
