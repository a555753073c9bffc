package market

import "time"

// Resolution reasons, surfaced in logs and the run ledger.
const (
	ReasonNormal        = "normal"
	ReasonPreMarket     = "pre-market-rollback"
	ReasonWeekendFriday = "weekend-uses-friday"
)

const dateKeyLayout = "2006-01-02"

// Resolution is the analysis date a run's outputs are archived under.
type Resolution struct {
	DateKey   string
	Reason    string
	BucketDir string
}

// Resolve derives the analysis date from wall-clock time.
//
// A run before the market opens belongs to the previous day, and a run
// whose (possibly shifted) day lands on a weekend belongs to the most
// recent Friday. The pre-market shift is computed once and reused for both
// the weekend check and the Friday lookup, so the resolver can never
// disagree with the recency policy about which Friday anchors the window.
func Resolve(now time.Time) Resolution {
	shifted := now
	reason := ReasonNormal
	if now.Hour() < marketOpenHour {
		shifted = now.AddDate(0, 0, -1)
		reason = ReasonPreMarket
	}

	if wd := shifted.Weekday(); wd == time.Saturday || wd == time.Sunday {
		key := MostRecentFriday(shifted).Format(dateKeyLayout)
		return Resolution{DateKey: key, Reason: ReasonWeekendFriday, BucketDir: "archive_" + key}
	}

	key := shifted.Format(dateKeyLayout)
	return Resolution{DateKey: key, Reason: reason, BucketDir: "archive_" + key}
}
