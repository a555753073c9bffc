package archive

import (
	"fmt"
	"strings"
	"unicode"
)

// Logical keys are filenames derived deterministically from platform, item
// title, and date, so a second run addresses exactly the same files.

const summarySuffix = "_summary.txt"

// ItemTextKey names the extracted body of one item.
func ItemTextKey(platform, title string) string {
	return fmt.Sprintf("%s_%s.txt", platform, SanitizeTitle(title))
}

// ItemSummaryKey names the per-item summary of one item.
func ItemSummaryKey(platform, title string) string {
	return fmt.Sprintf("%s_%s%s", platform, SanitizeTitle(title), summarySuffix)
}

// DigestKey names a platform's daily digest.
func DigestKey(platform, dateKey string) string {
	return fmt.Sprintf("%s_digest_%s.txt", platform, dateKey)
}

// MergedKey names the cross-platform merged report.
func MergedKey(dateKey string) string {
	return fmt.Sprintf("merged_%s.txt", dateKey)
}

// SummaryPrefix and SummarySuffix bound a List call to one platform's
// per-item summaries.
func SummaryPrefix(platform string) string { return platform + "_" }
func SummarySuffix() string                { return summarySuffix }

// SanitizeTitle strips characters that are illegal or awkward in
// filenames. Unicode titles pass through untouched. A trailing "_summary"
// is removed so a body file can never match the summary listing filter.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		case unicode.IsControl(r):
			// drop
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	// Keep filenames within reason for long microblog excerpts.
	const maxRunes = 80
	runes := []rune(s)
	if len(runes) > maxRunes {
		s = string(runes[:maxRunes])
	}
	for strings.HasSuffix(s, "_summary") {
		s = strings.TrimSuffix(s, "_summary")
	}
	if s == "" {
		return "untitled"
	}
	return s
}
