package shopify

import (
	"strings"
	"time"
)

// SearchTimeLayout is the timestamp layout accepted by created_at filters.
const SearchTimeLayout = "2006-01-02T15:04:05Z"

const DefaultLookbackDays = 30

// DateRange bounds the orders considered by a sales query. A nil To means
// "up to now".
type DateRange struct {
	From time.Time  `json:"from"`
	To   *time.Time `json:"to,omitempty"`
	Days int        `json:"days,omitempty"`
}

// Lookback returns the range [now-days, open).
func Lookback(now time.Time, days int) DateRange {
	if days < 1 {
		days = DefaultLookbackDays
	}
	return DateRange{From: now.UTC().AddDate(0, 0, -days), Days: days}
}

// Between returns an explicit closed range.
func Between(from, to time.Time) DateRange {
	t := to.UTC()
	return DateRange{From: from.UTC(), To: &t}
}

func (r DateRange) filter() string {
	f := "created_at:>=" + r.From.UTC().Format(SearchTimeLayout)
	if r.To != nil {
		f += " AND created_at:<=" + r.To.UTC().Format(SearchTimeLayout)
	}
	return f
}

// orTerms renders "(field:a OR field:b)".
func orTerms(field string, values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, field+":"+searchValue(v))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// searchValue quotes values that the search syntax would otherwise split.
func searchValue(v string) string {
	if !strings.ContainsAny(v, " \t:()\"'") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}
