package sources

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// msSinceEpochRe matches the ASP.NET JSON date wire format: /Date(1717200000000)/
var msSinceEpochRe = regexp.MustCompile(`^/Date\((\d+)\)/`)

// dateLayouts covers the formats observed across the monitored sites.
// Day-first layouts come before month-first ones; the regulators write
// dates day-first almost everywhere.
var dateLayouts = []string{
	"2-1-2006",
	"2/1/2006",
	"2006-1-2",
	"2.1.2006",
	"January 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"2-Jan-2006",
	"2 Jan 2006",
	"Jan 2 2006",
	"2/Jan/2006",
	"Jan 2, 2006",
}

// ParseDate parses a date string in any of the formats the monitored
// sites use, including the ASP.NET millisecond-epoch form. Returns nil
// when nothing matches; an unparseable date is metadata lost, never an
// error.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if m := msSinceEpochRe.FindStringSubmatch(raw); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			t := time.UnixMilli(ms).UTC().Truncate(24 * time.Hour)
			return &t
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
