package bazi

import (
	"fmt"
	"strings"
	"time"
)

// ChinaStandardTime is the zone birth times without an offset are read in.
var ChinaStandardTime = time.FixedZone("CST", 8*60*60)

var birthLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseBirth reads a birth time. RFC 3339 input keeps its offset; the short
// layouts "2006-01-02 15:04" and "2006-01-02T15:04" (seconds optional) are
// read in ChinaStandardTime.
func ParseBirth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	for _, layout := range birthLayouts {
		if t, err := time.ParseInLocation(layout, s, ChinaStandardTime); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid birth time %q (expected YYYY-MM-DD HH:MM)", s)
}
