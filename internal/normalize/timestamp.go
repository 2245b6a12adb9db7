package normalize

import (
	"strings"
	"time"
)

// ExifLayout is the colon-delimited DateTimeOriginal layout.
const ExifLayout = "2006:01:02 15:04:05"

// zoneless layouts are interpreted in the caller's location.
var zonelessLayouts = []string{
	ExifLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses either an EXIF "YYYY:MM:DD HH:MM:SS" string or an
// ISO-8601 string. Strings without a zone are read in loc. Empty or
// unparsable input yields ok=false, never an error.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
