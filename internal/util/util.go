// Package util provides small formatting helpers shared across phototrip.
package util

import (
	"path"
	"strings"
	"time"
)

// TimelineLabel formats the trip label shown for a step: "Date: YYYY-MM-DD".
// Dates are rendered in t's own zone, the same zone its year key uses.
func TimelineLabel(t time.Time) string {
	return "Date: " + t.Format("2006-01-02")
}

// PopupTimestamp formats a step's capture time as "YYYY-MM-DD HH:MM:SS" in
// t's own zone.
func PopupTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// Progress returns (cursor+1)/length clamped to [0,1].
func Progress(cursor, length int) float64 {
	if length <= 0 {
		return 0
	}
	p := float64(cursor+1) / float64(length)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// PhotoURL maps a manifest file reference to the URL the browser loads.
// Absolute URLs pass through; relative references are served under prefix.
func PhotoURL(prefix, fileRef string) string {
	if strings.HasPrefix(fileRef, "http://") || strings.HasPrefix(fileRef, "https://") {
		return fileRef
	}
	if prefix == "" {
		return fileRef
	}
	ref := strings.TrimPrefix(strings.ReplaceAll(fileRef, `\`, "/"), "/")
	return path.Join("/", prefix, ref)
}
