package utils

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is used for every timestamp shown in a view.
const TimestampLayout = "2006-01-02 15:04:05"

// GenerateViewID creates the identifier of a mounted view.
func GenerateViewID() string {
	return uuid.New().String()
}

// IsAbsoluteURL reports whether s parses as a URL with a scheme and either a
// host or an opaque part ("https://x.org", "mailto:ops@x.org").
func IsAbsoluteURL(s string) bool {
	if strings.TrimSpace(s) != s || s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}

// FormatTimestamp renders t in its own zone.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// FormatDuration renders the time between start and end (or now when the
// incident is still open) as "1d 2h 3m 4s", leaving out leading zero units.
func FormatDuration(start time.Time, end *time.Time, now time.Time) string {
	stop := now
	if end != nil {
		stop = *end
	}
	d := stop.Sub(start)
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if days > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if days > 0 || hours > 0 || minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))
	return strings.Join(parts, " ")
}
