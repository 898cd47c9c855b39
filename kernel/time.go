package kernel

import "time"

const (
	hourSec int = 60 * minSec
	minSec  int = 60
)

const iso8601Layout = "2006-01-02T15:04:05Z"

// ISO8601 formats t in UTC as YYYY-MM-DDTHH:MM:SSZ.
func ISO8601(t time.Time) string {
	return t.UTC().Format(iso8601Layout)
}

// Timestamp is ISO8601 of the current time.
func Timestamp() string {
	return ISO8601(time.Now())
}

func TimeString(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
