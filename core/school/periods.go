package school

import (
	"strings"
	"time"
)

// deadline layouts: naive wall-clock timestamps, as typed by an administrator
var deadlineLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDeadline parses a naive wall-clock deadline. The result is expressed in UTC only
// to carry the wall-clock fields; it must be compared with a wall clock (see WallClock),
// never converted between zones. Strings carrying a zone are rejected.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDeadline
}

// WallClock returns the wall-clock reading of `t` in `loc`, expressed in UTC,
// comparable with the result of ParseDeadline.
func WallClock(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), lt.Nanosecond(), time.UTC)
}
