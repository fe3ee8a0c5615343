// Package logfilter parses ROS 2 console output and filters it by time or by
// a JavaScript predicate.
package logfilter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
)

// [INFO] [1700000000.123456789] [turtlebot3_node]: message
var consoleLine = regexp.MustCompile(`^\[([A-Z]+)\]\s+\[(\d+)(?:\.(\d{1,9}))?\]\s+\[([^\]]*)\]:\s?(.*)$`)

type Line struct {
	Raw     string
	Level   string
	Time    time.Time
	Logger  string
	Message string
	// Parsed is false for lines that are not in ROS console format, such as
	// launch output or Python tracebacks.
	Parsed bool
}

func Parse(raw string) Line {
	m := consoleLine.FindStringSubmatch(strings.TrimRight(raw, "\r\n"))
	if m == nil {
		return Line{Raw: raw}
	}
	sec, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return Line{Raw: raw}
	}
	var nsec int64
	if m[3] != "" {
		frac := m[3] + strings.Repeat("0", 9-len(m[3]))
		nsec, _ = strconv.ParseInt(frac, 10, 64)
	}
	return Line{
		Raw:     raw,
		Level:   m[1],
		Time:    time.Unix(sec, nsec).UTC(),
		Logger:  m[4],
		Message: m[5],
		Parsed:  true,
	}
}

// ParseSince accepts a Go duration ("10m", meaning that long before now) or
// any absolute date format dateparse understands.
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty --since")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := dateparse.ParseLocal(s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse --since %q", s)
	}
	return t, nil
}

type Filter interface {
	Keep(l Line) (bool, error)
}

// Since keeps lines at or after T. Unparsed lines follow the decision made
// for the previous parsed line, so multi-line messages stay together.
type Since struct {
	T    time.Time
	last bool
}

func (s *Since) Keep(l Line) (bool, error) {
	if !l.Parsed {
		return s.last, nil
	}
	s.last = !l.Time.Before(s.T)
	return s.last, nil
}

type All []Filter

func (a All) Keep(l Line) (bool, error) {
	for _, f := range a {
		ok, err := f.Keep(l)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
