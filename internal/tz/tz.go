// Package tz resolves tenant timezones and answers the scheduler's
// "is it the owner's delivery hour right now" question.
package tz

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// DayLayout is the layout of a scheduling day.
const DayLayout = "2006-01-02"

var offsetPattern = regexp.MustCompile(`^(?i)(UTC|GMT)\s*([+-])\s*(\d{1,2})(?::?(\d{2}))?$`)

// Load resolves an IANA zone name or a fixed offset such as "UTC-5",
// "UTC+05:30" or "GMT+2".
func Load(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty timezone")
	}

	if m := offsetPattern.FindStringSubmatch(name); m != nil {
		hours, _ := strconv.Atoi(m[3])
		minutes := 0
		if m[4] != "" {
			minutes, _ = strconv.Atoi(m[4])
		}
		if hours > 14 || minutes > 59 {
			return nil, fmt.Errorf("invalid timezone offset %q", name)
		}
		offset := hours*3600 + minutes*60
		if m[2] == "-" {
			offset = -offset
		}
		return time.FixedZone(name, offset), nil
	}

	if strings.EqualFold(name, "UTC") || strings.EqualFold(name, "GMT") {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// LocalHour is the wall-clock hour at now in loc.
func LocalHour(now time.Time, loc *time.Location) int {
	return now.In(loc).Hour()
}

// LocalDay is the calendar date at now in loc, formatted with DayLayout.
func LocalDay(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(DayLayout)
}

// IsEligible reports whether the owner's local hour equals targetHour. The
// match is exact, so an hour skipped by a spring-forward transition never
// matches on that day and the owner gets no delivery until the next day.
func IsEligible(now time.Time, loc *time.Location, targetHour int) bool {
	return LocalHour(now, loc) == targetHour
}

// ValidHour reports whether h is a wall-clock hour.
func ValidHour(h int) bool {
	return h >= 0 && h <= 23
}
