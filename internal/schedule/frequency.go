package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidHeadway = errors.New("frequency headway must be positive")
	ErrInvalidWindow  = errors.New("frequency end must not precede start")
)

// FrequencyBlock is a headway-based service window of a template trip.
// Offsets are relative to the start of the service day.
type FrequencyBlock struct {
	TemplateTripID string
	Start          time.Duration
	End            time.Duration // exclusive
	Headway        time.Duration
}

// PatternStop is one raw stop time of a template trip.
type PatternStop struct {
	StopID    string
	Arrival   time.Duration
	Departure time.Duration
	Sequence  int
}

var dayTags = map[string][]time.Weekday{
	"SUN": {time.Sunday},
	"SAT": {time.Saturday},
	"FRI": {time.Friday},
	"MTH": {time.Monday, time.Tuesday, time.Wednesday, time.Thursday},
	"WKD": {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	"DLY": {time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
}

// ServiceDays returns the weekdays a template trip runs on, read from the
// last '_' separated segment of its id. ok is false for unknown tags.
func ServiceDays(templateTripID string) (days []time.Weekday, ok bool) {
	tag := templateTripID
	if i := strings.LastIndexByte(templateTripID, '_'); i >= 0 {
		tag = templateTripID[i+1:]
	}
	days, ok = dayTags[strings.ToUpper(tag)]
	return days, ok
}

// ServiceDayStart returns the instant GTFS offsets are measured from on a
// service date: noon minus twelve hours, which is midnight except on days
// with a DST transition.
func ServiceDayStart(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, loc).Add(-12 * time.Hour)
}

// SyntheticTripID names one frequency-generated trip instance. Hours may
// exceed 23 for service past midnight.
func SyntheticTripID(templateTripID string, serviceDate time.Time, start time.Duration) string {
	h := int(start / time.Hour)
	m := int(start%time.Hour) / int(time.Minute)
	s := int(start%time.Minute) / int(time.Second)
	return fmt.Sprintf("%s@%sT%02d%02d%02d", templateTripID, serviceDate.Format("20060102"), h, m, s)
}

// ExpandFrequencies generates concrete stop times for every block on every
// applicable service date in [from, to). Dates are taken in loc. The
// template pattern is shifted so its first stop is reached at each
// synthetic start. Blocks with unknown day tags or without a pattern
// produce nothing. Invalid blocks fail the whole call before any output.
func ExpandFrequencies(blocks []FrequencyBlock, patterns map[string][]PatternStop, from, to time.Time, loc *time.Location) (map[string][]StopTime, error) {
	for _, block := range blocks {
		if block.Headway <= 0 {
			return nil, fmt.Errorf("%w: template %s has headway %s", ErrInvalidHeadway, block.TemplateTripID, block.Headway)
		}
		if block.End < block.Start {
			return nil, fmt.Errorf("%w: template %s runs %s to %s", ErrInvalidWindow, block.TemplateTripID, block.Start, block.End)
		}
	}

	if loc == nil {
		loc = time.UTC
	}
	fromY, fromM, fromD := from.In(loc).Date()
	toY, toM, toD := to.In(loc).Date()
	first := time.Date(fromY, fromM, fromD, 0, 0, 0, 0, time.UTC)
	last := time.Date(toY, toM, toD, 0, 0, 0, 0, time.UTC)

	trips := make(map[string][]StopTime)
	for _, block := range blocks {
		pattern := patterns[block.TemplateTripID]
		if len(pattern) == 0 {
			continue
		}
		days, ok := ServiceDays(block.TemplateTripID)
		if !ok {
			continue
		}

		for date := first; date.Before(last); date = date.AddDate(0, 0, 1) {
			if !containsWeekday(days, date.Weekday()) {
				continue
			}
			dayStart := ServiceDayStart(date.Year(), date.Month(), date.Day(), loc)

			for start := block.Start; start < block.End; start += block.Headway {
				tripID := SyntheticTripID(block.TemplateTripID, date, start)
				shift := start - pattern[0].Arrival

				stopTimes := make([]StopTime, len(pattern))
				for i, p := range pattern {
					stopTimes[i] = StopTime{
						TripID:    tripID,
						StopID:    p.StopID,
						Arrival:   dayStart.Add(p.Arrival + shift),
						Departure: dayStart.Add(p.Departure + shift),
						Sequence:  p.Sequence,
					}
				}
				trips[tripID] = stopTimes
			}
		}
	}

	return trips, nil
}

func containsWeekday(days []time.Weekday, day time.Weekday) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
