// Package calendar aggregates contribution events into a day grid with an
// activity streak, the shape a contribution calendar is rendered from.
package calendar

import (
	"time"

	"github.com/okian/commitquest/internal/domain/model"
)

// DefaultWindowDays is used when a non-positive window is requested.
const DefaultWindowDays = 365

// daysPerWeek is the row length of the grid.
const daysPerWeek = 7

// Event is the part of a contribution the aggregator needs.
type Event struct {
	Timestamp time.Time
	XP        int64
}

// AwayPeriod is the part of an away period the aggregator needs.
// Start and End are inclusive civil dates.
type AwayPeriod struct {
	Start  Date
	End    Date
	Status model.AwayStatus
}

// Cell is one day of the grid.
type Cell struct {
	Date       Date              `json:"date"`
	Count      int               `json:"count"`
	XP         int64             `json:"xp"`
	Level      int               `json:"level"`
	AwayStatus *model.AwayStatus `json:"awayStatus"`
}

// Calendar is the aggregation result. Weeks are oldest first; every week has
// seven cells except possibly the last, which ends at the window end.
type Calendar struct {
	Weeks      [][]Cell `json:"weeks"`
	Streak     int      `json:"streak"`
	TotalCount int      `json:"totalCount"`
	Start      Date     `json:"start"`
	End        Date     `json:"end"`
}

// Aggregator buckets events by day in a fixed reference time zone.
type Aggregator struct {
	loc       *time.Location
	weekStart time.Weekday
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLocation sets the time zone used to truncate event timestamps to days.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithWeekStart sets the first day of each grid week.
func WithWeekStart(day time.Weekday) Option {
	return func(a *Aggregator) {
		if day >= time.Sunday && day <= time.Saturday {
			a.weekStart = day
		}
	}
}

// New returns an Aggregator using UTC and Sunday-start weeks unless overridden.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{loc: time.UTC, weekStart: time.Sunday}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Location returns the reference time zone.
func (a *Aggregator) Location() *time.Location { return a.loc }

// Today returns the current day in the reference time zone.
func (a *Aggregator) Today(now time.Time) Date { return DateOf(now, a.loc) }

type bucket struct {
	count int
	xp    int64
}

// Aggregate builds the calendar ending at windowEnd. The result depends only
// on its inputs.
func (a *Aggregator) Aggregate(events []Event, away []AwayPeriod, windowEnd Date, windowDays int) Calendar {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	buckets := make(map[Date]bucket, len(events))
	for _, e := range events {
		d := DateOf(e.Timestamp, a.loc)
		b := buckets[d]
		b.count++
		b.xp += e.XP
		buckets[d] = b
	}

	start := windowEnd.AddDays(-windowDays)
	start = start.AddDays(-((int(start.Weekday()) - int(a.weekStart) + daysPerWeek) % daysPerWeek))

	awayDays := expandAway(away, start, windowEnd)

	cal := Calendar{Start: start, End: windowEnd}
	week := make([]Cell, 0, daysPerWeek)
	for d := start; !d.After(windowEnd); d = d.AddDays(1) {
		b := buckets[d]
		cell := Cell{Date: d, Count: b.count, XP: b.xp, Level: IntensityLevel(b.xp)}
		if st, ok := awayDays[d]; ok {
			cell.AwayStatus = &st
		}
		cal.TotalCount += b.count

		week = append(week, cell)
		if len(week) == daysPerWeek {
			cal.Weeks = append(cal.Weeks, week)
			week = make([]Cell, 0, daysPerWeek)
		}
	}
	if len(week) > 0 {
		cal.Weeks = append(cal.Weeks, week)
	}

	cal.Streak = streak(buckets, windowEnd)
	return cal
}

// IntensityLevel maps a day's XP to a 0-4 shade. Upper bounds are inclusive.
func IntensityLevel(xp int64) int {
	switch {
	case xp <= 0:
		return 0
	case xp <= 100:
		return 1
	case xp <= 200:
		return 2
	case xp <= 500:
		return 3
	default:
		return 4
	}
}

// expandAway maps each day in [from, to] covered by a PENDING or APPROVED
// period to its status. APPROVED wins over PENDING on overlap.
func expandAway(periods []AwayPeriod, from, to Date) map[Date]model.AwayStatus {
	days := make(map[Date]model.AwayStatus)
	for _, p := range periods {
		if p.Status != model.AwayPending && p.Status != model.AwayApproved {
			continue
		}
		s, e := p.Start, p.End
		if s.Before(from) {
			s = from
		}
		if e.After(to) {
			e = to
		}
		for d := s; !d.After(e); d = d.AddDays(1) {
			if days[d] == model.AwayApproved {
				continue
			}
			days[d] = p.Status
		}
	}
	return days
}

// streak counts consecutive active days ending at end. An idle end day is
// not held against the streak; counting then starts the day before.
func streak(buckets map[Date]bucket, end Date) int {
	d := end
	if buckets[d].count == 0 {
		d = d.AddDays(-1)
	}
	n := 0
	for buckets[d].count > 0 {
		n++
		d = d.AddDays(-1)
	}
	return n
}
