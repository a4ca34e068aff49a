// Package calendar locates promotional event windows and the nearest upcoming
// event relative to an explicit reference date.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/restock-go/internal/domain"
)

// ErrInvalidOrder is returned for an ordinal token outside first..fourth/last.
var ErrInvalidOrder = errors.New("invalid order value")

// epoch is the earliest date NonEventDates will ever return.
var epoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Calendar is an immutable event registry. It is safe for concurrent use.
type Calendar struct {
	events []domain.EventDefinition
}

// Nearest describes the closest upcoming event.
type Nearest struct {
	Event        domain.Event
	Date         time.Time
	DaysUntil    int
	DurationDays int
	Definition   domain.EventDefinition
}

// New builds a calendar from the given definitions, keeping their order.
// Ordinal rules are validated up front so lookups never fail later.
func New(events ...domain.EventDefinition) (*Calendar, error) {
	for _, def := range events {
		if def.Day.Fixed > 0 {
			continue
		}
		if _, err := ResolveOrdinalDay(def.Month, 2000, def.Day.Weekday, def.Day.Order); err != nil {
			return nil, fmt.Errorf("event %s: %w", def.Event, err)
		}
	}
	cp := make([]domain.EventDefinition, len(events))
	copy(cp, events)
	return &Calendar{events: cp}, nil
}

// Default returns the calendar for the built-in event registry.
func Default() *Calendar {
	c, err := New(domain.EventDefinitions()...)
	if err != nil {
		panic(err)
	}
	return c
}

// Events returns the registry in iteration order.
func (c *Calendar) Events() []domain.EventDefinition {
	out := make([]domain.EventDefinition, len(c.events))
	copy(out, c.events)
	return out
}

// Definition returns the registry entry for e.
func (c *Calendar) Definition(e domain.Event) (domain.EventDefinition, bool) {
	for _, def := range c.events {
		if def.Event == e {
			return def, true
		}
	}
	return domain.EventDefinition{}, false
}

// ResolveOrdinalDay returns the day of month of the order-th weekday in the
// given month. "last" walks back from the final day of the month.
func ResolveOrdinalDay(month time.Month, year int, weekday time.Weekday, order domain.Order) (int, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstOccurrence := 1 + (int(weekday)-int(first.Weekday())+7)%7

	switch order {
	case domain.OrderFirst:
		return firstOccurrence, nil
	case domain.OrderSecond:
		return firstOccurrence + 7, nil
	case domain.OrderThird:
		return firstOccurrence + 14, nil
	case domain.OrderFourth:
		return firstOccurrence + 21, nil
	case domain.OrderLast:
		lastDay := daysIn(month, year)
		lastWeekday := time.Date(year, month, lastDay, 0, 0, 0, 0, time.UTC).Weekday()
		return lastDay - (int(lastWeekday)-int(weekday)+7)%7, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidOrder, order)
	}
}

// EventDate returns the first day of the event window in the given year.
func (c *Calendar) EventDate(def domain.EventDefinition, year int) time.Time {
	return time.Date(year, def.Month, c.dayOf(def, year), 0, 0, 0, 0, time.UTC)
}

// NearestEvent finds the closest event by month distance from today, then the
// exact number of days until its next start. Ties keep registry order.
func (c *Calendar) NearestEvent(today time.Time) (Nearest, bool) {
	if len(c.events) == 0 {
		return Nearest{}, false
	}
	today = DateOnly(today)
	month := today.Month()

	best := -1
	bestDistance := 0
	for i, def := range c.events {
		var distance int
		switch {
		case month == def.Month && today.Day() < c.dayOf(def, today.Year()):
			distance = 0
		case def.Month > month:
			distance = int(def.Month - month)
		default:
			distance = 12 - int(month) + int(def.Month)
		}
		if best < 0 || distance < bestDistance {
			best, bestDistance = i, distance
		}
	}

	return c.Next(c.events[best], today), true
}

// Next returns the next start of def on or after today. An event that already
// started this year rolls over to next year.
func (c *Calendar) Next(def domain.EventDefinition, today time.Time) Nearest {
	today = DateOnly(today)
	date := c.EventDate(def, today.Year())
	if date.Before(today) {
		date = c.EventDate(def, today.Year()+1)
	}

	return Nearest{
		Event:        def.Event,
		Date:         date,
		DaysUntil:    DaysBetween(today, date),
		DurationDays: def.DurationDays,
		Definition:   def,
	}
}

// IsEvent reports which event window, if any, contains the date. Windows are
// [start, start+duration).
func (c *Calendar) IsEvent(date time.Time) (domain.Event, bool) {
	date = DateOnly(date)
	for _, def := range c.events {
		// a window that starts late in the previous year can spill over
		for _, year := range []int{date.Year(), date.Year() - 1} {
			start := c.EventDate(def, year)
			end := start.AddDate(0, 0, def.DurationDays)
			if !date.Before(start) && date.Before(end) {
				return def.Event, true
			}
		}
	}
	return "", false
}

// NonEventDates returns up to count most recent dates ending at maxDate in
// ascending order. Event days are skipped unless includeEvents is set.
func (c *Calendar) NonEventDates(count int, maxDate time.Time, includeEvents bool) []time.Time {
	if count <= 0 {
		return nil
	}
	dates := make([]time.Time, 0, count)
	for d := DateOnly(maxDate); len(dates) < count && !d.Before(epoch); d = d.AddDate(0, 0, -1) {
		if !includeEvents {
			if _, ok := c.IsEvent(d); ok {
				continue
			}
		}
		dates = append(dates, d)
	}
	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
	}
	return dates
}

func (c *Calendar) dayOf(def domain.EventDefinition, year int) int {
	if def.Day.Fixed > 0 {
		return def.Day.Fixed
	}
	// validated in New
	day, _ := ResolveOrdinalDay(def.Month, year, def.Day.Weekday, def.Day.Order)
	return day
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

func daysIn(month time.Month, year int) int {
	switch month {
	case time.February:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
