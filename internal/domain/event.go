package domain

import (
	"strings"
	"time"
)

// Event is one of the fixed promotional events the business plans for.
type Event string

const (
	EventBSS  Event = "BSS"
	EventPD   Event = "PD"
	EventPBDD Event = "PBDD"
	EventBFCM Event = "BFCM"
)

// Order selects which occurrence of a weekday inside a month is meant.
type Order string

const (
	OrderFirst  Order = "first"
	OrderSecond Order = "second"
	OrderThird  Order = "third"
	OrderFourth Order = "fourth"
	OrderLast   Order = "last"
)

// DayRule resolves the day of month an event starts on. A non-zero Fixed wins;
// otherwise the Order-th Weekday of the month is used.
type DayRule struct {
	Fixed   int
	Weekday time.Weekday
	Order   Order
}

// FixedDay returns a rule for a constant day of month.
func FixedDay(day int) DayRule {
	return DayRule{Fixed: day}
}

// OrdinalDay returns a rule such as "last Friday".
func OrdinalDay(weekday time.Weekday, order Order) DayRule {
	return DayRule{Weekday: weekday, Order: order}
}

// EventDefinition is an entry of the event registry. AverageColumn and
// BestColumn name the event performance spreadsheet columns for the event.
type EventDefinition struct {
	Event              Event
	Month              time.Month
	Day                DayRule
	DurationDays       int
	PlanningCutoffDays int
	AverageColumn      string
	BestColumn         string
}

// EventEntityColumn is the entity key column of the event performance sheet.
const EventEntityColumn = "ASIN"

var eventDefinitions = []EventDefinition{
	{
		Event:              EventBSS,
		Month:              time.March,
		Day:                FixedDay(20),
		DurationDays:       2,
		PlanningCutoffDays: 90,
		AverageColumn:      "Average BSS sales, units (total)",
		BestColumn:         "Best BSS performance",
	},
	{
		Event:              EventPD,
		Month:              time.July,
		Day:                FixedDay(10),
		DurationDays:       4,
		PlanningCutoffDays: 90,
		AverageColumn:      "Average PD sales, units (total)",
		BestColumn:         "Best PD performance",
	},
	{
		Event:              EventPBDD,
		Month:              time.October,
		Day:                FixedDay(7),
		DurationDays:       2,
		PlanningCutoffDays: 90,
		AverageColumn:      "Average PBDD sales, units (total)",
		BestColumn:         "Best PBDD performance",
	},
	{
		// Black Friday: last Friday of November.
		Event:              EventBFCM,
		Month:              time.November,
		Day:                OrdinalDay(time.Friday, OrderLast),
		DurationDays:       4,
		PlanningCutoffDays: 45,
		AverageColumn:      "Average BFCM sales, units (total)",
		BestColumn:         "Best BFCM performance",
	},
}

// EventDefinitions returns a copy of the event registry in registry order.
func EventDefinitions() []EventDefinition {
	out := make([]EventDefinition, len(eventDefinitions))
	copy(out, eventDefinitions)
	return out
}

// LookupEvent returns the registry entry for e.
func LookupEvent(e Event) (EventDefinition, bool) {
	for _, def := range eventDefinitions {
		if def.Event == e {
			return def, true
		}
	}
	return EventDefinition{}, false
}

// ParseEvent returns the event for a name (case-insensitive).
func ParseEvent(name string) (Event, bool) {
	e := Event(strings.ToUpper(strings.TrimSpace(name)))
	_, ok := LookupEvent(e)
	return e, ok
}
