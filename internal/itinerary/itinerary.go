// Package itinerary lays a trip's events out day by day and exports them as
// an iCalendar feed. Recurring events are expanded with their RRULE.
package itinerary

import (
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"tripsync/internal/models"
)

// Item is one scheduled occurrence of an event.
type Item struct {
	Event models.Event `json:"event"`
	Start time.Time    `json:"start"`
	End   *time.Time   `json:"end,omitempty"`
	// Occurrence is 0 for one-off events and the 0-based repetition index
	// for recurring ones.
	Occurrence int `json:"occurrence"`
}

// Day is a single calendar day of the trip.
type Day struct {
	Number int       `json:"day"`
	Date   time.Time `json:"date"`
	Items  []Item    `json:"items"`
}

// Itinerary is the day-by-day plan of a trip.
type Itinerary struct {
	TripID      string `json:"trip_id"`
	Days        []Day  `json:"days"`
	Unscheduled []Item `json:"unscheduled"`
}

// ParseRecurrence parses an RRULE (with or without the "RRULE:" prefix)
// anchored at dtstart.
func ParseRecurrence(rule string, dtstart time.Time) (*rrule.RRule, error) {
	opt, err := rrule.StrToROption(strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:"))
	if err != nil {
		return nil, err
	}
	opt.Dtstart = dtstart
	return rrule.NewRRule(*opt)
}

// Build groups events into the days of trip. Items within a day are ordered
// by their itinerary position, then start time. Occurrences falling outside
// the trip dates are returned as unscheduled, as is the base occurrence of a
// recurring event with no occurrence inside them.
func Build(trip models.Trip, events []models.Event) Itinerary {
	loc := trip.StartDate.Location()
	first := startOfDay(trip.StartDate)
	last := startOfDay(trip.EndDate.In(loc))

	it := Itinerary{TripID: trip.ID, Days: []Day{}, Unscheduled: []Item{}}
	index := make(map[time.Time]int)
	for day, n := first, 1; !day.After(last); day, n = day.AddDate(0, 0, 1), n+1 {
		index[day] = len(it.Days)
		it.Days = append(it.Days, Day{Number: n, Date: day, Items: []Item{}})
	}

	windowEnd := last.AddDate(0, 0, 1)
	for _, ev := range events {
		items := Occurrences(ev, first, windowEnd)
		if len(items) == 0 {
			// a rule that never fires inside the trip still surfaces once
			it.Unscheduled = append(it.Unscheduled, Item{Event: ev, Start: ev.StartTime, End: ev.EndTime})
			continue
		}
		for _, item := range items {
			if i, ok := index[startOfDay(item.Start.In(loc))]; ok {
				it.Days[i].Items = append(it.Days[i].Items, item)
				continue
			}
			it.Unscheduled = append(it.Unscheduled, item)
		}
	}

	for i := range it.Days {
		sortItems(it.Days[i].Items)
	}
	sortItems(it.Unscheduled)
	return it
}

// Occurrences expands ev into scheduled items. One-off events yield a single
// item regardless of the window; recurring events yield every occurrence in
// [from, to). A malformed rule degrades to the single base occurrence.
func Occurrences(ev models.Event, from, to time.Time) []Item {
	if ev.Recurrence == "" {
		return []Item{{Event: ev, Start: ev.StartTime, End: ev.EndTime}}
	}
	rule, err := ParseRecurrence(ev.Recurrence, ev.StartTime)
	if err != nil {
		return []Item{{Event: ev, Start: ev.StartTime, End: ev.EndTime}}
	}

	var length time.Duration
	if ev.EndTime != nil {
		length = ev.EndTime.Sub(ev.StartTime)
	}
	var items []Item
	for n, start := range rule.Between(from, to, true) {
		item := Item{Event: ev, Start: start, Occurrence: n}
		if ev.EndTime != nil {
			end := start.Add(length)
			item.End = &end
		}
		items = append(items, item)
	}
	return items
}

func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Event.Order != items[j].Event.Order {
			return items[i].Event.Order < items[j].Event.Order
		}
		return items[i].Start.Before(items[j].Start)
	})
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
