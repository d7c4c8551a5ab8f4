package itinerary

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"tripsync/internal/models"
)

// ProductID identifies this service in exported calendars.
const ProductID = "-//tripsync//itinerary//EN"

// defaultLength is used for events that have no end time.
const defaultLength = time.Hour

// Calendar renders the trip's events as an iCalendar document. Recurring
// events are exported once with their RRULE rather than expanded.
func Calendar(trip models.Trip, events []models.Event, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName(trip.Name)
	if trip.Description != "" {
		cal.SetXWRCalDesc(trip.Description)
	}

	for _, ev := range events {
		vevent := cal.AddEvent(ev.ID + "@tripsync")
		vevent.SetDtStampTime(now.UTC())
		vevent.SetStartAt(ev.StartTime.UTC())
		end := ev.StartTime.Add(defaultLength)
		if ev.EndTime != nil {
			end = *ev.EndTime
		}
		vevent.SetEndAt(end.UTC())
		vevent.SetSummary(summary(ev))
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		if ev.LocationName != "" {
			vevent.SetLocation(ev.LocationName)
		}
		if ev.Latitude != nil && ev.Longitude != nil {
			vevent.SetProperty(ics.ComponentPropertyGeo, fmt.Sprintf("%f;%f", *ev.Latitude, *ev.Longitude))
		}
		if ev.Recurrence != "" {
			vevent.AddRrule(strings.TrimPrefix(ev.Recurrence, "RRULE:"))
		}
	}

	return cal.Serialize()
}

func summary(ev models.Event) string {
	if ev.Type == "" {
		return ev.Title
	}
	return fmt.Sprintf("[%s] %s", ev.Type, ev.Title)
}
