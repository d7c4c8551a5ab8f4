// Package duplicate plans the copy of a trip's record graph. Build is pure:
// it returns fully populated records with pre-assigned ids so the caller can
// persist them in a single transaction.
package duplicate

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"gorm.io/datatypes"

	"tripsync/internal/models"
	"tripsync/internal/uuid"
)

// CopySuffix is appended to the name of a duplicated trip.
const CopySuffix = " (Copy)"

// Source is the part of a trip graph that is carried into a copy.
// Expenses, collaborators, messages, ideas and polls are deliberately absent.
type Source struct {
	Trip   models.Trip
	Events []models.Event
	Budget *models.Budget
	Tags   []models.Tag
}

// Plan holds the new records to insert.
type Plan struct {
	Trip   models.Trip
	Events []models.Event
	Budget *models.Budget
	Tags   []models.Tag
}

// Build produces the copy of src owned by ownerID and starting at start.
// The original duration and every event's offset from the trip start are
// preserved exactly.
func Build(src Source, ownerID string, start time.Time) Plan {
	shift := start.Sub(src.Trip.StartDate)

	trip := models.Trip{
		Base:         models.Base{ID: uuid.New()},
		Name:         src.Trip.Name + CopySuffix,
		Description:  src.Trip.Description,
		StartDate:    start,
		EndDate:      start.Add(src.Trip.Duration()),
		Destinations: append(datatypes.JSONSlice[string]{}, src.Trip.Destinations...),
		Visibility:   models.TripVisibilityPrivate,
		IsArchived:   false,
		CreatorID:    ownerID,
	}

	plan := Plan{Trip: trip}

	plan.Events = make([]models.Event, 0, len(src.Events))
	for _, e := range src.Events {
		ev := models.Event{
			Base:         models.Base{ID: uuid.New()},
			TripID:       trip.ID,
			Type:         e.Type,
			Title:        e.Title,
			Description:  e.Description,
			StartTime:    e.StartTime.Add(shift),
			LocationName: e.LocationName,
			Latitude:     copyFloat(e.Latitude),
			Longitude:    copyFloat(e.Longitude),
			CostAmount:   e.CostAmount,
			CostCurrency: e.CostCurrency,
			Order:        e.Order,
			Recurrence:   shiftRecurrence(e.Recurrence, shift),
			CreatedByID:  ownerID,
		}
		if e.EndTime != nil {
			end := e.EndTime.Add(shift)
			ev.EndTime = &end
		}
		plan.Events = append(plan.Events, ev)
	}

	if src.Budget != nil {
		b := *src.Budget
		b.Base = models.Base{ID: uuid.New()}
		b.TripID = trip.ID
		plan.Budget = &b
	}

	plan.Tags = make([]models.Tag, 0, len(src.Tags))
	for _, tag := range src.Tags {
		plan.Tags = append(plan.Tags, models.Tag{
			Base:   models.Base{ID: uuid.New()},
			TripID: trip.ID,
			Name:   tag.Name,
			Color:  tag.Color,
		})
	}

	return plan
}

// StartOfDay returns t truncated to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// shiftRecurrence moves a rule's UNTIL bound by shift so a copied event
// repeats over the same span of the new trip. COUNT-bound and unbounded
// rules, and rules that do not parse, are returned unchanged.
func shiftRecurrence(rule string, shift time.Duration) string {
	if rule == "" {
		return ""
	}
	opt, err := rrule.StrToROption(strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:"))
	if err != nil || opt.Until.IsZero() {
		return rule
	}
	opt.Until = opt.Until.Add(shift)
	return opt.RRuleString()
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
