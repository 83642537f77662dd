package match

import (
	"log/slog"

	"github.com/mpolunin/eventwatch/app/event"
	"github.com/mpolunin/eventwatch/app/geo"
)

// Matcher selects the users whose preferences admit a given event.
// A user matches when the event lies within their radius (boundary
// inclusive) and its category is in their subscription list, where an
// empty list subscribes to every category.
type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

func (m *Matcher) Match(evt event.Event, users []event.User) []event.User {
	matched := make([]event.User, 0, len(users))

	for _, u := range users {
		distance := geo.Distance(
			evt.Location.Longitude, evt.Location.Latitude,
			u.Location.Longitude, u.Location.Latitude,
		)
		if distance > u.Preferences.RadiusKm {
			continue
		}
		if !u.SubscribedTo(evt.Category) {
			continue
		}

		slog.Debug("Matched user to event",
			"user_id", u.ID, "event_id", evt.ID, "distance_km", distance)
		matched = append(matched, u)
	}

	return matched
}
