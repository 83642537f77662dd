// Package event defines the domain types of the harvesting pipeline and
// the normalization of raw scrape candidates into persisted events.
package event

import (
	"time"
)

// Category is the fixed set of event categories.
type Category string

const (
	CategoryMusic     Category = "music"
	CategoryFood      Category = "food"
	CategorySports    Category = "sports"
	CategoryArts      Category = "arts"
	CategoryEducation Category = "education"
	CategoryBusiness  Category = "business"
	CategoryOther     Category = "other"
)

// Categories lists all valid categories.
func Categories() []Category {
	return []Category{
		CategoryMusic, CategoryFood, CategorySports, CategoryArts,
		CategoryEducation, CategoryBusiness, CategoryOther,
	}
}

// ParseCategory maps free-form scraped text onto a Category. Unknown
// values map to CategoryOther, matching the catch-all in the category
// enumeration.
func ParseCategory(s string) Category {
	switch Category(CleanText(lower(s))) {
	case CategoryMusic:
		return CategoryMusic
	case CategoryFood:
		return CategoryFood
	case CategorySports:
		return CategorySports
	case CategoryArts:
		return CategoryArts
	case CategoryEducation:
		return CategoryEducation
	case CategoryBusiness:
		return CategoryBusiness
	default:
		return CategoryOther
	}
}

// Coordinates is a geographic point in GeoJSON (longitude, latitude)
// order.
type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Valid reports whether the coordinates are within geographic ranges.
func (c Coordinates) Valid() bool {
	return c.Longitude >= -180 && c.Longitude <= 180 &&
		c.Latitude >= -90 && c.Latitude <= 90
}

// Event is a normalized, persisted event. Base fields are immutable
// once persisted; only feedback entries may be appended afterwards.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Date        time.Time   `json:"date"`
	Location    Coordinates `json:"location"`
	Address     string      `json:"address"`
	Category    Category    `json:"category"`
	Source      string      `json:"source"`
	SourceURL   string      `json:"source_url"`
	Price       float64     `json:"price"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Feedback statuses a user can attach to a persisted event.
const (
	FeedbackAttended      = "attended"
	FeedbackNotInterested = "not_interested"
)

// Feedback is an attendance/interest marker appended to a persisted
// event by a user.
type Feedback struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Candidate is an unvalidated event record produced by extraction.
// Date and location are carried as the raw page text; a Candidate has
// no persistence identity until it passes normalization.
type Candidate struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	DateText     string `json:"date"`
	LocationText string `json:"location"`
	Address      string `json:"address"`
	CategoryText string `json:"category"`
	PriceText    string `json:"price"`
	Source       string `json:"source"`
	SourceURL    string `json:"source_url"`
}

// NotificationPreferences are the per-channel delivery flags,
// independently toggleable.
type NotificationPreferences struct {
	SMS   bool `json:"sms"`
	Email bool `json:"email"`
}

// Preferences hold a subscriber's matching and delivery settings. An
// empty Categories list subscribes to all categories.
type Preferences struct {
	Categories    []Category              `json:"categories"`
	RadiusKm      float64                 `json:"radius"`
	Notifications NotificationPreferences `json:"notification_preferences"`
}

// User is a notification subscriber. Users are read-only inputs to the
// matcher and notifier; their lifecycle belongs to the CRUD layer.
type User struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Phone       string      `json:"phone"`
	Email       string      `json:"email"`
	Location    Coordinates `json:"location"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SubscribedTo reports whether the user's category preferences cover
// the given category. An empty preference list means all categories.
func (u User) SubscribedTo(c Category) bool {
	if len(u.Preferences.Categories) == 0 {
		return true
	}
	for _, pref := range u.Preferences.Categories {
		if pref == c {
			return true
		}
	}
	return false
}
