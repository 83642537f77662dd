package event

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"golang.org/x/text/unicode/norm"
)

// NormalizationError describes why a candidate was rejected. Rejected
// candidates are dropped and logged, never inserted.
type NormalizationError struct {
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalization failed on %s: %s", e.Field, e.Reason)
}

// CleanText normalizes scraped text: NFC unicode normalization plus
// whitespace collapsing.
func CleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func lower(s string) string {
	return strings.ToLower(s)
}

// Normalizer promotes raw candidates to events.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Run validates and normalizes a candidate. Title, date, location and
// source URL are required; a candidate failing any of them is rejected
// with a NormalizationError.
func (n *Normalizer) Run(c Candidate) (*Event, error) {
	title := CleanText(c.Title)
	if title == "" {
		return nil, &NormalizationError{Field: "title", Reason: "missing"}
	}

	sourceURL := strings.TrimSpace(c.SourceURL)
	if sourceURL == "" {
		return nil, &NormalizationError{Field: "source_url", Reason: "missing"}
	}

	dateText := CleanText(c.DateText)
	if dateText == "" {
		return nil, &NormalizationError{Field: "date", Reason: "missing"}
	}
	date, err := dateparse.ParseAny(dateText)
	if err != nil {
		return nil, &NormalizationError{Field: "date", Reason: fmt.Sprintf("unparseable %q", dateText)}
	}

	coords, err := ParseCoordinates(c.LocationText)
	if err != nil {
		return nil, &NormalizationError{Field: "location", Reason: err.Error()}
	}

	return &Event{
		Title:       title,
		Description: CleanText(c.Description),
		Date:        date.UTC(),
		Location:    coords,
		Address:     CleanText(c.Address),
		Category:    ParseCategory(c.CategoryText),
		Source:      strings.TrimSpace(c.Source),
		SourceURL:   sourceURL,
		Price:       parsePrice(c.PriceText),
	}, nil
}

// ParseCoordinates parses a "longitude, latitude" pair. When the pair
// is only valid in (latitude, longitude) order the values are swapped;
// ambiguous pairs are taken as given.
func ParseCoordinates(s string) (Coordinates, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Coordinates{}, fmt.Errorf("expected two comma-separated values, got %q", s)
	}

	first, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid longitude %q", parts[0])
	}
	second, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid latitude %q", parts[1])
	}

	coords := Coordinates{Longitude: first, Latitude: second}
	if coords.Valid() {
		return coords, nil
	}

	swapped := Coordinates{Longitude: second, Latitude: first}
	if swapped.Valid() {
		return swapped, nil
	}

	return Coordinates{}, fmt.Errorf("coordinates out of range: %q", s)
}

// parsePrice extracts a non-negative price, defaulting to 0 when the
// text is absent, unparseable or negative.
func parsePrice(s string) float64 {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimLeft(cleaned, "$€£")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
