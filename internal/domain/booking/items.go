package booking

import (
	"fmt"

	"github.com/google/uuid"
)

// Item reserves a number of sleeping places in one accommodation.
type Item struct {
	AccommodationID uuid.UUID `json:"accommodation_id"`
	PersonCount     int       `json:"person_count"`
}

// ValidateItems checks the booking item invariants: at least one item, every
// person count positive, no accommodation listed twice.
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one booking item is required"}
	}
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if item.PersonCount <= 0 {
			return &ValidationError{
				Field:  "items",
				Reason: fmt.Sprintf("person count for accommodation %s must be positive, got %d", item.AccommodationID, item.PersonCount),
			}
		}
		if _, dup := seen[item.AccommodationID]; dup {
			return &ValidationError{
				Field:  "items",
				Reason: fmt.Sprintf("accommodation %s listed more than once", item.AccommodationID),
			}
		}
		seen[item.AccommodationID] = struct{}{}
	}
	return nil
}

// TotalPersons sums the person counts across all items.
func TotalPersons(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.PersonCount
	}
	return total
}

// itemsEqual compares two item sets ignoring order.
func itemsEqual(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[uuid.UUID]int, len(a))
	for _, item := range a {
		counts[item.AccommodationID] = item.PersonCount
	}
	for _, item := range b {
		if counts[item.AccommodationID] != item.PersonCount {
			return false
		}
	}
	return true
}
