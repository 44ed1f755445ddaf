package booking

import (
	"fmt"
	"time"
)

// DateRange is a half-open interval [Start, End): the end date is the
// checkout day and is not itself an occupied night.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds a validated date range. The start must lie strictly
// before the end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate checks the range invariant.
func (r DateRange) Validate() error {
	if !r.Start.Before(r.End) {
		return &ValidationError{
			Field:  "dateRange",
			Reason: fmt.Sprintf("end date %s must be after start date %s", r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly)),
		}
	}
	return nil
}

// Nights returns the number of occupied nights.
func (r DateRange) Nights() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Overlaps reports whether two half-open ranges share at least one night.
// A range ending exactly at the other's start does not overlap.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Equal reports whether both endpoints match.
func (r DateRange) Equal(other DateRange) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
}
