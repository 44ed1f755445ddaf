package booking

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusAccepted  Status = "Accepted"
	StatusRejected  Status = "Rejected"
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
	StatusCompleted Status = "Completed"
)

// Occupies reports whether a booking in this status counts toward
// accommodation capacity.
func (s Status) Occupies() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusConfirmed:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }
