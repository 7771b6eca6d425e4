package enums

import "fmt"

// BloodRequestStatus is the state machine position of a blood unit request.
// fulfilled and cancelled are terminal.
type BloodRequestStatus string

const (
	BloodRequestStatusPending   BloodRequestStatus = "pending"
	BloodRequestStatusConfirmed BloodRequestStatus = "confirmed"
	BloodRequestStatusFulfilled BloodRequestStatus = "fulfilled"
	BloodRequestStatusCancelled BloodRequestStatus = "cancelled"
)

var validBloodRequestStatuses = []BloodRequestStatus{
	BloodRequestStatusPending,
	BloodRequestStatusConfirmed,
	BloodRequestStatusFulfilled,
	BloodRequestStatusCancelled,
}

func (s BloodRequestStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is permitted.
func (s BloodRequestStatus) IsTerminal() bool {
	return s == BloodRequestStatusFulfilled || s == BloodRequestStatusCancelled
}

// IsValid reports whether the value is a known BloodRequestStatus.
func (s BloodRequestStatus) IsValid() bool {
	for _, candidate := range validBloodRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBloodRequestStatus converts raw input into a BloodRequestStatus.
func ParseBloodRequestStatus(value string) (BloodRequestStatus, error) {
	for _, candidate := range validBloodRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid blood request status %q", value)
}
