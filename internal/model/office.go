package model

import "time"

// Office is the capacity profile attached to a user with RoleOffice.
// VisaLimit/ActiveVisaRequests is the single counter pair: incremented only
// on successful assignment, decremented only when an office-bearing request
// reaches a terminal state.
type Office struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	PhoneNumber        string     `json:"phone_number"`
	Address            string     `json:"address"`
	Governorate        string     `json:"governorate,omitempty"`
	VisaLimit          int        `json:"visa_limit"`
	ActiveVisaRequests int        `json:"active_visa_requests"`
	LastActiveAt       *time.Time `json:"last_active_at,omitempty"`
}

// HasCapacity reports whether the office can take one more active request.
func (o *Office) HasCapacity() bool {
	return o.ActiveVisaRequests < o.VisaLimit
}

type JoinRequestStatus string

const (
	JoinPending  JoinRequestStatus = "pending"
	JoinApproved JoinRequestStatus = "approved"
	JoinRejected JoinRequestStatus = "rejected"
)

// OfficeJoinRequest is an office's offer to take a visa request. At most one
// per (visa request, office); resolved atomically when an office is assigned.
type OfficeJoinRequest struct {
	ID            string            `json:"id"`
	VisaRequestID string            `json:"visa_request_id"`
	OfficeID      string            `json:"office_id"`
	Status        JoinRequestStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
