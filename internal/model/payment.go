package model

import "time"

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentRejected PaymentStatus = "rejected"
)

// PaymentLog is one payment submission for a visa request. Screenshot-only
// submissions have an empty reference number; at most one log per request is
// meaningfully pending at a time.
type PaymentLog struct {
	ID              string        `json:"id"`
	VisaRequestID   string        `json:"visa_request_id"`
	Amount          float64       `json:"amount"`
	Status          PaymentStatus `json:"status"`
	ReferenceNumber string        `json:"reference_number,omitempty"`
	ScreenshotURL   string        `json:"screenshot_url,omitempty"`
	VerifiedBy      *string       `json:"verified_by,omitempty"`
	Note            string        `json:"note,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// PaymentStatistics is the admin aggregate view over all payment logs.
type PaymentStatistics struct {
	TotalCount     int                   `json:"total_count"`
	TotalAmount    float64               `json:"total_amount"`
	VerifiedCount  int                   `json:"verified_count"`
	VerifiedAmount float64               `json:"verified_amount"`
	Monthly        []MonthlyPaymentStats `json:"monthly"`
}

type MonthlyPaymentStats struct {
	Month          int     `json:"month"`
	Count          int     `json:"count"`
	Amount         float64 `json:"amount"`
	VerifiedCount  int     `json:"verified_count"`
	VerifiedAmount float64 `json:"verified_amount"`
}
