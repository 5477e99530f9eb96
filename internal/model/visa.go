package model

import "time"

type VisaStatus string

const (
	StatusPending          VisaStatus = "pending"
	StatusDocumentsPending VisaStatus = "documentsPending"
	StatusPaymentPending   VisaStatus = "paymentPending"
	StatusPaymentVerified  VisaStatus = "paymentVerified"
	StatusAssigned         VisaStatus = "assigned"
	StatusProcessing       VisaStatus = "processing"
	StatusCompleted        VisaStatus = "completed"
	StatusRejected         VisaStatus = "rejected"
)

// ValidVisaStatus rejects unknown status strings at the boundary.
func ValidVisaStatus(s string) bool {
	switch VisaStatus(s) {
	case StatusPending, StatusDocumentsPending, StatusPaymentPending,
		StatusPaymentVerified, StatusAssigned, StatusProcessing,
		StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further mutation.
func (s VisaStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// OfficeBearing reports whether a request in this status counts against
// its office's active-request capacity.
func (s VisaStatus) OfficeBearing() bool {
	return s == StatusAssigned || s == StatusProcessing
}

type VisaRequest struct {
	ID                   string     `json:"id"`
	ApplicantID          string     `json:"applicant_id"`
	OfficeID             *string    `json:"office_id,omitempty"`
	AdminID              *string    `json:"admin_id,omitempty"`
	PassportNumber       string     `json:"passport_number"`
	Status               VisaStatus `json:"status"`
	PaymentAmount        float64    `json:"payment_amount"`
	PaymentReference     string     `json:"payment_reference,omitempty"`
	PaymentScreenshotURL string     `json:"payment_screenshot_url,omitempty"`
	PaymentVerified      bool       `json:"payment_verified"`
	PaymentVerifiedAt    *time.Time `json:"payment_verified_at,omitempty"`
	VisaDocumentURL      string     `json:"visa_document_url,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type DocumentType string

const (
	DocPassport              DocumentType = "passport"
	DocPhoto                 DocumentType = "photo"
	DocUniversityCertificate DocumentType = "university_certificate"
	DocOther                 DocumentType = "other"
)

func ValidDocumentType(s string) bool {
	switch DocumentType(s) {
	case DocPassport, DocPhoto, DocUniversityCertificate, DocOther:
		return true
	}
	return false
}

type Document struct {
	ID            string       `json:"id"`
	VisaRequestID string       `json:"visa_request_id"`
	DocumentType  DocumentType `json:"document_type"`
	DocumentURL   string       `json:"document_url"`
	DocumentName  string       `json:"document_name"`
	UploadedAt    time.Time    `json:"uploaded_at"`
}

// VisaRequestDetails bundles a request with its related records for the
// details endpoint.
type VisaRequestDetails struct {
	VisaRequest VisaRequest  `json:"visa_request"`
	Documents   []Document   `json:"documents"`
	Payments    []PaymentLog `json:"payments"`
	Applicant   *UserPublic  `json:"applicant,omitempty"`
	Office      *Office      `json:"office,omitempty"`
	Admin       *UserPublic  `json:"admin,omitempty"`
}
