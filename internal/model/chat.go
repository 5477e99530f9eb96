package model

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageDocument MessageType = "document"
	MessagePayment  MessageType = "payment"
	MessageSystem   MessageType = "system"
)

// ValidActorMessageType limits what the actor-facing send endpoint accepts.
// payment/system messages are inserted only by internal calls.
func ValidActorMessageType(s string) bool {
	switch MessageType(s) {
	case MessageText, MessageImage, MessageDocument:
		return true
	}
	return false
}

type SenderType string

const (
	SenderApplicant SenderType = "applicant"
	SenderAdmin     SenderType = "admin"
	SenderOffice    SenderType = "office"
	SenderSystem    SenderType = "system"
)

// SystemSenderID is the sentinel sender for machine-generated messages;
// it never matches a real user id.
const SystemSenderID = "system"

type ChatMessage struct {
	ID            string          `json:"id"`
	VisaRequestID string          `json:"visa_request_id"`
	SenderID      string          `json:"sender_id"`
	SenderType    SenderType      `json:"sender_type"`
	Content       string          `json:"content"`
	MessageType   MessageType     `json:"message_type"`
	FileURL       string          `json:"file_url,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	IsRead        bool            `json:"is_read"`
	Seq           int64           `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MessageReadStatus is a per-reader read receipt. Independent of the
// message's coarse is_read bit: is_read answers "has anyone other than the
// sender read it", the receipt row records who and when.
type MessageReadStatus struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}

type NotificationType string

const (
	NotificationMessage NotificationType = "message"
	NotificationSystem  NotificationType = "system"
)

type Notification struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	Type        NotificationType `json:"type"`
	ReferenceID string           `json:"reference_id"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}
