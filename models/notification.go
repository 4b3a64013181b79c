package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel is a notification delivery channel
type Channel string

const (
	ChannelInApp    Channel = "in_app"
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

// DeliveryStatus records the outcome of delivering a notification
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// Notification kinds
const (
	KindTaskHandoff     = "task_handoff"
	KindMention         = "mention"
	KindProposalSent    = "proposal_sent"
	KindProposalDecided = "proposal_decided"
	KindInvoicePaid     = "invoice_paid"
	KindInvoiceOverdue  = "invoice_overdue"
	KindPostFailed      = "post_failed"
	KindTaskAssigned    = "task_assigned"
)

// Notification is one message to one employee on one channel
type Notification struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	OrgID          uuid.UUID      `json:"org_id" db:"org_id"`
	RecipientID    uuid.UUID      `json:"recipient_id" db:"recipient_id"`
	Kind           string         `json:"kind" db:"kind"`
	Title          string         `json:"title" db:"title"`
	Body           string         `json:"body" db:"body"`
	Link           string         `json:"link,omitempty" db:"link"`
	Channel        Channel        `json:"channel" db:"channel"`
	DeliveryStatus DeliveryStatus `json:"delivery_status" db:"delivery_status"`
	ReadAt         *time.Time     `json:"read_at,omitempty" db:"read_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}

// NewNotification creates a pending notification. In-app rows are delivered
// by being stored, so they start as sent.
func NewNotification(orgID, recipientID uuid.UUID, kind, title, body string, channel Channel) *Notification {
	status := DeliveryPending
	if channel == ChannelInApp {
		status = DeliverySent
	}
	return &Notification{
		ID:             uuid.New(),
		OrgID:          orgID,
		RecipientID:    recipientID,
		Kind:           kind,
		Title:          title,
		Body:           body,
		Channel:        channel,
		DeliveryStatus: status,
		CreatedAt:      time.Now().UTC(),
	}
}

// IsRead returns true once the recipient has read the notification
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
