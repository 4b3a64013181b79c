package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionAICompletion       AuditAction = "ai_completion"
	AuditActionAICompletionFailed AuditAction = "ai_completion_failed"
	AuditActionTaskHandoff        AuditAction = "task_handoff"
	AuditActionProposalSent       AuditAction = "proposal_sent"
	AuditActionProposalDecided    AuditAction = "proposal_decided"
	AuditActionInvoicePaid        AuditAction = "invoice_paid"
	AuditActionInvoiceVoided      AuditAction = "invoice_voided"
	AuditActionPostPublished      AuditAction = "post_published"
	AuditActionPostFailed         AuditAction = "post_failed"
	AuditActionEmployeeCreated    AuditAction = "employee_created"
	AuditActionClientInvited      AuditAction = "client_invited"
	AuditActionIntegrationUpdated AuditAction = "integration_updated"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OrgID        uuid.UUID       `json:"org_id" db:"org_id"`
	ClientID     *uuid.UUID      `json:"client_id,omitempty" db:"client_id"`
	UserID       *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"` // task, proposal, invoice, ai, etc.
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty" db:"resource_id"`
	Details      json.RawMessage `json:"details" db:"details"` // JSONB for flexible metadata
	IPAddress    string          `json:"ip_address" db:"ip_address"`
	UserAgent    string          `json:"user_agent" db:"user_agent"`
	RequestID    string          `json:"request_id" db:"request_id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`

	// AI attempt fields
	Model        *string `json:"model,omitempty" db:"model"`
	Provider     *string `json:"provider,omitempty" db:"provider"`
	TokensUsed   *int    `json:"tokens_used,omitempty" db:"tokens_used"`
	LatencyMs    *int    `json:"latency_ms,omitempty" db:"latency_ms"`
	StatusCode   *int    `json:"status_code,omitempty" db:"status_code"`
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(orgID uuid.UUID, action AuditAction, resourceType string) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		OrgID:        orgID,
		Action:       action,
		ResourceType: resourceType,
		Timestamp:    time.Now().UTC(),
	}
}

// WithClient sets the client the entry concerns
func (a *AuditLog) WithClient(clientID uuid.UUID) *AuditLog {
	a.ClientID = &clientID
	return a
}

// WithUser sets the user ID
func (a *AuditLog) WithUser(userID uuid.UUID) *AuditLog {
	a.UserID = &userID
	return a
}

// WithResource sets the resource ID
func (a *AuditLog) WithResource(resourceID uuid.UUID) *AuditLog {
	a.ResourceID = &resourceID
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}

// WithAIMetrics records the provider attempt behind an AI call
func (a *AuditLog) WithAIMetrics(model, provider string, tokensUsed, latencyMs int) *AuditLog {
	a.Model = &model
	a.Provider = &provider
	a.TokensUsed = &tokensUsed
	a.LatencyMs = &latencyMs
	return a
}

// WithError sets error information
func (a *AuditLog) WithError(statusCode int, errorMessage string) *AuditLog {
	a.StatusCode = &statusCode
	a.ErrorMessage = &errorMessage
	return a
}
