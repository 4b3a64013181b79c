package services

import (
	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
)

// Actor identifies who is making a change, for audit rows and notifications.
// EmployeeID is zero for client portal users.
type Actor struct {
	EmployeeID uuid.UUID
	ClientID   *uuid.UUID
	RequestID  string
	IPAddress  string
	UserAgent  string
}

// Stamp copies the actor onto an audit entry
func (a Actor) Stamp(entry *models.AuditLog) *models.AuditLog {
	if a.EmployeeID != uuid.Nil {
		entry.WithUser(a.EmployeeID)
	}
	return entry.WithRequest(a.RequestID, a.IPAddress, a.UserAgent)
}
