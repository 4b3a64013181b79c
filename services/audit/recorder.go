package audit

import (
	"sync"

	"github.com/upb/agency-backoffice/models"
)

// Nop discards audit entries
type Nop struct{}

// Record implements Recorder
func (Nop) Record(*models.AuditLog) {}

// Memory keeps audit entries in memory, for tests and dry runs
type Memory struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

// Record implements Recorder
func (m *Memory) Record(log *models.AuditLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
}

// Entries returns a copy of the recorded entries
func (m *Memory) Entries() []*models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AuditLog, len(m.logs))
	copy(out, m.logs)
	return out
}

// Actions lists the recorded actions in order
func (m *Memory) Actions() []models.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AuditAction, len(m.logs))
	for i, l := range m.logs {
		out[i] = l.Action
	}
	return out
}
