package notification

import (
	"context"
	"sync"

	"github.com/upb/agency-backoffice/models"
)

// Memory is a Notifier that keeps requests in memory
type Memory struct {
	mu       sync.Mutex
	requests []NotifyRequest

	// Err, when set, is returned by every Notify call
	Err error
}

// Notify records the request
func (m *Memory) Notify(ctx context.Context, req NotifyRequest) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.requests = append(m.requests, req)
	n := models.NewNotification(req.OrgID, req.RecipientID, req.Kind, req.Title, req.Body, models.ChannelInApp)
	n.Link = req.Link
	return n, nil
}

// Requests returns a copy of the recorded requests
func (m *Memory) Requests() []NotifyRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]NotifyRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
