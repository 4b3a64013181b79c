package notification

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/repositories/mocks"
	"github.com/upb/agency-backoffice/services"
	"go.uber.org/zap"
)

type fakeSettings struct {
	settings models.IntegrationSettings
	err      error
}

func (f *fakeSettings) Get(ctx context.Context, orgID uuid.UUID) (*models.IntegrationSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.settings.Clone()
	return &s, nil
}

type fakeSender struct {
	channel models.Channel
	err     error
	sent    []Envelope
}

func (f *fakeSender) Channel() models.Channel { return f.channel }

func (f *fakeSender) Send(ctx context.Context, env Envelope) error {
	f.sent = append(f.sent, env)
	return f.err
}

type fixture struct {
	service   *Service
	repo      *mocks.NotificationRepository
	employees *mocks.EmployeeRepository
	settings  *fakeSettings
	email     *fakeSender
	whatsapp  *fakeSender
	orgID     uuid.UUID
	recipient *models.Employee
}

func newFixture() *fixture {
	f := &fixture{
		repo:      &mocks.NotificationRepository{},
		employees: &mocks.EmployeeRepository{},
		settings:  &fakeSettings{settings: models.DefaultIntegrationSettings()},
		email:     &fakeSender{channel: models.ChannelEmail},
		whatsapp:  &fakeSender{channel: models.ChannelWhatsApp},
		orgID:     uuid.New(),
	}
	f.recipient = models.NewEmployee(f.orgID, "ana@agency.test", "Ana Ruiz", "ana", models.RoleEmployee)
	f.recipient.Phone = "+57 300 555 1234"
	f.service = NewService(f.repo, f.employees, f.settings, f.email, f.whatsapp, nil, zap.NewNop(), Config{
		PublicURL:       "https://app.agency.test/",
		EmailFrom:       "no-reply@agency.test",
		EmailFromName:   "Agency",
		WhatsAppPhoneID: "1055",
	})
	return f
}

func (f *fixture) request(channels ...models.Channel) NotifyRequest {
	return NotifyRequest{
		OrgID:       f.orgID,
		RecipientID: f.recipient.ID,
		Kind:        models.KindTaskHandoff,
		Title:       "Task handed off to you",
		Body:        "Landing page copy",
		Link:        "/tasks/123",
		Channels:    channels,
	}
}

func channelIs(ch models.Channel) interface{} {
	return mock.MatchedBy(func(n *models.Notification) bool { return n.Channel == ch })
}

func TestNotify_InAppOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.On("Create", ctx, channelIs(models.ChannelInApp)).Return(nil)

	n, err := f.service.Notify(ctx, f.request())
	require.NoError(t, err)

	assert.Equal(t, models.ChannelInApp, n.Channel)
	assert.Equal(t, models.DeliverySent, n.DeliveryStatus)
	assert.Equal(t, "/tasks/123", n.Link)
	f.repo.AssertNumberOfCalls(t, "Create", 1)
	f.employees.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotify_Email(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.settings.settings.EmailFromName = "Acme Agency"

	f.repo.On("Create", ctx, channelIs(models.ChannelInApp)).Return(nil)
	f.repo.On("Create", ctx, mock.MatchedBy(func(n *models.Notification) bool {
		return n.Channel == models.ChannelEmail && n.DeliveryStatus == models.DeliveryPending
	})).Return(nil)
	f.repo.On("UpdateDeliveryStatus", mock.Anything, mock.Anything, models.DeliverySent).Return(nil)
	f.employees.On("GetByID", ctx, f.orgID, f.recipient.ID).Return(f.recipient, nil)

	_, err := f.service.Notify(ctx, f.request(models.ChannelInApp, models.ChannelEmail, models.ChannelEmail))
	require.NoError(t, err)

	require.Len(t, f.email.sent, 1)
	env := f.email.sent[0]
	assert.Equal(t, "ana@agency.test", env.To)
	assert.Equal(t, "Ana Ruiz", env.ToName)
	assert.Equal(t, "no-reply@agency.test", env.FromEmail)
	assert.Equal(t, "Acme Agency", env.FromName)
	assert.Equal(t, "Task handed off to you", env.Subject)
	assert.Equal(t, "Landing page copy\n\nhttps://app.agency.test/tasks/123", env.Body)
	f.repo.AssertExpectations(t)
}

func TestNotify_DisabledChannelIsSkipped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.On("Create", ctx, channelIs(models.ChannelInApp)).Return(nil)
	f.repo.On("Create", ctx, mock.MatchedBy(func(n *models.Notification) bool {
		return n.Channel == models.ChannelWhatsApp && n.DeliveryStatus == models.DeliverySkipped
	})).Return(nil)
	f.employees.On("GetByID", ctx, f.orgID, f.recipient.ID).Return(f.recipient, nil)

	_, err := f.service.Notify(ctx, f.request(models.ChannelWhatsApp))
	require.NoError(t, err)
	assert.Empty(t, f.whatsapp.sent)
	f.repo.AssertExpectations(t)
	f.repo.AssertNotCalled(t, "UpdateDeliveryStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotify_WhatsAppUsesTenantPhoneID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.settings.settings.NotifyWhatsApp = true
	f.settings.settings.WhatsAppPhoneID = "9090"

	f.repo.On("Create", ctx, mock.Anything).Return(nil)
	f.repo.On("UpdateDeliveryStatus", mock.Anything, mock.Anything, models.DeliverySent).Return(nil)
	f.employees.On("GetByID", ctx, f.orgID, f.recipient.ID).Return(f.recipient, nil)

	_, err := f.service.Notify(ctx, f.request(models.ChannelWhatsApp))
	require.NoError(t, err)
	require.Len(t, f.whatsapp.sent, 1)
	assert.Equal(t, "9090", f.whatsapp.sent[0].PhoneID)
	assert.Equal(t, "+57 300 555 1234", f.whatsapp.sent[0].To)
}

func TestNotify_DeliveryFailureDoesNotFailCaller(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.email.err = &DeliveryError{Channel: models.ChannelEmail, StatusCode: 503, Message: "unavailable"}

	f.repo.On("Create", ctx, mock.Anything).Return(nil)
	f.repo.On("UpdateDeliveryStatus", mock.Anything, mock.Anything, models.DeliveryFailed).Return(nil)
	f.employees.On("GetByID", ctx, f.orgID, f.recipient.ID).Return(f.recipient, nil)

	n, err := f.service.Notify(ctx, f.request(models.ChannelEmail))
	require.NoError(t, err)
	assert.NotNil(t, n)
	f.repo.AssertCalled(t, "UpdateDeliveryStatus", mock.Anything, mock.Anything, models.DeliveryFailed)
}

func TestNotify_RecipientLookupFailureSkipsExternal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.On("Create", ctx, channelIs(models.ChannelInApp)).Return(nil)
	f.employees.On("GetByID", ctx, f.orgID, f.recipient.ID).Return(nil, fmt.Errorf("employee: %w", repositories.ErrNotFound))

	_, err := f.service.Notify(ctx, f.request(models.ChannelEmail))
	require.NoError(t, err)
	assert.Empty(t, f.email.sent)
	f.repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestNotify_StoreFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.On("Create", ctx, mock.Anything).Return(errors.New("db down"))

	_, err := f.service.Notify(ctx, f.request(models.ChannelEmail))
	assert.True(t, services.IsInternalError(err))
	assert.Empty(t, f.email.sent)
}

func TestNotify_Validation(t *testing.T) {
	f := newFixture()
	req := f.request()
	req.Title = " "

	_, err := f.service.Notify(context.Background(), req)
	assert.True(t, services.IsValidationError(err))

	req = f.request()
	req.RecipientID = uuid.Nil
	_, err = f.service.Notify(context.Background(), req)
	assert.True(t, services.IsValidationError(err))
}

func TestList_ClampsLimit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.On("List", ctx, f.orgID, f.recipient.ID, true, 200).Return(nil, nil)
	f.repo.On("List", ctx, f.orgID, f.recipient.ID, false, 50).Return([]*models.Notification{{}}, nil)

	items, err := f.service.List(ctx, f.orgID, f.recipient.ID, true, 1000)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	items, err = f.service.List(ctx, f.orgID, f.recipient.ID, false, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMarkRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return fixed }
	known, missing := uuid.New(), uuid.New()

	f.repo.On("MarkRead", ctx, f.orgID, f.recipient.ID, known, fixed).Return(nil)
	f.repo.On("MarkRead", ctx, f.orgID, f.recipient.ID, missing, fixed).
		Return(fmt.Errorf("notification: %w", repositories.ErrNotFound))
	f.repo.On("MarkAllRead", ctx, f.orgID, f.recipient.ID, fixed).Return(int64(3), nil)
	f.repo.On("UnreadCount", ctx, f.orgID, f.recipient.ID).Return(0, nil)

	assert.NoError(t, f.service.MarkRead(ctx, f.orgID, f.recipient.ID, known))
	assert.True(t, services.IsNotFoundError(f.service.MarkRead(ctx, f.orgID, f.recipient.ID, missing)))

	n, err := f.service.MarkAllRead(ctx, f.orgID, f.recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	count, err := f.service.UnreadCount(ctx, f.orgID, f.recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestExternalChannels(t *testing.T) {
	got := externalChannels([]models.Channel{
		models.ChannelInApp, models.ChannelWhatsApp, models.Channel("sms"), models.ChannelEmail, models.ChannelWhatsApp,
	})
	assert.Equal(t, []models.Channel{models.ChannelWhatsApp, models.ChannelEmail}, got)
}
