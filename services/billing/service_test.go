package billing

import (
	"context"
	"encoding/json"
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
	"github.com/upb/agency-backoffice/services/audit"
	"github.com/upb/agency-backoffice/services/notification"
	"go.uber.org/zap"
)

var (
	anyArg   = mock.Anything
	fixedNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
)

const testSecret = "whsec_test"

type fakeCheckout struct {
	session  *CheckoutSession
	err      error
	requests []CheckoutRequest
}

func (f *fakeCheckout) CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fixture struct {
	service  *Service
	txMgr    *mocks.TxManager
	invoices *mocks.InvoiceRepository
	clients  *mocks.ClientRepository
	checkout *fakeCheckout
	notifier *notification.Memory
	recorder *audit.Memory
	orgID    uuid.UUID
	client   *models.Client
	owner    uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		txMgr:    &mocks.TxManager{},
		invoices: &mocks.InvoiceRepository{},
		clients:  &mocks.ClientRepository{},
		checkout: &fakeCheckout{session: &CheckoutSession{ID: "cs_1", URL: "https://pay.test/cs_1"}},
		notifier: &notification.Memory{},
		recorder: &audit.Memory{},
		orgID:    uuid.New(),
		owner:    uuid.New(),
	}
	f.client = models.NewClient(f.orgID, "Lucia Gomez", "Cafe Norte", "lucia@cafenorte.test")
	f.client.OwnerID = &f.owner

	f.service = NewService(f.txMgr, f.invoices, f.clients, f.checkout, f.notifier, f.recorder, zap.NewNop(), Config{
		WebhookSecret: testSecret,
		SuccessURL:    "https://app.test/paid",
		CancelURL:     "https://app.test/cancel",
	})
	f.service.now = func() time.Time { return fixedNow }
	f.clients.On("GetByID", anyArg, f.orgID, f.client.ID).Return(f.client, nil).Maybe()
	return f
}

func (f *fixture) invoice(status models.InvoiceStatus) *models.Invoice {
	return &models.Invoice{
		ID:          uuid.New(),
		OrgID:       f.orgID,
		ClientID:    f.client.ID,
		Number:      "INV-202405-0003",
		AmountCents: 250000,
		Currency:    "USD",
		Status:      status,
		DueDate:     fixedNow.AddDate(0, 0, 7),
	}
}

func TestIssue_NumbersPerMonth(t *testing.T) {
	f := newFixture()
	f.invoices.On("NextSequence", anyArg, f.orgID, "INV-202405-").Return(7, nil)
	f.invoices.On("Create", anyArg, mock.AnythingOfType("*models.Invoice")).Return(nil)

	inv := &models.Invoice{OrgID: f.orgID, ClientID: f.client.ID, AmountCents: 100, Currency: "eur", Status: models.InvoiceOpen}
	require.NoError(t, f.service.Issue(context.Background(), nil, inv))

	assert.Equal(t, "INV-202405-0007", inv.Number)
	assert.Equal(t, "EUR", inv.Currency)
	assert.NotEqual(t, uuid.Nil, inv.ID)
	assert.Equal(t, fixedNow, inv.CreatedAt)
}

func TestIssue_DuplicateNumber(t *testing.T) {
	f := newFixture()
	f.invoices.On("NextSequence", anyArg, anyArg, anyArg).Return(1, nil)
	f.invoices.On("Create", anyArg, anyArg).Return(fmt.Errorf("insert: %w", repositories.ErrDuplicate))

	err := f.service.Issue(context.Background(), nil, &models.Invoice{OrgID: f.orgID})
	assert.True(t, services.IsConflictError(err))
}

func TestCreate(t *testing.T) {
	f := newFixture()
	f.invoices.On("NextSequence", anyArg, f.orgID, "INV-202405-").Return(1, nil)
	f.invoices.On("Create", anyArg, anyArg).Return(nil)

	inv, err := f.service.Create(context.Background(), f.orgID, CreateRequest{ClientID: f.client.ID, AmountCents: 90000})
	require.NoError(t, err)

	assert.Equal(t, "INV-202405-0001", inv.Number)
	assert.Equal(t, models.InvoiceOpen, inv.Status)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, fixedNow.AddDate(0, 0, 14), inv.DueDate)
	assert.Equal(t, 1, f.txMgr.Commits)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	missing := uuid.New()
	f.clients.On("GetByID", anyArg, f.orgID, missing).Return(nil, fmt.Errorf("client: %w", repositories.ErrNotFound))

	_, err := f.service.Create(context.Background(), f.orgID, CreateRequest{ClientID: f.client.ID, AmountCents: 0})
	assert.True(t, services.IsValidationError(err))

	past := fixedNow.AddDate(0, 0, -3)
	_, err = f.service.Create(context.Background(), f.orgID, CreateRequest{ClientID: f.client.ID, AmountCents: 10, DueDate: &past})
	assert.True(t, services.IsValidationError(err))

	_, err = f.service.Create(context.Background(), f.orgID, CreateRequest{ClientID: missing, AmountCents: 10})
	assert.ErrorIs(t, err, services.ErrClientNotFound)
	assert.Equal(t, 1, f.txMgr.Rollbacks)
}

func TestVoid(t *testing.T) {
	f := newFixture()
	open, paid, void := f.invoice(models.InvoiceOpen), f.invoice(models.InvoicePaid), f.invoice(models.InvoiceVoid)
	for _, inv := range []*models.Invoice{open, paid, void} {
		f.invoices.On("GetByID", anyArg, f.orgID, inv.ID).Return(inv, nil)
	}
	f.invoices.On("Update", anyArg, open).Return(nil)
	actor := services.Actor{EmployeeID: uuid.New(), RequestID: "req-1"}

	got, err := f.service.Void(context.Background(), f.orgID, open.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceVoid, got.Status)
	assert.Equal(t, []models.AuditAction{models.AuditActionInvoiceVoided}, f.recorder.Actions())

	_, err = f.service.Void(context.Background(), f.orgID, paid.ID, actor)
	assert.ErrorIs(t, err, services.ErrAlreadyPaid)

	got, err = f.service.Void(context.Background(), f.orgID, void.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceVoid, got.Status)
	assert.Len(t, f.recorder.Entries(), 1)
	f.invoices.AssertNumberOfCalls(t, "Update", 1)
}

func TestCheckout(t *testing.T) {
	f := newFixture()
	inv := f.invoice(models.InvoiceOverdue)
	f.invoices.On("GetByID", anyArg, f.orgID, inv.ID).Return(inv, nil)
	f.invoices.On("SetCheckoutSession", anyArg, f.orgID, inv.ID, "cs_1", "https://pay.test/cs_1", fixedNow).Return(true, nil)

	got, err := f.service.Checkout(context.Background(), f.orgID, inv.ID, &f.client.ID)
	require.NoError(t, err)

	assert.Equal(t, "cs_1", got.CheckoutSessionID)
	assert.Equal(t, "https://pay.test/cs_1", got.CheckoutURL)
	assert.Equal(t, fixedNow, got.UpdatedAt)
	f.invoices.AssertNotCalled(t, "Update", anyArg, anyArg)
	require.Len(t, f.checkout.requests, 1)
	req := f.checkout.requests[0]
	assert.Equal(t, inv.ID, req.InvoiceID)
	assert.Equal(t, int64(250000), req.AmountCents)
	assert.Equal(t, "lucia@cafenorte.test", req.CustomerEmail)
	assert.Equal(t, "https://app.test/paid", req.SuccessURL)
}

func TestCheckout_Rejections(t *testing.T) {
	f := newFixture()
	paid := f.invoice(models.InvoicePaid)
	open := f.invoice(models.InvoiceOpen)
	f.invoices.On("GetByID", anyArg, f.orgID, paid.ID).Return(paid, nil)
	f.invoices.On("GetByID", anyArg, f.orgID, open.ID).Return(open, nil)

	_, err := f.service.Checkout(context.Background(), f.orgID, paid.ID, nil)
	assert.True(t, services.IsConflictError(err))

	other := uuid.New()
	_, err = f.service.Checkout(context.Background(), f.orgID, open.ID, &other)
	assert.ErrorIs(t, err, services.ErrInvoiceNotFound)

	f.checkout.err = &ProcessorError{StatusCode: 500, Message: "boom"}
	_, err = f.service.Checkout(context.Background(), f.orgID, open.ID, nil)
	assert.True(t, services.IsExternalError(err))
	f.invoices.AssertNotCalled(t, "SetCheckoutSession", anyArg, anyArg, anyArg, anyArg, anyArg, anyArg)

	f.service.checkout = nil
	_, err = f.service.Checkout(context.Background(), f.orgID, open.ID, nil)
	assert.True(t, services.IsExternalError(err))
}

func TestCheckout_PaidWhileCreatingSession(t *testing.T) {
	f := newFixture()
	inv := f.invoice(models.InvoiceOpen)
	f.invoices.On("GetByID", anyArg, f.orgID, inv.ID).Return(inv, nil)
	f.invoices.On("SetCheckoutSession", anyArg, f.orgID, inv.ID, "cs_1", "https://pay.test/cs_1", fixedNow).Return(false, nil)

	got, err := f.service.Checkout(context.Background(), f.orgID, inv.ID, nil)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, services.ErrNotPayable)
	assert.Empty(t, inv.CheckoutSessionID)
	f.invoices.AssertNotCalled(t, "Update", anyArg, anyArg)
}

func completedEvent(t *testing.T, invoiceRef string) []byte {
	t.Helper()
	event := map[string]interface{}{
		"id":   "evt_123",
		"type": EventCheckoutCompleted,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":             "cs_1",
				"payment_status": "paid",
				"metadata":       map[string]string{"invoice_id": invoiceRef},
			},
		},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload
}

func TestHandleWebhook_MarksInvoicePaid(t *testing.T) {
	f := newFixture()
	inv := f.invoice(models.InvoiceOpen)
	f.invoices.On("FindByID", anyArg, inv.ID).Return(inv, nil)
	f.invoices.On("MarkPaid", anyArg, inv.ID, fixedNow).Return(true, nil)

	payload := completedEvent(t, inv.ID.String())
	result, err := f.service.HandleWebhook(context.Background(), payload, Sign(testSecret, payload, fixedNow))
	require.NoError(t, err)

	assert.True(t, result.Handled)
	assert.Equal(t, inv.ID, *result.InvoiceID)
	assert.Equal(t, models.InvoicePaid, inv.Status)

	entries := f.recorder.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionInvoicePaid, entries[0].Action)
	assert.Equal(t, f.orgID, entries[0].OrgID)
	assert.Contains(t, string(entries[0].Details), "evt_123")

	reqs := f.notifier.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, f.owner, reqs[0].RecipientID)
	assert.Equal(t, models.KindInvoicePaid, reqs[0].Kind)
	assert.Contains(t, reqs[0].Body, "USD 2,500.00")
}

func TestHandleWebhook_IsIdempotent(t *testing.T) {
	f := newFixture()
	inv := f.invoice(models.InvoicePaid)
	f.invoices.On("FindByID", anyArg, inv.ID).Return(inv, nil)
	f.invoices.On("MarkPaid", anyArg, inv.ID, anyArg).Return(false, nil)

	payload := completedEvent(t, inv.ID.String())
	result, err := f.service.HandleWebhook(context.Background(), payload, Sign(testSecret, payload, fixedNow))
	require.NoError(t, err)

	assert.False(t, result.Handled)
	assert.Empty(t, f.recorder.Entries())
	assert.Empty(t, f.notifier.Requests())
}

func TestHandleWebhook_Rejections(t *testing.T) {
	f := newFixture()
	payload := completedEvent(t, uuid.NewString())

	_, err := f.service.HandleWebhook(context.Background(), payload, Sign("wrong", payload, fixedNow))
	assert.True(t, services.IsValidationError(err))

	_, err = f.service.HandleWebhook(context.Background(), payload, Sign(testSecret, payload, fixedNow.Add(-10*time.Minute)))
	assert.True(t, services.IsValidationError(err))
	assert.Equal(t, errSignatureExpired.Error(), services.GetErrorDetails(err)["reason"])

	bad := completedEvent(t, "not-a-uuid")
	_, err = f.service.HandleWebhook(context.Background(), bad, Sign(testSecret, bad, fixedNow))
	assert.True(t, services.IsValidationError(err))

	missing := uuid.New()
	ref := completedEvent(t, missing.String())
	f.invoices.On("FindByID", anyArg, missing).Return(nil, fmt.Errorf("invoice: %w", repositories.ErrNotFound))
	_, err = f.service.HandleWebhook(context.Background(), ref, Sign(testSecret, ref, fixedNow))
	assert.ErrorIs(t, err, services.ErrInvoiceNotFound)

	f.service.config.WebhookSecret = ""
	_, err = f.service.HandleWebhook(context.Background(), payload, Sign(testSecret, payload, fixedNow))
	assert.True(t, services.IsInternalError(err))
}

func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	f := newFixture()
	payload := []byte(`{"id":"evt_9","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)

	result, err := f.service.HandleWebhook(context.Background(), payload, Sign(testSecret, payload, fixedNow))
	require.NoError(t, err)
	assert.False(t, result.Handled)
	assert.Equal(t, "customer.created", result.Type)
	f.invoices.AssertNotCalled(t, "FindByID", anyArg, anyArg)
}

func TestMarkOverdue(t *testing.T) {
	f := newFixture()
	orphan := models.NewClient(f.orgID, "No Owner", "", "x@y.test")
	first := f.invoice(models.InvoiceOverdue)
	second := f.invoice(models.InvoiceOverdue)
	second.ClientID = orphan.ID
	third := f.invoice(models.InvoiceOverdue)
	third.ClientID = uuid.New()

	f.clients.On("GetByID", anyArg, f.orgID, orphan.ID).Return(orphan, nil)
	f.clients.On("GetByID", anyArg, f.orgID, third.ClientID).Return(nil, errors.New("db down"))
	f.invoices.On("MarkOverdue", anyArg, fixedNow).Return([]*models.Invoice{first, second, third}, nil)

	flipped, err := f.service.MarkOverdue(context.Background())
	require.NoError(t, err)
	assert.Len(t, flipped, 3)

	reqs := f.notifier.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, models.KindInvoiceOverdue, reqs[0].Kind)
	assert.Equal(t, "Invoice INV-202405-0003 is overdue", reqs[0].Title)
}
