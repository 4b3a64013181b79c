package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return WrapDB(sqlDB, zap.NewNop()), mock
}

func TestTransactionManager(t *testing.T) {
	ctx := context.Background()

	t.Run("commits when the function succeeds", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())
		clients := NewClientRepository(db, zap.NewNop())
		orgID, clientID := uuid.New(), uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE clients SET last_contact_at")).
			WithArgs(orgID, clientID, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := tm.InTransaction(ctx, func(txCtx context.Context, tx repositories.Transaction) error {
			_, ok := txFromContext(txCtx)
			assert.True(t, ok)
			return clients.WithTx(tx).TouchContact(txCtx, orgID, clientID, time.Now())
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the function fails", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())
		boom := errors.New("boom")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := tm.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback after commit is a no-op", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectCommit()

		tx, err := tm.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		assert.NoError(t, tx.Rollback())
	})
}

func TestOrganizationRepository_GetBySlug(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrganizationRepository(db, zap.NewNop())
		id := uuid.New()
		now := time.Now().UTC()

		mock.ExpectQuery(regexp.QuoteMeta("FROM organizations WHERE slug = $1")).
			WithArgs("acme").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "currency", "timezone", "created_at", "updated_at"}).
				AddRow(id.String(), "Acme", "acme", "USD", "UTC", now, now))

		org, err := repo.GetBySlug(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, id, org.ID)
		assert.Equal(t, "Acme", org.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOrganizationRepository(db, zap.NewNop())

		mock.ExpectQuery(regexp.QuoteMeta("FROM organizations WHERE slug = $1")).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetBySlug(ctx, "missing")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestEmployeeRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate handle maps to ErrDuplicate", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewEmployeeRepository(db, zap.NewNop())
		emp := models.NewEmployee(uuid.New(), "ana@agency.io", "Ana", "ana", models.RoleEmployee)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO employees")).
			WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "employees_org_handle_key"})

		err := repo.Create(ctx, emp)
		require.Error(t, err)
		assert.ErrorIs(t, err, repositories.ErrDuplicate)
		assert.Contains(t, err.Error(), "employees_org_handle_key")
	})

	t.Run("no handles skips the query", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewEmployeeRepository(db, zap.NewNop())

		emps, err := repo.GetByHandles(ctx, uuid.New(), nil)
		require.NoError(t, err)
		assert.Empty(t, emps)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("handles are matched in lower case", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewEmployeeRepository(db, zap.NewNop())
		orgID, id := uuid.New(), uuid.New()
		now := time.Now().UTC()

		mock.ExpectQuery(regexp.QuoteMeta("handle = ANY($2)")).
			WithArgs(orgID, `{"ana","bo"}`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "auth_user_id", "email", "full_name", "handle", "role", "phone", "created_at", "updated_at"}).
				AddRow(id.String(), orgID.String(), nil, "ana@agency.io", "Ana", "ana", "employee", "", now, now))

		emps, err := repo.GetByHandles(ctx, orgID, []string{"Ana", "BO"})
		require.NoError(t, err)
		require.Len(t, emps, 1)
		assert.Equal(t, "ana", emps[0].Handle)
		assert.Nil(t, emps[0].AuthUserID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClientRepository(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "org_id", "name", "company", "email", "phone", "status", "portal_user_id", "owner_id",
		"contract_start", "contract_end", "monthly_retainer_cents", "satisfaction_score",
		"last_contact_at", "last_portal_login_at", "churn_score", "churn_risk", "created_at", "updated_at"}

	t.Run("get by id scans nullable columns", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewClientRepository(db, zap.NewNop())
		orgID, id := uuid.New(), uuid.New()
		now := time.Now().UTC()

		mock.ExpectQuery(regexp.QuoteMeta("FROM clients WHERE org_id = $1 AND id = $2")).
			WithArgs(orgID, id).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				id.String(), orgID.String(), "Jane", "Acme", "jane@acme.com", "", "active", nil, nil,
				nil, nil, int64(150000), 4.5, now, nil, int64(72), "high", now, now,
			))

		c, err := repo.GetByID(ctx, orgID, id)
		require.NoError(t, err)
		assert.Equal(t, models.ClientStatusActive, c.Status)
		require.NotNil(t, c.ChurnScore)
		assert.Equal(t, 72, *c.ChurnScore)
		require.NotNil(t, c.ChurnRisk)
		assert.Equal(t, models.RiskHigh, *c.ChurnRisk)
		require.NotNil(t, c.SatisfactionScore)
		assert.Equal(t, 4.5, *c.SatisfactionScore)
		assert.Nil(t, c.OwnerID)
		assert.Nil(t, c.LastPortalLoginAt)
		assert.NotNil(t, c.LastContactAt)
	})

	t.Run("update churn on missing client", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewClientRepository(db, zap.NewNop())

		mock.ExpectExec(regexp.QuoteMeta("UPDATE clients SET churn_score")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateChurn(ctx, uuid.New(), uuid.New(), 40, models.RiskMedium)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("list filters by minimum risk", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewClientRepository(db, zap.NewNop())
		orgID := uuid.New()
		risk := models.RiskHigh

		mock.ExpectQuery(regexp.QuoteMeta("churn_risk = ANY($2)")).
			WithArgs(orgID, `{"high","critical"}`, 100, 0).
			WillReturnRows(sqlmock.NewRows(columns))

		clients, err := repo.List(ctx, orgID, repositories.ClientFilter{MinRisk: &risk})
		require.NoError(t, err)
		assert.Empty(t, clients)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestActivityRowToActivity(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	lastContact := now.Add(-10 * day)
	contractStart := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	contractEnd := now.Add(45 * day)
	sat := 3.5

	row := activityRow{
		lastContact:     &lastContact,
		satisfaction:    &sat,
		contractStart:   &contractStart,
		contractEnd:     &contractEnd,
		createdAt:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		overdueInvoices: 2,
		openTasks:       5,
		last30:          3,
		prev30:          9,
	}

	a := row.toActivity(now)
	require.NotNil(t, a.DaysSinceLastContact)
	assert.Equal(t, 10, *a.DaysSinceLastContact)
	assert.Nil(t, a.DaysSinceLastLogin)
	require.NotNil(t, a.ContractDaysRemaining)
	assert.Equal(t, 45, *a.ContractDaysRemaining)
	assert.Equal(t, 11, a.TenureMonths)
	assert.Equal(t, 2, a.OverdueInvoices)
	assert.Equal(t, 5, a.OpenTasks)
	assert.Equal(t, 3, a.ActivityLast30)
	assert.Equal(t, 9, a.ActivityPrev30)
	assert.Equal(t, &sat, a.SatisfactionScore)
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		name     string
		from, to time.Time
		want     int
	}{
		{"same day", date(2026, 1, 10), date(2026, 1, 10), 0},
		{"one full month", date(2026, 1, 10), date(2026, 2, 10), 1},
		{"day not reached", date(2026, 1, 10), date(2026, 2, 9), 0},
		{"across years", date(2024, 11, 1), date(2026, 2, 1), 15},
		{"future start", date(2026, 5, 1), date(2026, 1, 1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, monthsBetween(tt.from, tt.to))
		})
	}
}

func TestInvoiceRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("next sequence counts the month prefix", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewInvoiceRepository(db, zap.NewNop())
		orgID := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta("number LIKE $2")).
			WithArgs(orgID, "INV-202610-%").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))

		seq, err := repo.NextSequence(ctx, orgID, "INV-202610-")
		require.NoError(t, err)
		assert.Equal(t, 7, seq)
	})

	t.Run("mark paid reports whether a row changed", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewInvoiceRepository(db, zap.NewNop())
		id := uuid.New()

		mock.ExpectExec(regexp.QuoteMeta("UPDATE invoices SET status = $2, paid_at = $3")).
			WithArgs(id, "paid", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE invoices SET status = $2, paid_at = $3")).
			WithArgs(id, "paid", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		changed, err := repo.MarkPaid(ctx, id, time.Now())
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = repo.MarkPaid(ctx, id, time.Now())
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("checkout session only lands on a payable invoice", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewInvoiceRepository(db, zap.NewNop())
		orgID, id := uuid.New(), uuid.New()
		now := time.Now().UTC()

		mock.ExpectExec(regexp.QuoteMeta("AND status IN ('open', 'overdue')")).
			WithArgs(orgID, id, "cs_1", "https://pay.test/cs_1", now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("AND status IN ('open', 'overdue')")).
			WithArgs(orgID, id, "cs_2", "https://pay.test/cs_2", now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		stored, err := repo.SetCheckoutSession(ctx, orgID, id, "cs_1", "https://pay.test/cs_1", now)
		require.NoError(t, err)
		assert.True(t, stored)

		stored, err = repo.SetCheckoutSession(ctx, orgID, id, "cs_2", "https://pay.test/cs_2", now)
		require.NoError(t, err)
		assert.False(t, stored)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mark overdue returns flipped invoices", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewInvoiceRepository(db, zap.NewNop())
		now := time.Now().UTC()
		id, orgID, clientID := uuid.New(), uuid.New(), uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta("RETURNING")).
			WithArgs("overdue", "open", now).
			WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "client_id", "proposal_id", "number", "amount_cents",
				"currency", "status", "due_date", "paid_at", "checkout_session_id", "checkout_url", "created_at", "updated_at"}).
				AddRow(id.String(), orgID.String(), clientID.String(), nil, "INV-202610-0001", int64(5000),
					"USD", "overdue", now.Add(-day), nil, "", "", now, now))

		invoices, err := repo.MarkOverdue(ctx, now)
		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.Equal(t, models.InvoiceOverdue, invoices[0].Status)
		assert.Nil(t, invoices[0].ProposalID)
		assert.Nil(t, invoices[0].PaidAt)
	})
}

func TestGetByIDForUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("task row is locked inside the transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())
		tasks := NewTaskRepository(db, zap.NewNop())
		orgID, id := uuid.New(), uuid.New()
		now := time.Now().UTC()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE org_id = $1 AND id = $2 FOR UPDATE")).
			WithArgs(orgID, id).
			WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "board_id", "column_id", "client_id", "assignee_id",
				"title", "description", "priority", "status", "position", "due_date", "handoff_from_id", "created_by",
				"created_at", "updated_at"}).
				AddRow(id.String(), orgID.String(), uuid.NewString(), uuid.NewString(), nil, nil,
					"Launch copy", "", "medium", "open", 2, nil, nil, nil, now, now))
		mock.ExpectCommit()

		err := tm.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
			task, err := tasks.WithTx(tx).GetByIDForUpdate(ctx, orgID, id)
			if err != nil {
				return err
			}
			assert.Equal(t, models.TaskStatusOpen, task.Status)
			assert.Nil(t, task.ClientID)
			return nil
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing proposal is not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		proposals := NewProposalRepository(db, zap.NewNop())
		orgID, id := uuid.New(), uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta("FROM proposals WHERE org_id = $1 AND id = $2 FOR UPDATE")).
			WithArgs(orgID, id).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := proposals.GetByIDForUpdate(ctx, orgID, id)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConversationRepository_RecentMessages(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepository(db, zap.NewNop())
	convID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM chat_messages")).
		WithArgs(convID, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "role", "content", "provider", "model", "created_at"}).
			AddRow(uuid.NewString(), convID.String(), "user", "hi", "", "", now).
			AddRow(uuid.NewString(), convID.String(), "assistant", "hello", "openrouter", "gpt-4o-mini", now.Add(time.Second)))

	msgs, err := repo.RecentMessages(context.Background(), convID, 20)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.ChatRoleUser, msgs[0].Role)
	assert.Equal(t, "openrouter", msgs[1].Provider)
}

func TestIntegrationRepository(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("get decodes settings", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewIntegrationRepository(db, zap.NewNop())

		mock.ExpectQuery(regexp.QuoteMeta("FROM integration_configs WHERE org_id = $1")).
			WithArgs(orgID).
			WillReturnRows(sqlmock.NewRows([]string{"org_id", "settings", "updated_at"}).
				AddRow(orgID.String(), []byte(`{"ai_provider_order":["gemini","openai"],"redact_pii":true}`), time.Now()))

		cfg, err := repo.Get(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, []string{"gemini", "openai"}, cfg.Settings.AIProviderOrder)
		assert.True(t, cfg.Settings.RedactPII)
	})

	t.Run("missing row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewIntegrationRepository(db, zap.NewNop())

		mock.ExpectQuery(regexp.QuoteMeta("FROM integration_configs")).
			WithArgs(orgID).
			WillReturnRows(sqlmock.NewRows([]string{"org_id", "settings", "updated_at"}))

		_, err := repo.Get(ctx, orgID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("upsert", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewIntegrationRepository(db, zap.NewNop())

		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (org_id) DO UPDATE")).
			WithArgs(orgID, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Upsert(ctx, &models.IntegrationConfig{OrgID: orgID, UpdatedAt: time.Now()})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuditRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("insert", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAuditRepository(db, zap.NewNop())
		log := models.NewAuditLog(uuid.New(), models.AuditActionAICompletion, "ai").
			WithAIMetrics("gpt-4o-mini", "openrouter", 120, 340)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Insert(ctx, log))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scan tolerates null columns", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAuditRepository(db, zap.NewNop())
		id, orgID := uuid.New(), uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "client_id", "user_id", "action", "resource_type", "resource_id",
				"details", "ip_address", "user_agent", "request_id", "timestamp",
				"model", "provider", "tokens_used", "latency_ms", "status_code", "error_message"}).
				AddRow(id.String(), orgID.String(), nil, nil, "task_handoff", "task", nil,
					nil, nil, nil, "req-1", time.Now(),
					nil, "gemini", int64(42), nil, nil, nil))

		log, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.AuditActionTaskHandoff, log.Action)
		assert.Equal(t, "req-1", log.RequestID)
		assert.Nil(t, log.ClientID)
		assert.Nil(t, log.Model)
		require.NotNil(t, log.Provider)
		assert.Equal(t, "gemini", *log.Provider)
		require.NotNil(t, log.TokensUsed)
		assert.Equal(t, 42, *log.TokensUsed)
	})
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
