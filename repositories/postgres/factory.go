package postgres

import (
	"context"

	"github.com/upb/agency-backoffice/config"
	"github.com/upb/agency-backoffice/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db     *DB
	logger *zap.Logger
}

// NewRepositoryFactory opens the database pool and creates a factory over it
func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return NewRepositoryFactoryFromDB(db, logger), nil
}

// NewRepositoryFactoryFromDB creates a factory over an existing pool
func NewRepositoryFactoryFromDB(db *DB, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{db: db, logger: logger}
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Organizations: NewOrganizationRepository(f.db, f.logger),
		Employees:     NewEmployeeRepository(f.db, f.logger),
		Clients:       NewClientRepository(f.db, f.logger),
		Boards:        NewBoardRepository(f.db, f.logger),
		Tasks:         NewTaskRepository(f.db, f.logger),
		Notifications: NewNotificationRepository(f.db, f.logger),
		Proposals:     NewProposalRepository(f.db, f.logger),
		Invoices:      NewInvoiceRepository(f.db, f.logger),
		SocialPosts:   NewSocialPostRepository(f.db, f.logger),
		Conversations: NewConversationRepository(f.db, f.logger),
		Integrations:  NewIntegrationRepository(f.db, f.logger),
		AuditLogs:     NewAuditRepository(f.db, f.logger),
	}
}

// GetTransactionManager returns a transaction manager
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
