package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"go.uber.org/zap"
)

const employeeColumns = `id, org_id, auth_user_id, email, full_name, handle, role, phone, created_at, updated_at`

// EmployeeRepository implements the repositories.EmployeeRepository interface
type EmployeeRepository struct {
	conn
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *DB, logger *zap.Logger) repositories.EmployeeRepository {
	return &EmployeeRepository{conn{db: db, logger: logger}}
}

// Create creates a new employee
func (r *EmployeeRepository) Create(ctx context.Context, emp *models.Employee) error {
	query := `
		INSERT INTO employees (` + employeeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.exec(ctx).ExecContext(ctx, query,
		emp.ID,
		emp.OrgID,
		emp.AuthUserID,
		emp.Email,
		emp.FullName,
		emp.Handle,
		emp.Role,
		emp.Phone,
		emp.CreatedAt,
		emp.UpdatedAt,
	)
	if err != nil {
		return wrapWriteErr("failed to create employee", err)
	}

	r.logger.Debug("employee created", zap.String("id", emp.ID.String()), zap.String("handle", emp.Handle))
	return nil
}

// GetByID retrieves an employee of the organization
func (r *EmployeeRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE org_id = $1 AND id = $2`
	return r.getOne(ctx, query, id, orgID, id)
}

// GetByAuthUserID retrieves the employee linked to an auth user
func (r *EmployeeRepository) GetByAuthUserID(ctx context.Context, authUserID uuid.UUID) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE auth_user_id = $1`
	return r.getOne(ctx, query, authUserID, authUserID)
}

// GetByHandles resolves @mention handles to employees
func (r *EmployeeRepository) GetByHandles(ctx context.Context, orgID uuid.UUID, handles []string) ([]*models.Employee, error) {
	if len(handles) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(handles))
	for i, h := range handles {
		lowered[i] = strings.ToLower(h)
	}

	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE org_id = $1 AND handle = ANY($2)
	`
	return r.query(ctx, query, orgID, pq.Array(lowered))
}

// List retrieves all employees of an organization
func (r *EmployeeRepository) List(ctx context.Context, orgID uuid.UUID) ([]*models.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE org_id = $1
		ORDER BY full_name
	`
	return r.query(ctx, query, orgID)
}

// Update updates an employee
func (r *EmployeeRepository) Update(ctx context.Context, emp *models.Employee) error {
	query := `
		UPDATE employees
		SET auth_user_id = $3,
		    email = $4,
		    full_name = $5,
		    handle = $6,
		    role = $7,
		    phone = $8,
		    updated_at = $9
		WHERE org_id = $1 AND id = $2
	`

	result, err := r.exec(ctx).ExecContext(ctx, query,
		emp.OrgID,
		emp.ID,
		emp.AuthUserID,
		emp.Email,
		emp.FullName,
		emp.Handle,
		emp.Role,
		emp.Phone,
		emp.UpdatedAt,
	)
	if err != nil {
		return wrapWriteErr("failed to update employee", err)
	}
	return expectOne(result, "employee", emp.ID)
}

// Delete deletes an employee
func (r *EmployeeRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	result, err := r.exec(ctx).ExecContext(ctx, `DELETE FROM employees WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	if err := expectOne(result, "employee", id); err != nil {
		return err
	}

	r.logger.Debug("employee deleted", zap.String("id", id.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *EmployeeRepository) WithTx(tx repositories.Transaction) repositories.EmployeeRepository {
	return &EmployeeRepository{r.bind(tx)}
}

func (r *EmployeeRepository) getOne(ctx context.Context, query string, key interface{}, args ...interface{}) (*models.Employee, error) {
	emp, err := scanEmployee(r.exec(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("employee", key)
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return emp, nil
}

func (r *EmployeeRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Employee, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []*models.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employee rows: %w", err)
	}
	return employees, nil
}

func scanEmployee(row rowScanner) (*models.Employee, error) {
	emp := &models.Employee{}
	var authUserID uuid.NullUUID
	err := row.Scan(
		&emp.ID,
		&emp.OrgID,
		&authUserID,
		&emp.Email,
		&emp.FullName,
		&emp.Handle,
		&emp.Role,
		&emp.Phone,
		&emp.CreatedAt,
		&emp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	emp.AuthUserID = nullUUID(authUserID)
	return emp, nil
}

// nullUUID converts a scanned nullable UUID to a pointer
func nullUUID(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

// nullTime converts a scanned nullable timestamp to a pointer
func nullTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
