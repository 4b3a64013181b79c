package directory

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/audit"
	"github.com/upb/agency-backoffice/supabase"
	"go.uber.org/zap"
)

var (
	handlePattern = regexp.MustCompile(`^[a-z0-9._-]{2,32}$`)
	slugPattern   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Service manages organizations, employees and client accounts
type Service struct {
	txMgr     repositories.TransactionManager
	orgs      repositories.OrganizationRepository
	employees repositories.EmployeeRepository
	clients   repositories.ClientRepository
	auth      AuthAdmin
	recorder  audit.Recorder
	logger    *zap.Logger
	config    Config
	now       func() time.Time
}

// NewService creates a directory service. auth may be nil when the Supabase
// service-role key is not configured; invites then fail with an external error.
func NewService(
	txMgr repositories.TransactionManager,
	orgs repositories.OrganizationRepository,
	employees repositories.EmployeeRepository,
	clients repositories.ClientRepository,
	auth AuthAdmin,
	recorder audit.Recorder,
	logger *zap.Logger,
	config Config,
) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		txMgr:     txMgr,
		orgs:      orgs,
		employees: employees,
		clients:   clients,
		auth:      auth,
		recorder:  recorder,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// CreateOrganization creates a tenant together with its first admin
func (s *Service) CreateOrganization(ctx context.Context, req OrganizationRequest, admin EmployeeRequest) (*models.Organization, *models.Employee, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, nil, services.NewDomainError(services.ErrorTypeValidation, "organization name is required", nil)
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, nil, services.NewDomainError(services.ErrorTypeValidation, "slug must be lower-case words separated by dashes", nil).
			WithDetail("slug", req.Slug)
	}

	org := models.NewOrganization(name, slug, strings.ToUpper(strings.TrimSpace(req.Currency)))
	if tz := strings.TrimSpace(req.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, nil, services.NewDomainError(services.ErrorTypeValidation, "unknown timezone", err).
				WithDetail("timezone", tz)
		}
		org.Timezone = tz
	}

	admin.Role = models.RoleAdmin
	emp, err := buildEmployee(org.ID, admin)
	if err != nil {
		return nil, nil, err
	}

	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		if err := s.orgs.WithTx(tx).Create(ctx, org); err != nil {
			return duplicateError("failed to create organization", err)
		}
		if err := s.employees.WithTx(tx).Create(ctx, emp); err != nil {
			return duplicateError("failed to create employee", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("organization created",
		zap.String("org_id", org.ID.String()),
		zap.String("slug", org.Slug),
	)
	s.recorder.Record(models.NewAuditLog(org.ID, models.AuditActionEmployeeCreated, "employee").
		WithResource(emp.ID).
		WithDetails(map[string]interface{}{"role": string(emp.Role), "bootstrap": true}))

	if admin.Invite {
		if err := s.inviteEmployee(ctx, emp, services.Actor{}); err != nil {
			return org, emp, err
		}
	}
	return org, emp, nil
}

// GetOrganization returns a tenant
func (s *Service) GetOrganization(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrOrganizationNotFound
		}
		return nil, services.WrapInternal("failed to get organization", err)
	}
	return org, nil
}

// UpdateOrganization changes a tenant's name, currency or timezone
func (s *Service) UpdateOrganization(ctx context.Context, orgID uuid.UUID, req OrganizationUpdate) (*models.Organization, error) {
	org, err := s.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "organization name is required", nil)
		}
		org.Name = name
	}
	if req.Currency != nil {
		org.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "unknown timezone", err).
				WithDetail("timezone", *req.Timezone)
		}
		org.Timezone = *req.Timezone
	}
	org.UpdatedAt = s.now().UTC()

	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, services.WrapInternal("failed to update organization", err)
	}
	return org, nil
}

// CreateEmployee adds a staff member and optionally invites them. When the
// invite fails the employee is still returned with the error so the caller
// can retry through InviteEmployee.
func (s *Service) CreateEmployee(ctx context.Context, orgID uuid.UUID, actor services.Actor, req EmployeeRequest) (*models.Employee, error) {
	emp, err := buildEmployee(orgID, req)
	if err != nil {
		return nil, err
	}
	if err := s.employees.Create(ctx, emp); err != nil {
		return nil, duplicateError("failed to create employee", err)
	}

	s.logger.Info("employee created",
		zap.String("org_id", orgID.String()),
		zap.String("employee_id", emp.ID.String()),
		zap.String("role", string(emp.Role)),
	)
	s.recorder.Record(actor.Stamp(models.NewAuditLog(orgID, models.AuditActionEmployeeCreated, "employee").
		WithResource(emp.ID).
		WithDetails(map[string]interface{}{"role": string(emp.Role), "handle": emp.Handle})))

	if req.Invite {
		if err := s.inviteEmployee(ctx, emp, actor); err != nil {
			return emp, err
		}
	}
	return emp, nil
}

// GetEmployee returns a staff member
func (s *Service) GetEmployee(ctx context.Context, orgID, id uuid.UUID) (*models.Employee, error) {
	emp, err := s.employees.GetByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrEmployeeNotFound
		}
		return nil, services.WrapInternal("failed to get employee", err)
	}
	return emp, nil
}

// ListEmployees returns the organization's staff
func (s *Service) ListEmployees(ctx context.Context, orgID uuid.UUID) ([]*models.Employee, error) {
	list, err := s.employees.List(ctx, orgID)
	if err != nil {
		return nil, services.WrapInternal("failed to list employees", err)
	}
	return list, nil
}

// UpdateEmployee changes a staff member. A role change is pushed to the
// Supabase user so the next token carries it.
func (s *Service) UpdateEmployee(ctx context.Context, orgID, id uuid.UUID, actor services.Actor, req EmployeeUpdate) (*models.Employee, error) {
	emp, err := s.GetEmployee(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	roleChanged := false
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "full name is required", nil)
		}
		emp.FullName = name
	}
	if req.Handle != nil {
		handle, err := normalizeHandle(*req.Handle)
		if err != nil {
			return nil, err
		}
		emp.Handle = handle
	}
	if req.Role != nil && *req.Role != emp.Role {
		if *req.Role != models.RoleAdmin && *req.Role != models.RoleEmployee {
			return nil, invalidRole(*req.Role)
		}
		if emp.ID == actor.EmployeeID {
			return nil, services.NewDomainError(services.ErrorTypeForbidden, "you cannot change your own role", nil)
		}
		emp.Role = *req.Role
		roleChanged = true
	}
	if req.Phone != nil {
		emp.Phone = strings.TrimSpace(*req.Phone)
	}
	emp.UpdatedAt = s.now().UTC()

	if err := s.employees.Update(ctx, emp); err != nil {
		return nil, duplicateError("failed to update employee", err)
	}

	if roleChanged && emp.AuthUserID != nil && s.auth != nil {
		meta := supabase.AppMetadata{OrgID: orgID.String(), Role: string(emp.Role)}
		if err := s.auth.UpdateAppMetadata(ctx, *emp.AuthUserID, meta); err != nil {
			return emp, services.NewDomainError(services.ErrorTypeExternal, services.ErrAuthProvider.Message, err).
				WithDetail("employee_id", emp.ID.String())
		}
	}
	return emp, nil
}

// DeleteEmployee removes a staff member. Admins cannot remove themselves.
func (s *Service) DeleteEmployee(ctx context.Context, orgID, id uuid.UUID, actor services.Actor) error {
	if id == actor.EmployeeID {
		return services.NewDomainError(services.ErrorTypeForbidden, "you cannot delete your own account", nil)
	}
	if err := s.employees.Delete(ctx, orgID, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrEmployeeNotFound
		}
		return services.WrapInternal("failed to delete employee", err)
	}
	s.logger.Info("employee deleted", zap.String("org_id", orgID.String()), zap.String("employee_id", id.String()))
	return nil
}

// InviteEmployee sends a Supabase invite to a staff member without an account
func (s *Service) InviteEmployee(ctx context.Context, orgID, id uuid.UUID, actor services.Actor) (*models.Employee, error) {
	emp, err := s.GetEmployee(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if emp.AuthUserID != nil {
		return nil, services.NewDomainError(services.ErrorTypeConflict, "employee already has an account", nil).
			WithDetail("employee_id", emp.ID.String())
	}
	if err := s.inviteEmployee(ctx, emp, actor); err != nil {
		return nil, err
	}
	return emp, nil
}

// ResolveEmployee maps an auth user to the employee record of orgID
func (s *Service) ResolveEmployee(ctx context.Context, orgID, authUserID uuid.UUID) (*models.Employee, error) {
	emp, err := s.employees.GetByAuthUserID(ctx, authUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrEmployeeNotFound
		}
		return nil, services.WrapInternal("failed to resolve employee", err)
	}
	if emp.OrgID != orgID {
		return nil, services.ErrOrgMismatch
	}
	return emp, nil
}

// Me describes the authenticated caller
func (s *Service) Me(ctx context.Context, principal *supabase.Principal) (*Profile, error) {
	org, err := s.GetOrganization(ctx, principal.OrgID)
	if err != nil {
		return nil, err
	}
	profile := &Profile{
		UserID:       principal.UserID,
		Email:        principal.Email,
		Role:         principal.Role,
		Organization: org,
	}

	if principal.Role == models.RoleClient {
		if principal.ClientID == nil {
			return nil, services.ErrForbidden
		}
		client, err := s.GetClient(ctx, principal.OrgID, *principal.ClientID)
		if err != nil {
			return nil, err
		}
		profile.Client = client
		return profile, nil
	}

	emp, err := s.ResolveEmployee(ctx, principal.OrgID, principal.UserID)
	if err != nil {
		return nil, err
	}
	profile.Employee = emp
	return profile, nil
}

func (s *Service) inviteEmployee(ctx context.Context, emp *models.Employee, actor services.Actor) error {
	user, err := s.invite(ctx, emp.Email, s.config.StaffRedirectURL, map[string]interface{}{"full_name": emp.FullName})
	if err != nil {
		return err
	}
	meta := supabase.AppMetadata{OrgID: emp.OrgID.String(), Role: string(emp.Role)}
	if err := s.auth.UpdateAppMetadata(ctx, user.ID, meta); err != nil {
		return services.NewDomainError(services.ErrorTypeExternal, services.ErrAuthProvider.Message, err).
			WithDetail("employee_id", emp.ID.String())
	}

	authID := user.ID
	emp.AuthUserID = &authID
	emp.UpdatedAt = s.now().UTC()
	if err := s.employees.Update(ctx, emp); err != nil {
		return duplicateError("failed to link employee account", err)
	}

	s.logger.Info("employee invited",
		zap.String("org_id", emp.OrgID.String()),
		zap.String("employee_id", emp.ID.String()),
		zap.String("request_id", actor.RequestID),
	)
	return nil
}

// invite calls the Supabase admin API and maps its failures
func (s *Service) invite(ctx context.Context, email, redirect string, data map[string]interface{}) (*supabase.User, error) {
	if s.auth == nil {
		return nil, services.NewDomainError(services.ErrorTypeExternal, "auth admin is not configured", nil)
	}
	user, err := s.auth.InviteUser(ctx, supabase.InviteRequest{Email: email, RedirectTo: redirect, Data: data})
	if err != nil {
		var adminErr *supabase.AdminError
		if errors.As(err, &adminErr) && adminErr.AlreadyRegistered() {
			return nil, services.NewDomainError(services.ErrorTypeConflict, services.ErrDuplicateEmail.Message, err).
				WithDetail("email", email)
		}
		return nil, services.NewDomainError(services.ErrorTypeExternal, services.ErrAuthProvider.Message, err)
	}
	return user, nil
}

func buildEmployee(orgID uuid.UUID, req EmployeeRequest) (*models.Employee, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "a valid email is required", nil)
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "full name is required", nil)
	}
	handle, err := normalizeHandle(req.Handle)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = models.RoleEmployee
	}
	if role != models.RoleAdmin && role != models.RoleEmployee {
		return nil, invalidRole(role)
	}

	emp := models.NewEmployee(orgID, email, fullName, handle, role)
	emp.Phone = strings.TrimSpace(req.Phone)
	return emp, nil
}

func normalizeHandle(raw string) (string, error) {
	handle := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
	if !handlePattern.MatchString(handle) {
		return "", services.NewDomainError(services.ErrorTypeValidation,
			"handle must be 2-32 characters of a-z, 0-9, dot, dash or underscore", nil).
			WithDetail("handle", raw)
	}
	return handle, nil
}

func invalidRole(role models.Role) error {
	return services.NewDomainError(services.ErrorTypeValidation, "staff role must be admin or employee", nil).
		WithDetail("role", string(role))
}

// duplicateError maps a unique violation to the conflict naming the column.
// The repository puts the violated constraint into the message.
func duplicateError(msg string, err error) error {
	if !errors.Is(err, repositories.ErrDuplicate) {
		return services.WrapInternal(msg, err)
	}
	text := err.Error()
	switch {
	case strings.Contains(text, "handle"):
		return services.NewDomainError(services.ErrorTypeConflict, services.ErrDuplicateHandle.Message, err)
	case strings.Contains(text, "email"):
		return services.NewDomainError(services.ErrorTypeConflict, services.ErrDuplicateEmail.Message, err)
	case strings.Contains(text, "slug"):
		return services.NewDomainError(services.ErrorTypeConflict, services.ErrDuplicateSlug.Message, err)
	}
	return services.NewDomainError(services.ErrorTypeConflict, "record already exists", err)
}
