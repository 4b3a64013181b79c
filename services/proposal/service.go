package proposal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/repositories"
	"github.com/upb/agency-backoffice/services"
	"github.com/upb/agency-backoffice/services/ai"
	"github.com/upb/agency-backoffice/services/audit"
	"github.com/upb/agency-backoffice/services/notification"
	"go.uber.org/zap"
)

const (
	maxTitleLen  = 200
	maxLineItems = 100
)

const draftSystemPrompt = `You are a senior account manager at a marketing agency. Write clear, persuasive ` +
	`client proposals in plain text with short sections: overview, approach, deliverables and next steps. ` +
	`Use only the prices given. Do not invent discounts, deadlines or guarantees.`

// Service manages proposals, their AI drafts and contracts
type Service struct {
	txMgr     repositories.TransactionManager
	proposals repositories.ProposalRepository
	clients   repositories.ClientRepository
	orgs      repositories.OrganizationRepository
	issuer    InvoiceIssuer
	generator ai.Generator
	notifier  notification.Notifier
	recorder  audit.Recorder
	logger    *zap.Logger
	config    Config
	now       func() time.Time
}

// NewService creates a proposal service
func NewService(
	txMgr repositories.TransactionManager,
	proposals repositories.ProposalRepository,
	clients repositories.ClientRepository,
	orgs repositories.OrganizationRepository,
	issuer InvoiceIssuer,
	generator ai.Generator,
	notifier notification.Notifier,
	recorder audit.Recorder,
	logger *zap.Logger,
	config Config,
) *Service {
	if config.ValidDays <= 0 {
		config.ValidDays = 30
	}
	if config.Currency == "" {
		config.Currency = "USD"
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		txMgr:     txMgr,
		proposals: proposals,
		clients:   clients,
		orgs:      orgs,
		issuer:    issuer,
		generator: generator,
		notifier:  notifier,
		recorder:  recorder,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Create stores a draft proposal with computed totals
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, actor services.Actor, req CreateRequest) (*models.Proposal, error) {
	title, err := validateTitle(req.Title)
	if err != nil {
		return nil, err
	}
	if err := validateItems(req.LineItems); err != nil {
		return nil, err
	}

	if _, err := s.getClient(ctx, orgID, req.ClientID); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.orgCurrency(ctx, orgID)
	}
	taxPct := s.config.DefaultTaxPct
	if req.TaxPct != nil {
		taxPct = *req.TaxPct
	}
	now := s.now().UTC()
	validUntil := now.AddDate(0, 0, s.config.ValidDays)
	if req.ValidUntil != nil {
		validUntil = req.ValidUntil.UTC()
	}

	p := &models.Proposal{
		ID:          uuid.New(),
		OrgID:       orgID,
		ClientID:    req.ClientID,
		Title:       title,
		LineItems:   req.LineItems,
		DiscountPct: req.DiscountPct,
		TaxPct:      taxPct,
		Currency:    currency,
		Status:      models.ProposalDraft,
		ValidUntil:  &validUntil,
		Body:        strings.TrimSpace(req.Body),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if actor.EmployeeID != uuid.Nil {
		creator := actor.EmployeeID
		p.CreatedBy = &creator
	}
	if p.Body != "" {
		p.GeneratedBy = models.GeneratedByManual
	}
	if _, err := p.ApplyTotals(); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, err.Error(), err)
	}

	if err := s.proposals.Create(ctx, p); err != nil {
		return nil, services.WrapInternal("failed to create proposal", err)
	}

	s.logger.Info("proposal created",
		zap.String("org_id", orgID.String()),
		zap.String("proposal_id", p.ID.String()),
		zap.Int64("total_cents", p.TotalCents),
	)
	return p, nil
}

// Get returns a proposal, expiring it first if its validity has lapsed
func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Proposal, error) {
	p, err := s.get(ctx, s.proposals, orgID, id)
	if err != nil {
		return nil, err
	}
	s.expireIfDue(ctx, p)
	return p, nil
}

// GetForClient returns a non-draft proposal addressed to the client
func (s *Service) GetForClient(ctx context.Context, orgID, clientID, id uuid.UUID) (*models.Proposal, error) {
	p, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if p.ClientID != clientID || p.Status == models.ProposalDraft {
		return nil, services.ErrProposalNotFound
	}
	return p, nil
}

// List returns proposals, newest first
func (s *Service) List(ctx context.Context, orgID uuid.UUID, filter repositories.ProposalFilter) ([]*models.Proposal, error) {
	proposals, err := s.proposals.List(ctx, orgID, filter)
	if err != nil {
		return nil, services.WrapInternal("failed to list proposals", err)
	}
	out := make([]*models.Proposal, 0, len(proposals))
	for _, p := range proposals {
		s.expireIfDue(ctx, p)
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ListForClient returns what the client sees in the portal: everything but drafts
func (s *Service) ListForClient(ctx context.Context, orgID, clientID uuid.UUID) ([]*models.Proposal, error) {
	all, err := s.List(ctx, orgID, repositories.ProposalFilter{ClientID: &clientID})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Proposal, 0, len(all))
	for _, p := range all {
		if p.Status != models.ProposalDraft {
			out = append(out, p)
		}
	}
	return out, nil
}

// Update edits a draft and recomputes its totals
func (s *Service) Update(ctx context.Context, orgID, id uuid.UUID, req UpdateRequest) (*models.Proposal, error) {
	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.Proposal, error) {
		proposals := s.proposals.WithTx(tx)
		p, err := s.lock(ctx, proposals, orgID, id)
		if err != nil {
			return nil, err
		}
		if p.Status != models.ProposalDraft {
			return nil, lockedError(p)
		}

		if req.Title != nil {
			title, err := validateTitle(*req.Title)
			if err != nil {
				return nil, err
			}
			p.Title = title
		}
		if req.LineItems != nil {
			if err := validateItems(req.LineItems); err != nil {
				return nil, err
			}
			p.LineItems = req.LineItems
		}
		if req.DiscountPct != nil {
			p.DiscountPct = *req.DiscountPct
		}
		if req.TaxPct != nil {
			p.TaxPct = *req.TaxPct
		}
		if req.ValidUntil != nil {
			validUntil := req.ValidUntil.UTC()
			p.ValidUntil = &validUntil
		}
		if req.Body != nil {
			p.Body = strings.TrimSpace(*req.Body)
			p.GeneratedBy = models.GeneratedByManual
		}
		if _, err := p.ApplyTotals(); err != nil {
			return nil, services.NewDomainError(services.ErrorTypeValidation, err.Error(), err)
		}

		p.UpdatedAt = s.now().UTC()
		if err := proposals.Update(ctx, p); err != nil {
			return nil, services.WrapInternal("failed to update proposal", err)
		}
		return p, nil
	})
}

// GenerateDraft writes the proposal body with the AI router. When every
// provider fails the body is rendered from the built-in template instead.
func (s *Service) GenerateDraft(ctx context.Context, orgID, id uuid.UUID, actor services.Actor, req DraftRequest) (*DraftResult, error) {
	p, err := s.get(ctx, s.proposals, orgID, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.ProposalDraft {
		return nil, lockedError(p)
	}
	client, err := s.getClient(ctx, orgID, p.ClientID)
	if err != nil {
		return nil, err
	}
	agency := s.agencyName(ctx, orgID)

	result := &DraftResult{Proposal: p}
	gen, genErr := s.generator.Generate(ctx, ai.GenerateRequest{
		OrgID:        orgID,
		UserID:       employeeRef(actor),
		ClientID:     &p.ClientID,
		Feature:      ai.FeatureProposal,
		SystemPrompt: draftSystemPrompt,
		Prompt:       draftPrompt(agency, client, p, req),
		MaxTokens:    1500,
		Temperature:  0.7,
		Providers:    req.Providers,
		RequestID:    actor.RequestID,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
	})
	switch {
	case genErr == nil && gen != nil && strings.TrimSpace(gen.Content) != "":
		p.Body = strings.TrimSpace(gen.Content) + "\n"
		p.GeneratedBy = models.GeneratedByAI
		result.Provider = gen.Provider
		result.Model = gen.Model
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		reason := "empty completion"
		if genErr != nil {
			reason = genErr.Error()
		}
		s.logger.Warn("AI draft failed, using template",
			zap.String("proposal_id", p.ID.String()),
			zap.String("reason", reason),
		)

		data, err := newDocumentData(agency, client, p, s.now().UTC())
		if err != nil {
			return nil, services.NewDomainError(services.ErrorTypeValidation, err.Error(), err)
		}
		data.Brief = strings.TrimSpace(req.Brief)
		body, err := render(proposalTemplate, data)
		if err != nil {
			return nil, services.WrapInternal("failed to render proposal template", err)
		}
		p.Body = body
		p.GeneratedBy = models.GeneratedByTemplate
		result.Fallback = true
		result.FallbackReason = reason
	}

	p.UpdatedAt = s.now().UTC()
	if err := s.proposals.Update(ctx, p); err != nil {
		return nil, services.WrapInternal("failed to save proposal draft", err)
	}
	return result, nil
}

// Send moves a draft to sent. A draft without a body gets the template body.
func (s *Service) Send(ctx context.Context, orgID, id uuid.UUID, actor services.Actor) (*models.Proposal, error) {
	var client *models.Client

	p, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.Proposal, error) {
		proposals := s.proposals.WithTx(tx)
		p, err := s.lock(ctx, proposals, orgID, id)
		if err != nil {
			return nil, err
		}
		if p.Status != models.ProposalDraft {
			return nil, lockedError(p)
		}
		if client, err = s.getClient(ctx, orgID, p.ClientID); err != nil {
			return nil, err
		}

		now := s.now().UTC()
		if p.ValidUntil == nil || !p.ValidUntil.After(now) {
			validUntil := now.AddDate(0, 0, s.config.ValidDays)
			p.ValidUntil = &validUntil
		}
		if p.Body == "" {
			data, err := newDocumentData(s.agencyName(ctx, orgID), client, p, now)
			if err != nil {
				return nil, services.NewDomainError(services.ErrorTypeValidation, err.Error(), err)
			}
			if p.Body, err = render(proposalTemplate, data); err != nil {
				return nil, services.WrapInternal("failed to render proposal template", err)
			}
			p.GeneratedBy = models.GeneratedByTemplate
		}

		p.Status = models.ProposalSent
		p.SentAt = &now
		p.UpdatedAt = now
		if err := proposals.Update(ctx, p); err != nil {
			return nil, services.WrapInternal("failed to send proposal", err)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(actor.Stamp(models.NewAuditLog(orgID, models.AuditActionProposalSent, "proposal")).
		WithResource(p.ID).
		WithClient(p.ClientID).
		WithDetails(map[string]interface{}{"total_cents": p.TotalCents, "currency": p.Currency}))

	s.notifyOwner(ctx, client, actor, notification.NotifyRequest{
		OrgID: orgID,
		Kind:  models.KindProposalSent,
		Title: fmt.Sprintf("Proposal %q sent to %s", p.Title, clientName(client)),
		Body:  fmt.Sprintf("Total %s, valid until %s.", models.FormatMoney(p.TotalCents, p.Currency), p.ValidUntil.Format("2006-01-02")),
		Link:  proposalLink(p.ID),
	})
	return p, nil
}

// Decide records a client's accept or reject on a sent proposal. Accepting
// issues an open invoice for the total in the same transaction.
func (s *Service) Decide(ctx context.Context, orgID, clientID, id uuid.UUID, decision Decision, actor services.Actor) (*DecisionResult, error) {
	if decision != DecisionAccept && decision != DecisionReject {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "decision must be accept or reject", nil).
			WithDetail("decision", string(decision))
	}

	var expired bool
	result, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*DecisionResult, error) {
		proposals := s.proposals.WithTx(tx)
		p, err := s.lock(ctx, proposals, orgID, id)
		if err != nil {
			return nil, err
		}
		if p.ClientID != clientID || p.Status == models.ProposalDraft {
			return nil, services.ErrProposalNotFound
		}

		now := s.now().UTC()
		if p.IsExpiredAt(now) {
			p.Status = models.ProposalExpired
			p.UpdatedAt = now
			if err := proposals.Update(ctx, p); err != nil {
				return nil, services.WrapInternal("failed to expire proposal", err)
			}
			expired = true
			return &DecisionResult{Proposal: p}, nil
		}
		if p.Status != models.ProposalSent {
			return nil, services.NewDomainError(services.ErrorTypeConflict, services.ErrProposalNotSent.Message, nil).
				WithDetail("status", string(p.Status))
		}

		res := &DecisionResult{Proposal: p}
		p.DecidedAt = &now
		p.UpdatedAt = now
		if decision == DecisionReject {
			p.Status = models.ProposalRejected
		} else {
			p.Status = models.ProposalAccepted
			if p.TotalCents > 0 {
				proposalID := p.ID
				res.Invoice = &models.Invoice{
					OrgID:       orgID,
					ClientID:    p.ClientID,
					ProposalID:  &proposalID,
					AmountCents: p.TotalCents,
					Currency:    p.Currency,
					Status:      models.InvoiceOpen,
					DueDate:     now.AddDate(0, 0, s.issuer.DueDays()),
				}
				if err := s.issuer.Issue(ctx, tx, res.Invoice); err != nil {
					return nil, err
				}
			}
		}
		if err := proposals.Update(ctx, p); err != nil {
			return nil, services.WrapInternal("failed to record decision", err)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, services.ErrProposalExpired
	}

	p := result.Proposal
	details := map[string]interface{}{"decision": string(decision)}
	if result.Invoice != nil {
		details["invoice_id"] = result.Invoice.ID.String()
		details["invoice_number"] = result.Invoice.Number
	}
	s.recorder.Record(actor.Stamp(models.NewAuditLog(orgID, models.AuditActionProposalDecided, "proposal")).
		WithResource(p.ID).
		WithClient(p.ClientID).
		WithDetails(details))

	if client, err := s.getClient(ctx, orgID, p.ClientID); err == nil {
		body := fmt.Sprintf("%s %sed the proposal.", clientName(client), decision)
		if result.Invoice != nil {
			body += fmt.Sprintf(" Invoice %s for %s was issued.", result.Invoice.Number,
				models.FormatMoney(result.Invoice.AmountCents, result.Invoice.Currency))
		}
		s.notifyOwner(ctx, client, actor, notification.NotifyRequest{
			OrgID:    orgID,
			Kind:     models.KindProposalDecided,
			Title:    fmt.Sprintf("Proposal %q was %s", p.Title, p.Status),
			Body:     body,
			Link:     proposalLink(p.ID),
			Channels: []models.Channel{models.ChannelEmail, models.ChannelWhatsApp},
		})
	}

	s.logger.Info("proposal decided",
		zap.String("org_id", orgID.String()),
		zap.String("proposal_id", p.ID.String()),
		zap.String("decision", string(decision)),
	)
	return result, nil
}

// GenerateContract renders the services agreement for an accepted proposal
func (s *Service) GenerateContract(ctx context.Context, orgID, id uuid.UUID) (*models.Proposal, error) {
	p, err := s.get(ctx, s.proposals, orgID, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.ProposalAccepted {
		return nil, services.NewDomainError(services.ErrorTypeConflict, services.ErrNotAccepted.Message, nil).
			WithDetail("status", string(p.Status))
	}
	client, err := s.getClient(ctx, orgID, p.ClientID)
	if err != nil {
		return nil, err
	}

	data, err := newDocumentData(s.agencyName(ctx, orgID), client, p, s.now().UTC())
	if err != nil {
		return nil, services.WrapInternal("failed to prepare contract", err)
	}
	data.DueDays = s.issuer.DueDays()
	body, err := render(contractTemplate, data)
	if err != nil {
		return nil, services.WrapInternal("failed to render contract", err)
	}

	p.ContractBody = body
	p.UpdatedAt = s.now().UTC()
	if err := s.proposals.Update(ctx, p); err != nil {
		return nil, services.WrapInternal("failed to save contract", err)
	}
	return p, nil
}

// expireIfDue flips a lapsed sent proposal to expired. A failed write is
// only logged; the next read tries again.
func (s *Service) expireIfDue(ctx context.Context, p *models.Proposal) {
	now := s.now().UTC()
	if !p.IsExpiredAt(now) {
		return
	}
	p.Status = models.ProposalExpired
	p.UpdatedAt = now
	if err := s.proposals.Update(ctx, p); err != nil {
		s.logger.Warn("failed to expire proposal", zap.String("proposal_id", p.ID.String()), zap.Error(err))
	}
}

func (s *Service) notifyOwner(ctx context.Context, client *models.Client, actor services.Actor, req notification.NotifyRequest) {
	if s.notifier == nil || client == nil || client.OwnerID == nil || *client.OwnerID == actor.EmployeeID {
		return
	}
	req.RecipientID = *client.OwnerID
	if len(req.Channels) == 0 {
		req.Channels = []models.Channel{models.ChannelEmail}
	}
	if _, err := s.notifier.Notify(ctx, req); err != nil {
		s.logger.Warn("failed to send proposal notification",
			zap.String("kind", req.Kind),
			zap.Error(err),
		)
	}
}

func (s *Service) get(ctx context.Context, proposals repositories.ProposalRepository, orgID, id uuid.UUID) (*models.Proposal, error) {
	p, err := proposals.GetByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrProposalNotFound
		}
		return nil, services.WrapInternal("failed to get proposal", err)
	}
	return p, nil
}

// lock reads a proposal under a row lock for the enclosing transaction
func (s *Service) lock(ctx context.Context, proposals repositories.ProposalRepository, orgID, id uuid.UUID) (*models.Proposal, error) {
	p, err := proposals.GetByIDForUpdate(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrProposalNotFound
		}
		return nil, services.WrapInternal("failed to lock proposal", err)
	}
	return p, nil
}

func (s *Service) getClient(ctx context.Context, orgID, clientID uuid.UUID) (*models.Client, error) {
	c, err := s.clients.GetByID(ctx, orgID, clientID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrClientNotFound
		}
		return nil, services.WrapInternal("failed to get client", err)
	}
	return c, nil
}

func (s *Service) agencyName(ctx context.Context, orgID uuid.UUID) string {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		s.logger.Warn("failed to load organization", zap.String("org_id", orgID.String()), zap.Error(err))
		return "The Agency"
	}
	return org.Name
}

func (s *Service) orgCurrency(ctx context.Context, orgID uuid.UUID) string {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil || org.Currency == "" {
		return s.config.Currency
	}
	return strings.ToUpper(org.Currency)
}

func draftPrompt(agency string, client *models.Client, p *models.Proposal, req DraftRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a proposal titled %q from %s to %s", p.Title, agency, clientName(client))
	if client.Company != "" && client.Name != "" {
		fmt.Fprintf(&b, " (attention: %s)", client.Name)
	}
	b.WriteString(".\n")
	if tone := strings.TrimSpace(req.Tone); tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", tone)
	}
	if brief := strings.TrimSpace(req.Brief); brief != "" {
		fmt.Fprintf(&b, "Brief from the account team:\n%s\n", brief)
	}

	b.WriteString("\nLine items:\n")
	for _, item := range p.LineItems {
		fmt.Fprintf(&b, "- %s: %d x %s\n", item.Description, item.Quantity, models.FormatMoney(item.UnitPriceCents, p.Currency))
	}
	if totals, err := models.CalculateTotals(p.LineItems, p.DiscountPct, p.TaxPct); err == nil {
		fmt.Fprintf(&b, "Subtotal %s, discount %s, tax %s, total %s.\n",
			models.FormatMoney(totals.SubtotalCents, p.Currency),
			models.FormatMoney(totals.DiscountCents, p.Currency),
			models.FormatMoney(totals.TaxCents, p.Currency),
			models.FormatMoney(totals.TotalCents, p.Currency),
		)
	}
	if p.ValidUntil != nil {
		fmt.Fprintf(&b, "Valid until %s.\n", p.ValidUntil.Format("January 2, 2006"))
	}
	return b.String()
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", services.NewDomainError(services.ErrorTypeValidation, "proposal title is required", nil)
	}
	if len(title) > maxTitleLen {
		return "", services.NewDomainError(services.ErrorTypeValidation, "proposal title is too long", nil).
			WithDetail("max", maxTitleLen)
	}
	return title, nil
}

func validateItems(items []models.LineItem) error {
	if len(items) > maxLineItems {
		return services.NewDomainError(services.ErrorTypeValidation, "too many line items", nil).
			WithDetail("max", maxLineItems)
	}
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return services.NewDomainError(services.ErrorTypeValidation, "line item description is required", nil).
				WithDetail("index", i)
		}
		if item.Quantity > models.MaxLineQuantity || item.UnitPriceCents > models.MaxUnitPriceCents {
			return services.NewDomainError(services.ErrorTypeValidation, "line item amount is too large", nil).
				WithDetail("index", i)
		}
	}
	return nil
}

func lockedError(p *models.Proposal) error {
	return services.NewDomainError(services.ErrorTypeConflict, services.ErrProposalLocked.Message, nil).
		WithDetail("status", string(p.Status))
}

func employeeRef(actor services.Actor) *uuid.UUID {
	if actor.EmployeeID == uuid.Nil {
		return nil
	}
	id := actor.EmployeeID
	return &id
}

func proposalLink(id uuid.UUID) string {
	return "/proposals/" + id.String()
}
