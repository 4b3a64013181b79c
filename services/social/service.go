package social

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

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
	maxMediaURLs     = 10
	maxCalendarRange = 92 * 24 * time.Hour
	defaultDueBatch  = 100
)

// Config tunes the social service
type Config struct {
	// DueBatch caps how many due posts one PublishDue run handles
	DueBatch int
}

// ScheduleRequest creates a scheduled post
type ScheduleRequest struct {
	ClientID    uuid.UUID       `json:"client_id" validate:"required"`
	Platform    models.Platform `json:"platform" validate:"required"`
	Content     string          `json:"content" validate:"required"`
	MediaURLs   []string        `json:"media_urls" validate:"omitempty,max=10,dive,url"`
	ScheduledAt time.Time       `json:"scheduled_at" validate:"required"`
}

// RescheduleRequest changes a scheduled post. Nil fields are left alone.
type RescheduleRequest struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
	Content     *string    `json:"content"`
	MediaURLs   []string   `json:"media_urls" validate:"omitempty,max=10,dive,url"`
}

// CalendarQuery selects posts for the calendar view
type CalendarQuery struct {
	From     time.Time
	To       time.Time
	ClientID *uuid.UUID
	Statuses []models.PostStatus
}

// CalendarDay holds the posts scheduled on one UTC date
type CalendarDay struct {
	Date  string               `json:"date"`
	Posts []*models.SocialPost `json:"posts"`
}

// Calendar is a date-ordered view of posts
type Calendar struct {
	From  time.Time     `json:"from"`
	To    time.Time     `json:"to"`
	Total int           `json:"total"`
	Days  []CalendarDay `json:"days"`
}

// CaptionRequest asks the AI for a caption
type CaptionRequest struct {
	ClientID  uuid.UUID       `json:"client_id" validate:"required"`
	Platform  models.Platform `json:"platform" validate:"required"`
	Brief     string          `json:"brief" validate:"required,max=2000"`
	Tone      string          `json:"tone" validate:"max=100"`
	Hashtags  bool            `json:"hashtags"`
	Providers []string        `json:"providers"`
}

// CaptionResult is a generated caption that fits the platform
type CaptionResult struct {
	Caption   string `json:"caption"`
	Platform  string `json:"platform"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Truncated bool   `json:"truncated"`
}

// PublishReport summarizes a PublishDue run
type PublishReport struct {
	Due       int `json:"due"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

// Service schedules client posts and publishes them when due
type Service struct {
	posts     repositories.SocialPostRepository
	clients   repositories.ClientRepository
	publisher Publisher
	generator ai.Generator
	notifier  notification.Notifier
	recorder  audit.Recorder
	logger    *zap.Logger
	config    Config
	now       func() time.Time
}

// NewService creates a social service. publisher may be nil when no
// publishing endpoint is configured; PublishDue then fails.
func NewService(
	posts repositories.SocialPostRepository,
	clients repositories.ClientRepository,
	publisher Publisher,
	generator ai.Generator,
	notifier notification.Notifier,
	recorder audit.Recorder,
	logger *zap.Logger,
	config Config,
) *Service {
	if config.DueBatch <= 0 {
		config.DueBatch = defaultDueBatch
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		posts:     posts,
		clients:   clients,
		publisher: publisher,
		generator: generator,
		notifier:  notifier,
		recorder:  recorder,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Schedule validates and stores a post for later publishing
func (s *Service) Schedule(ctx context.Context, orgID uuid.UUID, actor services.Actor, req ScheduleRequest) (*models.SocialPost, error) {
	content := strings.TrimSpace(req.Content)
	if err := validateContent(req.Platform, content); err != nil {
		return nil, err
	}
	if len(req.MediaURLs) > maxMediaURLs {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "too many media attachments", nil).
			WithDetail("max", maxMediaURLs)
	}
	now := s.now().UTC()
	if !req.ScheduledAt.After(now) {
		return nil, services.ErrScheduleInPast
	}
	if _, err := s.getClient(ctx, orgID, req.ClientID); err != nil {
		return nil, err
	}

	post := &models.SocialPost{
		ID:          uuid.New(),
		OrgID:       orgID,
		ClientID:    req.ClientID,
		Platform:    req.Platform,
		Content:     content,
		MediaURLs:   req.MediaURLs,
		ScheduledAt: req.ScheduledAt.UTC(),
		Status:      models.PostScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if post.MediaURLs == nil {
		post.MediaURLs = []string{}
	}
	if actor.EmployeeID != uuid.Nil {
		creator := actor.EmployeeID
		post.CreatedBy = &creator
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, services.WrapInternal("failed to schedule post", err)
	}

	s.logger.Info("post scheduled",
		zap.String("org_id", orgID.String()),
		zap.String("post_id", post.ID.String()),
		zap.String("platform", string(post.Platform)),
		zap.Time("scheduled_at", post.ScheduledAt),
	)
	return post, nil
}

// Get returns one post
func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*models.SocialPost, error) {
	post, err := s.posts.GetByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrPostNotFound
		}
		return nil, services.WrapInternal("failed to get post", err)
	}
	return post, nil
}

// Reschedule moves or edits a post that has not gone out yet
func (s *Service) Reschedule(ctx context.Context, orgID, id uuid.UUID, req RescheduleRequest) (*models.SocialPost, error) {
	post, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostScheduled {
		return nil, lockedError(post)
	}

	now := s.now().UTC()
	if req.ScheduledAt != nil {
		if !req.ScheduledAt.After(now) {
			return nil, services.ErrScheduleInPast
		}
		post.ScheduledAt = req.ScheduledAt.UTC()
	}
	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if err := validateContent(post.Platform, content); err != nil {
			return nil, err
		}
		post.Content = content
	}
	if req.MediaURLs != nil {
		if len(req.MediaURLs) > maxMediaURLs {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "too many media attachments", nil).
				WithDetail("max", maxMediaURLs)
		}
		post.MediaURLs = req.MediaURLs
	}

	post.UpdatedAt = now
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, services.WrapInternal("failed to reschedule post", err)
	}
	return post, nil
}

// Cancel withdraws a draft or scheduled post
func (s *Service) Cancel(ctx context.Context, orgID, id uuid.UUID) (*models.SocialPost, error) {
	post, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	switch post.Status {
	case models.PostCancelled:
		return post, nil
	case models.PostScheduled, models.PostDraft:
	default:
		return nil, lockedError(post)
	}

	post.Status = models.PostCancelled
	post.UpdatedAt = s.now().UTC()
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, services.WrapInternal("failed to cancel post", err)
	}
	return post, nil
}

// Calendar returns posts in [From, To) grouped by UTC date
func (s *Service) Calendar(ctx context.Context, orgID uuid.UUID, q CalendarQuery) (*Calendar, error) {
	if q.From.IsZero() || q.To.IsZero() || !q.To.After(q.From) {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "calendar range must have from before to", nil)
	}
	if q.To.Sub(q.From) > maxCalendarRange {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "calendar range is too long", nil).
			WithDetail("max_days", int(maxCalendarRange/(24*time.Hour)))
	}

	posts, err := s.posts.ListRange(ctx, orgID, repositories.PostFilter{
		ClientID: q.ClientID,
		Statuses: q.Statuses,
		From:     q.From.UTC(),
		To:       q.To.UTC(),
	})
	if err != nil {
		return nil, services.WrapInternal("failed to load calendar", err)
	}

	cal := &Calendar{From: q.From.UTC(), To: q.To.UTC(), Total: len(posts), Days: []CalendarDay{}}
	for _, post := range posts {
		date := post.ScheduledAt.UTC().Format("2006-01-02")
		if n := len(cal.Days); n > 0 && cal.Days[n-1].Date == date {
			cal.Days[n-1].Posts = append(cal.Days[n-1].Posts, post)
			continue
		}
		cal.Days = append(cal.Days, CalendarDay{Date: date, Posts: []*models.SocialPost{post}})
	}
	return cal, nil
}

// ListForClient returns the client's scheduled and published posts in the window
func (s *Service) ListForClient(ctx context.Context, orgID, clientID uuid.UUID, from, to time.Time) ([]*models.SocialPost, error) {
	posts, err := s.posts.ListRange(ctx, orgID, repositories.PostFilter{
		ClientID: &clientID,
		Statuses: []models.PostStatus{models.PostScheduled, models.PostPublished},
		From:     from.UTC(),
		To:       to.UTC(),
	})
	if err != nil {
		return nil, services.WrapInternal("failed to list posts", err)
	}
	return posts, nil
}

// GenerateCaption drafts a caption with the AI router, cut to the platform limit
func (s *Service) GenerateCaption(ctx context.Context, orgID uuid.UUID, actor services.Actor, req CaptionRequest) (*CaptionResult, error) {
	if !req.Platform.Valid() {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "unsupported platform", nil).
			WithDetail("platform", string(req.Platform))
	}
	brief := strings.TrimSpace(req.Brief)
	if brief == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "caption brief is required", nil)
	}
	client, err := s.getClient(ctx, orgID, req.ClientID)
	if err != nil {
		return nil, err
	}

	limit := req.Platform.CharLimit()
	var userID *uuid.UUID
	if actor.EmployeeID != uuid.Nil {
		id := actor.EmployeeID
		userID = &id
	}
	gen, err := s.generator.Generate(ctx, ai.GenerateRequest{
		OrgID:        orgID,
		UserID:       userID,
		ClientID:     &client.ID,
		Feature:      ai.FeatureSocialCaption,
		SystemPrompt: captionSystemPrompt(req.Platform, limit),
		Prompt:       captionPrompt(client, brief, req),
		MaxTokens:    captionTokens(limit),
		Temperature:  0.8,
		Providers:    req.Providers,
		RequestID:    actor.RequestID,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	caption := cleanCaption(gen.Content)
	if caption == "" {
		return nil, services.NewDomainError(services.ErrorTypeExternal, "AI returned an empty caption", nil).
			WithDetail("provider", gen.Provider)
	}
	result := &CaptionResult{
		Caption:  req.Platform.Truncate(caption),
		Platform: string(req.Platform),
		Provider: gen.Provider,
		Model:    gen.Model,
	}
	result.Truncated = result.Caption != caption
	return result, nil
}

// PublishDue publishes every scheduled post whose time has come. A failed
// post is marked failed and its creator notified; the run carries on.
func (s *Service) PublishDue(ctx context.Context) (*PublishReport, error) {
	if s.publisher == nil {
		return nil, services.NewDomainError(services.ErrorTypeExternal, "no social publisher configured", nil)
	}

	now := s.now().UTC()
	due, err := s.posts.ListDue(ctx, now, s.config.DueBatch)
	if err != nil {
		return nil, services.WrapInternal("failed to list due posts", err)
	}

	report := &PublishReport{Due: len(due)}
	for _, post := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if s.publishOne(ctx, post) {
			report.Published++
		} else {
			report.Failed++
		}
	}

	if report.Due > 0 {
		s.logger.Info("due posts processed",
			zap.Int("due", report.Due),
			zap.Int("published", report.Published),
			zap.Int("failed", report.Failed),
		)
	}
	return report, nil
}

func (s *Service) publishOne(ctx context.Context, post *models.SocialPost) bool {
	result, err := s.publisher.Publish(ctx, post)
	now := s.now().UTC()
	post.UpdatedAt = now

	if err != nil {
		post.Status = models.PostFailed
		post.ErrorMessage = err.Error()
		if uerr := s.posts.Update(ctx, post); uerr != nil {
			s.logger.Error("failed to mark post failed", zap.String("post_id", post.ID.String()), zap.Error(uerr))
		}
		s.logger.Warn("post publish failed",
			zap.String("org_id", post.OrgID.String()),
			zap.String("post_id", post.ID.String()),
			zap.String("platform", string(post.Platform)),
			zap.Error(err),
		)
		s.recorder.Record(models.NewAuditLog(post.OrgID, models.AuditActionPostFailed, "social_post").
			WithResource(post.ID).
			WithClient(post.ClientID).
			WithError(publishStatus(err), err.Error()))
		s.notifyCreator(ctx, post)
		return false
	}

	post.Status = models.PostPublished
	post.PublishedAt = &now
	post.ErrorMessage = ""
	if result != nil {
		post.ExternalID = result.ExternalID
	}
	if err := s.posts.Update(ctx, post); err != nil {
		s.logger.Error("failed to mark post published", zap.String("post_id", post.ID.String()), zap.Error(err))
	}
	s.recorder.Record(models.NewAuditLog(post.OrgID, models.AuditActionPostPublished, "social_post").
		WithResource(post.ID).
		WithClient(post.ClientID).
		WithDetails(map[string]interface{}{"platform": string(post.Platform), "external_id": post.ExternalID}))
	return true
}

func (s *Service) notifyCreator(ctx context.Context, post *models.SocialPost) {
	if s.notifier == nil || post.CreatedBy == nil {
		return
	}
	_, err := s.notifier.Notify(ctx, notification.NotifyRequest{
		OrgID:       post.OrgID,
		RecipientID: *post.CreatedBy,
		Kind:        models.KindPostFailed,
		Title:       fmt.Sprintf("Your %s post could not be published", post.Platform),
		Body:        post.ErrorMessage,
		Link:        "/social/posts/" + post.ID.String(),
		Channels:    []models.Channel{models.ChannelEmail},
	})
	if err != nil {
		s.logger.Warn("failed to notify post creator", zap.String("post_id", post.ID.String()), zap.Error(err))
	}
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

func validateContent(platform models.Platform, content string) error {
	if !platform.Valid() {
		return services.NewDomainError(services.ErrorTypeValidation, "unsupported platform", nil).
			WithDetail("platform", string(platform))
	}
	if content == "" {
		return services.NewDomainError(services.ErrorTypeValidation, "post content is required", nil)
	}
	if !platform.Fits(content) {
		return services.NewDomainError(services.ErrorTypeValidation, services.ErrContentTooLong.Message, nil).
			WithDetail("platform", string(platform)).
			WithDetail("limit", platform.CharLimit()).
			WithDetail("length", utf8.RuneCountInString(content))
	}
	return nil
}

func lockedError(post *models.SocialPost) error {
	return services.NewDomainError(services.ErrorTypeConflict, services.ErrPostLocked.Message, nil).
		WithDetail("status", string(post.Status))
}

func publishStatus(err error) int {
	var perr *PublishError
	if errors.As(err, &perr) {
		return perr.StatusCode
	}
	return 0
}

func captionSystemPrompt(platform models.Platform, limit int) string {
	return fmt.Sprintf("You write social media captions for a marketing agency's clients. "+
		"Write one caption for %s in at most %d characters. Return only the caption text, "+
		"without quotes or commentary.", platform, limit)
}

func captionPrompt(client *models.Client, brief string, req CaptionRequest) string {
	var b strings.Builder
	name := client.Company
	if name == "" {
		name = client.Name
	}
	fmt.Fprintf(&b, "Brand: %s\n", name)
	fmt.Fprintf(&b, "Brief: %s\n", brief)
	if tone := strings.TrimSpace(req.Tone); tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", tone)
	}
	if req.Hashtags {
		b.WriteString("End with two to four relevant hashtags.\n")
	} else {
		b.WriteString("Do not use hashtags.\n")
	}
	return b.String()
}

// captionTokens budgets about three characters per token
func captionTokens(limit int) int {
	tokens := limit/3 + 50
	if tokens > 1000 {
		tokens = 1000
	}
	return tokens
}

func cleanCaption(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
