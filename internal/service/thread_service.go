package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-forum-api/internal/events"
	"github.com/noah-isme/lms-forum-api/internal/models"
	appErrors "github.com/noah-isme/lms-forum-api/pkg/errors"
)

type threadRepository interface {
	ListByCategory(ctx context.Context, filter models.ThreadFilter) ([]models.Thread, error)
	GetByID(ctx context.Context, id string) (*models.Thread, error)
	Create(ctx context.Context, thread *models.Thread) error
	Update(ctx context.Context, thread *models.Thread) error
	SetPinned(ctx context.Context, id string, pinned bool) error
	SetLocked(ctx context.Context, id string, locked bool) error
	TouchActivity(ctx context.Context, id string, ts time.Time) error
	Delete(ctx context.Context, id string) error
}

type subscriptionRepository interface {
	Get(ctx context.Context, threadID, userEmail string) (*models.Subscription, error)
	Upsert(ctx context.Context, sub *models.Subscription) error
	Delete(ctx context.Context, threadID, userEmail string) error
}

type postReader interface {
	ListVisibleByThread(ctx context.Context, threadID string) ([]models.Post, error)
	ListReactionsByThread(ctx context.Context, threadID string) ([]models.PostReaction, error)
}

// ThreadService handles thread lifecycle, moderation toggles and
// subscriptions.
type ThreadService struct {
	threads       threadRepository
	categories    categoryRepository
	posts         postReader
	subscriptions subscriptionRepository
	policy        *PolicyService
	bus           events.Bus
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewThreadService constructs the service.
func NewThreadService(threads threadRepository, categories categoryRepository, posts postReader, subscriptions subscriptionRepository, policy *PolicyService, bus events.Bus, validate *validator.Validate, logger *zap.Logger) *ThreadService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThreadService{
		threads:       threads,
		categories:    categories,
		posts:         posts,
		subscriptions: subscriptions,
		policy:        policy,
		bus:           bus,
		validator:     validate,
		logger:        logger,
	}
}

// CreateThreadRequest describes the create payload.
type CreateThreadRequest struct {
	CategoryID  string          `json:"-" validate:"required"`
	Title       string          `json:"title" validate:"required"`
	Content     string          `json:"content" validate:"required"`
	RichContent json.RawMessage `json:"rich_content"`
	ContextType *string         `json:"context_type"`
	ContextID   *string         `json:"context_id"`
	Metadata    json.RawMessage `json:"metadata"`
	Subscribe   bool            `json:"subscribe"`
}

// UpdateThreadRequest describes the update payload. The category is
// immutable and deliberately absent.
type UpdateThreadRequest struct {
	Title       *string         `json:"title"`
	Content     *string         `json:"content"`
	RichContent json.RawMessage `json:"rich_content"`
	Metadata    json.RawMessage `json:"metadata"`
}

// List returns a category's threads pinned-first, then by latest activity.
func (s *ThreadService) List(ctx context.Context, categoryID string, includeLocked bool) ([]models.Thread, error) {
	if _, err := s.loadCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	threads, err := s.threads.ListByCategory(ctx, models.ThreadFilter{CategoryID: categoryID, IncludeLocked: includeLocked})
	if err != nil {
		s.logger.Error("failed to list threads", zap.String("category_id", categoryID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list threads")
	}
	return threads, nil
}

// Create inserts a thread authored by the acting identity and, when asked,
// subscribes the author. The subscription is best-effort: its failure never
// rolls back the thread.
func (s *ThreadService) Create(ctx context.Context, actorEmail string, req CreateThreadRequest) (*models.ThreadDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid thread payload")
	}
	if _, err := s.loadCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	thread := &models.Thread{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		AuthorEmail: actorEmail,
		Content:     req.Content,
		RichContent: req.RichContent,
		ContextType: req.ContextType,
		ContextID:   req.ContextID,
		Metadata:    req.Metadata,
	}
	if err := s.threads.Create(ctx, thread); err != nil {
		s.logger.Error("failed to create thread", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create thread")
	}

	if req.Subscribe {
		sub := &models.Subscription{ThreadID: thread.ID, UserEmail: actorEmail, Notify: true}
		if err := s.subscriptions.Upsert(ctx, sub); err != nil {
			s.logger.Warn("author auto-subscribe failed", zap.String("thread_id", thread.ID), zap.Error(err))
		}
	}

	emitEvent(ctx, s.bus, s.logger, events.ThreadCreated, events.ThreadPayload{CategoryID: thread.CategoryID, ThreadID: thread.ID})
	return s.composeDetail(ctx, thread, actorEmail)
}

// Detail returns the thread, its visible posts oldest-first and, when an
// actor is supplied, that actor's subscription.
func (s *ThreadService) Detail(ctx context.Context, threadID, actorEmail string) (*models.ThreadDetail, error) {
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return s.composeDetail(ctx, thread, actorEmail)
}

// Update modifies a thread. The caller must be the author or hold
// moderator rights; this is the one place both are accepted together.
func (s *ThreadService) Update(ctx context.Context, threadID, actorEmail string, req UpdateThreadRequest) (*models.Thread, error) {
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAuthorOrModerator(ctx, thread, actorEmail); err != nil {
		return nil, err
	}

	if req.Title != nil {
		thread.Title = *req.Title
	}
	if req.Content != nil {
		thread.Content = *req.Content
	}
	if len(req.RichContent) > 0 {
		thread.RichContent = req.RichContent
	}
	if len(req.Metadata) > 0 {
		thread.Metadata = req.Metadata
	}

	if err := s.threads.Update(ctx, thread); err != nil {
		s.logger.Error("failed to update thread", zap.String("thread_id", threadID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update thread")
	}
	emitEvent(ctx, s.bus, s.logger, events.ThreadUpdated, events.ThreadPayload{CategoryID: thread.CategoryID, ThreadID: thread.ID})
	return thread, nil
}

// Delete removes a thread. Author or moderator.
func (s *ThreadService) Delete(ctx context.Context, threadID, actorEmail string) error {
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return err
	}
	if err := s.requireAuthorOrModerator(ctx, thread, actorEmail); err != nil {
		return err
	}
	if err := s.threads.Delete(ctx, threadID); err != nil {
		s.logger.Error("failed to delete thread", zap.String("thread_id", threadID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to delete thread")
	}
	emitEvent(ctx, s.bus, s.logger, events.ThreadDeleted, events.ThreadPayload{ThreadID: threadID})
	return nil
}

// SetPinned pins or unpins a thread. Moderator rights required; authoring
// alone is insufficient.
func (s *ThreadService) SetPinned(ctx context.Context, threadID, actorEmail string, pinned bool) (*models.Thread, error) {
	return s.moderate(ctx, threadID, actorEmail, func(c context.Context, id string) error {
		return s.threads.SetPinned(c, id, pinned)
	})
}

// SetLocked locks or unlocks a thread. Moderator rights required.
func (s *ThreadService) SetLocked(ctx context.Context, threadID, actorEmail string, locked bool) (*models.Thread, error) {
	return s.moderate(ctx, threadID, actorEmail, func(c context.Context, id string) error {
		return s.threads.SetLocked(c, id, locked)
	})
}

func (s *ThreadService) moderate(ctx context.Context, threadID, actorEmail string, apply func(context.Context, string) error) (*models.Thread, error) {
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	moderator, err := s.policy.ModeratorForThread(ctx, thread, actorEmail)
	if err != nil {
		return nil, err
	}
	if !moderator {
		return nil, appErrors.Clone(appErrors.ErrInsufficientPermissions, "moderator rights required")
	}
	if err := apply(ctx, threadID); err != nil {
		s.logger.Error("failed to moderate thread", zap.String("thread_id", threadID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to moderate thread")
	}
	updated, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	emitEvent(ctx, s.bus, s.logger, events.ThreadUpdated, events.ThreadPayload{CategoryID: updated.CategoryID, ThreadID: updated.ID})
	return updated, nil
}

// Subscribe upserts the caller's subscription. Idempotent: subscribing
// twice leaves one row, and the event always reports the declared state.
func (s *ThreadService) Subscribe(ctx context.Context, threadID, userEmail string) (*models.Subscription, error) {
	if _, err := s.loadThread(ctx, threadID); err != nil {
		return nil, err
	}
	sub := &models.Subscription{ThreadID: threadID, UserEmail: userEmail, Notify: true}
	if err := s.subscriptions.Upsert(ctx, sub); err != nil {
		s.logger.Error("failed to subscribe", zap.String("thread_id", threadID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to subscribe")
	}
	emitEvent(ctx, s.bus, s.logger, events.SubscriptionChanged, events.SubscriptionPayload{ThreadID: threadID, UserEmail: userEmail, Subscribed: true})
	return sub, nil
}

// Unsubscribe removes the caller's subscription. A missing row is a no-op
// that still reports the declared state.
func (s *ThreadService) Unsubscribe(ctx context.Context, threadID, userEmail string) error {
	if _, err := s.loadThread(ctx, threadID); err != nil {
		return err
	}
	if err := s.subscriptions.Delete(ctx, threadID, userEmail); err != nil {
		s.logger.Error("failed to unsubscribe", zap.String("thread_id", threadID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to unsubscribe")
	}
	emitEvent(ctx, s.bus, s.logger, events.SubscriptionChanged, events.SubscriptionPayload{ThreadID: threadID, UserEmail: userEmail, Subscribed: false})
	return nil
}

func (s *ThreadService) requireAuthorOrModerator(ctx context.Context, thread *models.Thread, actorEmail string) error {
	if thread.AuthorEmail == actorEmail {
		return nil
	}
	moderator, err := s.policy.ModeratorForThread(ctx, thread, actorEmail)
	if err != nil {
		return err
	}
	if !moderator {
		return appErrors.Clone(appErrors.ErrInsufficientPermissions, "thread author or moderator rights required")
	}
	return nil
}

func (s *ThreadService) loadThread(ctx context.Context, threadID string) (*models.Thread, error) {
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thread not found")
		}
		s.logger.Error("failed to load thread", zap.String("thread_id", threadID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load thread")
	}
	return thread, nil
}

func (s *ThreadService) loadCategory(ctx context.Context, categoryID string) (*models.Category, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		s.logger.Error("failed to load category", zap.String("category_id", categoryID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load category")
	}
	return category, nil
}

func (s *ThreadService) composeDetail(ctx context.Context, thread *models.Thread, actorEmail string) (*models.ThreadDetail, error) {
	return composeThreadDetail(ctx, thread, s.posts, s.subscriptions, actorEmail, s.logger)
}

// composeThreadDetail builds the read model returned after thread and post
// mutations: visible posts oldest-first with reactions attached, plus the
// actor's subscription when known.
func composeThreadDetail(ctx context.Context, thread *models.Thread, posts postReader, subscriptions subscriptionRepository, actorEmail string, logger *zap.Logger) (*models.ThreadDetail, error) {
	visible, err := posts.ListVisibleByThread(ctx, thread.ID)
	if err != nil {
		logger.Error("failed to load thread posts", zap.String("thread_id", thread.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load posts")
	}
	if visible == nil {
		visible = []models.Post{}
	}

	reactions, err := posts.ListReactionsByThread(ctx, thread.ID)
	if err != nil {
		// Reactions are decoration owned by another system; a failed join
		// degrades the view rather than failing the read.
		logger.Warn("failed to load post reactions", zap.String("thread_id", thread.ID), zap.Error(err))
	} else if len(reactions) > 0 {
		byPost := make(map[string][]models.PostReaction, len(reactions))
		for _, reaction := range reactions {
			byPost[reaction.PostID] = append(byPost[reaction.PostID], reaction)
		}
		for i := range visible {
			visible[i].Reactions = byPost[visible[i].ID]
		}
	}

	detail := &models.ThreadDetail{Thread: *thread, Posts: visible}
	if actorEmail != "" {
		sub, err := subscriptions.Get(ctx, thread.ID, actorEmail)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				logger.Error("failed to load subscription", zap.String("thread_id", thread.ID), zap.Error(err))
				return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load subscription")
			}
		} else {
			detail.Subscription = sub
		}
	}
	return detail, nil
}
