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

type postRepository interface {
	postReader
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	SoftDelete(ctx context.Context, id string, ts time.Time) error
}

type postNotifier interface {
	NotifyNewPost(threadID, postID, authorEmail string)
}

// PostService handles the post sub-lifecycle. Edits and removals are
// strictly author-only: moderators shape threads, they do not police
// individual posts.
type PostService struct {
	posts         postRepository
	threads       threadRepository
	subscriptions subscriptionRepository
	bus           events.Bus
	notifier      postNotifier
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewPostService constructs the service.
func NewPostService(posts postRepository, threads threadRepository, subscriptions subscriptionRepository, bus events.Bus, validate *validator.Validate, logger *zap.Logger) *PostService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{
		posts:         posts,
		threads:       threads,
		subscriptions: subscriptions,
		bus:           bus,
		validator:     validate,
		logger:        logger,
	}
}

// WithNotifier attaches the subscriber fan-out hook.
func (s *PostService) WithNotifier(n postNotifier) *PostService {
	s.notifier = n
	return s
}

// AddPostRequest describes the reply payload. ParentPostID enables nested
// replies; nesting depth is a presentation concern, not a storage limit.
type AddPostRequest struct {
	Content      string          `json:"content" validate:"required"`
	RichContent  json.RawMessage `json:"rich_content"`
	ParentPostID *string         `json:"parent_post_id"`
}

// UpdatePostRequest describes the edit payload.
type UpdatePostRequest struct {
	Content     string          `json:"content" validate:"required"`
	RichContent json.RawMessage `json:"rich_content"`
}

// Add appends a post to an unlocked thread and returns the recomposed
// thread detail so callers always read their own write.
func (s *PostService) Add(ctx context.Context, threadID, actorEmail string, req AddPostRequest) (*models.ThreadDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.IsLocked {
		return nil, appErrors.Clone(appErrors.ErrThreadLocked, "thread is locked; new replies are not accepted")
	}
	if req.ParentPostID != nil {
		parent, err := s.loadPost(ctx, *req.ParentPostID)
		if err != nil {
			return nil, err
		}
		if parent.ThreadID != threadID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "parent post belongs to a different thread")
		}
	}

	post := &models.Post{
		ThreadID:     threadID,
		ParentPostID: req.ParentPostID,
		AuthorEmail:  actorEmail,
		Content:      req.Content,
		RichContent:  req.RichContent,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post", zap.String("thread_id", threadID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create post")
	}

	if err := s.threads.TouchActivity(ctx, threadID, post.CreatedAt); err != nil {
		s.logger.Warn("failed to bump thread activity", zap.String("thread_id", threadID), zap.Error(err))
	} else {
		thread.LastActivityAt = post.CreatedAt
	}

	emitEvent(ctx, s.bus, s.logger, events.PostCreated, events.PostPayload{ThreadID: threadID, PostID: post.ID})
	if s.notifier != nil {
		s.notifier.NotifyNewPost(threadID, post.ID, actorEmail)
	}
	return composeThreadDetail(ctx, thread, s.posts, s.subscriptions, actorEmail, s.logger)
}

// Update edits a post. Author-only, no moderator override.
func (s *PostService) Update(ctx context.Context, postID, actorEmail string, req UpdatePostRequest) (*models.ThreadDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorEmail != actorEmail {
		return nil, appErrors.Clone(appErrors.ErrInsufficientPermissions, "only the post author may edit it")
	}

	post.Content = req.Content
	if len(req.RichContent) > 0 {
		post.RichContent = req.RichContent
	}
	if err := s.posts.Update(ctx, post); err != nil {
		s.logger.Error("failed to update post", zap.String("post_id", postID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update post")
	}

	emitEvent(ctx, s.bus, s.logger, events.PostUpdated, events.PostPayload{ThreadID: post.ThreadID, PostID: post.ID})
	return s.detailAfterMutation(ctx, post.ThreadID, actorEmail)
}

// Delete soft-deletes a post. Author-only; the row survives so replies to
// it keep their parent.
func (s *PostService) Delete(ctx context.Context, postID, actorEmail string) (*models.ThreadDetail, error) {
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorEmail != actorEmail {
		return nil, appErrors.Clone(appErrors.ErrInsufficientPermissions, "only the post author may delete it")
	}

	if err := s.posts.SoftDelete(ctx, postID, time.Now().UTC()); err != nil {
		s.logger.Error("failed to delete post", zap.String("post_id", postID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to delete post")
	}

	emitEvent(ctx, s.bus, s.logger, events.PostDeleted, events.PostPayload{ThreadID: post.ThreadID, PostID: post.ID})
	return s.detailAfterMutation(ctx, post.ThreadID, actorEmail)
}

func (s *PostService) detailAfterMutation(ctx context.Context, threadID, actorEmail string) (*models.ThreadDetail, error) {
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return composeThreadDetail(ctx, thread, s.posts, s.subscriptions, actorEmail, s.logger)
}

func (s *PostService) loadThread(ctx context.Context, threadID string) (*models.Thread, error) {
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

func (s *PostService) loadPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		s.logger.Error("failed to load post", zap.String("post_id", postID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load post")
	}
	if post.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
	}
	return post, nil
}
