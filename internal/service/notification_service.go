package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-forum-api/internal/events"
	"github.com/noah-isme/lms-forum-api/internal/models"
	"github.com/noah-isme/lms-forum-api/pkg/jobs"
)

type subscriptionLister interface {
	ListNotifiable(ctx context.Context, threadID string) ([]models.Subscription, error)
}

// NotificationConfig sizes the fan-out worker pool.
type NotificationConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService fans a new post out to the thread's notify-enabled
// subscribers as per-user bus events. The whole pipeline is best-effort:
// enqueue and emit failures are logged, never surfaced to the poster.
type NotificationService struct {
	subscriptions subscriptionLister
	bus           events.Bus
	logger        *zap.Logger
	queue         *jobs.Queue
}

type newPostJob struct {
	ThreadID    string
	PostID      string
	AuthorEmail string
}

// NewNotificationService constructs the service and its queue.
func NewNotificationService(subscriptions subscriptionLister, bus events.Bus, logger *zap.Logger, cfg NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{subscriptions: subscriptions, bus: bus, logger: logger}
	svc.queue = jobs.NewQueue("post-notifications", svc.fanOut, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the fan-out workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyNewPost schedules subscriber notification for a freshly created
// post.
func (s *NotificationService) NotifyNewPost(threadID, postID, authorEmail string) {
	job := jobs.Job{
		ID:      fmt.Sprintf("post-%s", postID),
		Type:    "new_post",
		Payload: newPostJob{ThreadID: threadID, PostID: postID, AuthorEmail: authorEmail},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue post notification", zap.String("post_id", postID), zap.Error(err))
	}
}

func (s *NotificationService) fanOut(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(newPostJob)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}

	subscribers, err := s.subscriptions.ListNotifiable(ctx, payload.ThreadID)
	if err != nil {
		return fmt.Errorf("load subscribers for thread %s: %w", payload.ThreadID, err)
	}

	for _, sub := range subscribers {
		if strings.EqualFold(sub.UserEmail, payload.AuthorEmail) {
			continue
		}
		event := events.NotificationPayload{
			UserEmail: sub.UserEmail,
			ThreadID:  payload.ThreadID,
			PostID:    payload.PostID,
		}
		if err := s.bus.Emit(ctx, events.Notification, event); err != nil {
			s.logger.Warn("failed to emit notification",
				zap.String("thread_id", payload.ThreadID),
				zap.String("user", sub.UserEmail),
				zap.Error(err))
		}
	}
	return nil
}
