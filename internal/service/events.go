package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-forum-api/internal/events"
)

// emitEvent broadcasts a domain event after a successful mutation. Events
// are best-effort notifications, not part of the durability contract: a
// failed emit is logged and never fails the enclosing operation.
func emitEvent(ctx context.Context, bus events.Bus, logger *zap.Logger, name string, payload interface{}) {
	if bus == nil {
		return
	}
	if err := bus.Emit(ctx, name, payload); err != nil {
		logger.Warn("event emission failed", zap.String("event", name), zap.Error(err))
	}
}
