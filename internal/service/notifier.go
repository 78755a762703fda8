package service

import (
	"context"

	"go.uber.org/zap"

	"campus-events/backend/internal/model"
	"campus-events/backend/internal/repository"
)

// notifier writes in-app notifications after the triggering change has
// committed. Delivery is best effort: failures are logged, never returned.
type notifier struct {
	repo   *repository.Repository
	logger *zap.Logger
}

func newNotifier(repo *repository.Repository, logger *zap.Logger) *notifier {
	return &notifier{repo: repo, logger: logger}
}

func (n *notifier) send(ctx context.Context, items ...model.Notification) {
	if n == nil || len(items) == 0 {
		return
	}
	if err := n.repo.Notification.BatchCreate(ctx, items); err != nil {
		n.logger.Warn("write notifications failed", zap.Int("count", len(items)), zap.Error(err))
	}
}

func newNotification(userID, typ, title, content, relatedType, relatedID string) model.Notification {
	return model.Notification{
		UserID:      userID,
		Type:        typ,
		Title:       title,
		Content:     content,
		RelatedType: &relatedType,
		RelatedID:   &relatedID,
	}
}
