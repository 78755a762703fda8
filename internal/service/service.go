package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"campus-events/backend/config"
	"campus-events/backend/internal/model"
	"campus-events/backend/internal/repository"
	pkgerrors "campus-events/backend/pkg/errors"
	"campus-events/backend/pkg/jwt"
	"campus-events/backend/pkg/redis"
)

// Service aggregate entry point for every service
type Service struct {
	Auth         AuthService
	User         UserService
	Department   DepartmentService
	Class        ClassService
	Event        EventService
	EventImport  EventImportService
	Team         TeamService
	Notification NotificationService
	Dashboard    DashboardService
	Export       ExportService
	Calendar     CalendarService
}

// ErrForbidden generic authorization failure
var ErrForbidden = pkgerrors.New(pkgerrors.ErrAuthorization, "not permitted")

// Actor the authenticated caller of an operation
type Actor struct {
	UserID       string
	Role         model.Role
	DepartmentID string
}

// TokenBlacklist revokes tokens before they expire
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Locker serializes writes to one aggregate across server instances.
// The returned release func must be called once the write has committed.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// NewService creates the service aggregate. rdb may be nil, in which case
// logout is a no-op and team writes rely on the version check alone.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	var (
		locker    Locker = noopLocker{}
		blacklist TokenBlacklist
	)
	if rdb != nil {
		locker = NewRedisLocker(rdb, cfg.Event.TeamLockTTL, cfg.Event.TeamLockWait)
		blacklist = rdb
	}

	loc, err := time.LoadLocation(cfg.Event.Timezone)
	if err != nil {
		logger.Warn("unknown event timezone, falling back to UTC", zap.String("timezone", cfg.Event.Timezone))
		loc = time.UTC
	}

	notifier := newNotifier(repo, logger)
	events := NewEventService(repo, notifier, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:         NewUserService(repo, logger),
		Department:   NewDepartmentService(repo, logger),
		Class:        NewClassService(repo, logger),
		Event:        events,
		EventImport:  NewEventImportService(events, loc, logger),
		Team:         NewTeamService(repo, locker, notifier, logger),
		Notification: NewNotificationService(repo, logger),
		Dashboard:    NewDashboardService(repo, logger),
		Export:       NewExportService(repo, loc, logger),
		Calendar:     NewCalendarService(repo, cfg.Event.CalendarName, cfg.Server.BaseURL, logger),
	}
}

// ── locks ──

// ErrBusy another request holds the lock
var ErrBusy = pkgerrors.New(pkgerrors.ErrOptimisticLock, "resource is being modified by another request, retry shortly")

type redisLocker struct {
	rdb  *redis.Client
	ttl  time.Duration
	wait time.Duration
}

// NewRedisLocker lock on Redis SET NX PX
func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration) Locker {
	return &redisLocker{rdb: rdb, ttl: ttl, wait: wait}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	release, err := l.rdb.AcquireLock(ctx, key, l.ttl, l.wait)
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return nil, ErrBusy
	}
	return release, err
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// isBusinessError whether err is an expected outcome the caller is told
// about, as opposed to an infrastructure failure worth logging
func isBusinessError(err error) bool {
	return errors.Is(err, pkgerrors.ErrValidation) ||
		errors.Is(err, pkgerrors.ErrAuthorization) ||
		errors.Is(err, pkgerrors.ErrInvalidState) ||
		errors.Is(err, pkgerrors.ErrNotFound) ||
		errors.Is(err, pkgerrors.ErrOptimisticLock)
}
