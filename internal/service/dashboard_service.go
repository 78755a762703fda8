package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"campus-events/backend/internal/dto"
	"campus-events/backend/internal/model"
	"campus-events/backend/internal/repository"
	pkgerrors "campus-events/backend/pkg/errors"
)

var ErrDashboardForbidden = pkgerrors.New(pkgerrors.ErrAuthorization, "your role cannot view the dashboard")

// DashboardService read-only aggregates
type DashboardService interface {
	Stats(ctx context.Context, actor Actor) (*dto.DashboardStatsResponse, error)
}

type dashboardService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService creates a DashboardService
func NewDashboardService(repo *repository.Repository, logger *zap.Logger) DashboardService {
	return &dashboardService{repo: repo, logger: logger, now: time.Now}
}

func (s *dashboardService) Stats(ctx context.Context, actor Actor) (*dto.DashboardStatsResponse, error) {
	if !actor.Role.CanViewDashboard() {
		return nil, ErrDashboardForbidden
	}

	resp := &dto.DashboardStatsResponse{
		EventsByStatus: make(map[string]int64),
		EventsByPhase:  make(map[string]int64),
		TeamsByStatus:  make(map[string]int64),
	}

	eventCounts, err := s.repo.Event.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("count events failed", zap.Error(err))
		return nil, err
	}
	for status, n := range eventCounts {
		resp.EventsByStatus[string(status)] = n
	}

	now := s.now()
	for _, phase := range []model.EventPhase{model.EventPhaseUpcoming, model.EventPhaseOngoing, model.EventPhasePast} {
		_, total, err := s.repo.Event.List(ctx, repository.EventFilter{Phase: phase, Now: now}, 0, 1)
		if err != nil {
			s.logger.Error("count events by phase failed", zap.String("phase", string(phase)), zap.Error(err))
			return nil, err
		}
		resp.EventsByPhase[string(phase)] = total
	}

	teamCounts, err := s.repo.Team.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("count teams failed", zap.Error(err))
		return nil, err
	}
	for status, n := range teamCounts {
		resp.TeamsByStatus[string(status)] = n
	}

	if resp.SoloRegistrations, err = s.repo.Registration.Count(ctx); err != nil {
		s.logger.Error("count registrations failed", zap.Error(err))
		return nil, err
	}
	if resp.Users, err = s.repo.User.Count(ctx); err != nil {
		s.logger.Error("count users failed", zap.Error(err))
		return nil, err
	}
	if resp.Departments, err = s.repo.Department.Count(ctx); err != nil {
		s.logger.Error("count departments failed", zap.Error(err))
		return nil, err
	}

	return resp, nil
}
