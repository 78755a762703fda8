package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"campus-events/backend/internal/model"
	pkgerrors "campus-events/backend/pkg/errors"
)

// TeamRepository team and invitation data access
type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	GetByID(ctx context.Context, id string) (*model.Team, error)
	Update(ctx context.Context, team *model.Team) error
	Delete(ctx context.Context, id string) error
	ListByEvent(ctx context.Context, eventID string) ([]model.Team, error)
	ListByUser(ctx context.Context, userID string) ([]model.Team, error)
	ListPendingInvitations(ctx context.Context, userID string) ([]model.Team, error)
	// FindAcceptedTeamID the team of eventID in which userID is creator or an
	// accepted member, ignoring excludeTeamID; "" when there is none
	FindAcceptedTeamID(ctx context.Context, eventID, userID, excludeTeamID string) (string, error)
	ExistsByName(ctx context.Context, eventID, name string) (bool, error)
	CountByEvent(ctx context.Context, eventID string) (int64, error)
	// SumRegisteredHeadcount participants (creators plus accepted members)
	// of registered or verified teams of eventID
	SumRegisteredHeadcount(ctx context.Context, eventID string) (int, error)
	CountByStatus(ctx context.Context) (map[model.TeamStatus]int64, error)
}

type teamRepo struct {
	db *gorm.DB
}

// NewTeamRepo creates a TeamRepository
func NewTeamRepo(db *gorm.DB) TeamRepository {
	return &teamRepo{db: db}
}

// Create inserts the team together with its member rows
func (r *teamRepo) Create(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).
		Omit("Event", "Creator", "Mentor", "Members.User").
		Create(team).Error
}

func (r *teamRepo) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Members.User.Department").
		Preload("Creator.Department").
		Preload("Mentor.Department").
		Preload("Event")
}

func (r *teamRepo) GetByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	err := r.preloaded(ctx).
		Where("team_id = ?", id).
		First(&team).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// Update writes the team row guarded by the version column, then every
// member response. Callers run it inside a transaction.
func (r *teamRepo) Update(ctx context.Context, team *model.Team) error {
	oldVersion := team.Version
	result := r.db.WithContext(ctx).
		Model(&model.Team{}).
		Where("team_id = ? AND version = ?", team.TeamID, oldVersion).
		Updates(map[string]interface{}{
			"name":                team.Name,
			"mentor_id":           team.MentorID,
			"mentor_status":       team.MentorStatus,
			"mentor_responded_at": team.MentorRespondedAt,
			"status":              team.Status,
			"registered_at":       team.RegisteredAt,
			"proof_url":           team.ProofURL,
			"proof_submitted_at":  team.ProofSubmittedAt,
			"verified_at":         team.VerifiedAt,
			"verified_by":         team.VerifiedBy,
			"updated_by":          team.UpdatedBy,
			"updated_at":          gorm.Expr("NOW()"),
			"version":             oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}

	for _, m := range team.Members {
		err := r.db.WithContext(ctx).
			Model(&model.TeamMember{}).
			Where("team_member_id = ?", m.TeamMemberID).
			Updates(map[string]interface{}{
				"status":       m.Status,
				"responded_at": m.RespondedAt,
			}).Error
		if err != nil {
			return err
		}
	}

	team.Version = oldVersion + 1
	return nil
}

// Delete removes the team; member rows cascade
func (r *teamRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("team_id = ?", id).
		Delete(&model.Team{}).Error
}

func (r *teamRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Team, error) {
	var teams []model.Team
	err := r.preloaded(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&teams).Error
	return teams, err
}

// ListByUser teams the user created, mentors or was invited to
func (r *teamRepo) ListByUser(ctx context.Context, userID string) ([]model.Team, error) {
	var teams []model.Team
	err := r.preloaded(ctx).
		Where("creator_id = ? OR mentor_id = ? OR team_id IN (?)",
			userID, userID,
			r.db.Model(&model.TeamMember{}).Select("team_id").Where("user_id = ?", userID)).
		Order("created_at DESC").
		Find(&teams).Error
	return teams, err
}

func (r *teamRepo) ListPendingInvitations(ctx context.Context, userID string) ([]model.Team, error) {
	var teams []model.Team
	err := r.preloaded(ctx).
		Where("(mentor_id = ? AND mentor_status = ?) OR team_id IN (?)",
			userID, model.InviteStatusPending,
			r.db.Model(&model.TeamMember{}).Select("team_id").
				Where("user_id = ? AND status = ?", userID, model.InviteStatusPending)).
		Order("created_at DESC").
		Find(&teams).Error
	return teams, err
}

func (r *teamRepo) FindAcceptedTeamID(ctx context.Context, eventID, userID, excludeTeamID string) (string, error) {
	var team model.Team
	db := r.db.WithContext(ctx).
		Select("team_id").
		Where("event_id = ?", eventID).
		Where("creator_id = ? OR team_id IN (?)",
			userID,
			r.db.Model(&model.TeamMember{}).Select("team_id").
				Where("user_id = ? AND status = ?", userID, model.InviteStatusAccepted))
	if excludeTeamID != "" {
		db = db.Where("team_id <> ?", excludeTeamID)
	}
	err := db.First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return team.TeamID, nil
}

func (r *teamRepo) ExistsByName(ctx context.Context, eventID, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Team{}).
		Where("event_id = ? AND LOWER(name) = ?", eventID, strings.ToLower(strings.TrimSpace(name))).
		Count(&count).Error
	return count > 0, err
}

func (r *teamRepo) CountByEvent(ctx context.Context, eventID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Team{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count, err
}

func (r *teamRepo) SumRegisteredHeadcount(ctx context.Context, eventID string) (int, error) {
	var teams, members int64
	err := r.db.WithContext(ctx).
		Model(&model.Team{}).
		Where("event_id = ? AND registered_at IS NOT NULL", eventID).
		Count(&teams).Error
	if err != nil {
		return 0, err
	}
	err = r.db.WithContext(ctx).
		Model(&model.TeamMember{}).
		Joins("JOIN teams ON teams.team_id = team_members.team_id").
		Where("teams.event_id = ? AND teams.registered_at IS NOT NULL AND team_members.status = ?",
			eventID, model.InviteStatusAccepted).
		Count(&members).Error
	if err != nil {
		return 0, err
	}
	return int(teams + members), nil
}

func (r *teamRepo) CountByStatus(ctx context.Context) (map[model.TeamStatus]int64, error) {
	var rows []struct {
		Status model.TeamStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Team{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[model.TeamStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
