package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus-events/backend/internal/model"
	pkgerrors "campus-events/backend/pkg/errors"
)

// EventFilter list filters; empty fields match everything
type EventFilter struct {
	Status       model.EventStatus
	Type         model.EventType
	Scope        model.EventScope
	DepartmentID string
	Keyword      string
	CreatorID    string // only events created by this user

	// ApprovedOnly hides unapproved events, except those created by
	// VisibleCreatorID when it is set.
	ApprovedOnly     bool
	VisibleCreatorID string

	Phase model.EventPhase
	Now   time.Time
}

// EventRepository event data access
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, event *model.Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter EventFilter, offset, limit int) ([]model.Event, int64, error)
	ListApprovedSince(ctx context.Context, since time.Time) ([]model.Event, error)
	CountByStatus(ctx context.Context) (map[model.EventStatus]int64, error)
	LockForRegistration(ctx context.Context, id string) error
}

type eventRepo struct {
	db *gorm.DB
}

// NewEventRepo creates an EventRepository
func NewEventRepo(db *gorm.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Omit("Creator", "Department").Create(event).Error
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var event model.Event
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Department").
		Where("event_id = ?", id).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Update writes every mutable column guarded by the version column
func (r *eventRepo) Update(ctx context.Context, event *model.Event) error {
	oldVersion := event.Version
	result := r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("event_id = ? AND version = ?", event.EventID, oldVersion).
		Updates(map[string]interface{}{
			"title":                 event.Title,
			"description":           event.Description,
			"type":                  event.Type,
			"custom_type":           event.CustomType,
			"scope":                 event.Scope,
			"status":                event.Status,
			"venue":                 event.Venue,
			"start_date":            event.StartDate,
			"end_date":              event.EndDate,
			"registration_deadline": event.RegistrationDeadline,
			"team_size_min":         event.TeamSizeMin,
			"team_size_max":         event.TeamSizeMax,
			"requires_mentor":       event.RequiresMentor,
			"allowed_departments":   event.AllowedDepartments,
			"allowed_years":         event.AllowedYears,
			"rounds":                event.Rounds,
			"prizes":                event.Prizes,
			"contacts":              event.Contacts,
			"rules":                 event.Rules,
			"max_participants":      event.MaxParticipants,
			"images":                event.Images,
			"department_id":         event.DepartmentID,
			"reviewed_by":           event.ReviewedBy,
			"reviewed_at":           event.ReviewedAt,
			"review_comment":        event.ReviewComment,
			"updated_by":            event.UpdatedBy,
			"updated_at":            gorm.Expr("NOW()"),
			"version":               oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	event.Version = oldVersion + 1
	return nil
}

func (r *eventRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ?", id).
		Delete(&model.Event{}).Error
}

func (r *eventRepo) List(ctx context.Context, filter EventFilter, offset, limit int) ([]model.Event, int64, error) {
	var events []model.Event
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Event{})
	if filter.ApprovedOnly {
		if filter.VisibleCreatorID != "" {
			db = db.Where("(status = ? OR creator_id = ?)", model.EventStatusApproved, filter.VisibleCreatorID)
		} else {
			db = db.Where("status = ?", model.EventStatusApproved)
		}
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.Scope != "" {
		db = db.Where("scope = ?", filter.Scope)
	}
	if filter.DepartmentID != "" {
		db = db.Where("department_id = ?", filter.DepartmentID)
	}
	if filter.CreatorID != "" {
		db = db.Where("creator_id = ?", filter.CreatorID)
	}
	if filter.Keyword != "" {
		db = db.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(filter.Keyword)+"%")
	}
	if filter.Phase != "" {
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		db = db.Where("status = ?", model.EventStatusApproved)
		switch filter.Phase {
		case model.EventPhaseUpcoming:
			db = db.Where("start_date > ?", now)
		case model.EventPhaseOngoing:
			db = db.Where("start_date <= ? AND end_date > ?", now, now)
		case model.EventPhasePast:
			db = db.Where("end_date <= ?", now)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Creator").
		Preload("Department").
		Offset(offset).Limit(limit).
		Order("start_date DESC").
		Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// ListApprovedSince approved events that end after since, in start order
func (r *eventRepo) ListApprovedSince(ctx context.Context, since time.Time) ([]model.Event, error) {
	var events []model.Event
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date > ?", model.EventStatusApproved, since).
		Order("start_date ASC").
		Find(&events).Error
	return events, err
}

func (r *eventRepo) CountByStatus(ctx context.Context) (map[model.EventStatus]int64, error) {
	var rows []struct {
		Status model.EventStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Event{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[model.EventStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// LockForRegistration takes a row lock on the event until the surrounding
// transaction ends, serializing capacity checks across instances
func (r *eventRepo) LockForRegistration(ctx context.Context, id string) error {
	var event model.Event
	return r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("event_id").
		Where("event_id = ?", id).
		Take(&event).Error
}
