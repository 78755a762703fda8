package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository aggregate entry point for every repository
type Repository struct {
	db *gorm.DB

	User         UserRepository
	Department   DepartmentRepository
	Class        ClassRepository
	Event        EventRepository
	Team         TeamRepository
	Registration RegistrationRepository
	Notification NotificationRepository
}

// NewRepository creates the aggregate on db (a plain connection or an open transaction)
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		User:         NewUserRepo(db),
		Department:   NewDepartmentRepo(db),
		Class:        NewClassRepo(db),
		Event:        NewEventRepo(db),
		Team:         NewTeamRepo(db),
		Registration: NewRegistrationRepo(db),
		Notification: NewNotificationRepo(db),
	}
}

// BeginTx opens a transaction. A Repository assembled without a database
// (unit tests) returns a nil transaction.
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx rebinds every repository to tx. A nil tx returns r unchanged.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Transaction runs fn inside one transaction, committing when fn returns nil.
// Nested calls become savepoints.
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
