package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Govind-619/LibTrack/utils"
	"gorm.io/gorm"
)

// GormStore is the postgres backed Store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Payments() PaymentRepository   { return &gormPayments{db: s.db} }
func (s *GormStore) Students() StudentRepository   { return &gormStudents{db: s.db} }
func (s *GormStore) Libraries() LibraryRepository  { return &gormLibraries{db: s.db} }
func (s *GormStore) Users() UserRepository         { return &gormUsers{db: s.db} }
func (s *GormStore) Reminders() ReminderRepository { return &gormReminders{db: s.db} }

// Transaction implements Store
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// translate maps gorm errors onto the utils error kinds
func translate(err error, what string, key interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.NotFoundf("%s %v", what, key)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s %v", utils.ErrConflict, what, key)
	}
	return fmt.Errorf("%s %v: %w", what, key, err)
}
