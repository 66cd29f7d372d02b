// Package repository defines the persistence boundary of the billing domain.
// Implementations return utils.ErrNotFound for missing rows and utils.ErrConflict
// when a uniqueness rule (such as one live payment per student and month) is hit.
package repository

import (
	"context"
	"time"

	"github.com/Govind-619/LibTrack/models"
)

// LibraryPaymentFilter narrows a library's payment listing
type LibraryPaymentFilter struct {
	Since  time.Time
	Status models.PaymentStatus
	Limit  int
	Skip   int
}

// StudentFilter narrows a library's roster listing
type StudentFilter struct {
	Status         models.StudentStatus
	Search         string
	IncludeDeleted bool
}

// PaymentRepository stores PaymentRecords
type PaymentRepository interface {
	Create(ctx context.Context, record *models.PaymentRecord) error
	Update(ctx context.Context, record *models.PaymentRecord) error
	FindByID(ctx context.Context, id uint) (*models.PaymentRecord, error)
	FindByGatewayOrderID(ctx context.Context, orderID string) (*models.PaymentRecord, error)
	// FindLiveForMonth returns the pending or completed record for (student, month)
	FindLiveForMonth(ctx context.Context, studentID uint, month string) (*models.PaymentRecord, error)
	// ListPendingByStudent returns pending records oldest first
	ListPendingByStudent(ctx context.Context, studentID uint) ([]models.PaymentRecord, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.PaymentRecord, error)
	// ListByLibrary returns one page newest first and the total number of matches
	ListByLibrary(ctx context.Context, libraryID uint, filter LibraryPaymentFilter) ([]models.PaymentRecord, int64, error)
	ListByLibraryMonth(ctx context.Context, libraryID uint, month string) ([]models.PaymentRecord, error)
	ListCompletedByLibrarySince(ctx context.Context, libraryID uint, since time.Time) ([]models.PaymentRecord, error)
}

// StudentRepository stores students and their subscription state
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	FindByID(ctx context.Context, id uint) (*models.Student, error)
	FindByUserID(ctx context.Context, userID uint) (*models.Student, error)
	ListByLibrary(ctx context.Context, libraryID uint, filter StudentFilter) ([]models.Student, error)
	CountByLibrary(ctx context.Context, libraryID uint) (int64, error)
	// ListDueBetween returns billable, unpaid students with from <= NextDueDate < to
	ListDueBetween(ctx context.Context, from, to time.Time) ([]models.Student, error)
	// ResetPaymentFlags clears the paid flag of every student whose due date is at or before asOf
	ResetPaymentFlags(ctx context.Context, asOf time.Time) (int64, error)
	UpdateSubscription(ctx context.Context, studentID uint, state models.SubscriptionState) error
}

// LibraryRepository stores libraries
type LibraryRepository interface {
	Create(ctx context.Context, library *models.Library) error
	Update(ctx context.Context, library *models.Library) error
	FindByID(ctx context.Context, id uint) (*models.Library, error)
	FindByContactEmail(ctx context.Context, email string) (*models.Library, error)
	List(ctx context.Context, activeOnly bool) ([]models.Library, error)
}

// UserRepository stores user accounts
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
}

// ReminderRepository stores sent reminders
type ReminderRepository interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	Update(ctx context.Context, reminder *models.Reminder) error
	ListByStudent(ctx context.Context, studentID uint) ([]models.Reminder, error)
}

// Store groups the repositories and runs units of work atomically
type Store interface {
	Payments() PaymentRepository
	Students() StudentRepository
	Libraries() LibraryRepository
	Users() UserRepository
	Reminders() ReminderRepository
	// Transaction runs fn against a store bound to one transaction.
	// Any error returned by fn rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
