package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StudentStatus values
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusInactive  StudentStatus = "inactive"
	StudentStatusSuspended StudentStatus = "suspended"
)

// SubscriptionState tracks where a student stands in the monthly billing cycle.
// NextDueDate only ever moves forward, one calendar month per settled payment.
type SubscriptionState struct {
	NextDueDate               time.Time       `json:"next_due_date" gorm:"not null;index"`
	IsPaymentDoneForThisMonth bool            `json:"is_payment_done_for_this_month" gorm:"not null;default:false"`
	Fee                       decimal.Decimal `json:"fee" gorm:"type:numeric(12,2);not null"`
}

// Settle records one paid month: the due date moves a month ahead and the period is marked paid
func (s *SubscriptionState) Settle() {
	s.NextDueDate = AddMonths(s.NextDueDate, 1)
	s.IsPaymentDoneForThisMonth = true
}

// Student is a library member billed monthly
type Student struct {
	gorm.Model
	LibraryID uint          `json:"library_id" gorm:"not null;index"`
	UserID    uint          `json:"user_id" gorm:"not null;uniqueIndex"`
	User      User          `json:"user" gorm:"foreignKey:UserID"`
	JoinDate  time.Time     `json:"join_date" gorm:"not null"`
	Address   string        `json:"address"`
	Timing    string        `json:"timing"`
	Status    StudentStatus `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	IsDeleted bool          `json:"is_deleted" gorm:"not null;default:false;index"`

	SubscriptionState `gorm:"embedded"`
}

// Billable reports whether reminders and automatic orders apply to the student
func (s *Student) Billable() bool {
	return !s.IsDeleted && s.Status == StudentStatusActive
}
