package models

import (
	"time"
)

// Reminder status values
const (
	ReminderStatusPending = "pending"
	ReminderStatusSent    = "sent"
	ReminderStatusFailed  = "failed"
)

// Reminder types and channels
const (
	ReminderTypePayment  = "payment"
	ReminderChannelEmail = "email"
)

// Reminder is a notification sent to a student about an upcoming or overdue fee
type Reminder struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	StudentID       uint       `json:"student_id" gorm:"not null;index"`
	LibraryID       uint       `json:"library_id" gorm:"not null;index"`
	PaymentRecordID *uint      `json:"payment_record_id,omitempty"`
	Type            string     `json:"type" gorm:"type:varchar(20);not null"`
	Channel         string     `json:"channel" gorm:"type:varchar(20);not null"`
	Message         string     `json:"message"`
	DueDate         time.Time  `json:"due_date"`
	Status          string     `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	Error           string     `json:"error,omitempty"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
