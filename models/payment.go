package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus values
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// PaymentMethod values
type PaymentMethod string

const (
	PaymentMethodGateway PaymentMethod = "gateway"
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodOther   PaymentMethod = "other"
)

// CurrencyINR is the only currency the platform bills in
const CurrencyINR = "INR"

// PaymentRecord is one billing attempt for one student and one month.
// At most one record per (student, month) is pending or completed at a time.
type PaymentRecord struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	StudentID   uint            `json:"student_id" gorm:"not null;index:idx_payment_records_student_month_status,priority:1"`
	LibraryID   uint            `json:"library_id" gorm:"not null;index:idx_payment_records_library_date,priority:1"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency    string          `json:"currency" gorm:"type:varchar(3);not null;default:'INR'"`
	Month       string          `json:"month" gorm:"type:varchar(7);not null;index:idx_payment_records_student_month_status,priority:2"`
	Description string          `json:"description"`

	GatewayOrderID   string `json:"gateway_order_id,omitempty" gorm:"type:varchar(64);index"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty" gorm:"type:varchar(64)"`
	GatewayRefundID  string `json:"gateway_refund_id,omitempty" gorm:"type:varchar(64)"`

	Status        PaymentStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index:idx_payment_records_student_month_status,priority:3"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"type:varchar(20);not null;default:'gateway'"`

	// RefundDue marks a failed record whose order was captured after its month
	// was paid through another order.
	RefundDue    bool             `json:"refund_due" gorm:"not null;default:false"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty" gorm:"type:numeric(12,2)"`
	RefundReason string           `json:"refund_reason,omitempty"`
	RefundDate   *time.Time       `json:"refund_date,omitempty"`
	RefundedBy   *uint            `json:"refunded_by,omitempty"`

	PaymentDate time.Time `json:"payment_date" gorm:"not null;index:idx_payment_records_library_date,priority:2"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OccupiesMonth reports whether the record blocks another billing attempt for the same month
func (p *PaymentRecord) OccupiesMonth() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusCompleted
}
