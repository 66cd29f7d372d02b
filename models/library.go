package models

import (
	"gorm.io/gorm"
)

// Library is a tenant of the platform. Students, payments and reminders all belong to one.
type Library struct {
	gorm.Model
	Name         string `json:"name" gorm:"not null"`
	ContactEmail string `json:"contact_email" gorm:"uniqueIndex;not null"`
	ContactPhone string `json:"contact_phone"`
	Address      string `json:"address"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`

	// Razorpay credentials owned by the library. Used only once verified,
	// otherwise the platform account collects on its behalf.
	RazorpayKeyID         string `json:"razorpay_key_id,omitempty"`
	RazorpayKeySecret     string `json:"-"`
	RazorpayWebhookSecret string `json:"-"`
	IsVerifiedRazorpay    bool   `json:"is_verified_razorpay" gorm:"default:false"`

	EmailNotifications bool `json:"email_notifications" gorm:"default:true"`
}

// HasOwnGateway reports whether payments should go to the library's own Razorpay account
func (l *Library) HasOwnGateway() bool {
	return l != nil && l.IsVerifiedRazorpay && l.RazorpayKeyID != "" && l.RazorpayKeySecret != ""
}
