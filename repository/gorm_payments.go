package repository

import (
	"context"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"gorm.io/gorm"
)

var livePaymentStatuses = []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusCompleted}

type gormPayments struct {
	db *gorm.DB
}

func (r *gormPayments) Create(ctx context.Context, record *models.PaymentRecord) error {
	return translate(r.db.WithContext(ctx).Create(record).Error, "payment for month", record.Month)
}

func (r *gormPayments) Update(ctx context.Context, record *models.PaymentRecord) error {
	return translate(r.db.WithContext(ctx).Save(record).Error, "payment", record.ID)
}

func (r *gormPayments) FindByID(ctx context.Context, id uint) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, translate(err, "payment", id)
	}
	return &record, nil
}

func (r *gormPayments) FindByGatewayOrderID(ctx context.Context, orderID string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("gateway_order_id = ?", orderID).
		Order("id DESC").
		First(&record).Error
	if err != nil {
		return nil, translate(err, "payment for order", orderID)
	}
	return &record, nil
}

func (r *gormPayments) FindLiveForMonth(ctx context.Context, studentID uint, month string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND month = ? AND status IN ?", studentID, month, livePaymentStatuses).
		First(&record).Error
	if err != nil {
		return nil, translate(err, "payment for month", month)
	}
	return &record, nil
}

func (r *gormPayments) ListPendingByStudent(ctx context.Context, studentID uint) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND status = ?", studentID, models.PaymentStatusPending).
		Order("payment_date ASC, id ASC").
		Find(&records).Error
	return records, translate(err, "pending payments of student", studentID)
}

func (r *gormPayments) ListByStudent(ctx context.Context, studentID uint) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("payment_date DESC, id DESC").
		Find(&records).Error
	return records, translate(err, "payments of student", studentID)
}

func (r *gormPayments) ListByLibrary(ctx context.Context, libraryID uint, filter LibraryPaymentFilter) ([]models.PaymentRecord, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("library_id = ? AND payment_date >= ?", libraryID, filter.Since)
	if filter.Status != "" {
		base = base.Where("status = ?", filter.Status)
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "payments of library", libraryID)
	}

	var records []models.PaymentRecord
	err := base.
		Order("payment_date DESC, id DESC").
		Limit(filter.Limit).
		Offset(filter.Skip).
		Find(&records).Error
	return records, total, translate(err, "payments of library", libraryID)
}

func (r *gormPayments) ListByLibraryMonth(ctx context.Context, libraryID uint, month string) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("library_id = ? AND month = ?", libraryID, month).
		Find(&records).Error
	return records, translate(err, "payments of library", libraryID)
}

func (r *gormPayments) ListCompletedByLibrarySince(ctx context.Context, libraryID uint, since time.Time) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("library_id = ? AND status = ? AND payment_date >= ?", libraryID, models.PaymentStatusCompleted, since).
		Order("payment_date ASC").
		Find(&records).Error
	return records, translate(err, "payments of library", libraryID)
}
