package repository

import (
	"context"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"gorm.io/gorm"
)

type gormStudents struct {
	db *gorm.DB
}

func (r *gormStudents) Create(ctx context.Context, student *models.Student) error {
	return translate(r.db.WithContext(ctx).Omit("User").Create(student).Error, "student of user", student.UserID)
}

func (r *gormStudents) Update(ctx context.Context, student *models.Student) error {
	return translate(r.db.WithContext(ctx).Omit("User").Save(student).Error, "student", student.ID)
}

func (r *gormStudents) FindByID(ctx context.Context, id uint) (*models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Preload("User").First(&student, id).Error; err != nil {
		return nil, translate(err, "student", id)
	}
	return &student, nil
}

func (r *gormStudents) FindByUserID(ctx context.Context, userID uint) (*models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&student).Error; err != nil {
		return nil, translate(err, "student of user", userID)
	}
	return &student, nil
}

func (r *gormStudents) ListByLibrary(ctx context.Context, libraryID uint, filter StudentFilter) ([]models.Student, error) {
	q := r.db.WithContext(ctx).Joins("User").Where("students.library_id = ?", libraryID)
	if !filter.IncludeDeleted {
		q = q.Where("students.is_deleted = ?", false)
	}
	if filter.Status != "" {
		q = q.Where("students.status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where(`("User"."name" ILIKE ? OR "User"."email" ILIKE ? OR "User"."phone" ILIKE ?)`, like, like, like)
	}

	var students []models.Student
	err := q.Order("students.created_at DESC").Find(&students).Error
	return students, translate(err, "students of library", libraryID)
}

func (r *gormStudents) CountByLibrary(ctx context.Context, libraryID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("library_id = ? AND is_deleted = ?", libraryID, false).
		Count(&count).Error
	return count, translate(err, "students of library", libraryID)
}

func (r *gormStudents) ListDueBetween(ctx context.Context, from, to time.Time) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("is_deleted = ? AND status = ? AND is_payment_done_for_this_month = ?", false, models.StudentStatusActive, false).
		Where("next_due_date >= ? AND next_due_date < ?", from, to).
		Order("next_due_date ASC, id ASC").
		Find(&students).Error
	return students, translate(err, "students due from", from.Format("2006-01-02"))
}

func (r *gormStudents) ResetPaymentFlags(ctx context.Context, asOf time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("is_payment_done_for_this_month = ? AND next_due_date <= ?", true, asOf).
		Update("is_payment_done_for_this_month", false)
	return res.RowsAffected, translate(res.Error, "students due by", asOf.Format("2006-01-02"))
}

func (r *gormStudents) UpdateSubscription(ctx context.Context, studentID uint, state models.SubscriptionState) error {
	res := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", studentID).
		Updates(map[string]interface{}{
			"next_due_date":                  state.NextDueDate,
			"is_payment_done_for_this_month": state.IsPaymentDoneForThisMonth,
			"fee":                            state.Fee,
		})
	if res.Error != nil {
		return translate(res.Error, "student", studentID)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "student", studentID)
	}
	return nil
}
