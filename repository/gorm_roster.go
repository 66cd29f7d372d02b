package repository

import (
	"context"
	"strings"

	"github.com/Govind-619/LibTrack/models"
	"gorm.io/gorm"
)

type gormLibraries struct {
	db *gorm.DB
}

func (r *gormLibraries) Create(ctx context.Context, library *models.Library) error {
	return translate(r.db.WithContext(ctx).Create(library).Error, "library", library.ContactEmail)
}

func (r *gormLibraries) Update(ctx context.Context, library *models.Library) error {
	return translate(r.db.WithContext(ctx).Save(library).Error, "library", library.ID)
}

func (r *gormLibraries) FindByID(ctx context.Context, id uint) (*models.Library, error) {
	var library models.Library
	if err := r.db.WithContext(ctx).First(&library, id).Error; err != nil {
		return nil, translate(err, "library", id)
	}
	return &library, nil
}

func (r *gormLibraries) FindByContactEmail(ctx context.Context, email string) (*models.Library, error) {
	var library models.Library
	if err := r.db.WithContext(ctx).Where("LOWER(contact_email) = ?", strings.ToLower(email)).First(&library).Error; err != nil {
		return nil, translate(err, "library", email)
	}
	return &library, nil
}

func (r *gormLibraries) List(ctx context.Context, activeOnly bool) ([]models.Library, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var libraries []models.Library
	return libraries, translate(q.Find(&libraries).Error, "libraries", "")
}

type gormUsers struct {
	db *gorm.DB
}

func (r *gormUsers) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error, "user", user.Email)
}

func (r *gormUsers) Update(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Save(user).Error, "user", user.ID)
}

func (r *gormUsers) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "user", id)
	}
	return &user, nil
}

func (r *gormUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, translate(err, "user", email)
	}
	return &user, nil
}

func (r *gormUsers) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, translate(err, "users with role", role)
}

type gormReminders struct {
	db *gorm.DB
}

func (r *gormReminders) Create(ctx context.Context, reminder *models.Reminder) error {
	return translate(r.db.WithContext(ctx).Create(reminder).Error, "reminder for student", reminder.StudentID)
}

func (r *gormReminders) Update(ctx context.Context, reminder *models.Reminder) error {
	return translate(r.db.WithContext(ctx).Save(reminder).Error, "reminder", reminder.ID)
}

func (r *gormReminders) ListByStudent(ctx context.Context, studentID uint) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := r.db.WithContext(ctx).Where("student_id = ?", studentID).Order("created_at DESC").Find(&reminders).Error
	return reminders, translate(err, "reminders of student", studentID)
}
