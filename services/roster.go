package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/shopspring/decimal"
)

// RosterService manages the accounts, libraries and students billing works on
type RosterService struct {
	store     repository.Store
	notifier  Notifier
	jwtSecret string
	now       func() time.Time
}

// NewRosterService builds a RosterService
func NewRosterService(store repository.Store, notifier Notifier, jwtSecret string) *RosterService {
	return &RosterService{store: store, notifier: notifier, jwtSecret: jwtSecret, now: time.Now}
}

// LoginResult is returned on successful sign-in
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login checks credentials and issues a token
func (s *RosterService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.Users().FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			utils.LogError("Login attempt failed for unknown email %s", email)
			return nil, fmt.Errorf("%w: invalid email or password", utils.ErrUnauthorized)
		}
		return nil, err
	}
	if !utils.CheckPassword(password, user.Password) {
		utils.LogError("Login attempt failed for user %d", user.ID)
		return nil, fmt.Errorf("%w: invalid email or password", utils.ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is disabled", utils.ErrForbidden)
	}

	token, err := utils.GenerateToken(user, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	now := s.now()
	user.LastLoginAt = &now
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}
	utils.LogInfo("User %d (%s) logged in", user.ID, user.Role)
	return &LoginResult{Token: token, User: user}, nil
}

// EnsureAdmin creates the first platform admin when none exists
func (s *RosterService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	count, err := s.store.Users().CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.User{Name: "Administrator", Email: email, Password: hash, Role: models.RoleAdmin, IsActive: true}
	if err := s.store.Users().Create(ctx, admin); err != nil {
		return err
	}
	utils.LogInfo("Seeded admin user %s", email)
	return nil
}

// LibrarianInput creates the librarian account that runs a new library
type LibrarianInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// CreateLibraryInput describes a new library
type CreateLibraryInput struct {
	Name                  string
	ContactEmail          string
	ContactPhone          string
	Address               string
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	Librarian             *LibrarianInput
}

// CreateLibrary registers a library and, optionally, its librarian
func (s *RosterService) CreateLibrary(ctx context.Context, in CreateLibraryInput) (*models.Library, error) {
	name := utils.SanitizeString(in.Name)
	if name == "" {
		return nil, utils.Validationf("library name is required")
	}
	if ok, msg := utils.ValidateEmail(in.ContactEmail); !ok {
		return nil, utils.Validationf("%s", msg)
	}
	ok, phone := utils.ValidatePhone(in.ContactPhone)
	if !ok {
		return nil, utils.Validationf("%s", phone)
	}

	library := &models.Library{
		Name:                  name,
		ContactEmail:          strings.ToLower(strings.TrimSpace(in.ContactEmail)),
		ContactPhone:          phone,
		Address:               utils.SanitizeString(in.Address),
		IsActive:              true,
		RazorpayKeyID:         in.RazorpayKeyID,
		RazorpayKeySecret:     in.RazorpayKeySecret,
		RazorpayWebhookSecret: in.RazorpayWebhookSecret,
		EmailNotifications:    true,
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Libraries().Create(ctx, library); err != nil {
			return err
		}
		if in.Librarian == nil {
			return nil
		}
		_, err := s.createUser(ctx, tx, in.Librarian.Name, in.Librarian.Email, in.Librarian.Phone, in.Librarian.Password, models.RoleLibrarian, library.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	utils.LogInfo("Library %d (%s) created", library.ID, library.Name)
	return library, nil
}

// GetLibrary returns one library
func (s *RosterService) GetLibrary(ctx context.Context, id uint) (*models.Library, error) {
	return s.store.Libraries().FindByID(ctx, id)
}

// ListLibraries returns every library, or only active ones
func (s *RosterService) ListLibraries(ctx context.Context, activeOnly bool) ([]models.Library, error) {
	return s.store.Libraries().List(ctx, activeOnly)
}

// UpdateLibraryInput changes the fields that are set
type UpdateLibraryInput struct {
	Name                  *string
	ContactPhone          *string
	Address               *string
	EmailNotifications    *bool
	RazorpayKeyID         *string
	RazorpayKeySecret     *string
	RazorpayWebhookSecret *string
	IsVerifiedRazorpay    *bool
}

// UpdateLibrary applies in. Changing credentials clears verification unless it is set in the same call.
func (s *RosterService) UpdateLibrary(ctx context.Context, id uint, in UpdateLibraryInput) (*models.Library, error) {
	library, err := s.store.Libraries().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if library.Name = utils.SanitizeString(*in.Name); library.Name == "" {
			return nil, utils.Validationf("library name is required")
		}
	}
	if in.ContactPhone != nil {
		ok, phone := utils.ValidatePhone(*in.ContactPhone)
		if !ok {
			return nil, utils.Validationf("%s", phone)
		}
		library.ContactPhone = phone
	}
	if in.Address != nil {
		library.Address = utils.SanitizeString(*in.Address)
	}
	if in.EmailNotifications != nil {
		library.EmailNotifications = *in.EmailNotifications
	}
	credsChanged := false
	if in.RazorpayKeyID != nil && *in.RazorpayKeyID != library.RazorpayKeyID {
		library.RazorpayKeyID, credsChanged = *in.RazorpayKeyID, true
	}
	if in.RazorpayKeySecret != nil && *in.RazorpayKeySecret != library.RazorpayKeySecret {
		library.RazorpayKeySecret, credsChanged = *in.RazorpayKeySecret, true
	}
	if in.RazorpayWebhookSecret != nil {
		library.RazorpayWebhookSecret = *in.RazorpayWebhookSecret
	}
	if credsChanged {
		library.IsVerifiedRazorpay = false
	}
	if in.IsVerifiedRazorpay != nil {
		if *in.IsVerifiedRazorpay && (library.RazorpayKeyID == "" || library.RazorpayKeySecret == "") {
			return nil, utils.Validationf("razorpay credentials are required before verification")
		}
		library.IsVerifiedRazorpay = *in.IsVerifiedRazorpay
	}

	if err := s.store.Libraries().Update(ctx, library); err != nil {
		return nil, err
	}
	return library, nil
}

// DeactivateLibrary stops billing and reminders for a library
func (s *RosterService) DeactivateLibrary(ctx context.Context, id uint) error {
	library, err := s.store.Libraries().FindByID(ctx, id)
	if err != nil {
		return err
	}
	library.IsActive = false
	return s.store.Libraries().Update(ctx, library)
}

// CreateStudentInput describes a new member
type CreateStudentInput struct {
	LibraryID uint
	Name      string
	Email     string
	Phone     string
	Address   string
	Timing    string
	Fee       decimal.Decimal
	JoinDate  time.Time
}

// CreateStudentResult is the new student and whether the welcome mail went out
type CreateStudentResult struct {
	Student      *models.Student `json:"student"`
	WelcomeSent  bool            `json:"welcome_sent"`
	WelcomeError string          `json:"welcome_error,omitempty"`
}

// CreateStudent enrolls a student with a generated login. The first fee falls due
// one month after joining.
func (s *RosterService) CreateStudent(ctx context.Context, in CreateStudentInput) (*CreateStudentResult, error) {
	if !in.Fee.IsPositive() {
		return nil, utils.Validationf("fee must be greater than zero")
	}
	library, err := s.store.Libraries().FindByID(ctx, in.LibraryID)
	if err != nil {
		return nil, err
	}
	if !library.IsActive {
		return nil, utils.InvalidStatef("library %d is not active", library.ID)
	}

	joined := in.JoinDate
	if joined.IsZero() {
		joined = s.now()
	}
	joined = time.Date(joined.Year(), joined.Month(), joined.Day(), 0, 0, 0, 0, joined.Location())

	password, err := utils.GeneratePassword()
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}

	student := &models.Student{
		LibraryID: library.ID,
		JoinDate:  joined,
		Address:   utils.SanitizeString(in.Address),
		Timing:    utils.SanitizeString(in.Timing),
		Status:    models.StudentStatusActive,
		SubscriptionState: models.SubscriptionState{
			NextDueDate: models.AddMonths(joined, 1),
			Fee:         in.Fee.Round(2),
		},
	}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		user, err := s.createUser(ctx, tx, in.Name, in.Email, in.Phone, password, models.RoleStudent, library.ID)
		if err != nil {
			return err
		}
		student.UserID = user.ID
		if err := tx.Students().Create(ctx, student); err != nil {
			return err
		}
		student.User = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.LogInfo("Student %d enrolled in library %d, first due %s", student.ID, library.ID, student.NextDueDate.Format("2006-01-02"))

	result := &CreateStudentResult{Student: student}
	err = s.notifier.SendWelcome(ctx, Welcome{
		To:          student.User.Email,
		StudentName: student.User.Name,
		LibraryName: library.Name,
		Password:    password,
		Fee:         student.Fee,
		NextDueDate: student.NextDueDate,
	})
	if err != nil {
		utils.LogError("Welcome mail to student %d failed: %v", student.ID, err)
		result.WelcomeError = err.Error()
	} else {
		result.WelcomeSent = true
	}
	return result, nil
}

func (s *RosterService) createUser(ctx context.Context, tx repository.Store, name, email, phone, password string, role models.Role, libraryID uint) (*models.User, error) {
	name = utils.SanitizeString(name)
	if name == "" {
		return nil, utils.Validationf("name is required")
	}
	if ok, msg := utils.ValidateEmail(email); !ok {
		return nil, utils.Validationf("%s", msg)
	}
	if ok, msg := utils.ValidatePassword(password); !ok {
		return nil, utils.Validationf("%s", msg)
	}
	ok, formatted := utils.ValidatePhone(phone)
	if !ok {
		return nil, utils.Validationf("%s", formatted)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Name:      name,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Password:  hash,
		Role:      role,
		Phone:     formatted,
		LibraryID: &libraryID,
		IsActive:  true,
	}
	if err := tx.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetStudent returns one student with its user
func (s *RosterService) GetStudent(ctx context.Context, id uint) (*models.Student, error) {
	return s.store.Students().FindByID(ctx, id)
}

// StudentForUser returns the student profile owned by a user
func (s *RosterService) StudentForUser(ctx context.Context, userID uint) (*models.Student, error) {
	return s.store.Students().FindByUserID(ctx, userID)
}

// ListStudents returns a library's roster
func (s *RosterService) ListStudents(ctx context.Context, libraryID uint, filter repository.StudentFilter) ([]models.Student, error) {
	if _, err := s.store.Libraries().FindByID(ctx, libraryID); err != nil {
		return nil, err
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.store.Students().ListByLibrary(ctx, libraryID, filter)
}

// UpdateStudentInput changes the fields that are set
type UpdateStudentInput struct {
	Name    *string
	Phone   *string
	Address *string
	Timing  *string
	Fee     *decimal.Decimal
	Status  *models.StudentStatus
}

// UpdateStudent applies in. A fee change applies from the next order; the due date never moves here.
func (s *RosterService) UpdateStudent(ctx context.Context, id uint, in UpdateStudentInput) (*models.Student, error) {
	student, err := s.store.Students().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if student.IsDeleted {
		return nil, utils.NotFoundf("student %d", id)
	}
	if in.Fee != nil {
		if !in.Fee.IsPositive() {
			return nil, utils.Validationf("fee must be greater than zero")
		}
		student.Fee = in.Fee.Round(2)
	}
	if in.Status != nil {
		switch *in.Status {
		case models.StudentStatusActive, models.StudentStatusInactive, models.StudentStatusSuspended:
			student.Status = *in.Status
		default:
			return nil, utils.Validationf("unknown student status %q", *in.Status)
		}
	}
	if in.Address != nil {
		student.Address = utils.SanitizeString(*in.Address)
	}
	if in.Timing != nil {
		student.Timing = utils.SanitizeString(*in.Timing)
	}

	user := student.User
	userChanged := false
	if in.Name != nil {
		if user.Name = utils.SanitizeString(*in.Name); user.Name == "" {
			return nil, utils.Validationf("name is required")
		}
		userChanged = true
	}
	if in.Phone != nil {
		ok, phone := utils.ValidatePhone(*in.Phone)
		if !ok {
			return nil, utils.Validationf("%s", phone)
		}
		user.Phone, userChanged = phone, true
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Students().Update(ctx, student); err != nil {
			return err
		}
		if userChanged {
			return tx.Users().Update(ctx, &user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	student.User = user
	return student, nil
}

// DeleteStudent soft-deletes a student and disables their login. Payment history is kept.
func (s *RosterService) DeleteStudent(ctx context.Context, id uint) error {
	student, err := s.store.Students().FindByID(ctx, id)
	if err != nil {
		return err
	}
	student.IsDeleted = true
	student.Status = models.StudentStatusInactive
	user := student.User
	user.IsActive = false

	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Students().Update(ctx, student); err != nil {
			return err
		}
		if user.ID == 0 {
			return nil
		}
		return tx.Users().Update(ctx, &user)
	})
}
