package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoster(env *testEnv, notifier Notifier) *RosterService {
	roster := NewRosterService(env.store, notifier, utils.TestJWTSecret)
	roster.now = func() time.Time { return testNow }
	return roster
}

func TestCreateStudentSetsFirstDueDate(t *testing.T) {
	env := newTestEnv(t)
	notifier := &fakeNotifier{}
	roster := newTestRoster(env, notifier)

	result, err := roster.CreateStudent(context.Background(), CreateStudentInput{
		LibraryID: env.library.ID,
		Name:      "Ravi Kumar",
		Email:     "Ravi@Example.com",
		Phone:     "+91 98765 43210",
		Timing:    "morning",
		Fee:       decimal.RequireFromString("750.456"),
		JoinDate:  time.Date(2024, time.January, 31, 16, 45, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	student := result.Student
	assert.Equal(t, day(2024, time.January, 31), student.JoinDate)
	assert.Equal(t, day(2024, time.February, 29), student.NextDueDate)
	assert.False(t, student.IsPaymentDoneForThisMonth)
	assert.True(t, student.Fee.Equal(decimal.RequireFromString("750.46")))
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.Equal(t, "ravi@example.com", student.User.Email)
	assert.Equal(t, "9876543210", student.User.Phone)
	assert.Equal(t, models.RoleStudent, student.User.Role)

	assert.True(t, result.WelcomeSent)
	require.Len(t, notifier.welcomes, 1)
	welcome := notifier.welcomes[0]
	assert.Equal(t, "ravi@example.com", welcome.To)
	assert.True(t, utils.CheckPassword(welcome.Password, student.User.Password), "mailed password logs in")
}

func TestCreateStudentWelcomeFailureIsReported(t *testing.T) {
	env := newTestEnv(t)
	roster := newTestRoster(env, &fakeNotifier{err: errors.New("mailbox full")})

	result, err := roster.CreateStudent(context.Background(), CreateStudentInput{
		LibraryID: env.library.ID,
		Name:      "Meera",
		Email:     "meera@example.com",
		Fee:       decimal.NewFromInt(400),
	})
	require.NoError(t, err)

	assert.False(t, result.WelcomeSent)
	assert.Equal(t, "mailbox full", result.WelcomeError)
	assert.NotZero(t, result.Student.ID)
}

func TestCreateStudentValidation(t *testing.T) {
	env := newTestEnv(t)
	roster := newTestRoster(env, &fakeNotifier{})
	ctx := context.Background()

	_, err := roster.CreateStudent(ctx, CreateStudentInput{LibraryID: env.library.ID, Name: "No Fee", Email: "nofee@example.com"})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = roster.CreateStudent(ctx, CreateStudentInput{LibraryID: env.library.ID, Name: "Bad Mail", Email: "not-an-email", Fee: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = roster.CreateStudent(ctx, CreateStudentInput{LibraryID: 404, Name: "Lost", Email: "lost@example.com", Fee: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	// email already used by the fixture student
	_, err = roster.CreateStudent(ctx, CreateStudentInput{LibraryID: env.library.ID, Name: "Twin", Email: "asha@example.com", Fee: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, utils.ErrConflict)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	roster := newTestRoster(env, &fakeNotifier{})
	ctx := context.Background()
	require.NoError(t, roster.EnsureAdmin(ctx, "admin@example.com", "admin-pass-1"))

	result, err := roster.Login(ctx, "admin@example.com", "admin-pass-1")
	require.NoError(t, err)
	claims, err := utils.ValidateToken(result.Token, utils.TestJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	require.NotNil(t, result.User.LastLoginAt)

	_, err = roster.Login(ctx, "admin@example.com", "wrong-pass")
	assert.ErrorIs(t, err, utils.ErrUnauthorized)
	_, err = roster.Login(ctx, "nobody@example.com", "admin-pass-1")
	assert.ErrorIs(t, err, utils.ErrUnauthorized)

	result.User.IsActive = false
	require.NoError(t, env.store.Users().Update(ctx, result.User))
	_, err = roster.Login(ctx, "admin@example.com", "admin-pass-1")
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestEnsureAdminOnlySeedsOnce(t *testing.T) {
	env := newTestEnv(t)
	roster := newTestRoster(env, &fakeNotifier{})
	ctx := context.Background()

	require.NoError(t, roster.EnsureAdmin(ctx, "admin@example.com", "admin-pass-1"))
	require.NoError(t, roster.EnsureAdmin(ctx, "second@example.com", "admin-pass-2"))
	require.NoError(t, roster.EnsureAdmin(ctx, "", ""))

	count, err := env.store.Users().CountByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCreateLibraryWithLibrarian(t *testing.T) {
	env := newTestEnv(t)
	roster := newTestRoster(env, &fakeNotifier{})
	ctx := context.Background()

	library, err := roster.CreateLibrary(ctx, CreateLibraryInput{
		Name:         "Study Hub",
		ContactEmail: "hub@example.com",
		ContactPhone: "9123456789",
		Librarian:    &LibrarianInput{Name: "Lata", Email: "lata@example.com", Password: "librarian-1"},
	})
	require.NoError(t, err)
	assert.True(t, library.IsActive)
	assert.True(t, library.EmailNotifications)

	librarian, err := env.store.Users().FindByEmail(ctx, "lata@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleLibrarian, librarian.Role)
	require.NotNil(t, librarian.LibraryID)
	assert.Equal(t, library.ID, *librarian.LibraryID)
}

func TestCreateLibraryRollsBackOnBadLibrarian(t *testing.T) {
	env := newTestEnv(t)
	roster := newTestRoster(env, &fakeNotifier{})
	ctx := context.Background()

	_, err := roster.CreateLibrary(ctx, CreateLibraryInput{
		Name:         "Half Built",
		ContactEmail: "half@example.com",
		Librarian:    &LibrarianInput{Name: "Short", Email: "short@example.com", Password: "123"},
	})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = env.store.Libraries().FindByContactEmail(ctx, "half@example.com")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestUpdateLibraryCredentialsClearVerification(t *testing.T) {
	env := newTestEnv(t)
	roster := newTestRoster(env, &fakeNotifier{})
	ctx := context.Background()
	key, secret, verified := "rzp_test_lib", "lib_secret", true

	library, err := roster.UpdateLibrary(ctx, env.library.ID, UpdateLibraryInput{
		RazorpayKeyID:      &key,
		RazorpayKeySecret:  &secret,
		IsVerifiedRazorpay: &verified,
	})
	require.NoError(t, err)
	assert.True(t, library.IsVerifiedRazorpay)

	rotated := "lib_secret_2"
	library, err = roster.UpdateLibrary(ctx, env.library.ID, UpdateLibraryInput{RazorpayKeySecret: &rotated})
	require.NoError(t, err)
	assert.False(t, library.IsVerifiedRazorpay)

	empty := ""
	_, err = roster.UpdateLibrary(ctx, env.library.ID, UpdateLibraryInput{RazorpayKeyID: &empty, IsVerifiedRazorpay: &verified})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestUpdateAndDeleteStudent(t *testing.T) {
	env := newTestEnv(t)
	roster := newTestRoster(env, &fakeNotifier{})
	ctx := context.Background()
	name, fee := "Asha R", decimal.NewFromInt(650)
	suspended := models.StudentStatusSuspended

	updated, err := roster.UpdateStudent(ctx, env.student.ID, UpdateStudentInput{Name: &name, Fee: &fee, Status: &suspended})
	require.NoError(t, err)
	assert.Equal(t, "Asha R", updated.User.Name)
	assert.True(t, updated.Fee.Equal(fee))
	assert.Equal(t, models.StudentStatusSuspended, updated.Status)
	assert.Equal(t, day(2024, time.March, 1), updated.NextDueDate, "due date is untouched")

	bogus := models.StudentStatus("graduated")
	_, err = roster.UpdateStudent(ctx, env.student.ID, UpdateStudentInput{Status: &bogus})
	assert.ErrorIs(t, err, utils.ErrValidation)

	require.NoError(t, roster.DeleteStudent(ctx, env.student.ID))
	user, err := env.store.Users().FindByID(ctx, env.student.UserID)
	require.NoError(t, err)
	assert.False(t, user.IsActive)

	listed, err := roster.ListStudents(ctx, env.library.ID, repository.StudentFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)
	listed, err = roster.ListStudents(ctx, env.library.ID, repository.StudentFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = roster.UpdateStudent(ctx, env.student.ID, UpdateStudentInput{Name: &name})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestListStudentsSearch(t *testing.T) {
	env := newTestEnv(t)
	roster := newTestRoster(env, &fakeNotifier{})
	env.addStudent(t, env.library, "bharat@example.com", day(2024, time.March, 5), 500)

	found, err := roster.ListStudents(context.Background(), env.library.ID, repository.StudentFilter{Search: " BHARAT "})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "bharat@example.com", found[0].User.Email)
}
