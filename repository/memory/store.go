// Package memory is an in-process repository.Store used by tests and local runs
// without postgres. It enforces the same uniqueness rules as the SQL schema.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/utils"
)

type dataset struct {
	users     map[uint]models.User
	libraries map[uint]models.Library
	students  map[uint]models.Student
	payments  map[uint]models.PaymentRecord
	reminders map[uint]models.Reminder
	lastID    uint
}

func newDataset() *dataset {
	return &dataset{
		users:     make(map[uint]models.User),
		libraries: make(map[uint]models.Library),
		students:  make(map[uint]models.Student),
		payments:  make(map[uint]models.PaymentRecord),
		reminders: make(map[uint]models.Reminder),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.libraries {
		c.libraries[k] = v
	}
	for k, v := range d.students {
		c.students[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	for k, v := range d.reminders {
		c.reminders[k] = v
	}
	c.lastID = d.lastID
	return c
}

// Store implements repository.Store in memory
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data *dataset
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{data: newDataset(), now: time.Now}
}

func (s *Store) Payments() repository.PaymentRepository   { return payments{s} }
func (s *Store) Students() repository.StudentRepository   { return students{s} }
func (s *Store) Libraries() repository.LibraryRepository  { return libraries{s} }
func (s *Store) Users() repository.UserRepository         { return users{s} }
func (s *Store) Reminders() repository.ReminderRepository { return reminders{s} }

// Transaction runs fn with transactions serialized; a failing fn restores the
// data as it was before fn started.
func (s *Store) Transaction(_ context.Context, fn func(tx repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) nextID() uint {
	s.data.lastID++
	return s.data.lastID
}

type payments struct{ s *Store }

func (r payments) Create(_ context.Context, record *models.PaymentRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkLive(record); err != nil {
		return err
	}
	now := r.s.now()
	record.ID = r.s.nextID()
	record.CreatedAt, record.UpdatedAt = now, now
	if record.PaymentDate.IsZero() {
		record.PaymentDate = now
	}
	r.s.data.payments[record.ID] = *record
	return nil
}

func (r payments) Update(_ context.Context, record *models.PaymentRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.payments[record.ID]; !ok {
		return utils.NotFoundf("payment %d", record.ID)
	}
	if err := r.checkLive(record); err != nil {
		return err
	}
	record.UpdatedAt = r.s.now()
	r.s.data.payments[record.ID] = *record
	return nil
}

// checkLive mirrors the partial unique index on (student_id, month)
func (r payments) checkLive(record *models.PaymentRecord) error {
	if !record.OccupiesMonth() {
		return nil
	}
	for id, p := range r.s.data.payments {
		if id != record.ID && p.StudentID == record.StudentID && p.Month == record.Month && p.OccupiesMonth() {
			return fmt.Errorf("%w: payment for month %s", utils.ErrConflict, record.Month)
		}
	}
	return nil
}

func (r payments) FindByID(_ context.Context, id uint) (*models.PaymentRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.data.payments[id]
	if !ok {
		return nil, utils.NotFoundf("payment %d", id)
	}
	return &p, nil
}

func (r payments) FindByGatewayOrderID(_ context.Context, orderID string) (*models.PaymentRecord, error) {
	found := r.filter(func(p models.PaymentRecord) bool { return orderID != "" && p.GatewayOrderID == orderID })
	if len(found) == 0 {
		return nil, utils.NotFoundf("payment for order %s", orderID)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID > found[j].ID })
	return &found[0], nil
}

func (r payments) FindLiveForMonth(_ context.Context, studentID uint, month string) (*models.PaymentRecord, error) {
	found := r.filter(func(p models.PaymentRecord) bool {
		return p.StudentID == studentID && p.Month == month && p.OccupiesMonth()
	})
	if len(found) == 0 {
		return nil, utils.NotFoundf("payment for month %s", month)
	}
	return &found[0], nil
}

func (r payments) ListPendingByStudent(_ context.Context, studentID uint) ([]models.PaymentRecord, error) {
	found := r.filter(func(p models.PaymentRecord) bool {
		return p.StudentID == studentID && p.Status == models.PaymentStatusPending
	})
	sort.Slice(found, func(i, j int) bool { return olderFirst(found[i], found[j]) })
	return found, nil
}

func (r payments) ListByStudent(_ context.Context, studentID uint) ([]models.PaymentRecord, error) {
	found := r.filter(func(p models.PaymentRecord) bool { return p.StudentID == studentID })
	sort.Slice(found, func(i, j int) bool { return olderFirst(found[j], found[i]) })
	return found, nil
}

func (r payments) ListByLibrary(_ context.Context, libraryID uint, f repository.LibraryPaymentFilter) ([]models.PaymentRecord, int64, error) {
	found := r.filter(func(p models.PaymentRecord) bool {
		return p.LibraryID == libraryID && !p.PaymentDate.Before(f.Since) && (f.Status == "" || p.Status == f.Status)
	})
	sort.Slice(found, func(i, j int) bool { return olderFirst(found[j], found[i]) })

	total := int64(len(found))
	if f.Skip >= len(found) {
		return []models.PaymentRecord{}, total, nil
	}
	found = found[f.Skip:]
	if f.Limit > 0 && f.Limit < len(found) {
		found = found[:f.Limit]
	}
	return found, total, nil
}

func (r payments) ListByLibraryMonth(_ context.Context, libraryID uint, month string) ([]models.PaymentRecord, error) {
	return r.filter(func(p models.PaymentRecord) bool { return p.LibraryID == libraryID && p.Month == month }), nil
}

func (r payments) ListCompletedByLibrarySince(_ context.Context, libraryID uint, since time.Time) ([]models.PaymentRecord, error) {
	found := r.filter(func(p models.PaymentRecord) bool {
		return p.LibraryID == libraryID && p.Status == models.PaymentStatusCompleted && !p.PaymentDate.Before(since)
	})
	sort.Slice(found, func(i, j int) bool { return olderFirst(found[i], found[j]) })
	return found, nil
}

func (r payments) filter(keep func(models.PaymentRecord) bool) []models.PaymentRecord {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.PaymentRecord{}
	for _, p := range r.s.data.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func olderFirst(a, b models.PaymentRecord) bool {
	if a.PaymentDate.Equal(b.PaymentDate) {
		return a.ID < b.ID
	}
	return a.PaymentDate.Before(b.PaymentDate)
}

type students struct{ s *Store }

func (r students) Create(_ context.Context, student *models.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.students {
		if existing.UserID == student.UserID {
			return fmt.Errorf("%w: student of user %d", utils.ErrConflict, student.UserID)
		}
	}
	now := r.s.now()
	student.ID = r.s.nextID()
	student.CreatedAt, student.UpdatedAt = now, now
	stored := *student
	stored.User = models.User{}
	r.s.data.students[student.ID] = stored
	return nil
}

func (r students) Update(_ context.Context, student *models.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.students[student.ID]; !ok {
		return utils.NotFoundf("student %d", student.ID)
	}
	student.UpdatedAt = r.s.now()
	stored := *student
	stored.User = models.User{}
	r.s.data.students[student.ID] = stored
	return nil
}

func (r students) FindByID(_ context.Context, id uint) (*models.Student, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st, ok := r.s.data.students[id]
	if !ok {
		return nil, utils.NotFoundf("student %d", id)
	}
	return r.withUser(st), nil
}

func (r students) FindByUserID(_ context.Context, userID uint) (*models.Student, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, st := range r.s.data.students {
		if st.UserID == userID {
			return r.withUser(st), nil
		}
	}
	return nil, utils.NotFoundf("student of user %d", userID)
}

// withUser mimics Preload("User"); callers hold the read lock
func (r students) withUser(st models.Student) *models.Student {
	st.User = r.s.data.users[st.UserID]
	return &st
}

func (r students) ListByLibrary(_ context.Context, libraryID uint, f repository.StudentFilter) ([]models.Student, error) {
	search := strings.ToLower(f.Search)
	return r.list(func(st *models.Student) bool {
		if st.LibraryID != libraryID || (st.IsDeleted && !f.IncludeDeleted) {
			return false
		}
		if f.Status != "" && st.Status != f.Status {
			return false
		}
		if search != "" {
			u := st.User
			return strings.Contains(strings.ToLower(u.Name), search) ||
				strings.Contains(strings.ToLower(u.Email), search) ||
				strings.Contains(u.Phone, search)
		}
		return true
	}), nil
}

func (r students) CountByLibrary(_ context.Context, libraryID uint) (int64, error) {
	found := r.list(func(st *models.Student) bool { return st.LibraryID == libraryID && !st.IsDeleted })
	return int64(len(found)), nil
}

func (r students) ListDueBetween(_ context.Context, from, to time.Time) ([]models.Student, error) {
	found := r.list(func(st *models.Student) bool {
		return st.Billable() && !st.IsPaymentDoneForThisMonth &&
			!st.NextDueDate.Before(from) && st.NextDueDate.Before(to)
	})
	sort.SliceStable(found, func(i, j int) bool { return found[i].NextDueDate.Before(found[j].NextDueDate) })
	return found, nil
}

func (r students) ResetPaymentFlags(_ context.Context, asOf time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, st := range r.s.data.students {
		if st.IsPaymentDoneForThisMonth && !st.NextDueDate.After(asOf) {
			st.IsPaymentDoneForThisMonth = false
			r.s.data.students[id] = st
			n++
		}
	}
	return n, nil
}

func (r students) UpdateSubscription(_ context.Context, studentID uint, state models.SubscriptionState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.data.students[studentID]
	if !ok {
		return utils.NotFoundf("student %d", studentID)
	}
	st.SubscriptionState = state
	st.UpdatedAt = r.s.now()
	r.s.data.students[studentID] = st
	return nil
}

func (r students) list(keep func(*models.Student) bool) []models.Student {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Student{}
	for _, st := range r.s.data.students {
		full := r.withUser(st)
		if keep(full) {
			out = append(out, *full)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type libraries struct{ s *Store }

func (r libraries) Create(_ context.Context, library *models.Library) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.data.libraries {
		if strings.EqualFold(l.ContactEmail, library.ContactEmail) {
			return fmt.Errorf("%w: library %s", utils.ErrConflict, library.ContactEmail)
		}
	}
	now := r.s.now()
	library.ID = r.s.nextID()
	library.CreatedAt, library.UpdatedAt = now, now
	r.s.data.libraries[library.ID] = *library
	return nil
}

func (r libraries) Update(_ context.Context, library *models.Library) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.libraries[library.ID]; !ok {
		return utils.NotFoundf("library %d", library.ID)
	}
	for id, l := range r.s.data.libraries {
		if id != library.ID && strings.EqualFold(l.ContactEmail, library.ContactEmail) {
			return fmt.Errorf("%w: library %s", utils.ErrConflict, library.ContactEmail)
		}
	}
	library.UpdatedAt = r.s.now()
	r.s.data.libraries[library.ID] = *library
	return nil
}

func (r libraries) FindByID(_ context.Context, id uint) (*models.Library, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.data.libraries[id]
	if !ok {
		return nil, utils.NotFoundf("library %d", id)
	}
	return &l, nil
}

func (r libraries) FindByContactEmail(_ context.Context, email string) (*models.Library, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, l := range r.s.data.libraries {
		if strings.EqualFold(l.ContactEmail, email) {
			return &l, nil
		}
	}
	return nil, utils.NotFoundf("library %s", email)
}

func (r libraries) List(_ context.Context, activeOnly bool) ([]models.Library, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Library{}
	for _, l := range r.s.data.libraries {
		if !activeOnly || l.IsActive {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type users struct{ s *Store }

func (r users) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("%w: user %s", utils.ErrConflict, user.Email)
		}
	}
	now := r.s.now()
	user.ID = r.s.nextID()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.data.users[user.ID] = *user
	return nil
}

func (r users) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.users[user.ID]; !ok {
		return utils.NotFoundf("user %d", user.ID)
	}
	user.UpdatedAt = r.s.now()
	r.s.data.users[user.ID] = *user
	return nil
}

func (r users) FindByID(_ context.Context, id uint) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, utils.NotFoundf("user %d", id)
	}
	return &u, nil
}

func (r users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, utils.NotFoundf("user %s", email)
}

func (r users) CountByRole(_ context.Context, role models.Role) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, u := range r.s.data.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

type reminders struct{ s *Store }

func (r reminders) Create(_ context.Context, reminder *models.Reminder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	reminder.ID = r.s.nextID()
	reminder.CreatedAt, reminder.UpdatedAt = now, now
	r.s.data.reminders[reminder.ID] = *reminder
	return nil
}

func (r reminders) Update(_ context.Context, reminder *models.Reminder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.reminders[reminder.ID]; !ok {
		return utils.NotFoundf("reminder %d", reminder.ID)
	}
	reminder.UpdatedAt = r.s.now()
	r.s.data.reminders[reminder.ID] = *reminder
	return nil
}

func (r reminders) ListByStudent(_ context.Context, studentID uint) ([]models.Reminder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Reminder{}
	for _, rem := range r.s.data.reminders {
		if rem.StudentID == studentID {
			out = append(out, rem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
