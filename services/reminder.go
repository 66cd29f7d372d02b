package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/robfig/cron/v3"
)

// ErrReminderRunInProgress is returned when a run is requested while another is active
var ErrReminderRunInProgress = fmt.Errorf("%w: reminder run already in progress", utils.ErrInvalidState)

// ReminderConfig controls the scheduler
type ReminderConfig struct {
	Schedule   string        // standard 5-field cron spec
	WindowDays int           // students due within +/- this many days are reminded, 10 when unset
	RunTimeout time.Duration // upper bound for one scheduled run
}

// ReminderRunSummary reports one scan
type ReminderRunSummary struct {
	StartedAt    time.Time `json:"started_at"`
	FlagsReset   int64     `json:"flags_reset"`
	Scanned      int       `json:"scanned"`
	OrdersReused int       `json:"orders_reused"`
	OrdersNew    int       `json:"orders_new"`
	Sent         int       `json:"sent"`
	Skipped      int       `json:"skipped"`
	Failed       int       `json:"failed"`
	Errors       []string  `json:"errors,omitempty"`
}

// ReminderScheduler periodically bills students close to their due date and
// emails them a reminder with the order to pay against.
type ReminderScheduler struct {
	store    repository.Store
	billing  *BillingEngine
	notifier Notifier
	cfg      ReminderConfig

	cron    *cron.Cron
	running sync.Mutex
	now     func() time.Time
}

// NewReminderScheduler applies defaults to cfg
func NewReminderScheduler(store repository.Store, billing *BillingEngine, notifier Notifier, cfg ReminderConfig) *ReminderScheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 10 * * *"
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 10
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Minute
	}
	return &ReminderScheduler{
		store:    store,
		billing:  billing,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Start registers the cron job and starts the cron loop
func (r *ReminderScheduler) Start() error {
	r.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := r.cron.AddFunc(r.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.RunTimeout)
		defer cancel()
		summary, err := r.RunOnce(ctx)
		if err != nil {
			utils.LogError("Reminder run finished with errors: %v", err)
		}
		if summary != nil {
			utils.LogInfo("Reminder run: scanned=%d new=%d reused=%d sent=%d skipped=%d failed=%d",
				summary.Scanned, summary.OrdersNew, summary.OrdersReused, summary.Sent, summary.Skipped, summary.Failed)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", r.cfg.Schedule, err)
	}
	r.cron.Start()
	utils.LogInfo("Reminder scheduler started with schedule %q", r.cfg.Schedule)
	return nil
}

// Stop stops the cron loop; the returned context is done once a running job finishes
func (r *ReminderScheduler) Stop() context.Context {
	if r.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return r.cron.Stop()
}

// RunOnce performs one scan. Failures for individual students do not stop the
// scan; they are joined into the returned error.
func (r *ReminderScheduler) RunOnce(ctx context.Context) (*ReminderRunSummary, error) {
	if !r.running.TryLock() {
		return nil, ErrReminderRunInProgress
	}
	defer r.running.Unlock()

	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	summary := &ReminderRunSummary{StartedAt: now}

	reset, err := r.store.Students().ResetPaymentFlags(ctx, today)
	if err != nil {
		return summary, fmt.Errorf("reset payment flags: %w", err)
	}
	summary.FlagsReset = reset

	from := today.AddDate(0, 0, -r.cfg.WindowDays)
	to := today.AddDate(0, 0, r.cfg.WindowDays+1)
	students, err := r.store.Students().ListDueBetween(ctx, from, to)
	if err != nil {
		return summary, fmt.Errorf("list due students: %w", err)
	}
	summary.Scanned = len(students)

	libraries := make(map[uint]*models.Library)
	var errs []error
	for i := range students {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := r.remind(ctx, &students[i], libraries, summary); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, err.Error())
			errs = append(errs, err)
		}
	}
	return summary, errors.Join(errs...)
}

func (r *ReminderScheduler) remind(ctx context.Context, student *models.Student, libraries map[uint]*models.Library, summary *ReminderRunSummary) error {
	library, ok := libraries[student.LibraryID]
	if !ok {
		var err error
		if library, err = r.store.Libraries().FindByID(ctx, student.LibraryID); err != nil {
			return fmt.Errorf("student %d: %w", student.ID, err)
		}
		libraries[student.LibraryID] = library
	}
	if !library.IsActive {
		summary.Skipped++
		return nil
	}

	month := models.MonthOf(student.NextDueDate)
	order, err := r.billing.CreateOrder(ctx, CreateOrderInput{
		StudentID:   student.ID,
		LibraryID:   library.ID,
		Month:       month,
		Description: fmt.Sprintf("Library fee for %s", month),
	})
	if errors.Is(err, utils.ErrInvalidState) {
		summary.Skipped++
		return nil
	}
	if err != nil {
		return fmt.Errorf("student %d: create order: %w", student.ID, err)
	}
	if order.Existing {
		summary.OrdersReused++
	} else {
		summary.OrdersNew++
	}

	if !library.EmailNotifications || student.User.Email == "" {
		summary.Skipped++
		return nil
	}

	paymentID := order.Payment.ID
	reminder := &models.Reminder{
		StudentID:       student.ID,
		LibraryID:       library.ID,
		PaymentRecordID: &paymentID,
		Type:            models.ReminderTypePayment,
		Channel:         models.ReminderChannelEmail,
		Message:         fmt.Sprintf("Fee of %s for %s due on %s", utils.FormatRupees(order.Payment.Amount), month, student.NextDueDate.Format("2006-01-02")),
		DueDate:         student.NextDueDate,
		Status:          models.ReminderStatusPending,
	}
	if err := r.store.Reminders().Create(ctx, reminder); err != nil {
		return fmt.Errorf("student %d: save reminder: %w", student.ID, err)
	}

	sendErr := r.notifier.SendPaymentReminder(ctx, PaymentReminder{
		To:          student.User.Email,
		StudentName: student.User.Name,
		LibraryName: library.Name,
		Amount:      order.Payment.Amount,
		Month:       month,
		DueDate:     student.NextDueDate,
		OrderID:     order.Order.ID,
	})
	if sendErr != nil {
		reminder.Status = models.ReminderStatusFailed
		reminder.Error = sendErr.Error()
	} else {
		sentAt := r.now()
		reminder.Status = models.ReminderStatusSent
		reminder.SentAt = &sentAt
		summary.Sent++
	}
	if err := r.store.Reminders().Update(ctx, reminder); err != nil {
		return errors.Join(sendErr, fmt.Errorf("student %d: update reminder: %w", student.ID, err))
	}
	if sendErr != nil {
		return fmt.Errorf("student %d: send reminder: %w", student.ID, sendErr)
	}
	return nil
}
