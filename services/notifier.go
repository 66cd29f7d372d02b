package services

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/Govind-619/LibTrack/utils"
	"github.com/shopspring/decimal"
)

// PaymentReminder is the content of a fee reminder
type PaymentReminder struct {
	To          string
	StudentName string
	LibraryName string
	Amount      decimal.Decimal
	Month       string
	DueDate     time.Time
	OrderID     string
}

// Welcome is the content of a new student's welcome mail
type Welcome struct {
	To          string
	StudentName string
	LibraryName string
	Password    string
	Fee         decimal.Decimal
	NextDueDate time.Time
}

// Notifier delivers messages to students
type Notifier interface {
	SendPaymentReminder(ctx context.Context, msg PaymentReminder) error
	SendWelcome(ctx context.Context, msg Welcome) error
}

// EmailNotifier sends notifications as HTML mail
type EmailNotifier struct {
	mailer *utils.Mailer
}

// NewEmailNotifier wraps a mailer
func NewEmailNotifier(mailer *utils.Mailer) *EmailNotifier {
	return &EmailNotifier{mailer: mailer}
}

// SendPaymentReminder implements Notifier
func (n *EmailNotifier) SendPaymentReminder(ctx context.Context, msg PaymentReminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := fmt.Sprintf("%s: fee due for %s", msg.LibraryName, msg.Month)
	body := fmt.Sprintf(`
		<h2>Fee reminder</h2>
		<p>Hi %s,</p>
		<p>Your %s subscription fee of <strong>%s</strong> for %s is due on %s.</p>
		<p>You can pay online from your dashboard using order reference <code>%s</code>, or pay at the front desk.</p>
		<p>If you have already paid, please ignore this email.</p>
	`,
		html.EscapeString(utils.Title(msg.StudentName)),
		html.EscapeString(msg.LibraryName),
		utils.FormatRupees(msg.Amount),
		msg.Month,
		msg.DueDate.Format("02 Jan 2006"),
		html.EscapeString(msg.OrderID),
	)
	return n.mailer.Send(msg.To, subject, body)
}

// SendWelcome implements Notifier
func (n *EmailNotifier) SendWelcome(ctx context.Context, msg Welcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := fmt.Sprintf("Welcome to %s", msg.LibraryName)
	body := fmt.Sprintf(`
		<h2>Welcome to %s!</h2>
		<p>Hi %s, your membership is active.</p>
		<p>Sign in with <strong>%s</strong> and the temporary password <code>%s</code>.</p>
		<p>Your monthly fee is %s and the first payment is due on %s.</p>
	`,
		html.EscapeString(msg.LibraryName),
		html.EscapeString(utils.Title(msg.StudentName)),
		html.EscapeString(msg.To),
		html.EscapeString(msg.Password),
		utils.FormatRupees(msg.Fee),
		msg.NextDueDate.Format("02 Jan 2006"),
	)
	return n.mailer.Send(msg.To, subject, body)
}
