package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

type LogStats struct {
	TotalErrors        int
	LoginSuccess       int
	LoginFailures      int
	OrdersCreated      int
	OrdersReused       int
	OrderRetries       int
	PaymentsCompleted  int
	PaymentsFailed     int
	SignatureMismatch  int
	WebhooksRejected   int
	Refunds            int
	CashPayments       int
	ReminderRuns       int
	ReminderRunsFailed int
	StudentActivity    map[string]int
	ErrorPatterns      map[string]int
}

var (
	// "ERROR: 2006/01/02 15:04:05 file.go:42: message"
	logPrefix  = regexp.MustCompile(`^[A-Z]+: \d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} [^ ]+: `)
	studentRef = regexp.MustCompile(`student (\d+)`)
	digits     = regexp.MustCompile(`\d+`)
)

func main() {
	logDir := flag.String("dir", "./logs", "directory holding the log files")
	day := flag.String("date", time.Now().Format("2006-01-02"), "day to analyze (YYYY-MM-DD)")
	flag.Parse()

	stats := &LogStats{
		StudentActivity: make(map[string]int),
		ErrorPatterns:   make(map[string]int),
	}

	analyzeErrorLogs(filepath.Join(*logDir, fmt.Sprintf("error-%s.log", *day)), stats)
	analyzeInfoLogs(filepath.Join(*logDir, fmt.Sprintf("info-%s.log", *day)), stats)

	printReport(*day, stats)
}

func analyzeErrorLogs(logFile string, stats *LogStats) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !logPrefix.MatchString(line) {
			continue // stack trace continuation
		}
		stats.TotalErrors++

		switch {
		case strings.Contains(line, "Login attempt failed"):
			stats.LoginFailures++
		case strings.Contains(line, "Signature mismatch for order"):
			stats.SignatureMismatch++
		case strings.Contains(line, "rejected: signature mismatch"):
			stats.WebhooksRejected++
		case strings.Contains(line, "Razorpay order create attempt"):
			stats.OrderRetries++
		case strings.Contains(line, "Reminder run finished with errors"):
			stats.ReminderRunsFailed++
		}

		extractErrorPattern(line, stats)
	}
}

func analyzeInfoLogs(logFile string, stats *LogStats) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.Contains(line, "logged in"):
			stats.LoginSuccess++
		case strings.Contains(line, "Created pending payment"):
			stats.OrdersCreated++
			extractStudentActivity(line, stats)
		case strings.Contains(line, "Reusing pending payment"):
			stats.OrdersReused++
		case strings.Contains(line, "completed for student"):
			stats.PaymentsCompleted++
			extractStudentActivity(line, stats)
		case strings.Contains(line, "marked failed"):
			stats.PaymentsFailed++
		case strings.Contains(line, "refunded"):
			stats.Refunds++
		case strings.Contains(line, "Cash payment for student"):
			stats.CashPayments++
			extractStudentActivity(line, stats)
		case strings.Contains(line, "Reminder run:"):
			stats.ReminderRuns++
		}
	}
}

func extractStudentActivity(line string, stats *LogStats) {
	if m := studentRef.FindStringSubmatch(line); m != nil {
		stats.StudentActivity[m[1]]++
	}
}

// extractErrorPattern groups messages by their text with ids masked out
func extractErrorPattern(line string, stats *LogStats) {
	msg := logPrefix.ReplaceAllString(line, "")
	if i := strings.Index(msg, ": "); i > 0 {
		msg = msg[:i]
	}
	stats.ErrorPatterns[digits.ReplaceAllString(msg, "N")]++
}

func printReport(day string, stats *LogStats) {
	fmt.Println("\n=== Billing Log Report ===")
	fmt.Println("Day:", day)
	fmt.Println("Generated:", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Println("\n1. Authentication:")
	fmt.Printf("   Successful Logins: %d\n", stats.LoginSuccess)
	fmt.Printf("   Failed Logins: %d\n", stats.LoginFailures)

	fmt.Println("\n2. Orders and Payments:")
	fmt.Printf("   Orders Created: %d\n", stats.OrdersCreated)
	fmt.Printf("   Orders Reused: %d\n", stats.OrdersReused)
	fmt.Printf("   Gateway Retries: %d\n", stats.OrderRetries)
	fmt.Printf("   Payments Completed: %d\n", stats.PaymentsCompleted)
	fmt.Printf("   Payments Failed: %d\n", stats.PaymentsFailed)
	fmt.Printf("   Cash Payments: %d\n", stats.CashPayments)
	fmt.Printf("   Refunds: %d\n", stats.Refunds)

	fmt.Println("\n3. Security:")
	fmt.Printf("   Checkout Signature Mismatches: %d\n", stats.SignatureMismatch)
	fmt.Printf("   Rejected Webhooks: %d\n", stats.WebhooksRejected)

	fmt.Println("\n4. Reminders:")
	fmt.Printf("   Runs: %d (with errors: %d)\n", stats.ReminderRuns, stats.ReminderRunsFailed)

	fmt.Println("\n5. Errors:")
	fmt.Printf("   Total Errors: %d\n", stats.TotalErrors)
	printTop("Most Common Errors", stats.ErrorPatterns, "occurrences", 5)

	fmt.Println()
	printTop("Most Active Students", stats.StudentActivity, "billing events", 5)
}

func printTop(title string, counts map[string]int, unit string, limit int) {
	type entry struct {
		key   string
		count int
	}

	var entries []entry
	for k, n := range counts {
		entries = append(entries, entry{k, n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})

	fmt.Printf("   %s:\n", title)
	for i, e := range entries {
		if i >= limit {
			break
		}
		fmt.Printf("     %s: %d %s\n", e.key, e.count, unit)
	}
}
