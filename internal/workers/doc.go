// Package workers contains the built-in task workers and the Notifier they
// deliver results through.
//
// SEND_REMINDER is a one-shot worker that delivers a reminder message.
// DAILY_REPORT is a recurring worker that summarizes the queued tasks.
package workers
