package services

import "log"

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notifier is the user-facing toast surface. Every success with a visible
// effect and every failure produces exactly one notification; duplicates
// for a single logical action are a defect.
type Notifier interface {
	Notify(message string, severity Severity)
}

// LogNotifier writes notifications to the process log. It stands in when no
// client-facing surface is attached (workers, tests, local development).
type LogNotifier struct{}

func (LogNotifier) Notify(message string, severity Severity) {
	log.Printf("[%s] %s", severity, message)
}
