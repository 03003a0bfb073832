package notify

import (
	"fmt"

	"github.com/hochfrequenz/task-forest/internal/domain"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	RunID   string           // Optional run reference
	Stats   *domain.RunStats // Optional run statistics for richer sinks
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// ForRun builds a rebuild-completion notification from run statistics.
// A run with unresolved or ambiguous edges is a warning, not an error,
// since the forest is still usable.
func ForRun(stats *domain.RunStats) Notification {
	typ := NotifySuccess
	if stats.Unresolved > 0 || stats.AmbiguousMatches > 0 {
		typ = NotifyWarning
	}
	return Notification{
		Title: "Forest rebuild complete",
		Message: fmt.Sprintf("%d skeletons, %d edges resolved, %d unresolved, %d ambiguous (%.1fs)",
			stats.TotalSkeletons, stats.ResolvedEdges, stats.Unresolved, stats.AmbiguousMatches,
			stats.Duration().Seconds()),
		Type:  typ,
		RunID: stats.RunID,
		Stats: stats,
	}
}
