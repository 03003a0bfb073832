package notify

import (
	"os/exec"
	"runtime"
	"strings"
)

// DesktopNotifier reports rebuild outcomes through the local desktop
// notification service.
type DesktopNotifier struct {
	enabled bool
}

// NewDesktopNotifier creates a new desktop notifier
func NewDesktopNotifier(enabled bool) *DesktopNotifier {
	return &DesktopNotifier{enabled: enabled}
}

// Send sends a desktop notification
func (d *DesktopNotifier) Send(n Notification) error {
	if !d.enabled {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		return d.sendMacOS(n)
	case "linux":
		return d.sendLinux(n)
	default:
		return nil // Unsupported
	}
}

func (d *DesktopNotifier) sendMacOS(n Notification) error {
	script := `display notification "` + escapeAppleScript(n.Message) +
		`" with title "` + escapeAppleScript(desktopTitle(n)) + `"`
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

func (d *DesktopNotifier) sendLinux(n Notification) error {
	// Try notify-send (most common)
	cmd := exec.Command("notify-send",
		"-u", UrgencyForType(n.Type),
		"-i", IconForType(n.Type),
		desktopTitle(n), n.Message)
	return cmd.Run()
}

// desktopTitle appends a short run reference so consecutive rebuild
// notifications are distinguishable.
func desktopTitle(n Notification) string {
	if n.RunID == "" {
		return n.Title
	}
	id := n.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return n.Title + " (run " + id + ")"
}

// UrgencyForType maps a rebuild outcome onto notify-send urgency levels.
// A clean run is low urgency; unresolved or ambiguous edges warrant
// attention; only a failed run is critical.
func UrgencyForType(t NotificationType) string {
	switch t {
	case NotifyWarning:
		return "normal"
	case NotifyError:
		return "critical"
	default:
		return "low"
	}
}

// IconForType returns an icon name for the notification type
func IconForType(t NotificationType) string {
	switch t {
	case NotifySuccess:
		return "dialog-positive"
	case NotifyWarning:
		return "dialog-warning"
	case NotifyError:
		return "dialog-error"
	default:
		return "dialog-information"
	}
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
