package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"bookmarkdl/pkg/config"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %s with title %s`, appleQuote(message), appleQuote(title))
	return exec.Command("osascript", "-e", script).Run()
}

func appleQuote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("bookmarkdl").Show($toast)
	`, xmlEscape(title), xmlEscape(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// PlatformSender returns the sender for the running OS, or nil
func PlatformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// Notifier announces the end of a run on the console and, for the desktop
// type, through the platform sender
type Notifier struct {
	enabled bool
	sender  NotificationSender
}

// NewNotifier creates a Notifier from the notifications config section
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	kind := strings.ToLower(cfg.NotificationType)
	n := &Notifier{enabled: cfg.Enabled && kind != "none"}
	if n.enabled && kind == "desktop" {
		n.sender = PlatformSender()
	}
	return n
}

// NewNotifierWithSender is used by tests and by callers with their own sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{enabled: true, sender: sender}
}

// SendNotification prints to the console and sends a desktop notification.
// Sender errors are ignored.
func (n *Notifier) SendNotification(title, message string) {
	n.send(Cyan(title), Yellow(message), title, message)
}

// SendError sends an error notification
func (n *Notifier) SendError(title, message string) {
	n.send(Red(title), Red(message), title, message)
}

// SendSuccess sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	n.send(Green(title), Green(message), title, message)
}

func (n *Notifier) send(coloredTitle, coloredMessage, title, message string) {
	if n == nil || !n.enabled {
		return
	}
	printf("\n%s: %s\n", coloredTitle, coloredMessage)
	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}
