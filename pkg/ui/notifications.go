package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=igcollect", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %s with title %s`, appleScriptQuote(message), appleScriptQuote(title))
	return exec.Command("osascript", "-e", script).Run()
}

func appleScriptQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
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
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("igcollect").Show($toast)
	`, xmlEscape(title), xmlEscape(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

var xmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}

// Notifier prints run outcomes and mirrors them to the desktop
type Notifier struct {
	sender  NotificationSender
	desktop bool
}

// NewNotifier creates a Notifier for the current platform. Desktop
// notifications are only sent when desktop is true.
func NewNotifier(desktop bool) *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return &Notifier{sender: sender, desktop: desktop}
}

// NewNotifierWithSender creates a Notifier that always uses sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, desktop: sender != nil}
}

func (n *Notifier) send(title, message string) {
	if n.desktop && n.sender != nil {
		// Ignore errors as notifications are not critical
		_ = n.sender.Send(title, message)
	}
}

// SendNotification prints a message and sends a desktop notification
func (n *Notifier) SendNotification(title, message string) {
	if !IsQuietMode() {
		fmt.Fprintf(Output, "\n%s: %s\n", Cyan(title), Yellow(message))
	}
	n.send(title, message)
}

// SendError sends an error notification
func (n *Notifier) SendError(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", Red(title), Red(message))
	n.send(title, message)
}

// SendSuccess sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	if !IsQuietMode() {
		fmt.Fprintf(Output, "\n%s: %s\n", Green(title), Green(message))
	}
	n.send(title, message)
}
