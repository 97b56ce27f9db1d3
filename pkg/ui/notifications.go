package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strconv"

	"clubkit/pkg/report"

	"github.com/charmbracelet/lipgloss"
)

// NotificationSender raises a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// commandSender shells out to the platform's notification tool
type commandSender struct {
	name string
	args func(title, message string) []string
}

func (c commandSender) Send(title, message string) error {
	return exec.Command(c.name, c.args(title, message)...).Run()
}

var platformSenders = map[string]commandSender{
	"linux": {
		name: "notify-send",
		args: func(title, message string) []string {
			return []string{"--app-name=clubkit", title, message}
		},
	},
	"darwin": {
		name: "osascript",
		args: func(title, message string) []string {
			script := fmt.Sprintf("display notification %s with title %s", strconv.Quote(message), strconv.Quote(title))
			return []string{"-e", script}
		},
	},
	"windows": {
		name: "powershell",
		args: func(title, message string) []string {
			script := fmt.Sprintf(
				`[reflection.assembly]::loadwithpartialname('System.Windows.Forms') | Out-Null; `+
					`$n = New-Object System.Windows.Forms.NotifyIcon; $n.Icon = [System.Drawing.SystemIcons]::Information; `+
					`$n.Visible = $true; $n.ShowBalloonTip(5000, '%s', '%s', 'Info')`,
				title, message)
			return []string{"-NoProfile", "-NonInteractive", "-Command", script}
		},
	},
}

// Notifier echoes crawl outcomes to Output and, where the platform has a
// notification tool, to the desktop
type Notifier struct {
	sender NotificationSender
}

func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// NewNotifier picks the sender for the running platform. Unknown platforms
// only print.
func NewNotifier() *Notifier {
	if s, ok := platformSenders[runtime.GOOS]; ok {
		return &Notifier{sender: s}
	}
	return &Notifier{}
}

// NotifyCrawlFinished announces the outcome of a crawl
func (n *Notifier) NotifyCrawlFinished(r *report.Report) {
	switch {
	case r.Success():
		n.notify(successStyle, "Kit crawl complete",
			fmt.Sprintf("%d files from %d pages", r.DownloadsSucceeded, r.PagesCompleted))
	case r.Cancelled:
		n.notify(warningStyle, "Kit crawl cancelled",
			fmt.Sprintf("stopped after page %d", r.LastCompletedPage))
	default:
		n.notify(errorStyle, "Kit crawl failed",
			fmt.Sprintf("stopped after page %d", r.LastCompletedPage))
	}
}

// notify never fails the caller; a missing notification tool is ignored
func (n *Notifier) notify(style lipgloss.Style, title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", style.Render(title), style.Render(message))
	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}
