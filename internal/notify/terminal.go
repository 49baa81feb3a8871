package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// TerminalNotifier prints notifications to stderr. Output goes to stderr so
// it never mixes with --json report output on stdout.
type TerminalNotifier struct {
	out io.Writer
}

// NewTerminalNotifier creates a terminal channel writing to stderr.
func NewTerminalNotifier() *TerminalNotifier {
	return &TerminalNotifier{out: os.Stderr}
}

// Name returns the channel name.
func (tn *TerminalNotifier) Name() string { return "terminal" }

// IsEnabled reports whether the channel can deliver.
func (tn *TerminalNotifier) IsEnabled() bool { return tn.out != nil }

// Send renders the notification and writes it in one call.
func (tn *TerminalNotifier) Send(ctx context.Context, n Notification) error {
	_, err := fmt.Fprintln(tn.out, FormatNotification(n))
	return err
}

// FormatNotification renders a notification as indented terminal lines. Color
// is applied per type and degrades to plain text on non-TTY outputs.
func FormatNotification(n Notification) string {
	ts := n.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var label string
	var c *color.Color
	switch n.Type {
	case NotificationTrade:
		label = "TRADE"
		c = color.New(color.FgGreen, color.Bold)
	case NotificationError:
		label = "ERROR"
		c = color.New(color.FgRed, color.Bold)
	case NotificationSummary:
		label = "SUMMARY"
		c = color.New(color.FgCyan, color.Bold)
	default:
		label = "INFO"
		c = color.New(color.FgWhite)
	}

	var sb strings.Builder
	sb.WriteString(c.Sprintf("[%s] %s", ts.Format("15:04:05"), label))
	if n.Title != "" {
		sb.WriteString(" " + n.Title)
	}
	for _, line := range strings.Split(n.Message, "\n") {
		if line == "" {
			continue
		}
		sb.WriteString("\n    " + line)
	}
	return sb.String()
}
