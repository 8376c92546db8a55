package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"polyglot/internal/daemonctl"
	"polyglot/internal/queue"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var statusStyles = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// renderStatus prints the `polyglot status` report: preflight checks,
// scheduler and lease state, then queue counts.
func renderStatus(out io.Writer, snapshot *daemonctl.Snapshot, colorize bool) {
	printSection(out, "System Status", colorize)
	for _, check := range snapshot.Checks {
		fmt.Fprintln(out, renderStatusLine(check.Label, statusKindFromSeverity(check.Severity), check.Detail, colorize))
	}
	status := snapshot.Daemon
	if status.Scheduler != nil {
		interval := time.Duration(status.Scheduler.IntervalSeconds * float64(time.Second))
		detail := fmt.Sprintf("every %s, %d runs", interval, status.Scheduler.Runs)
		kind := statusOK
		if status.Scheduler.LastError != "" {
			detail += "; last error: " + status.Scheduler.LastError
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine("Scheduler", kind, detail, colorize))
	}
	if status.Lease != nil {
		fmt.Fprintln(out, renderStatusLine("Queue lease", statusInfo,
			fmt.Sprintf("held by %s until %s", status.Lease.Owner, formatDisplayTime(status.Lease.ExpiresAt)), colorize))
	}
	kind, summary := queueHealth(status.QueueStats)
	fmt.Fprintln(out, renderStatusLine("Translation queue", kind, summary, colorize))
	fmt.Fprintln(out)

	printSection(out, "Queue Status", colorize)
	rows := buildQueueStatusRows(status.QueueStats)
	if len(rows) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	fmt.Fprint(out, renderTable(queueStatusColumns, rows))
}

// queueHealth condenses queue counts into one status line. Failed jobs warn
// because they need a retry or a cleanup.
func queueHealth(stats map[string]int) (statusKind, string) {
	failed := stats[string(queue.StatusFailed)]
	pending := stats[string(queue.StatusPending)]
	processing := stats[string(queue.StatusProcessing)]
	switch {
	case failed > 0:
		return statusWarn, fmt.Sprintf("%d failed, %d waiting", failed, pending+processing)
	case processing > 0:
		return statusInfo, fmt.Sprintf("translating %d, %d pending", processing, pending)
	case pending > 0:
		return statusInfo, fmt.Sprintf("%d pending", pending)
	default:
		return statusOK, "idle"
	}
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style, ok := statusStyles[kind]
	if !ok {
		style = statusStyles[statusInfo]
	}
	text := "[" + style.label + "]"
	if message != "" {
		text += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", text)
	if colorize {
		return style.color + line + ansiReset
	}
	return line
}

func statusKindFromSeverity(severity string) statusKind {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "ok":
		return statusOK
	case "warn", "warning":
		return statusWarn
	case "error":
		return statusError
	default:
		return statusInfo
	}
}

func printSection(out io.Writer, title string, colorize bool) {
	heading := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(heading))
	if colorize {
		heading, rule = ansiBlue+heading+ansiReset, ansiBlue+rule+ansiReset
	}
	fmt.Fprintln(out, heading)
	fmt.Fprintln(out, rule)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
