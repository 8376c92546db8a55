package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"polyglot/internal/api"
	"polyglot/internal/queue"
)

const queueErrorColumnWidth = 40

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(stats))
	seen := make(map[string]bool, len(stats))
	for _, status := range queue.AllStatuses() {
		key := string(status)
		seen[key] = true
		rows = append(rows, []string{formatStatusLabel(key), humanize.Comma(int64(stats[key]))})
	}
	for key, count := range stats {
		if seen[key] {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(key), humanize.Comma(int64(count))})
	}
	return rows
}

func buildQueueListRows(items []api.QueueItem, now time.Time) [][]string {
	if len(items) == 0 {
		return nil
	}
	sorted := api.SortQueueItemsNewestFirst(items)
	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			fmt.Sprintf("%d", item.PostID),
			formatLanguagePair(item.SourceLang, item.TargetLang),
			formatStatusLabel(item.Status),
			formatRelativeTime(item.CreatedAt, now),
			truncate(item.ErrorMessage, queueErrorColumnWidth),
		})
	}
	return rows
}

func formatLanguagePair(source, target string) string {
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)
	if source == "" {
		source = "?"
	}
	return source + " -> " + target
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatRelativeTime(value string, now time.Time) string {
	t := api.ParseQueueTime(value)
	if t.IsZero() {
		return strings.TrimSpace(value)
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func formatDisplayTime(value string) string {
	t := api.ParseQueueTime(value)
	if t.IsZero() {
		return strings.TrimSpace(value)
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if width <= 3 || len(runes) <= width {
		return value
	}
	return string(runes[:width-3]) + "..."
}
