// Package format renders backup records for the history view.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/edvin/backupdash/internal/model"
)

// Status badge classes.
const (
	ColorCompleted = "bg-emerald-500/15 text-emerald-500"
	ColorFailed    = "bg-red-500/15 text-red-500"
	ColorRunning   = "bg-blue-500/15 text-blue-500"
	ColorUnknown   = "bg-gray-500/15 text-gray-500"
)

// Size renders a byte count in binary units, e.g. "1.5 KiB".
func Size(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// Duration renders the run time of a backup in whole seconds.
func Duration(started, completed *time.Time) string {
	if started == nil {
		return "-"
	}
	if completed == nil {
		return "in progress"
	}
	secs := int64(completed.Sub(*started) / time.Second)
	if secs < 0 {
		secs = 0
	}
	h, m, s := secs/3600, secs/60%60, secs%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func StatusColor(status string) string {
	switch status {
	case model.StatusCompleted:
		return ColorCompleted
	case model.StatusFailed:
		return ColorFailed
	case model.StatusRunning:
		return ColorRunning
	default:
		return ColorUnknown
	}
}

// TimeAgo renders t relative to now, e.g. "3 minutes ago".
func TimeAgo(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// FileName returns the last path segment. Both Windows and Unix separators
// are accepted.
func FileName(path string) string {
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Row is a backup prepared for display.
type Row struct {
	ID           string `json:"id"`
	ConnectionID string `json:"connection_id"`
	FileName     string `json:"file_name"`
	DatabaseType string `json:"database_type"`
	Status       string `json:"status"`
	StatusColor  string `json:"status_color"`
	Size         string `json:"size"`
	Duration     string `json:"duration"`
	Created      string `json:"created"`
}

func NewRow(b model.Backup, now time.Time) Row {
	return Row{
		ID:           b.ID,
		ConnectionID: b.ConnectionID,
		FileName:     FileName(b.Path),
		DatabaseType: b.DatabaseType,
		Status:       b.Status,
		StatusColor:  StatusColor(b.Status),
		Size:         Size(b.Size),
		Duration:     Duration(b.StartedTime, b.CompletedTime),
		Created:      TimeAgo(b.CreatedAt, now),
	}
}

func Rows(backups []model.Backup, now time.Time) []Row {
	rows := make([]Row, 0, len(backups))
	for _, b := range backups {
		rows = append(rows, NewRow(b, now))
	}
	return rows
}
