// Package export writes the backup history as CSV for the "Export Log" action.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/backupdash/internal/format"
	"github.com/edvin/backupdash/internal/model"
)

// MaxPages stops a walk over a history that keeps growing while it is read.
const MaxPages = 1000

var ErrTooManyPages = errors.New("export: history exceeds page limit")

var header = []string{
	"id", "file", "connection_id", "database_type", "status",
	"size_bytes", "size", "duration", "started_time", "completed_time", "created_at",
}

// PageReader returns one page of the history.
type PageReader func(ctx context.Context, params model.ListBackupsParams) (*model.BackupPage, error)

type Exporter struct {
	read   PageReader
	logger zerolog.Logger
}

func NewExporter(read PageReader, logger zerolog.Logger) *Exporter {
	return &Exporter{read: read, logger: logger.With().Str("component", "export").Logger()}
}

// Collect reads every page matching search, most recent first.
func (e *Exporter) Collect(ctx context.Context, search string) ([]model.Backup, error) {
	var all []model.Backup
	for page := 1; ; page++ {
		if page > MaxPages {
			return nil, ErrTooManyPages
		}
		p, err := e.read(ctx, model.ListBackupsParams{Page: page, Limit: model.DefaultPageSize, Search: search})
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", page, err)
		}
		all = append(all, p.Data...)
		if !p.Pagination.HasNext() || len(p.Data) == 0 {
			break
		}
	}
	e.logger.Debug().Str("search", search).Int("backups", len(all)).Msg("collected history")
	return all, nil
}

// Export writes every backup matching search to w and returns the row count.
func (e *Exporter) Export(ctx context.Context, w io.Writer, search string) (int, error) {
	all, err := e.Collect(ctx, search)
	if err != nil {
		return 0, err
	}
	if err := WriteCSV(w, all); err != nil {
		return 0, err
	}
	return len(all), nil
}

// Render returns the CSV for every backup matching search.
func (e *Exporter) Render(ctx context.Context, search string) ([]byte, int, error) {
	var buf bytes.Buffer
	n, err := e.Export(ctx, &buf, search)
	if err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), n, nil
}

func WriteCSV(w io.Writer, backups []model.Backup) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, b := range backups {
		if err := cw.Write(record(b)); err != nil {
			return fmt.Errorf("write backup %s: %w", b.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func record(b model.Backup) []string {
	return []string{
		b.ID,
		format.FileName(b.Path),
		b.ConnectionID,
		b.DatabaseType,
		b.Status,
		strconv.FormatInt(b.Size, 10),
		format.Size(b.Size),
		format.Duration(b.StartedTime, b.CompletedTime),
		timestamp(b.StartedTime),
		timestamp(b.CompletedTime),
		b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func timestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FileName is the download and object name for an export taken at t.
func FileName(t time.Time) string {
	return "backup-history-" + t.UTC().Format("20060102T150405Z") + ".csv"
}
