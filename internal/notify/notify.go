// Package notify delivers user-visible outcome messages for mutations.
package notify

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/backupdash/internal/platform"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
)

const (
	TitleSuccess = "Success"
	TitleError   = "Error"

	VariantDestructive = "destructive"
)

// Operation names the mutation a notification reports on.
type Operation string

const (
	OpCreateBackup    Operation = "create_backup"
	OpCreateSchedule  Operation = "create_schedule"
	OpUpdateSchedule  Operation = "update_schedule"
	OpDisableSchedule Operation = "disable_schedule"
)

type Notification struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Operation   Operation `json:"operation"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     string    `json:"variant,omitempty"`
	Time        time.Time `json:"time"`
}

// Sink receives notifications. Implementations must not block.
type Sink interface {
	Notify(Notification)
}

type SinkFunc func(Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

// Success builds the notification for a completed mutation.
func Success(op Operation, description string) Notification {
	return Notification{
		ID:          platform.NewID(),
		Kind:        KindSuccess,
		Operation:   op,
		Title:       TitleSuccess,
		Description: description,
		Time:        time.Now().UTC(),
	}
}

// Failure builds the notification for a failed mutation. The description is
// the server-supplied message carried by err, or fallback when there is none.
func Failure(op Operation, err error, fallback string) Notification {
	return Notification{
		ID:          platform.NewID(),
		Kind:        KindFailure,
		Operation:   op,
		Title:       TitleError,
		Description: MessageFrom(err, fallback),
		Variant:     VariantDestructive,
		Time:        time.Now().UTC(),
	}
}

// MessageFrom returns the first non-empty UserMessage in err's chain, or fallback.
func MessageFrom(err error, fallback string) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}

// Multi fans a notification out to several sinks in order.
type Multi []Sink

func (m Multi) Notify(n Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(n)
		}
	}
}

// LogSink writes notifications to a zerolog logger.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "notify").Logger()}
}

func (s *LogSink) Notify(n Notification) {
	ev := s.logger.Info()
	if n.Kind == KindFailure {
		ev = s.logger.Warn()
	}
	ev.Str("notification_id", n.ID).
		Str("operation", string(n.Operation)).
		Str("title", n.Title).
		Msg(n.Description)
}
