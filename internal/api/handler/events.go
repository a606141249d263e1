package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/edvin/backupdash/internal/backups"
	"github.com/edvin/backupdash/internal/notify"
)

const eventWriteTimeout = 10 * time.Second

// Event types pushed on the event stream.
const (
	EventState        = "state"
	EventNotification = "notification"
)

// Event is one message on the event stream.
type Event struct {
	Type         string               `json:"type"`
	State        *BackupsView         `json:"state,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
}

type Events struct {
	backups       BackupsService
	notifications NotificationSource
	origins       []string
	now           func() time.Time
}

// NewEvents streams history snapshots and notifications over a WebSocket.
// originPatterns lists the browser origins allowed to connect besides the
// API host itself.
func NewEvents(svc BackupsService, notifications NotificationSource, originPatterns []string) *Events {
	return &Events{backups: svc, notifications: notifications, origins: originPatterns, now: time.Now}
}

func (h *Events) Stream(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.CloseNow()

	// Clients only listen; CloseRead handles their close frame.
	ctx := ws.CloseRead(r.Context())

	notes, unsubscribe := h.notifications.Subscribe(0)
	defer unsubscribe()

	// Latest snapshot wins when the client is slower than the orchestrator.
	states := make(chan backups.State, 1)
	cancelWatch := h.backups.Watch(func(s backups.State) {
		select {
		case <-states:
		default:
		}
		select {
		case states <- s:
		default:
		}
	})
	defer cancelWatch()

	log.Debug().Msg("event stream opened")
	for {
		var ev Event
		select {
		case <-ctx.Done():
			log.Debug().Msg("event stream closed")
			return
		case n, ok := <-notes:
			if !ok {
				ws.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			ev = Event{Type: EventNotification, Notification: &n}
		case s := <-states:
			view := newBackupsView(s, h.now())
			ev = Event{Type: EventState, State: &view}
		}
		if err := h.write(ctx, ws, ev); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Str("event", ev.Type).Msg("event stream write failed")
			}
			return
		}
	}
}

func (h *Events) write(ctx context.Context, ws *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, ev)
}
