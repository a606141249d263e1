package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/backupdash/internal/api/request"
	"github.com/edvin/backupdash/internal/api/response"
	"github.com/edvin/backupdash/internal/backups"
)

type Session struct {
	store SessionStore
	cache Invalidator
}

func NewSession(store SessionStore, cache Invalidator) *Session {
	return &Session{store: store, cache: cache}
}

type SessionStatus struct {
	Authenticated bool `json:"authenticated"`
}

func (h *Session) Get(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, SessionStatus{Authenticated: h.store.IsAuthenticated()})
}

// Login stores the token and refetches everything under the new identity.
func (h *Session) Login(w http.ResponseWriter, r *http.Request) {
	var req request.Login
	if err := request.Decode(r, &req); err != nil {
		writeDispatchError(w, err)
		return
	}
	if err := h.store.Save(req.Token); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("save session")
		response.WriteError(w, http.StatusInternalServerError, "failed to save session")
		return
	}
	h.invalidateAll()
	response.WriteJSON(w, http.StatusOK, SessionStatus{Authenticated: true})
}

func (h *Session) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("clear session")
		response.WriteError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	h.invalidateAll()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Session) invalidateAll() {
	h.cache.Invalidate(backups.FamilyBackups)
	h.cache.Invalidate(backups.FamilyConnections)
}
