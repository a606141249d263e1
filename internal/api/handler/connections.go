package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/backupdash/internal/api/response"
)

type Connections struct {
	svc ConnectionsService
}

func NewConnections(svc ConnectionsService) *Connections {
	return &Connections{svc: svc}
}

func (h *Connections) List(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, newConnectionsView(h.svc.State()))
}

// Get looks the connection up in the cached list; it never calls the backend.
func (h *Connections) Get(w http.ResponseWriter, r *http.Request) {
	conn, ok := h.svc.Find(chi.URLParam(r, "id"))
	if !ok {
		response.WriteError(w, http.StatusNotFound, "connection not found")
		return
	}
	response.WriteJSON(w, http.StatusOK, conn)
}
