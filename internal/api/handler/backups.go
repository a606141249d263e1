package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/backupdash/internal/api/request"
	"github.com/edvin/backupdash/internal/api/response"
	"github.com/edvin/backupdash/internal/model"
)

type Backups struct {
	svc BackupsService
	now func() time.Time
}

func NewBackups(svc BackupsService) *Backups {
	return &Backups{svc: svc, now: time.Now}
}

// Get returns the current history view.
func (h *Backups) Get(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, newBackupsView(h.svc.State(), h.now()))
}

func (h *Backups) SetPage(w http.ResponseWriter, r *http.Request) {
	var req request.SetPage
	if err := request.Decode(r, &req); err != nil {
		writeDispatchError(w, err)
		return
	}
	if err := h.svc.SetPage(req.Page); err != nil {
		writeDispatchError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, newBackupsView(h.svc.State(), h.now()))
}

func (h *Backups) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req request.SetSearch
	if err := request.Decode(r, &req); err != nil {
		writeDispatchError(w, err)
		return
	}
	if err := h.svc.SetSearch(req.Search); err != nil {
		writeDispatchError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, newBackupsView(h.svc.State(), h.now()))
}

// Refresh refetches the current page in the background.
func (h *Backups) Refresh(w http.ResponseWriter, r *http.Request) {
	h.svc.Refresh()
	response.WritePending(w)
}

func (h *Backups) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBackupParams
	if err := request.Decode(r, &req); err != nil {
		writeDispatchError(w, err)
		return
	}
	if _, err := h.svc.CreateBackup(req.ConnectionID); err != nil {
		writeDispatchError(w, err)
		return
	}
	response.WritePending(w)
}

func (h *Backups) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req model.ScheduleBackupParams
	if err := request.Decode(r, &req); err != nil {
		writeDispatchError(w, err)
		return
	}
	if _, err := h.svc.CreateSchedule(req); err != nil {
		writeDispatchError(w, err)
		return
	}
	response.WritePending(w)
}

func (h *Backups) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	connectionID := chi.URLParam(r, "connectionID")
	var req model.UpdateScheduleParams
	if err := request.Decode(r, &req); err != nil {
		writeDispatchError(w, err)
		return
	}
	if _, err := h.svc.UpdateExistingSchedule(connectionID, req); err != nil {
		writeDispatchError(w, err)
		return
	}
	response.WritePending(w)
}

func (h *Backups) DisableSchedule(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.DisableSchedule(chi.URLParam(r, "connectionID")); err != nil {
		writeDispatchError(w, err)
		return
	}
	response.WritePending(w)
}
