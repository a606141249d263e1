package handler

import (
	"errors"
	"net/http"

	"github.com/edvin/backupdash/internal/api/response"
	"github.com/edvin/backupdash/internal/backups"
	"github.com/edvin/backupdash/internal/validate"
)

// writeDispatchError maps an error returned before a mutation or view change
// was dispatched. Validation problems are the caller's fault.
func writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, validate.ErrValidation):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, backups.ErrClosed):
		response.WriteError(w, http.StatusServiceUnavailable, "dashboard is shutting down")
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
