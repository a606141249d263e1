package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/edvin/backupdash/internal/validate"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// Decode reads a JSON body into v and validates it against its struct tags.
// Errors wrap validate.ErrValidation so handlers can answer 400.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", validate.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON: %v", validate.ErrValidation, err)
	}
	return validate.Struct(v)
}

// SetPage moves the history view to another page.
type SetPage struct {
	Page int `json:"page" validate:"gte=1"`
}

// SetSearch filters the history view. An empty search clears the filter.
type SetSearch struct {
	Search string `json:"search" validate:"max=256"`
}

// Login stores a backend session token.
type Login struct {
	Token string `json:"token" validate:"required"`
}
