package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// Pending is the body of a 202 reply to a dispatched mutation.
type Pending struct {
	Pending bool `json:"pending"`
}

// WritePending acknowledges a mutation that now runs in the background.
func WritePending(w http.ResponseWriter) {
	WriteJSON(w, http.StatusAccepted, Pending{Pending: true})
}

// WriteAttachment sends body as a file download named name.
func WriteAttachment(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
