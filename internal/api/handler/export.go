package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/backupdash/internal/api/response"
	"github.com/edvin/backupdash/internal/export"
)

type Export struct {
	exporter Exporter
	uploader Uploader
	now      func() time.Time
}

// NewExport serves history exports. uploader may be nil when no bucket is
// configured.
func NewExport(exporter Exporter, uploader Uploader) *Export {
	return &Export{exporter: exporter, uploader: uploader, now: time.Now}
}

// ExportResult describes an export stored in object storage.
type ExportResult struct {
	URI  string `json:"uri"`
	Rows int    `json:"rows"`
}

// Download streams the history matching ?search= as a CSV attachment.
func (h *Export) Download(w http.ResponseWriter, r *http.Request) {
	body, n, err := h.exporter.Render(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("export failed")
		response.WriteError(w, http.StatusBadGateway, "failed to export backup history")
		return
	}
	zerolog.Ctx(r.Context()).Debug().Int("rows", n).Msg("export rendered")
	response.WriteAttachment(w, "text/csv", export.FileName(h.now()), body)
}

// Upload renders the export and puts it in the configured bucket.
func (h *Export) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		response.WriteError(w, http.StatusNotImplemented, "export storage not configured")
		return
	}
	body, n, err := h.exporter.Render(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("export failed")
		response.WriteError(w, http.StatusBadGateway, "failed to export backup history")
		return
	}
	uri, err := h.uploader.Upload(r.Context(), export.FileName(h.now()), body)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("export upload failed")
		response.WriteError(w, http.StatusBadGateway, "failed to upload export")
		return
	}
	response.WriteJSON(w, http.StatusCreated, ExportResult{URI: uri, Rows: n})
}
