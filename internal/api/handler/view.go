package handler

import (
	"time"

	"github.com/edvin/backupdash/internal/backups"
	"github.com/edvin/backupdash/internal/format"
	"github.com/edvin/backupdash/internal/model"
)

// PaginationView adds the derived page count to the backend pagination.
type PaginationView struct {
	model.Pagination
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// BackupsView is the JSON shape of the history view.
type BackupsView struct {
	Backups           []format.Row    `json:"backups"`
	Pagination        *PaginationView `json:"pagination,omitempty"`
	IsLoading         bool            `json:"is_loading"`
	IsPlaceholderData bool            `json:"is_placeholder_data"`
	Error             string          `json:"error,omitempty"`

	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Search string `json:"search"`

	IsCreating   bool `json:"is_creating"`
	IsScheduling bool `json:"is_scheduling"`
	IsUpdating   bool `json:"is_updating"`
	IsDisabling  bool `json:"is_disabling"`
}

func newBackupsView(s backups.State, now time.Time) BackupsView {
	v := BackupsView{
		Backups:           format.Rows(s.Backups, now),
		IsLoading:         s.IsLoading,
		IsPlaceholderData: s.IsPlaceholderData,
		Page:              s.Page,
		Limit:             s.Limit,
		Search:            s.Search,
		IsCreating:        s.IsCreating,
		IsScheduling:      s.IsScheduling,
		IsUpdating:        s.IsUpdating,
		IsDisabling:       s.IsDisabling,
	}
	if s.Pagination != nil {
		v.Pagination = &PaginationView{
			Pagination: *s.Pagination,
			TotalPages: s.Pagination.TotalPages(),
			HasNext:    s.Pagination.HasNext(),
		}
	}
	if s.Error != nil {
		v.Error = s.Error.Error()
	}
	return v
}

// ConnectionsView is the JSON shape of the connections list.
type ConnectionsView struct {
	Connections []model.Connection `json:"connections"`
	IsLoading   bool               `json:"is_loading"`
	Error       string             `json:"error,omitempty"`
}

func newConnectionsView(s backups.ConnectionsState) ConnectionsView {
	v := ConnectionsView{Connections: s.Connections, IsLoading: s.IsLoading}
	if v.Connections == nil {
		v.Connections = []model.Connection{}
	}
	if s.Error != nil {
		v.Error = s.Error.Error()
	}
	return v
}
