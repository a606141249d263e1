package model

// DefaultPageSize is the fixed number of backups shown per history page.
const DefaultPageSize = 10

// ListBackupsParams selects one page of the backup history.
type ListBackupsParams struct {
	Page   int    `json:"page" validate:"gte=1"`
	Limit  int    `json:"limit" validate:"gte=1"`
	Search string `json:"search"`
}

// Pagination is the metadata returned alongside a page of backups.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// TotalPages returns the number of pages needed to show Total items.
func (p Pagination) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// HasNext reports whether a page after the current one exists.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages()
}

// BackupPage is one page of backups, most recent first.
type BackupPage struct {
	Data       []Backup   `json:"data"`
	Pagination Pagination `json:"pagination"`
}
