package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Date and time layouts used across the reservation ledger. Dates are
// calendar days without a time component; times are wall-clock HH:MM.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)
