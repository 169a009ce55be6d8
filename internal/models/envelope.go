package models

// Envelope is the body shape of every JSON response of the API.
type Envelope[T any] struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       T           `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Ack is the body of calls that return no data.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type ListParams struct {
	Page   int
	Limit  int
	Search string
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Normalize clamps page and limit into the accepted range.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

func NewPagination(p ListParams, total int) *Pagination {
	pages := total / p.Limit
	if total%p.Limit > 0 {
		pages++
	}
	return &Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
	}
}

// Page is one page of a server-side list.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}
