package store

import "gorm.io/gorm"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page selects one page of a listing. Zero values mean the first page of
// the default size.
type Page struct {
	Number int `form:"page" binding:"omitempty,min=1"`
	Size   int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (p Page) normalized() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

func (p Page) scope() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((p.Number - 1) * p.Size).Limit(p.Size)
	}
}

// Paged is one page of results with listing metadata.
type Paged[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaged wraps data as page p of total items.
func NewPaged[T any](data []T, p Page, total int64) Paged[T] {
	p = p.normalized()
	if data == nil {
		data = []T{}
	}
	pages := int((total + int64(p.Size) - 1) / int64(p.Size))
	return Paged[T]{Data: data, Page: p.Number, PageSize: p.Size, TotalItems: total, TotalPages: pages}
}
