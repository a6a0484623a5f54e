package query

// DefaultPageSize is used when a pager has no positive size.
const DefaultPageSize = 10

// Pager addresses one 1-based page of a sequence.
type Pager struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

func (p Pager) size() int {
	if p.Size <= 0 {
		return DefaultPageSize
	}
	return p.Size
}

// TotalPages returns ceil(n/size), never less than 1.
func (p Pager) TotalPages(n int) int {
	size := p.size()
	pages := (n + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Clamp bounds the page to [1, TotalPages(n)] and normalizes the size.
func (p Pager) Clamp(n int) Pager {
	p.Size = p.size()
	last := p.TotalPages(n)
	switch {
	case p.Page < 1:
		p.Page = 1
	case p.Page > last:
		p.Page = last
	}
	return p
}

// Next moves one page forward, stopping at the last page.
func (p Pager) Next(n int) Pager { p.Page++; return p.Clamp(n) }

// Prev moves one page back, stopping at the first page.
func (p Pager) Prev(n int) Pager { p.Page--; return p.Clamp(n) }

// First moves to page 1.
func (p Pager) First(n int) Pager { p.Page = 1; return p.Clamp(n) }

// Last moves to the final page.
func (p Pager) Last(n int) Pager { p.Page = p.TotalPages(n); return p.Clamp(n) }

// Page is one slice of a sequence plus the navigation facts a renderer needs.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	Size       int  `json:"size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasPrev    bool `json:"hasPrev"`
	HasNext    bool `json:"hasNext"`
}

// Paginate returns the page [(page-1)*size, page*size) of records after
// clamping the requested page.
func Paginate[T any](records []T, p Pager) Page[T] {
	n := len(records)
	p = p.Clamp(n)
	start := (p.Page - 1) * p.Size
	end := min(start+p.Size, n)
	items := make([]T, 0, end-start)
	items = append(items, records[start:end]...)
	last := p.TotalPages(n)
	return Page[T]{
		Items:      items,
		Page:       p.Page,
		Size:       p.Size,
		Total:      n,
		TotalPages: last,
		HasPrev:    p.Page > 1,
		HasNext:    p.Page < last,
	}
}
