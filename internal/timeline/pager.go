package timeline

// Pager tracks the "load more" page counter and derives the fetch
// window every entity fetch uses. Pure counter arithmetic; failures
// belong to the fetch layer.
type Pager struct {
	page     int
	pageSize int
}

// NewPager creates a pager with the given fixed page size.
func NewPager(pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Pager{pageSize: pageSize}
}

// RequestWindow returns the number of items to fetch per entity kind
// for the current page: (page+1) * pageSize. Monotonically
// non-decreasing across successive Advance calls.
func (p *Pager) RequestWindow() int {
	return (p.page + 1) * p.pageSize
}

// Advance increments the page counter. Called exactly once per
// "load more", before the window is read for the next fetch.
func (p *Pager) Advance() {
	p.page++
}

// Retreat decrements the page counter, flooring at zero. Used after
// a mutation so the follow-up load re-fetches the current window
// instead of growing it.
func (p *Pager) Retreat() {
	if p.page > 0 {
		p.page--
	}
}

// Page returns the current zero-based page.
func (p *Pager) Page() int {
	return p.page
}

// PageSize returns the fixed page size.
func (p *Pager) PageSize() int {
	return p.pageSize
}
