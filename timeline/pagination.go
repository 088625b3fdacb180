package timeline

import "github.com/deemkeen/nostrodon/domain"

// Pagination tracks the oldest timestamp a tab has seen and whether a request
// for older notes is in flight.
//
// Idle -> LoadingMore happens only through StartLoadingMore, and LoadingMore ->
// Idle only through FinishLoadingMore. There is no timeout.
type Pagination struct {
	oldest    domain.Timestamp
	hasOldest bool
	since     domain.Timestamp
	loading   bool
}

func (p Pagination) OldestTimestamp() (domain.Timestamp, bool) {
	return p.oldest, p.hasOldest
}

func (p Pagination) IsLoadingMore() bool {
	return p.loading
}

// LoadingMoreSince returns the threshold of the in-flight request.
func (p Pagination) LoadingMoreSince() (domain.Timestamp, bool) {
	return p.since, p.loading
}

// ObserveTimestamp lowers the oldest timestamp; it never raises it.
func (p *Pagination) ObserveTimestamp(t domain.Timestamp) {
	if !p.hasOldest || t < p.oldest {
		p.oldest = t
		p.hasOldest = true
	}
}

func (p *Pagination) StartLoadingMore(since domain.Timestamp) {
	p.since = since
	p.loading = true
}

func (p *Pagination) FinishLoadingMore() {
	p.since = 0
	p.loading = false
}
