package kpa

import (
	"context"

	"github.com/alfredjeanlab/kpatap/internal/model"
)

// Pager tracks the page-token state machine for a paginated list endpoint.
// The zero token means "first page requested, no prior token": the first call
// requests page 1 implicitly, and each response's paging.last_page decides
// whether a next page exists.
type Pager struct {
	token int
	done  bool
}

// NewPager returns a pager starting before the first page.
func NewPager() *Pager { return &Pager{} }

// Token returns the token to send with the next request; zero means omit the
// page parameter.
func (p *Pager) Token() int { return p.token }

// Page returns the effective page number of the next request.
func (p *Pager) Page() int {
	if p.token == 0 {
		return 1
	}
	return p.token
}

// Observe consumes the server-reported last page for the page just fetched
// and advances (or terminates) the state machine.
func (p *Pager) Observe(lastPage int) {
	next := p.Page() + 1
	if lastPage >= next {
		p.token = next
		return
	}
	p.done = true
}

// Done reports whether the sequence has terminated.
func (p *Pager) Done() bool { return p.done }

// EachResponsePage fetches every page of responses.list for a form, strictly
// in increasing page order, calling fn with each page's summaries. Iteration
// stops early when fn returns an error.
func (c *Client) EachResponsePage(ctx context.Context, formID model.ID, updatedAfter int64, fn func([]model.ResponseSummary) error) error {
	pager := NewPager()
	for !pager.Done() {
		summaries, lastPage, err := c.ListResponses(ctx, formID, pager.Token(), updatedAfter)
		if err != nil {
			return err
		}
		c.logger.Info("fetched response page",
			"form_id", formID, "page", pager.Page(), "last_page", lastPage, "count", len(summaries))
		pager.Observe(lastPage)
		if err := fn(summaries); err != nil {
			return err
		}
	}
	return nil
}
