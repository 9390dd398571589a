package component

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/scalefilter/pkg/debug"
	"github.com/vanderheijden86/scalefilter/pkg/metrics"
	"github.com/vanderheijden86/scalefilter/pkg/model"
)

// ErrNotPaginated is returned by page operations of a manager without a
// page source.
var ErrNotPaginated = errors.New("filter has no page source")

// maxPrefetch bounds the concurrent fetches of Prefetch.
const maxPrefetch = 8

// Request identifies one page request. Seq orders requests by issue time.
type Request struct {
	Seq     uint64
	Page    int
	Pattern string
}

// Response is a fetched page ready to be applied.
type Response struct {
	Request
	Page model.Page
}

// BeginPage issues a request for page and marks the model busy.
func (c *Manager) BeginPage(page int, pattern string) Request {
	c.issued++
	c.model.SetBusy(true)
	return Request{Seq: c.issued, Page: page, Pattern: pattern}
}

// FetchPage runs req against the page source. It does not touch the model and
// may be called from any goroutine.
func (c *Manager) FetchPage(ctx context.Context, req Request) (Response, error) {
	if c.fetcher == nil {
		return Response{}, ErrNotPaginated
	}
	defer metrics.TimerWithCallback(metrics.PageFetch, func(d time.Duration) {
		debug.LogTiming(fmt.Sprintf("component: page %d", req.Page), d)
	})()
	page, err := c.fetcher.Fetch(ctx, model.PageRequest{
		Page:     req.Page,
		PageSize: c.pageSize,
		Pattern:  req.Pattern,
	})
	if err != nil {
		return Response{}, fmt.Errorf("fetching page %d: %w", req.Page, err)
	}
	return Response{Request: req, Page: page}, nil
}

// ApplyPage inserts a fetched page. Responses are applied in arrival order,
// so a late answer to an older request still lands; the busy flag clears
// once the newest request has been answered.
func (c *Manager) ApplyPage(resp Response) error {
	if resp.Seq < c.applied {
		debug.Log("component: applying stale page %d (request %d, newest applied %d)", resp.Page.Start, resp.Seq, c.applied)
	} else {
		c.applied = resp.Seq
		c.page = resp.Request.Page
		c.pattern = resp.Pattern
		c.exhausted = len(resp.Page.Rows) < c.pageSize
		debug.LogIf(c.exhausted, "component: source exhausted after page %d", c.page)
	}
	err := c.loader.AddPage(resp.Page, resp.Pattern)
	if err == nil {
		c.flushPending()
	}
	c.settle()
	return err
}

// FailPage ends a request that produced no page.
func (c *Manager) FailPage(req Request) {
	if req.Seq > c.applied {
		c.applied = req.Seq
	}
	c.settle()
}

func (c *Manager) settle() {
	if c.applied >= c.issued {
		c.model.SetBusy(false)
	}
}

// RequestPage fetches and applies one page synchronously.
func (c *Manager) RequestPage(ctx context.Context, page int, pattern string) error {
	if c.fetcher == nil {
		return ErrNotPaginated
	}
	return c.run(ctx, c.BeginPage(page, pattern))
}

func (c *Manager) run(ctx context.Context, req Request) error {
	resp, err := c.FetchPage(ctx, req)
	if err != nil {
		c.FailPage(req)
		return err
	}
	return c.ApplyPage(resp)
}

// BeginNextPage issues the request for the page after the last one applied,
// for callers that fetch on another goroutine. It reports false once the
// source is exhausted.
func (c *Manager) BeginNextPage() (Request, bool) {
	if c.fetcher == nil || c.exhausted {
		return Request{}, false
	}
	return c.BeginPage(c.page+1, c.pattern), true
}

// NextPage fetches the page after the last one applied for the current
// pattern. It reports false once the source has no more rows.
func (c *Manager) NextPage(ctx context.Context) (bool, error) {
	req, ok := c.BeginNextPage()
	if !ok {
		return false, nil
	}
	if err := c.run(ctx, req); err != nil {
		return false, err
	}
	return !c.exhausted, nil
}

// Exhausted reports whether the last applied page was the final one.
func (c *Manager) Exhausted() bool { return c.exhausted }

// Prefetch fetches the first n pages concurrently and applies them in page
// order. Pages that fail are skipped; the first error is returned.
func (c *Manager) Prefetch(ctx context.Context, n int) error {
	if c.fetcher == nil {
		return ErrNotPaginated
	}
	if n <= 0 {
		return nil
	}
	pattern := ""
	if c.serverSearch {
		pattern = c.model.SearchPattern()
	}
	reqs := make([]Request, n)
	for i := range reqs {
		reqs[i] = c.BeginPage(i, pattern)
	}
	results := make([]Response, n)
	errs := make([]error, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPrefetch)
	for i, req := range reqs {
		g.Go(func() error {
			results[i], errs[i] = c.FetchPage(gctx, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var first error
	for i, req := range reqs {
		if errs[i] != nil {
			c.FailPage(req)
			if first == nil {
				first = errs[i]
			}
			continue
		}
		if err := c.ApplyPage(results[i]); err != nil && first == nil {
			first = err
		}
	}
	debug.Log("component: prefetched %d pages (pattern %q)", n, pattern)
	return first
}
