// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/pubrecon/internal/fetch"
)

// outcome is the result of fetching one job.
type outcome struct {
	profile fetch.Profile
	err     error
	skipped bool
}

// prefetcher fetches up to n jobs ahead of the consumer. Results are handed
// out strictly in plan order, so merging stays single-writer.
type prefetcher struct {
	results []chan outcome
	ahead   chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	g       *errgroup.Group
}

func startPrefetch(ctx context.Context, jobs []Job, from, n int, fetchOne func(context.Context, Job) outcome) *prefetcher {
	ctx, cancel := context.WithCancel(ctx)
	p := &prefetcher{
		results: make([]chan outcome, len(jobs)),
		ahead:   make(chan struct{}, n),
		cancel:  cancel,
		done:    make(chan struct{}),
		g:       &errgroup.Group{},
	}
	p.g.SetLimit(n)
	for i := from; i < len(jobs); i++ {
		p.results[i] = make(chan outcome, 1)
	}

	go func() {
		defer close(p.done)
		for i := from; i < len(jobs); i++ {
			select {
			case p.ahead <- struct{}{}:
			case <-ctx.Done():
				return
			}
			job, ch := jobs[i], p.results[i]
			p.g.Go(func() error {
				ch <- fetchOne(ctx, job)
				return nil
			})
		}
	}()
	return p
}

// next waits for job i's outcome. It returns ctx.Err() if ctx ends first.
func (p *prefetcher) next(ctx context.Context, i int) (outcome, error) {
	select {
	case o := <-p.results[i]:
		<-p.ahead
		return o, nil
	case <-ctx.Done():
		return outcome{}, ctx.Err()
	}
}

// stop cancels outstanding fetches and waits for every goroutine to exit.
func (p *prefetcher) stop() {
	p.cancel()
	<-p.done
	p.g.Wait()
}
