// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package correlate

import (
	"context"
	"runtime"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"golang.org/x/ioperf/ioop"
	"golang.org/x/ioperf/tracefmt"
)

// queueLen is the per-worker channel buffer.
const queueLen = 256

// Process correlates every record of src using opts.Workers
// goroutines.
//
// Each location of each input is owned by exactly one worker, which
// sees that location's events in stream order, so the result is the same as
// that of a single Engine. Process stops reading src when ctx is
// done. In that case, and when src fails, it returns the results for
// the records read so far along with the error.
func Process(ctx context.Context, src Source, opts Options) (*Trace, error) {
	n := opts.Workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n == 1 {
		e := NewEngine(opts)
		err := consumeCtx(ctx, e, src)
		return e.Finish(), err
	}

	g, gctx := errgroup.WithContext(ctx)
	queues := make([]chan tracefmt.Record, n)
	traces := make([]*Trace, n)
	for i := range queues {
		i := i
		queues[i] = make(chan tracefmt.Record, queueLen)
		g.Go(func() error {
			e := NewEngine(opts)
			for rec := range queues[i] {
				e.Add(rec)
			}
			traces[i] = e.Finish()
			return nil
		})
	}

	unlocated := NewEngine(opts)
	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		for src.Scan() {
			var q chan<- tracefmt.Record
			switch rec := src.Result().(type) {
			case *tracefmt.Event:
				q = queues[shard(rec.Input, rec.Location, n)]
				// The source reuses its Event.
				if err := send(gctx, q, rec.Clone()); err != nil {
					return err
				}
			case *tracefmt.SyntaxError:
				if !rec.HasLocation {
					unlocated.Add(rec)
					continue
				}
				q = queues[shard(rec.Input, rec.Location, n)]
				if err := send(gctx, q, rec); err != nil {
					return err
				}
			}
		}
		return src.Err()
	})

	err := g.Wait()
	t := unlocated.Finish()
	for _, wt := range traces {
		t.merge(wt)
	}
	slices.SortFunc(t.Locations, func(a, b LocationResult) int {
		return locKey{a.Input, a.Location}.compare(locKey{b.Input, b.Location})
	})
	return t, err
}

// shard returns the worker that owns location l of the given input.
func shard(input int, l ioop.Location, n int) int {
	return int((uint64(l) + uint64(input)) % uint64(n))
}

func send(ctx context.Context, q chan<- tracefmt.Record, rec tracefmt.Record) error {
	select {
	case q <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// consumeCtx is Engine.Consume with cancellation between records.
func consumeCtx(ctx context.Context, e *Engine, src Source) error {
	for src.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.Add(src.Result())
	}
	return src.Err()
}
