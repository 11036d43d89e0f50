package raptorq

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// blockHandle is the per-SBN synchronization unit the coordinator hands
// an Encoder: a mutex guarding that block's lazily-computed intermediate
// symbol vector, plus a place to park a background precompute worker's
// failure so it surfaces the next time the block is touched
// synchronously instead of being silently dropped.
type blockHandle struct {
	mu  sync.Mutex
	sbn uint8
	k   int
	p   blockParams
	c   [][]byte // intermediate symbols, len L, nil until computed
	err error
}

// ensure computes and caches the block's intermediate symbol vector by
// calling build exactly once; a concurrent or later caller sees the
// cached result (or the cached failure) instead of recomputing.
func (h *blockHandle) ensure(build func() ([][]byte, error)) ([][]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.c != nil || h.err != nil {
		return h.c, h.err
	}
	h.c, h.err = build()
	return h.c, h.err
}

// tryEnsure is ensure's non-blocking counterpart: if another goroutine
// already holds this block's lock (solving it, or about to cache a
// result), it returns immediately with ok false instead of waiting.
// This lets a precompute worker advance to the next SBN rather than
// stall behind someone else's in-flight solve.
func (h *blockHandle) tryEnsure(build func() ([][]byte, error)) (ok bool, c [][]byte, err error) {
	if !h.mu.TryLock() {
		return false, nil, nil
	}
	defer h.mu.Unlock()
	if h.c != nil || h.err != nil {
		return true, h.c, h.err
	}
	h.c, h.err = build()
	return true, h.c, h.err
}

// registry is the SBN -> *blockHandle map an Encoder shares between its
// synchronous Encode path and its background Precompute workers.
// The registry's mu is only ever held for the brief lookup/insert; it must
// never be held while a blockHandle's own mu is held, so the lock order
// is always registry then block, never the reverse.
type registry struct {
	mu     sync.Mutex
	blocks map[uint8]*blockHandle
}

func newRegistry() *registry {
	return &registry{blocks: make(map[uint8]*blockHandle)}
}

// handle returns the block's handle, registering one with the given
// parameters the first time the SBN is seen.
func (r *registry) handle(sbn uint8, k int, p blockParams) *blockHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.blocks[sbn]
	if !ok {
		h = &blockHandle{sbn: sbn, k: k, p: p}
		r.blocks[sbn] = h
	}
	return h
}

func (r *registry) free(sbn uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blocks, sbn)
}

func (r *registry) sbns() []uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint8, 0, len(r.blocks))
	for sbn := range r.blocks {
		out = append(out, sbn)
	}
	return out
}

// precompute runs tryEnsure for every currently registered block,
// bounded to `threads` concurrent workers via a weighted semaphore.
// Workers pull SBNs from a shared list rather than a static range, so
// one finishing early picks up whatever is left instead of idling. A
// block already resolved by another worker is a no-op courtesy of
// tryEnsure's cached fast path; a block currently being solved by
// another worker (or by a concurrent Encode) is skipped outright via
// tryEnsure's non-blocking lock attempt, so no worker ever stalls
// behind someone else's in-flight solve.
//
// When background is false, precompute blocks until every worker
// finishes and returns the first error. When true, it launches the
// workers and returns immediately -- any error is already recorded on
// its block's handle (via tryEnsure) and will surface the next time that
// block is encoded.
func (r *registry) precompute(ctx context.Context, threads int, background bool, build func(sbn uint8) ([][]byte, error)) error {
	if threads < 1 {
		threads = 1
	}
	sbns := r.sbns()

	run := func() error {
		sem := semaphore.NewWeighted(int64(threads))
		g, gctx := errgroup.WithContext(ctx)
		for _, sbn := range sbns {
			sbn := sbn
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			g.Go(func() error {
				defer sem.Release(1)
				h := r.handle(sbn, 0, blockParams{})
				_, _, err := h.tryEnsure(func() ([][]byte, error) { return build(sbn) })
				return err
			})
		}
		return g.Wait()
	}

	if !background {
		return run()
	}
	go func() { _ = run() }()
	return nil
}
