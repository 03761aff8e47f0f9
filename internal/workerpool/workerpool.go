// Package workerpool bounds the number of Decide calls the core runs
// concurrently (spec §5 "concurrency exists across requests" bounded
// to a configured ceiling).
//
// The bounded-concurrency shape is grounded on akashi's
// internal/ratelimit.MemoryLimiter: a single long-lived structure
// guarding a shared resource across concurrent requests, closed once
// at shutdown. Here the gate is a weighted semaphore rather than a
// token bucket, since the resource being protected is concurrent
// in-flight work rather than a request rate.
package workerpool

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// Pool bounds concurrent execution of a unit of work to a fixed
// capacity using a weighted semaphore.
type Pool struct {
	sem *semaphore.Weighted
}

// New returns a Pool that admits at most capacity concurrent Run calls.
func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(capacity))}
}

// Run acquires a slot, invokes fn, and releases the slot before
// returning. It blocks until a slot is free or ctx is cancelled.
func (p *Pool) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return errs.Wrap(errs.KindValidation, "workerpool: acquire slot", err)
	}
	defer p.sem.Release(1)
	return fn(ctx)
}

// TryRun attempts to acquire a slot without blocking. It reports false
// if the pool is at capacity.
func (p *Pool) TryRun(ctx context.Context, fn func(ctx context.Context) error) (ran bool, err error) {
	if !p.sem.TryAcquire(1) {
		return false, nil
	}
	defer p.sem.Release(1)
	return true, fn(ctx)
}
