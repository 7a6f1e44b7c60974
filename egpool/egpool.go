// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package egpool provides a bounded-concurrency variant of
// golang.org/x/sync/errgroup. Jobs submitted via Go are executed by at most
// PoolSize workers; Wait blocks until every submitted job has finished and
// returns the first error reported by any of them.
package egpool

import (
	"fmt"
	"sync"
)

type Group struct {
	PoolSize int

	once sync.Once
	jobs chan func() error
	wg   sync.WaitGroup

	errMu    sync.Mutex
	firstErr error
	errs     []error
}

func (eg *Group) init() {
	if eg.PoolSize <= 0 {
		eg.PoolSize = 1
	}
	eg.jobs = make(chan func() error)
	for i := 0; i < eg.PoolSize; i++ {
		eg.wg.Add(1)
		go eg.worker()
	}
}

// Go submits a job to the pool, blocking until a worker is free to pick it
// up. It must not be called after Wait.
func (eg *Group) Go(f func() error) {
	eg.once.Do(eg.init)
	eg.jobs <- f
}

func (eg *Group) worker() {
	defer eg.wg.Done()
	for jobFn := range eg.jobs {
		eg.run(jobFn)
	}
}

func (eg *Group) run(jobFn func() error) {
	defer func() {
		if p := recover(); p != nil {
			eg.err(ErrPanic{Value: p})
		}
	}()
	if err := jobFn(); err != nil {
		eg.err(err)
	}
}

func (eg *Group) err(err error) {
	eg.errMu.Lock()
	defer eg.errMu.Unlock()

	if eg.firstErr == nil {
		eg.firstErr = err
	}
	eg.errs = append(eg.errs, err)
}

// Wait blocks until all jobs have completed and returns the first error, if
// any. The Group cannot be reused afterward.
func (eg *Group) Wait() error {
	if eg.jobs == nil {
		return nil
	}
	close(eg.jobs)
	eg.wg.Wait()
	return eg.firstErr
}

// Errors returns every error reported by a job, in completion order.
func (eg *Group) Errors() []error {
	return eg.errs
}

// ErrPanic wraps a value recovered from a panicking job.
type ErrPanic struct {
	Value interface{}
}

func (p ErrPanic) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}
