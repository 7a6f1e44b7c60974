// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package egpool_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/featurebasedb/medallion/egpool"
)

func TestEGPool(t *testing.T) {
	eg := egpool.Group{}

	a := make([]int, 10)

	for i := 0; i < 10; i++ {
		i := i
		eg.Go(func() error {
			a[i] = i
			if i == 7 {
				return errors.New("blah")
			}
			return nil
		})
	}

	err := eg.Wait()
	if err == nil || err.Error() != "blah" {
		t.Errorf("expected err blah, got: %v", err)
	}

	for i := 0; i < 10; i++ {
		if a[i] != i {
			t.Errorf("expected a[%d] to be %d, but is %d", i, i, a[i])
		}
	}
}

func TestEGPoolBounded(t *testing.T) {
	eg := egpool.Group{PoolSize: 3}

	var active, peak int64
	for i := 0; i < 50; i++ {
		eg.Go(func() error {
			n := atomic.AddInt64(&active, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			atomic.AddInt64(&active, -1)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := atomic.LoadInt64(&peak); p > 3 {
		t.Errorf("expected at most 3 concurrent jobs, observed %d", p)
	}
}

func TestEGPoolCollectsAllErrors(t *testing.T) {
	eg := egpool.Group{PoolSize: 4}

	for i := 0; i < 20; i++ {
		i := i
		eg.Go(func() error {
			if i%5 == 0 {
				return errors.New("boom")
			}
			return nil
		})
	}

	if err := eg.Wait(); err == nil {
		t.Fatal("expected an error")
	}
	if got := len(eg.Errors()); got != 4 {
		t.Errorf("expected 4 errors, got %d", got)
	}
}

func TestEGPoolPanic(t *testing.T) {
	eg := egpool.Group{}
	eg.Go(func() error {
		panic("job panicked")
	})

	err := eg.Wait()
	var ep egpool.ErrPanic
	if !errors.As(err, &ep) {
		t.Fatalf("expected ErrPanic, got: %v", err)
	}
}
