package txqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store"
	"github.com/aleixpons/padel-club-backend/internal/store/memory"
)

func TestSingleTransactionInFlight(t *testing.T) {
	q := New(memory.New(), 32, 0)
	defer q.Close()

	var inflight, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Do(context.Background(), func(tx store.Tx) error {
				n := atomic.AddInt32(&inflight, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inflight, -1)
				return nil
			})
			if err != nil {
				t.Errorf("do: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&peak); got != 1 {
		t.Fatalf("peak in-flight transactions = %d, want 1", got)
	}
}

func TestFailedTransactionLeavesNoTrace(t *testing.T) {
	q := New(memory.New(), 8, 0)
	defer q.Close()

	boom := errors.New("boom")
	err := q.Do(context.Background(), func(tx store.Tx) error {
		m := model.Member{Name: "Anna", Surname: "Roca", Email: "anna@example.com"}
		if err := tx.Members().Create(context.Background(), &m); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("do returned %v, want the transaction error unchanged", err)
	}

	err = q.Do(context.Background(), func(tx store.Tx) error {
		if _, err := tx.Members().GetByEmail(context.Background(), "anna@example.com"); err == nil {
			return errors.New("member survived a rolled-back transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSequentialObservability(t *testing.T) {
	q := New(memory.New(), 8, 0)
	defer q.Close()

	if err := q.Do(context.Background(), func(tx store.Tx) error {
		m := model.Member{Name: "Anna", Surname: "Roca", Email: "anna@example.com"}
		return tx.Members().Create(context.Background(), &m)
	}); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := q.Do(context.Background(), func(tx store.Tx) error {
		_, err := tx.Members().GetByEmail(context.Background(), "anna@example.com")
		return err
	}); err != nil {
		t.Fatalf("second transaction should observe the first: %v", err)
	}
}

func TestWaitCountReportsQueuedRequests(t *testing.T) {
	q := New(memory.New(), 8, 0)
	defer q.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), func(tx store.Tx) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	if got := q.WaitCount(); got != 0 {
		t.Fatalf("wait count with nothing queued = %d, want 0", got)
	}

	done := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			done <- q.Do(context.Background(), func(tx store.Tx) error { return nil })
		}()
	}
	deadline := time.Now().Add(time.Second)
	for q.WaitCount() != 3 {
		if time.Now().After(deadline) {
			t.Fatalf("wait count = %d, want 3 queued behind the blocked transaction", q.WaitCount())
		}
		time.Sleep(time.Millisecond)
	}

	close(release)
	for i := 0; i < 3; i++ {
		if err := <-done; err != nil {
			t.Fatalf("queued do: %v", err)
		}
	}
	if got := q.WaitCount(); got != 0 {
		t.Fatalf("wait count after drain = %d, want 0", got)
	}
}

func TestWaitTimeout(t *testing.T) {
	q := New(memory.New(), 8, 30*time.Millisecond)
	defer q.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), func(tx store.Tx) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	err := q.Do(context.Background(), func(tx store.Tx) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("queued request returned %v, want deadline exceeded", err)
	}
}

func TestAbandonedRequestIsNotStarted(t *testing.T) {
	q := New(memory.New(), 8, 0)
	defer q.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), func(tx store.Tx) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- q.Do(ctx, func(tx store.Tx) error {
			ran.Store(true)
			return nil
		})
	}()
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("abandoned request returned %v, want canceled", err)
	}

	close(release)
	// Drain the queue so the worker has had the chance to reach the
	// abandoned item.
	if err := q.Do(context.Background(), func(tx store.Tx) error { return nil }); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if ran.Load() {
		t.Fatal("abandoned transaction must not run")
	}
}

func TestDoAfterClose(t *testing.T) {
	q := New(memory.New(), 8, 0)
	q.Close()
	if err := q.Do(context.Background(), func(tx store.Tx) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Fatalf("do after close returned %v, want ErrClosed", err)
	}
	// Close is idempotent.
	q.Close()
}
