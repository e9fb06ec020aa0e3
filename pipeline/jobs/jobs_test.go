package jobs

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestJobSystemRunsTasks(t *testing.T) {
	js, err := NewJobSystem(4, 8)
	if err != nil {
		t.Fatalf("NewJobSystem failed: %v", err)
	}
	defer js.Shutdown()

	var counter int64
	for i := 0; i < 100; i++ {
		js.Submit(JobTask{OnStart: func() error {
			atomic.AddInt64(&counter, 1)
			return nil
		}})
	}
	js.WaitIdle()

	if counter != 100 {
		t.Errorf("ran %d tasks, want 100", counter)
	}
}

func TestJobSystemCallbacks(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	if err != nil {
		t.Fatalf("NewJobSystem failed: %v", err)
	}
	defer js.Shutdown()

	var mu sync.Mutex
	var completed, failed int
	boom := errors.New("boom")

	js.Submit(JobTask{
		OnStart:    func() error { return nil },
		OnComplete: func() { mu.Lock(); completed++; mu.Unlock() },
		OnFailure:  func(error) { t.Error("OnFailure must not fire for a successful task") },
	})
	js.Submit(JobTask{
		OnStart:    func() error { return boom },
		OnComplete: func() { t.Error("OnComplete must not fire for a failed task") },
		OnFailure: func(err error) {
			if !errors.Is(err, boom) {
				t.Errorf("OnFailure got %v, want %v", err, boom)
			}
			mu.Lock()
			failed++
			mu.Unlock()
		},
	})
	js.WaitIdle()

	mu.Lock()
	defer mu.Unlock()
	if completed != 1 || failed != 1 {
		t.Errorf("completed = %d, failed = %d, want 1 and 1", completed, failed)
	}
}

func TestJobSystemInvalidConfig(t *testing.T) {
	if _, err := NewJobSystem(0, 4); !errors.Is(err, ErrNoWorkers) {
		t.Errorf("expected ErrNoWorkers, got %v", err)
	}
	if _, err := NewJobSystem(1, -1); !errors.Is(err, ErrNegativeChannelSize) {
		t.Errorf("expected ErrNegativeChannelSize, got %v", err)
	}
}

func TestJobSystemWaitIdleWithNoWork(t *testing.T) {
	js := NewDefaultJobSystem()
	defer js.Shutdown()
	js.WaitIdle()
}
