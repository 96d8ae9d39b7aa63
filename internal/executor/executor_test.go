package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunProcessesBodyUntilItReturnsFalse(t *testing.T) {
	e := New()
	iterations := 0
	e.Run(func() bool {
		iterations++
		return iterations < 3
	})
	assert.Equal(t, 3, iterations)
}

func TestAsyncTaskRunsDuringRunLoop(t *testing.T) {
	e := New()
	ran := make(chan struct{}, 1)
	iterations := 0

	e.Async(func() { ran <- struct{}{} })

	e.Run(func() bool {
		iterations++
		return iterations < 2
	})

	select {
	case <-ran:
	default:
		t.Fatal("async task never ran")
	}
}

func TestSyncBlocksCallerUntilTaskRuns(t *testing.T) {
	e := New()
	var result int
	iterations := 0

	done := make(chan struct{})
	go func() {
		e.Sync(func() { result = 42 })
		close(done)
	}()

	e.Run(func() bool {
		iterations++
		return iterations < 5
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Sync never returned")
	}
	assert.Equal(t, 42, result)
}

func TestAssertOwnerPanicsOffExecutorGoroutine(t *testing.T) {
	e := New()
	e.ownerID = 999999
	e.ownerSet = true
	assert.Panics(t, func() { e.assertOwner() })
}

func TestBusDeliversEventsInRegistrationOrder(t *testing.T) {
	b := NewBus()
	var order []int
	b.On(PreExecute, func(Event) { order = append(order, 1) })
	b.On(PreExecute, func(Event) { order = append(order, 2) })
	b.On(CrashFound, func(Event) { order = append(order, 3) })

	b.Emit(Event{Kind: PreExecute})
	b.Emit(Event{Kind: CrashFound})

	require.Equal(t, []int{1, 2, 3}, order)
}
