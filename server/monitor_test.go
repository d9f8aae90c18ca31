package server

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResultMonitor_History(t *testing.T) {
	monitor := NewResultMonitor(3)
	assert.Empty(t, monitor.History())

	for i := 1; i <= 5; i++ {
		monitor.Record(fmt.Sprintf(`{"n":%d}`, i))
	}

	// ring keeps the newest entries, oldest first
	assert.Equal(t, []string{`{"n":3}`, `{"n":4}`, `{"n":5}`}, monitor.History())
}

func TestResultMonitor_Subscribe(t *testing.T) {
	monitor := NewResultMonitor(10)

	ch := monitor.Subscribe()
	monitor.Record(`{"n":1}`)

	select {
	case got := <-ch:
		assert.Equal(t, `{"n":1}`, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}

	monitor.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open, "unsubscribed channel is closed")

	// double unsubscribe must not panic
	monitor.Unsubscribe(ch)
}

func TestResultMonitor_SlowClientSkipped(t *testing.T) {
	monitor := NewResultMonitor(10)

	ch := monitor.Subscribe()
	defer monitor.Unsubscribe(ch)

	// fill the client buffer past capacity; Record must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			monitor.Record(`{}`)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a slow client")
	}
}
