package server

import (
	"container/ring"
	"sync"
)

// ResultMonitor keeps a bounded history of one action's published results
// and fans new results out to streaming clients. Entries are stored as raw
// JSON.
type ResultMonitor struct {
	clients  map[chan string]bool
	mu       sync.RWMutex
	buffer   *ring.Ring
	bufferMu sync.RWMutex
}

func NewResultMonitor(historySize int) *ResultMonitor {
	if historySize < 1 {
		historySize = 1
	}
	return &ResultMonitor{
		clients: make(map[chan string]bool),
		buffer:  ring.New(historySize),
	}
}

// Record appends a result to the history ring and broadcasts it.
func (m *ResultMonitor) Record(result string) {
	m.bufferMu.Lock()
	m.buffer.Value = result
	m.buffer = m.buffer.Next()
	m.bufferMu.Unlock()

	m.broadcast(result)
}

// History returns the recorded results, oldest first.
func (m *ResultMonitor) History() []string {
	m.bufferMu.RLock()
	defer m.bufferMu.RUnlock()

	var history []string
	m.buffer.Do(func(p interface{}) {
		if p != nil {
			if result, ok := p.(string); ok {
				history = append(history, result)
			}
		}
	})
	return history
}

// Subscribe returns a channel that receives every result recorded after
// this call. Slow clients are skipped, not blocked on.
func (m *ResultMonitor) Subscribe() chan string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan string, 100)
	m.clients[ch] = true
	return ch
}

func (m *ResultMonitor) Unsubscribe(ch chan string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.clients[ch] {
		delete(m.clients, ch)
		close(ch)
	}
}

func (m *ResultMonitor) broadcast(result string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for client := range m.clients {
		select {
		case client <- result:
		default:
			// If client buffer is full, skip
		}
	}
}
