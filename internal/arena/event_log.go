package arena

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	eventBufferSize      = 1024                   // Circular buffer size
	maxEventsPerSec      = 10000                  // Global rate limit
	maxEventsPerShip     = 100                    // Per-ship rate limit per second
	batchFlushSize       = 64                     // Events per batch write
	batchFlushInterval   = 100 * time.Millisecond // How often to flush
	shipLimiterCleanup   = 5 * time.Minute         // Cleanup interval for stale ship limiters
)

// EventLog provides bounded, rate-limited audit logging with
// backpressure, so a misbehaving or malicious client cannot use the
// event stream itself as a denial-of-service vector.
type EventLog struct {
	buffer    [eventBufferSize]Event
	writeHead uint64 // atomic - producer position
	readHead  uint64 // atomic - consumer position

	globalLimiter *rate.Limiter
	shipLimiters  sync.Map // map[string]*shipLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

type shipLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewEventLog creates a bounded event log, not yet started.
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(maxEventsPerSec, maxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start begins the async writer and limiter-cleanup goroutines,
// appending newline-delimited JSON to filePath (empty disables the
// file sink but still enforces rate limiting and buffering).
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	el.filePath = filePath

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		el.file = file
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	return nil
}

// Stop gracefully shuts down the event log, flushing any buffered
// events first.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
		}
		el.fileMu.Unlock()
	})
}

// Emit adds an event, subject to global and per-ship rate limiting.
// Returns false if the event was dropped (log not running or rate
// limited). When the buffer is full the oldest buffered event is
// dropped instead and Emit still returns true. Callers should treat
// this as best-effort and never block gameplay on it.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	if event.ShipID != "" {
		limiter := el.getShipLimiter(event.ShipID)
		if !limiter.Allow() {
			atomic.AddUint64(&el.droppedCount, 1)
			return false
		}
	}

	head := atomic.AddUint64(&el.writeHead, 1)
	tail := atomic.LoadUint64(&el.readHead)

	if head-tail >= eventBufferSize {
		// Drop the oldest buffered event to make room; under sustained
		// load this intentionally favors recency over completeness.
		atomic.AddUint64(&el.readHead, 1)
		atomic.AddUint64(&el.droppedCount, 1)
	}

	event.Sequence = head
	idx := head % eventBufferSize
	el.buffer[idx] = event

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// EmitSimple builds and emits an event in one call.
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, shipID string, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, tickNum, shipID, payload))
}

func (el *EventLog) getShipLimiter(shipID string) *rate.Limiter {
	if entry, ok := el.shipLimiters.Load(shipID); ok {
		e := entry.(*shipLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}

	entry := &shipLimiterEntry{
		limiter:  rate.NewLimiter(maxEventsPerShip, maxEventsPerShip/10),
		lastUsed: time.Now(),
	}
	actual, _ := el.shipLimiters.LoadOrStore(shipID, entry)
	return actual.(*shipLimiterEntry).limiter
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(batchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, batchFlushSize)

	for {
		select {
		case <-el.stopChan:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
			return

		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(shipLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupShipLimiters()
		}
	}
}

func (el *EventLog) cleanupShipLimiters() {
	cutoff := time.Now().Add(-shipLimiterCleanup)
	el.shipLimiters.Range(func(key, value interface{}) bool {
		entry := value.(*shipLimiterEntry)
		if entry.lastUsed.Before(cutoff) {
			el.shipLimiters.Delete(key)
		}
		return true
	})
}

func (el *EventLog) collectBatch(batch []Event) []Event {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	for i := tail; i < head && len(batch) < batchFlushSize; i++ {
		idx := i % eventBufferSize
		batch = append(batch, el.buffer[idx])
	}

	if len(batch) > 0 {
		atomic.AddUint64(&el.readHead, uint64(len(batch)))
	}

	return batch
}

func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		return
	}

	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		el.file.Write(data)
		el.file.Write([]byte("\n"))
	}
}

// Stats returns counters for DoS monitoring / debug introspection.
func (el *EventLog) Stats() map[string]interface{} {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	return map[string]interface{}{
		"total":   atomic.LoadUint64(&el.totalCount),
		"dropped": atomic.LoadUint64(&el.droppedCount),
		"pending": head - tail,
		"running": el.running.Load(),
	}
}
