package monitor

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"crowguard/internal/core/ports"
)

// ErrQueueClosed is returned by Dequeue after Close.
var ErrQueueClosed = errors.New("report queue closed")

// boundedQueue implements ports.ReportQueue as a fixed-capacity FIFO
// that evicts its oldest entry on overflow. Enqueue never blocks, so
// a slow or dead network path can never stall the monitor tick.
type boundedQueue struct {
	mu       sync.Mutex
	items    []ports.Report
	cap      int
	nonEmpty chan struct{}
	closed   bool
	log      zerolog.Logger
}

var _ ports.ReportQueue = (*boundedQueue)(nil) // Ensure compliance

// NewReportQueue creates a queue holding at most capacity reports.
func NewReportQueue(capacity int, baseLogger *zerolog.Logger) *boundedQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &boundedQueue{
		cap:      capacity,
		nonEmpty: make(chan struct{}, 1),
		log:      baseLogger.With().Str("component", "report_queue").Logger(),
	}
}

// Enqueue adds a report, evicting the oldest one when full.
func (q *boundedQueue) Enqueue(report ports.Report) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := false
	if len(q.items) >= q.cap {
		q.items = q.items[1:]
		dropped = true
		q.log.Warn().Str("kind", string(report.Kind)).Msg("Report queue full, dropped oldest")
	}
	q.items = append(q.items, report)

	select {
	case q.nonEmpty <- struct{}{}:
	default:
	}
	return dropped
}

// Dequeue pops the oldest pending report, blocking until one exists
// or ctx is done.
func (q *boundedQueue) Dequeue(ctx context.Context) (ports.Report, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			// Re-signal so any other blocked Dequeue also wakes.
			select {
			case q.nonEmpty <- struct{}{}:
			default:
			}
			return ports.Report{}, ErrQueueClosed
		}
		if len(q.items) > 0 {
			report := q.items[0]
			q.items = q.items[1:]
			if len(q.items) > 0 {
				select {
				case q.nonEmpty <- struct{}{}:
				default:
				}
			}
			q.mu.Unlock()
			return report, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ports.Report{}, ctx.Err()
		case <-q.nonEmpty:
		}
	}
}

// Len reports how many entries are pending.
func (q *boundedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close wakes any blocked Dequeue with ErrQueueClosed.
func (q *boundedQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.nonEmpty <- struct{}{}:
	default:
	}
}
