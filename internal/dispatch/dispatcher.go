package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/metrics"
)

// ProcessFunc executes the external business logic for a dequeued event.
// A nil return completes the event; an error wrapped with Permanent fails it
// without retries; any other error goes through the retry policy.
type ProcessFunc func(ctx context.Context, event *model.OrderEvent) error

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return "permanent: " + e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks a processing failure that must not be retried.
func Permanent(err error) error {
	return permanentError{err: err}
}

// IsPermanent reports whether err carries a Permanent marker.
func IsPermanent(err error) bool {
	var pe permanentError
	return errors.As(err, &pe)
}

// OrderGateway is the slice of ledger functionality the dispatcher relies
// on: admission checks event references, retry exhaustion cancels the order.
type OrderGateway interface {
	Exists(ctx context.Context, orderID string) (bool, error)
	Cancel(ctx context.Context, orderID string) (*model.Order, error)
}

// DeadLetter is the terminal record of an event that exhausted retries (or
// failed permanently) without success. Event is a snapshot taken at
// give-up time, safe to read without synchronization.
type DeadLetter struct {
	Event  *model.OrderEvent
	Reason string
	At     time.Time
}

// DeadLetterSink receives dead letters for durable recording, e.g. a kafka
// DLT topic. A nil sink keeps dead letters in-process only.
type DeadLetterSink interface {
	Publish(ctx context.Context, letter DeadLetter) error
}

// Config sizes the dispatcher.
type Config struct {
	Workers      int
	LaneCapacity int
	// LaneQuotas caps how many events a lane may have serviced since the
	// last time a lower-priority lane got a turn. The BACKGROUND entry is
	// ignored: BACKGROUND is serviced whenever every busier lane is within
	// quota or empty.
	LaneQuotas [model.PriorityCount]int
	Retry      RetryConfig
}

const (
	defaultWorkers      = 4
	defaultLaneCapacity = 128
	maxDeadLetters      = 256
)

var defaultLaneQuotas = [model.PriorityCount]int{8, 4, 2, 1}

// Dispatcher routes admitted events into four priority lanes and schedules
// a fixed worker pool over them with weighted strict-priority selection.
// It holds no order state beyond transient queued events.
type Dispatcher struct {
	gateway OrderGateway
	process ProcessFunc
	retry   *RetryPolicy
	sink    DeadLetterSink
	logger  *slog.Logger

	workers  int
	capacity int
	quotas   [model.PriorityCount]int

	mu       sync.Mutex
	cond     *sync.Cond
	lanes    [model.PriorityCount][]*model.OrderEvent
	served   [model.PriorityCount]int
	deferred map[*model.OrderEvent]*time.Timer
	inflight map[*model.OrderEvent]struct{}
	dead     []DeadLetter
	closed   bool
	started  bool

	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

// New constructs a dispatcher. The sink may be nil.
func New(cfg Config, gateway OrderGateway, process ProcessFunc, sink DeadLetterSink, logger *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.LaneCapacity <= 0 {
		cfg.LaneCapacity = defaultLaneCapacity
	}
	quotas := cfg.LaneQuotas
	for i := range quotas {
		if quotas[i] <= 0 {
			quotas[i] = defaultLaneQuotas[i]
		}
	}

	d := &Dispatcher{
		gateway:  gateway,
		process:  process,
		retry:    NewRetryPolicy(cfg.Retry),
		sink:     sink,
		logger:   logger,
		workers:  cfg.Workers,
		capacity: cfg.LaneCapacity,
		quotas:   quotas,
		deferred: make(map[*model.OrderEvent]*time.Timer),
		inflight: make(map[*model.OrderEvent]struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Admit validates the event and enqueues it into its priority lane, or
// rejects it. It never waits for worker capacity; only the lane lock is
// held briefly for the enqueue itself.
func (d *Dispatcher) Admit(ctx context.Context, event *model.OrderEvent) error {
	if event == nil {
		return fmt.Errorf("nil event: %w", domainErrors.ErrValidation)
	}
	if !event.Priority.Valid() {
		return fmt.Errorf("unknown priority %d: %w", event.Priority, domainErrors.ErrValidation)
	}

	exists, err := d.gateway.Exists(ctx, event.OrderID)
	if err != nil {
		// Fail closed: an event we cannot verify is an event we reject.
		metrics.EventsRejectedTotal.WithLabelValues("storage").Inc()
		return fmt.Errorf("verify order %s: %w", event.OrderID, err)
	}
	if !exists {
		metrics.EventsRejectedTotal.WithLabelValues("unknown_order").Inc()
		d.logger.Warn("event references unknown order, dropped",
			slog.String("order_id", event.OrderID),
			slog.String("lane", event.Priority.String()),
		)
		return fmt.Errorf("order %s: %w", event.OrderID, domainErrors.ErrUnknownOrder)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		metrics.EventsRejectedTotal.WithLabelValues("stopped").Inc()
		return domainErrors.ErrDispatcherStopped
	}
	if len(d.lanes[event.Priority]) >= d.capacity {
		metrics.EventsRejectedTotal.WithLabelValues("queue_full").Inc()
		return domainErrors.QueueFullError{Lane: event.Priority.String()}
	}

	event.Status = model.EventStatusPending
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	d.lanes[event.Priority] = append(d.lanes[event.Priority], event)
	metrics.EventsAdmittedTotal.WithLabelValues(event.Priority.String()).Inc()
	d.cond.Signal()
	return nil
}

// Start launches the worker pool. Events admitted before Start sit in their
// lanes until workers come up.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started || d.closed {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.runCtx, d.runCancel = context.WithCancel(context.WithoutCancel(ctx))
	d.mu.Unlock()

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.logger.Info("dispatcher started",
		slog.Int("workers", d.workers),
		slog.Int("lane_capacity", d.capacity),
	)
}

// Shutdown stops admission immediately, lets in-flight work finish within
// drainTimeout, and returns every event still pending or in flight instead
// of silently dropping it. Deferred retries are claimed back from their
// timers and reported too. The returned events are snapshots: a worker that
// outlives the drain window cannot mutate what the caller received.
func (d *Dispatcher) Shutdown(ctx context.Context, drainTimeout time.Duration) []*model.OrderEvent {
	d.mu.Lock()
	d.closed = true
	for event, timer := range d.deferred {
		timer.Stop()
		delete(d.deferred, event)
		d.lanes[event.Priority] = append(d.lanes[event.Priority], event)
	}
	d.cond.Broadcast()
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	drain := time.NewTimer(drainTimeout)
	defer drain.Stop()
	select {
	case <-done:
	case <-drain.C:
	case <-ctx.Done():
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.runCancel != nil {
		d.runCancel()
	}

	var unprocessed []*model.OrderEvent
	for lane := range d.lanes {
		for _, event := range d.lanes[lane] {
			snapshot := *event
			unprocessed = append(unprocessed, &snapshot)
		}
		d.lanes[lane] = nil
	}
	for event := range d.inflight {
		snapshot := *event
		unprocessed = append(unprocessed, &snapshot)
	}
	if len(unprocessed) > 0 {
		d.logger.Warn("dispatcher stopped with unprocessed events", slog.Int("count", len(unprocessed)))
	} else {
		d.logger.Info("dispatcher drained cleanly")
	}
	return unprocessed
}

// DeadLetters returns a copy of the recorded dead letters, oldest first.
func (d *Dispatcher) DeadLetters() []DeadLetter {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DeadLetter, len(d.dead))
	copy(out, d.dead)
	return out
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		var event *model.OrderEvent
		for {
			if d.closed {
				d.mu.Unlock()
				return
			}
			if event = d.nextLocked(); event != nil {
				break
			}
			d.cond.Wait()
		}
		event.Status = model.EventStatusInFlight
		d.inflight[event] = struct{}{}
		d.mu.Unlock()

		d.handle(event)
	}
}

// nextLocked implements weighted strict-priority selection: the busiest
// eligible lane wins, where a lane above BACKGROUND is eligible while it has
// not exhausted its quota since a lower-priority lane was last serviced.
// When every non-empty lane has exhausted its quota and BACKGROUND is empty,
// quotas reset and the highest non-empty lane is picked, so no lane ever
// starves the pool into idleness.
func (d *Dispatcher) nextLocked() *model.OrderEvent {
	pick := -1
	for lane := 0; lane < model.PriorityCount; lane++ {
		if len(d.lanes[lane]) == 0 {
			continue
		}
		if lane == model.PriorityCount-1 || d.served[lane] < d.quotas[lane] {
			pick = lane
			break
		}
	}
	if pick == -1 {
		for lane := 0; lane < model.PriorityCount; lane++ {
			if len(d.lanes[lane]) > 0 {
				pick = lane
				for i := range d.served {
					d.served[i] = 0
				}
				break
			}
		}
	}
	if pick == -1 {
		return nil
	}

	// Servicing lane N gives every busier lane a fresh quota window.
	for i := 0; i < pick; i++ {
		d.served[i] = 0
	}
	d.served[pick]++

	event := d.lanes[pick][0]
	d.lanes[pick] = d.lanes[pick][1:]
	return event
}

func (d *Dispatcher) handle(event *model.OrderEvent) {
	lane := event.Priority.String()
	start := time.Now()
	err := d.process(d.runCtx, event)
	metrics.EventProcessingDuration.WithLabelValues(lane).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		d.complete(event)
	case IsPermanent(err):
		d.giveUp(event, err)
	default:
		// The retry count lives on the shared event; Decide mutates it,
		// so it runs under the same lock as every other event write.
		d.mu.Lock()
		decision := d.retry.Decide(event)
		retry := event.RetryCount
		d.mu.Unlock()
		if !decision.Requeue {
			d.giveUp(event, fmt.Errorf("%v: %w", err, domainErrors.ErrRetryExhausted))
			return
		}
		d.logger.Warn("processing failed, requeueing",
			slog.String("order_id", event.OrderID),
			slog.String("lane", lane),
			slog.Int("retry", retry),
			slog.Duration("after", decision.After),
			slog.String("error", err.Error()),
		)
		metrics.EventsRetriedTotal.WithLabelValues(lane).Inc()
		d.requeueAfter(event, decision.After)
	}
}

func (d *Dispatcher) complete(event *model.OrderEvent) {
	d.mu.Lock()
	delete(d.inflight, event)
	event.Status = model.EventStatusCompleted
	d.mu.Unlock()
	metrics.EventsCompletedTotal.WithLabelValues(event.Priority.String()).Inc()
}

// requeueAfter schedules re-entry into the event's original lane without
// tying up a worker. Requeues bypass the capacity bound: an admitted event
// is never shed on its way back in.
func (d *Dispatcher) requeueAfter(event *model.OrderEvent, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, event)
	event.Status = model.EventStatusPending
	if d.closed {
		// No timer during shutdown; the event is reported unprocessed.
		d.lanes[event.Priority] = append(d.lanes[event.Priority], event)
		return
	}
	d.deferred[event] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, ok := d.deferred[event]; !ok {
			// Shutdown claimed the event back before the timer fired.
			return
		}
		delete(d.deferred, event)
		d.lanes[event.Priority] = append(d.lanes[event.Priority], event)
		d.cond.Signal()
	})
}

func (d *Dispatcher) giveUp(event *model.OrderEvent, cause error) {
	d.mu.Lock()
	delete(d.inflight, event)
	event.Status = model.EventStatusFailed
	snapshot := *event
	d.mu.Unlock()

	lane := snapshot.Priority.String()
	if _, err := d.gateway.Cancel(d.runCtx, snapshot.OrderID); err != nil {
		if errors.Is(err, domainErrors.ErrInvalidTransition) {
			d.logger.Info("order already terminal, dead-lettering event only",
				slog.String("order_id", snapshot.OrderID))
		} else {
			d.logger.Error("cancel after giving up failed",
				slog.String("order_id", snapshot.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}

	letter := DeadLetter{Event: &snapshot, Reason: cause.Error(), At: time.Now()}
	d.mu.Lock()
	d.dead = append(d.dead, letter)
	if len(d.dead) > maxDeadLetters {
		d.dead = d.dead[1:]
	}
	sink := d.sink
	d.mu.Unlock()

	if sink != nil {
		if err := sink.Publish(d.runCtx, letter); err != nil {
			d.logger.Error("dead letter publish failed",
				slog.String("order_id", snapshot.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}
	metrics.EventsDeadLetteredTotal.WithLabelValues(lane).Inc()
	d.logger.Warn("event dead-lettered",
		slog.String("order_id", snapshot.OrderID),
		slog.String("lane", lane),
		slog.Int("attempts", snapshot.RetryCount+1),
		slog.String("reason", letter.Reason),
	)
}
