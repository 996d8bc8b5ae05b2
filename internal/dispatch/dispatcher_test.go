package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	testhelpers "github.com/polkiloo/orderflow/internal/test"
	"github.com/polkiloo/orderflow/internal/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fixture struct {
	repo   *testhelpers.OrderRepositoryStub
	orders *usecase.OrderUseCase
}

func newFixture() *fixture {
	repo := testhelpers.NewOrderRepositoryStub()
	return &fixture{repo: repo, orders: usecase.NewOrderUseCase(repo)}
}

func (f *fixture) createOrder(t *testing.T) *model.Order {
	t.Helper()
	order, err := f.orders.Create(context.Background(), "c1", "widget", decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met before timeout")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAdmitRejectsUnknownOrder(t *testing.T) {
	f := newFixture()
	d := New(Config{}, f.orders, func(context.Context, *model.OrderEvent) error { return nil }, nil, discardLogger())

	err := d.Admit(context.Background(), &model.OrderEvent{OrderID: "ghost", Priority: model.PriorityUrgent})
	if !errors.Is(err, domainErrors.ErrUnknownOrder) {
		t.Fatalf("expected unknown order error, got %v", err)
	}

	// The rejected event must leave no trace in any lane.
	if remaining := d.Shutdown(context.Background(), time.Second); len(remaining) != 0 {
		t.Fatalf("expected empty lanes, got %d events", len(remaining))
	}
}

func TestAdmitRejectsInvalidPriority(t *testing.T) {
	f := newFixture()
	order := f.createOrder(t)
	d := New(Config{}, f.orders, func(context.Context, *model.OrderEvent) error { return nil }, nil, discardLogger())

	err := d.Admit(context.Background(), &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityClass(9)})
	if !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdmitFailsClosedOnStorageError(t *testing.T) {
	f := newFixture()
	f.repo.ExistsFn = func(context.Context, string) (bool, error) {
		return false, domainErrors.ErrStorageUnavailable
	}
	d := New(Config{}, f.orders, func(context.Context, *model.OrderEvent) error { return nil }, nil, discardLogger())

	err := d.Admit(context.Background(), &model.OrderEvent{OrderID: "o", Priority: model.PriorityStandard})
	if !errors.Is(err, domainErrors.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
}

func TestAdmitQueueFullBackpressure(t *testing.T) {
	f := newFixture()
	order := f.createOrder(t)
	d := New(Config{LaneCapacity: 1}, f.orders, func(context.Context, *model.OrderEvent) error { return nil }, nil, discardLogger())

	if err := d.Admit(context.Background(), &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityVIP}); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	err := d.Admit(context.Background(), &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityVIP})
	if !errors.Is(err, domainErrors.ErrQueueFull) {
		t.Fatalf("expected queue full, got %v", err)
	}
	var qf domainErrors.QueueFullError
	if !errors.As(err, &qf) || qf.Lane != "VIP" {
		t.Fatalf("expected VIP lane in error, got %v", err)
	}

	// Other lanes are unaffected by one lane's backpressure.
	if err := d.Admit(context.Background(), &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityUrgent}); err != nil {
		t.Fatalf("urgent admit: %v", err)
	}
}

func TestAdmitRejectedAfterShutdown(t *testing.T) {
	f := newFixture()
	order := f.createOrder(t)
	d := New(Config{}, f.orders, func(context.Context, *model.OrderEvent) error { return nil }, nil, discardLogger())
	d.Shutdown(context.Background(), time.Millisecond)

	err := d.Admit(context.Background(), &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityStandard})
	if !errors.Is(err, domainErrors.ErrDispatcherStopped) {
		t.Fatalf("expected stopped error, got %v", err)
	}
}

func TestUrgentBeatsPreloadedBackground(t *testing.T) {
	f := newFixture()

	var mu sync.Mutex
	var completed []string
	done := make(chan struct{}, 8)
	d := New(Config{Workers: 1}, f.orders, func(_ context.Context, ev *model.OrderEvent) error {
		mu.Lock()
		completed = append(completed, ev.OrderID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, nil, discardLogger())

	for i := 0; i < 5; i++ {
		order := f.createOrder(t)
		if err := d.Admit(context.Background(), &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityBackground}); err != nil {
			t.Fatalf("admit background: %v", err)
		}
	}
	urgent := f.createOrder(t)
	if err := d.Admit(context.Background(), &model.OrderEvent{OrderID: urgent.OrderID, Priority: model.PriorityUrgent}); err != nil {
		t.Fatalf("admit urgent: %v", err)
	}

	d.Start(context.Background())
	defer d.Shutdown(context.Background(), time.Second)

	for i := 0; i < 6; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for events")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if completed[0] != urgent.OrderID {
		t.Fatalf("expected urgent event first, got completion order %v", completed)
	}
}

func TestFIFOWithinLane(t *testing.T) {
	f := newFixture()

	var mu sync.Mutex
	var completed []string
	done := make(chan struct{}, 8)
	d := New(Config{Workers: 1}, f.orders, func(_ context.Context, ev *model.OrderEvent) error {
		mu.Lock()
		completed = append(completed, ev.OrderID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, nil, discardLogger())

	var admitted []string
	for i := 0; i < 5; i++ {
		order := f.createOrder(t)
		admitted = append(admitted, order.OrderID)
		if err := d.Admit(context.Background(), &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityStandard}); err != nil {
			t.Fatalf("admit: %v", err)
		}
	}

	d.Start(context.Background())
	defer d.Shutdown(context.Background(), time.Second)

	for i := 0; i < 5; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for events")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i := range admitted {
		if completed[i] != admitted[i] {
			t.Fatalf("lane order broken: admitted %v, completed %v", admitted, completed)
		}
	}
}

func TestQuotaPreventsBackgroundStarvation(t *testing.T) {
	f := newFixture()

	var mu sync.Mutex
	var lanes []model.PriorityClass
	done := make(chan struct{}, 8)
	quotas := [model.PriorityCount]int{2, 1, 1, 1}
	d := New(Config{Workers: 1, LaneQuotas: quotas}, f.orders, func(_ context.Context, ev *model.OrderEvent) error {
		mu.Lock()
		lanes = append(lanes, ev.Priority)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, nil, discardLogger())

	for i := 0; i < 5; i++ {
		order := f.createOrder(t)
		if err := d.Admit(context.Background(), &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityUrgent}); err != nil {
			t.Fatalf("admit urgent: %v", err)
		}
	}
	bg := f.createOrder(t)
	if err := d.Admit(context.Background(), &model.OrderEvent{OrderID: bg.OrderID, Priority: model.PriorityBackground}); err != nil {
		t.Fatalf("admit background: %v", err)
	}

	d.Start(context.Background())
	defer d.Shutdown(context.Background(), time.Second)

	for i := 0; i < 6; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for events")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if lanes[len(lanes)-1] == model.PriorityBackground {
		t.Fatalf("background event starved until the very end: %v", lanes)
	}
	if lanes[0] != model.PriorityUrgent || lanes[1] != model.PriorityUrgent {
		t.Fatalf("urgent quota not honored first: %v", lanes)
	}
}

func TestRetryExhaustionCancelsOrder(t *testing.T) {
	f := newFixture()
	order := f.createOrder(t)

	var attempts atomic.Int32
	cfg := Config{
		Workers: 1,
		Retry:   RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}
	d := New(cfg, f.orders, func(context.Context, *model.OrderEvent) error {
		attempts.Add(1)
		return errors.New("downstream unavailable")
	}, nil, discardLogger())

	event := &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityStandard}
	if err := d.Admit(context.Background(), event); err != nil {
		t.Fatalf("admit: %v", err)
	}
	d.Start(context.Background())
	defer d.Shutdown(context.Background(), time.Second)

	waitFor(t, 2*time.Second, func() bool { return len(d.DeadLetters()) == 1 })

	if got := attempts.Load(); got != 4 {
		t.Fatalf("expected 1 initial + 3 retries = 4 attempts, got %d", got)
	}
	letter := d.DeadLetters()[0]
	if letter.Event.Status != model.EventStatusFailed {
		t.Fatalf("expected FAILED event, got %s", letter.Event.Status)
	}
	if letter.Event.RetryCount != 4 {
		t.Fatalf("expected retry count 4 after final decide, got %d", letter.Event.RetryCount)
	}

	updated, err := f.orders.GetByOrderID(context.Background(), order.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if updated.Status != model.OrderStatusCancelled {
		t.Fatalf("expected CANCELLED order, got %s", updated.Status)
	}
}

func TestRetryableFailureEventuallySucceeds(t *testing.T) {
	f := newFixture()
	order := f.createOrder(t)

	var attempts atomic.Int32
	cfg := Config{
		Workers: 1,
		Retry:   RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}
	event := &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityVIP}
	d := New(cfg, f.orders, func(context.Context, *model.OrderEvent) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil, discardLogger())

	if err := d.Admit(context.Background(), event); err != nil {
		t.Fatalf("admit: %v", err)
	}
	d.Start(context.Background())
	defer d.Shutdown(context.Background(), time.Second)

	// Status writes happen under the dispatcher lock; read under it too.
	waitFor(t, 2*time.Second, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return event.Status == model.EventStatusCompleted
	})

	if got := attempts.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if len(d.DeadLetters()) != 0 {
		t.Fatal("successful event must not be dead-lettered")
	}
	updated, _ := f.orders.GetByOrderID(context.Background(), order.OrderID)
	if updated.Status == model.OrderStatusCancelled {
		t.Fatal("order must not be cancelled after eventual success")
	}
}

func TestPermanentFailureSkipsRetries(t *testing.T) {
	f := newFixture()
	order := f.createOrder(t)

	var attempts atomic.Int32
	d := New(Config{Workers: 1}, f.orders, func(context.Context, *model.OrderEvent) error {
		attempts.Add(1)
		return Permanent(errors.New("malformed payload"))
	}, nil, discardLogger())

	if err := d.Admit(context.Background(), &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityUrgent}); err != nil {
		t.Fatalf("admit: %v", err)
	}
	d.Start(context.Background())
	defer d.Shutdown(context.Background(), time.Second)

	waitFor(t, 2*time.Second, func() bool { return len(d.DeadLetters()) == 1 })

	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected single attempt for permanent failure, got %d", got)
	}
	updated, _ := f.orders.GetByOrderID(context.Background(), order.OrderID)
	if updated.Status != model.OrderStatusCancelled {
		t.Fatalf("expected CANCELLED order, got %s", updated.Status)
	}
}

func TestGiveUpOnTerminalOrderDeadLettersOnly(t *testing.T) {
	f := newFixture()
	order := f.createOrder(t)
	if _, err := f.orders.Cancel(context.Background(), order.OrderID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	d := New(Config{Workers: 1}, f.orders, func(context.Context, *model.OrderEvent) error {
		return Permanent(errors.New("no-op"))
	}, nil, discardLogger())

	if err := d.Admit(context.Background(), &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityStandard}); err != nil {
		t.Fatalf("admit: %v", err)
	}
	d.Start(context.Background())
	defer d.Shutdown(context.Background(), time.Second)

	waitFor(t, 2*time.Second, func() bool { return len(d.DeadLetters()) == 1 })

	updated, _ := f.orders.GetByOrderID(context.Background(), order.OrderID)
	if updated.Status != model.OrderStatusCancelled {
		t.Fatalf("terminal order must stay CANCELLED, got %s", updated.Status)
	}
}

func TestShutdownReportsUnprocessed(t *testing.T) {
	f := newFixture()

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d := New(Config{Workers: 1}, f.orders, func(context.Context, *model.OrderEvent) error {
		started <- struct{}{}
		<-block
		return nil
	}, nil, discardLogger())

	for i := 0; i < 3; i++ {
		order := f.createOrder(t)
		if err := d.Admit(context.Background(), &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityStandard}); err != nil {
			t.Fatalf("admit: %v", err)
		}
	}
	d.Start(context.Background())

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up an event")
	}

	unprocessed := d.Shutdown(context.Background(), 50*time.Millisecond)
	close(block)

	if len(unprocessed) != 3 {
		t.Fatalf("expected 3 unprocessed events (1 in flight, 2 queued), got %d", len(unprocessed))
	}
	var inFlight int
	for _, ev := range unprocessed {
		if ev.Status == model.EventStatusInFlight {
			inFlight++
		}
	}
	if inFlight != 1 {
		t.Fatalf("expected exactly 1 in-flight event, got %d", inFlight)
	}

	// The blocked worker finishes after the drain window; the report is a
	// snapshot and must not flip to COMPLETED under the caller.
	waitFor(t, 2*time.Second, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.inflight) == 0
	})
	for _, ev := range unprocessed {
		if ev.Status == model.EventStatusCompleted {
			t.Fatalf("shutdown report mutated after the fact: %+v", ev)
		}
	}
}

func TestShutdownClaimsDeferredRetries(t *testing.T) {
	f := newFixture()
	order := f.createOrder(t)

	cfg := Config{
		Workers: 1,
		Retry:   RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour},
	}
	failed := make(chan struct{}, 1)
	d := New(cfg, f.orders, func(context.Context, *model.OrderEvent) error {
		select {
		case failed <- struct{}{}:
		default:
		}
		return errors.New("transient")
	}, nil, discardLogger())

	if err := d.Admit(context.Background(), &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityUrgent}); err != nil {
		t.Fatalf("admit: %v", err)
	}
	d.Start(context.Background())

	<-failed
	// Give the worker a moment to park the event behind its retry timer.
	waitFor(t, time.Second, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.deferred) == 1
	})

	unprocessed := d.Shutdown(context.Background(), time.Second)
	if len(unprocessed) != 1 {
		t.Fatalf("expected deferred retry to be reported, got %d events", len(unprocessed))
	}
}

type sinkStub struct {
	mu      sync.Mutex
	letters []DeadLetter
}

func (s *sinkStub) Publish(_ context.Context, letter DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.letters = append(s.letters, letter)
	return nil
}

func TestDeadLettersReachSink(t *testing.T) {
	f := newFixture()
	order := f.createOrder(t)
	sink := &sinkStub{}

	d := New(Config{Workers: 1}, f.orders, func(context.Context, *model.OrderEvent) error {
		return Permanent(errors.New("broken"))
	}, sink, discardLogger())

	if err := d.Admit(context.Background(), &model.OrderEvent{OrderID: order.OrderID, Priority: model.PriorityBackground}); err != nil {
		t.Fatalf("admit: %v", err)
	}
	d.Start(context.Background())
	defer d.Shutdown(context.Background(), time.Second)

	waitFor(t, 2*time.Second, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.letters) == 1
	})

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.letters[0].Event.OrderID != order.OrderID {
		t.Fatalf("unexpected dead letter order id %s", sink.letters[0].Event.OrderID)
	}
}
