package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

// Admitter is the dispatcher admission entry point the consumer feeds.
type Admitter interface {
	Admit(ctx context.Context, event *model.OrderEvent) error
}

// fetcher is the kafka.Reader subset the consume loop needs; tests swap in
// an in-memory implementation.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

const (
	fetchRetryDelay     = time.Second
	queueFullRetryDelay = 200 * time.Millisecond
)

// Consumer drains per-lane topics into the dispatcher. A full lane is
// backpressure: the message stays uncommitted and admission is retried, so
// the broker keeps acting as the durable overflow buffer.
type Consumer struct {
	readers  []fetcher
	admitter Admitter
	logger   *slog.Logger

	mu        sync.Mutex
	started   bool
	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

// NewConsumer builds one group reader per lane topic.
func NewConsumer(brokers []string, topicPrefix, groupID string, admitter Admitter, logger *slog.Logger) *Consumer {
	c := &Consumer{admitter: admitter, logger: logger}
	for i := 0; i < model.PriorityCount; i++ {
		c.readers = append(c.readers, kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    laneTopic(topicPrefix, model.PriorityClass(i)),
			MinBytes: 1,
			MaxBytes: 1 << 20,
			MaxWait:  time.Second,
		}))
	}
	return c
}

// Start launches one consume loop per lane reader. The loops must outlive
// ctx: fx cancels the startup context as soon as OnStart returns, so they
// run on a detached context that only Stop cancels.
func (c *Consumer) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.runCancel = cancel
	c.mu.Unlock()

	for _, r := range c.readers {
		c.wg.Add(1)
		go func(r fetcher) {
			defer c.wg.Done()
			c.consume(runCtx, r)
		}(r)
	}
}

// Stop cancels the consume loops, closes the readers, and waits for the
// loops to finish.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if c.runCancel != nil {
		c.runCancel()
	}
	c.mu.Unlock()

	for _, r := range c.readers {
		if err := r.Close(); err != nil {
			c.logger.Warn("close kafka reader", slog.String("error", err.Error()))
		}
	}
	c.wg.Wait()
}

func (c *Consumer) consume(ctx context.Context, r fetcher) {
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			c.logger.Warn("fetch kafka message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchRetryDelay):
			}
			continue
		}

		if !c.handle(ctx, r, msg) {
			return
		}
	}
}

// handle admits one message. It returns false when the loop must stop.
func (c *Consumer) handle(ctx context.Context, r fetcher, msg kafkago.Message) bool {
	var event model.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Warn("skip malformed kafka message",
			slog.String("topic", msg.Topic),
			slog.String("error", err.Error()),
		)
		c.commit(ctx, r, msg)
		return true
	}

	for {
		err := c.admitter.Admit(ctx, &event)
		switch {
		case err == nil:
			c.commit(ctx, r, msg)
			return true
		case errors.Is(err, domainErrors.ErrQueueFull):
			select {
			case <-ctx.Done():
				return false
			case <-time.After(queueFullRetryDelay):
			}
		case errors.Is(err, domainErrors.ErrDispatcherStopped):
			return false
		default:
			// Validation failures and unknown orders cannot succeed on
			// replay, so the message is committed and dropped.
			c.logger.Warn("drop inadmissible kafka event",
				slog.String("order_id", event.OrderID),
				slog.String("error", err.Error()),
			)
			c.commit(ctx, r, msg)
			return true
		}
	}
}

func (c *Consumer) commit(ctx context.Context, r fetcher, msg kafkago.Message) {
	if err := r.CommitMessages(ctx, msg); err != nil {
		c.logger.Warn("commit kafka message", slog.String("error", err.Error()))
	}
}
