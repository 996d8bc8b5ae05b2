package kafka

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/dispatch"
)

// Module wires the optional Kafka surface. Without configured brokers the
// publisher is nil and dead letters stay in-process.
var Module = fx.Options(
	fx.Provide(newPublisher),
	fx.Provide(newDeadLetterSink),
	fx.Invoke(registerLifecycle),
)

type kafkaParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newPublisher(p kafkaParams) *Publisher {
	if len(p.Config.KafkaBrokers) == 0 {
		return nil
	}
	return NewPublisher(p.Config.KafkaBrokers, p.Config.KafkaTopicPrefix, p.Logger)
}

func newDeadLetterSink(p kafkaParams) dispatch.DeadLetterSink {
	if len(p.Config.KafkaBrokers) == 0 {
		return nil
	}
	return NewDeadLetterPublisher(p.Config.KafkaBrokers, p.Config.KafkaTopicPrefix, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, publisher *Publisher, sink dispatch.DeadLetterSink) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if publisher != nil {
				if err := publisher.Close(); err != nil {
					return err
				}
			}
			if dlt, ok := sink.(*DeadLetterPublisher); ok && dlt != nil {
				return dlt.Close()
			}
			return nil
		},
	})
}
