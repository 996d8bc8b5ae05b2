package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/adapter/kafka"
	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/dispatch"
	"github.com/polkiloo/orderflow/internal/metrics"
	"github.com/polkiloo/orderflow/internal/usecase"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewOrderFacade,
		newHTTPServer,
		newDispatcher,
		newConsumer,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type dispatcherParams struct {
	fx.In

	Config *config.Config
	Orders *usecase.OrderUseCase
	Sink   dispatch.DeadLetterSink `optional:"true"`
	Logger *slog.Logger
}

func newDispatcher(p dispatcherParams) *dispatch.Dispatcher {
	cfg := dispatch.Config{
		Workers:      p.Config.WorkerPoolSize,
		LaneCapacity: p.Config.LaneCapacity,
		LaneQuotas:   p.Config.LaneQuotas,
		Retry: dispatch.RetryConfig{
			MaxAttempts: p.Config.RetryMaxAttempts,
			BaseDelay:   p.Config.RetryBaseDelay,
			MaxDelay:    p.Config.RetryMaxDelay,
		},
	}
	process := NewEventProcessor(p.Orders, p.Logger)
	return dispatch.New(cfg, p.Orders, process, p.Sink, p.Logger)
}

type consumerParams struct {
	fx.In

	Config     *config.Config
	Dispatcher *dispatch.Dispatcher
	Logger     *slog.Logger
}

func newConsumer(p consumerParams) *kafka.Consumer {
	if len(p.Config.KafkaBrokers) == 0 {
		return nil
	}
	return kafka.NewConsumer(p.Config.KafkaBrokers, p.Config.KafkaTopicPrefix, "orderflow-dispatcher", p.Dispatcher, p.Logger)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Dispatcher *dispatch.Dispatcher
	Consumer   *kafka.Consumer
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	metrics.Register()

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting orderflow", slog.String("addr", p.Server.Addr))
			p.Dispatcher.Start(ctx)
			if p.Consumer != nil {
				p.Consumer.Start(ctx)
			}
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if p.Consumer != nil {
				p.Consumer.Stop()
			}

			unprocessed := p.Dispatcher.Shutdown(ctx, p.Config.DrainTimeout)
			if len(unprocessed) > 0 {
				p.Logger.Warn("events left unprocessed at shutdown", slog.Int("count", len(unprocessed)))
			}

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("orderflow stopped")
			return nil
		},
	})
}
