package app

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/dispatch"
	"github.com/polkiloo/orderflow/internal/test"
	"github.com/polkiloo/orderflow/internal/usecase"
)

func testConfig() *config.Config {
	return &config.Config{
		RunAddress:       "127.0.0.1:0",
		WorkerPoolSize:   2,
		LaneCapacity:     16,
		LaneQuotas:       [4]int{8, 4, 2, 1},
		RetryMaxAttempts: 1,
		RetryBaseDelay:   time.Millisecond,
		RetryMaxDelay:    10 * time.Millisecond,
		DrainTimeout:     100 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	}
}

func testDispatcher(cfg *config.Config) *dispatch.Dispatcher {
	orders := usecase.NewOrderUseCase(test.NewOrderRepositoryStub())
	return newDispatcher(dispatcherParams{
		Config: cfg,
		Orders: orders,
		Logger: discardLogger(),
	})
}

func TestNewHTTPServer(t *testing.T) {
	cfg := testConfig()
	server := newHTTPServer(serverParams{Config: cfg, Router: gin.New()})
	if server.Addr != cfg.RunAddress {
		t.Fatalf("expected addr %s, got %s", cfg.RunAddress, server.Addr)
	}
	if server.Handler == nil {
		t.Fatal("expected handler to be set")
	}
}

func TestNewConsumerDisabledWithoutBrokers(t *testing.T) {
	cfg := testConfig()
	consumer := newConsumer(consumerParams{
		Config:     cfg,
		Dispatcher: testDispatcher(cfg),
		Logger:     discardLogger(),
	})
	if consumer != nil {
		t.Fatal("expected nil consumer without brokers")
	}

	cfg.KafkaBrokers = []string{"localhost:9092"}
	cfg.KafkaTopicPrefix = "orderflow"
	consumer = newConsumer(consumerParams{
		Config:     cfg,
		Dispatcher: testDispatcher(cfg),
		Logger:     discardLogger(),
	})
	if consumer == nil {
		t.Fatal("expected consumer with brokers configured")
	}
	consumer.Stop()
}

func TestRegisterLifecycle(t *testing.T) {
	cfg := testConfig()
	recorder := &test.LifecycleRecorder{}
	shutdowner := &test.ShutdownerStub{Called: make(chan struct{}, 1)}
	dispatcher := testDispatcher(cfg)
	server := &http.Server{Addr: cfg.RunAddress, Handler: gin.New()}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     discardLogger(),
		Server:     server,
		Dispatcher: dispatcher,
		Config:     cfg,
	})
	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected one hook, got %d", len(recorder.Hooks))
	}

	hook := recorder.Hooks[0]
	ctx := context.Background()
	if err := hook.OnStart(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := hook.OnStop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	select {
	case <-shutdowner.Called:
		t.Fatal("unexpected shutdown on clean stop")
	default:
	}
}

func TestRegisterLifecycleShutsDownOnListenFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() {
		_ = listener.Close()
	})

	cfg := testConfig()
	cfg.RunAddress = listener.Addr().String()
	recorder := &test.LifecycleRecorder{}
	shutdowner := &test.ShutdownerStub{Called: make(chan struct{}, 1)}
	dispatcher := testDispatcher(cfg)
	server := &http.Server{Addr: cfg.RunAddress, Handler: gin.New()}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     discardLogger(),
		Server:     server,
		Dispatcher: dispatcher,
		Config:     cfg,
	})

	ctx := context.Background()
	if err := recorder.Hooks[0].OnStart(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-shutdowner.Called:
	case <-time.After(2 * time.Second):
		t.Fatal("expected shutdown after listen failure")
	}

	if err := recorder.Hooks[0].OnStop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
