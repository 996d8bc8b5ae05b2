package di

import (
	"go.uber.org/fx"

	kafkaAdapter "github.com/polkiloo/orderflow/internal/adapter/kafka"
	"github.com/polkiloo/orderflow/internal/app"
	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/logger"
	"github.com/polkiloo/orderflow/internal/pkg/auth"
	"github.com/polkiloo/orderflow/internal/server/http/handlers"
	"github.com/polkiloo/orderflow/internal/server/http/router"
	"github.com/polkiloo/orderflow/internal/storage"
	"github.com/polkiloo/orderflow/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		storage.Module,
		kafkaAdapter.Module,
		usecase.Module,
		fx.Provide(func(p *kafkaAdapter.Publisher) app.EventPublisher {
			if p == nil {
				return nil
			}
			return p
		}),
		fx.Provide(func(f *app.OrderFacade) handlers.Facade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
