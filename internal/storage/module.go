package storage

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/domain/repository"
	"github.com/polkiloo/orderflow/internal/storage/memory"
	"github.com/polkiloo/orderflow/internal/storage/postgres"
)

// Module wires the order repository. A configured database URI selects the
// PostgreSQL backend; otherwise orders live in process memory.
var Module = fx.Options(
	fx.Provide(newBackend),
	fx.Provide(func(b *backend) repository.OrderRepository { return b.repo }),
	fx.Invoke(registerLifecycle),
)

type backendParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

type backend struct {
	repo  repository.OrderRepository
	close func()
}

func newBackend(p backendParams) (*backend, error) {
	if p.Config.DatabaseURI == "" {
		p.Logger.Info("no database uri configured, using in-memory order store")
		return &backend{repo: memory.New(), close: func() {}}, nil
	}

	st, err := postgres.New(p.Ctx, p.Config.DatabaseURI, p.Logger)
	if err != nil {
		return nil, err
	}
	return &backend{repo: st.Orders(), close: st.Close}, nil
}

func registerLifecycle(lc fx.Lifecycle, b *backend) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			b.close()
			return nil
		},
	})
}
