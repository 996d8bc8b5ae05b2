package auth

import (
	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
)

// Module provides authorization primitives via fx.
var Module = fx.Provide(newAuthorizer)

type authorizerParams struct {
	fx.In

	Config *config.Config
}

func newAuthorizer(p authorizerParams) (Authorizer, error) {
	return NewBcryptAuthorizer(p.Config.AdminToken)
}
