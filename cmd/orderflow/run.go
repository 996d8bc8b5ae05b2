package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/fx"
)

func run(ctx context.Context, app *fx.App) {
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "orderflow start: %v\n", err)
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	// Stop runs on a fresh context so an already-cancelled signal context
	// does not cut the dispatcher drain short.
	if err := app.Stop(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "orderflow stop: %v\n", err)
		os.Exit(1)
	}
}
