package logger

import (
	"log/slog"
	"os"
)

// New creates the JSON logger every component shares. A service attribute is
// baked in so orderflow lines are filterable when logs from several services
// land in one stream.
func New() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler).With(slog.String("service", "orderflow"))
}
