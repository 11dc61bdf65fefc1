// Package direct serves every lookup straight from the upstream service.
package direct

import (
	"context"
	"log/slog"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/config"
	"github.com/mohammed-shakir/floodzone-resolver/internal/resolver"
	"github.com/mohammed-shakir/floodzone-resolver/internal/scenarios"
)

type Engine struct {
	resolver.Interface
}

func init() {
	scenarios.Register("direct", newDirect)
}

func newDirect(_ config.Config, _ *slog.Logger, base resolver.Interface) (scenarios.Handler, error) {
	return &Engine{Interface: base}, nil
}

func (*Engine) Ready(context.Context) error { return nil }

func (*Engine) Close() error { return nil }
