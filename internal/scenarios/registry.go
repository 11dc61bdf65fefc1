// Package scenarios selects how resolutions are served: straight from the
// upstream, or through the resolution cache.
package scenarios

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/config"
	"github.com/mohammed-shakir/floodzone-resolver/internal/resolver"
)

const Default = "direct"

// Handler is what the HTTP layer serves from.
type Handler interface {
	resolver.Interface
	Ready(ctx context.Context) error
	Close() error
}

type Factory func(cfg config.Config, logger *slog.Logger, base resolver.Interface) (Handler, error)

var reg = map[string]Factory{}

func Register(name string, f Factory) {
	reg[name] = f
}

// Names lists registered scenarios in sorted order.
func Names() []string {
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func New(name string, cfg config.Config, logger *slog.Logger, base resolver.Interface) (Handler, error) {
	if f, ok := reg[name]; ok {
		return f(cfg, logger, base)
	}
	if f, ok := reg[Default]; ok {
		logger.Warn("unknown scenario; falling back to direct", "scenario", name, "known", Names())
		return f(cfg, logger, base)
	}
	return nil, fmt.Errorf("no factory for scenario %q and no %s registered", name, Default)
}
