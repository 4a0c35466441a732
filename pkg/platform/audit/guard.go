package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/circuit"
)

// Guard wraps a remote sink with a circuit breaker. While the circuit is
// open, events for that sink are dropped with circuit.ErrOpen instead of
// waiting on a broker that is known to be down.
type Guard struct {
	store   Store
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuard(name string, store Store, logger *slog.Logger, opts ...circuit.Option) *Guard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Guard{store: store, breaker: circuit.New(name, opts...), logger: logger}
}

func (g *Guard) Append(ctx context.Context, event Event) error {
	if !g.breaker.Allow() {
		return fmt.Errorf("audit sink %s: %w", g.breaker.Name(), circuit.ErrOpen)
	}
	if err := g.store.Append(ctx, event); err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "audit sink circuit opened",
				"sink", g.breaker.Name(),
				"error", err,
			)
		}
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "audit sink circuit closed", "sink", g.breaker.Name())
	}
	return nil
}
