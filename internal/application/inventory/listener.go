package inventory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// LogListener registra en log los saldos que quedan bajo el mínimo.
type LogListener struct {
	log zerolog.Logger
}

func NewLogListener(log zerolog.Logger) *LogListener {
	return &LogListener{log: log}
}

func (l *LogListener) BalancesChanged(_ context.Context, balances []entity.Balance) {
	for i := range balances {
		b := &balances[i]
		if !b.BelowMinimum() {
			continue
		}
		l.log.Warn().
			Str("balance_key", b.Key().String()).
			Str("quantity", b.Quantity.String()).
			Str("min_stock", b.MinStock.String()).
			Msg("saldo bajo el stock mínimo")
	}
}

var _ BalanceListener = (*LogListener)(nil)
