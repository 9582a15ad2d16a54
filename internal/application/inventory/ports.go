package inventory

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

// TxRepos repositorios atados a una misma unidad de trabajo atómica.
type TxRepos struct {
	Movements repository.MovementRepository
	Balances  repository.BalanceRepository
	Transfers repository.TransferRequestRepository
	Counts    repository.CountSessionRepository
}

// TxRunner ejecuta una función dentro de una unidad de trabajo atómica, pasando repositorios atados a ella.
// Si fn devuelve error no se persiste nada. Los conflictos de concurrencia se reintentan
// re-ejecutando fn completa; al agotar los reintentos devuelve domain.ErrTxConflict.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}

// ReferenceAllocator asigna números de referencia legibles ("TRF-000042").
type ReferenceAllocator interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// BalanceListener suscriptor de solo lectura notificado con los saldos tras cada commit.
// Nunca es fuente de verdad para decisiones de escritura.
type BalanceListener interface {
	BalancesChanged(ctx context.Context, balances []entity.Balance)
}
