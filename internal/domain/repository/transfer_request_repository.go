package repository

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// TransferRequestRepository puerto de persistencia para solicitudes de traslado.
type TransferRequestRepository interface {
	Create(ctx context.Context, req *entity.TransferRequest) error
	GetByID(ctx context.Context, id string) (*entity.TransferRequest, error)
	// GetForUpdate lee la solicitud dentro de la unidad de trabajo (bloqueo o registro de versión).
	GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error)
	// Update persiste con control optimista: falla con domain.ErrConflict si Version cambió.
	Update(ctx context.Context, req *entity.TransferRequest) error
	List(ctx context.Context, filter entity.TransferRequestFilter) ([]*entity.TransferRequest, error)
}
