package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

// ItemUseCase administración del catálogo. Las cantidades no viven aquí: solo se mueven vía movimientos.
type ItemUseCase struct {
	repo repository.ItemRepository
}

// NewItemUseCase construye el caso de uso.
func NewItemUseCase(repo repository.ItemRepository) *ItemUseCase {
	return &ItemUseCase{repo: repo}
}

// Create crea un ítem; el código es único en el catálogo.
func (uc *ItemUseCase) Create(ctx context.Context, in dto.CreateItemRequest) (*dto.ItemResponse, error) {
	if !entity.ValidItemType(in.Type) {
		return nil, domain.Invalid("type", "debe ser FINISHED_GOOD o RAW_MATERIAL")
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	existing, err := uc.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("ítem %s: %w", code, domain.ErrDuplicate)
	}
	now := time.Now()
	item := &entity.Item{
		ID:              uuid.New().String(),
		Type:            in.Type,
		Code:            code,
		Name:            strings.TrimSpace(in.Name),
		UnitsPerPackage: in.UnitsPerPackage,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return toItemResponse(item), nil
}

// GetByID obtiene un ítem por ID; nil si no existe.
func (uc *ItemUseCase) GetByID(ctx context.Context, id string) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	return toItemResponse(item), nil
}

// List lista ítems, opcionalmente por tipo.
func (uc *ItemUseCase) List(ctx context.Context, itemType string, limit, offset int) (*dto.ItemListResponse, error) {
	if itemType != "" && !entity.ValidItemType(itemType) {
		return nil, domain.Invalid("type", "debe ser FINISHED_GOOD o RAW_MATERIAL")
	}
	list, err := uc.repo.List(ctx, itemType, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ItemResponse, 0, len(list))
	for _, it := range list {
		items = append(items, *toItemResponse(it))
	}
	return &dto.ItemListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func toItemResponse(it *entity.Item) *dto.ItemResponse {
	return &dto.ItemResponse{
		ID:              it.ID,
		Type:            it.Type,
		Code:            it.Code,
		Name:            it.Name,
		UnitsPerPackage: it.UnitsPerPackage,
		CreatedAt:       it.CreatedAt,
		UpdatedAt:       it.UpdatedAt,
	}
}
