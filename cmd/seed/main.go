// seed crea bodegas e ítems de desarrollo y muestra un JWT de administrador para probar la API.
//
// Uso: go run ./cmd/seed [rol]
// Por defecto el token es de rol admin. Requiere haber corrido ./cmd/migrate.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventory-ledger/pkg/config"
	"github.com/jhoicas/inventory-ledger/pkg/jwt"
)

var warehouses = []entity.Warehouse{
	{Code: "MAIN", Name: "Bodega principal"},
	{Code: "SHOP", Name: "Tienda"},
	{Code: "PROD", Name: "Producción"},
}

var items = []entity.Item{
	{Type: entity.ItemTypeFinishedGood, Code: "CAM-01", Name: "Camisa básica", UnitsPerPackage: decimal.NewFromInt(12)},
	{Type: entity.ItemTypeFinishedGood, Code: "PAN-01", Name: "Pantalón", UnitsPerPackage: decimal.NewFromInt(6)},
	{Type: entity.ItemTypeRawMaterial, Code: "TEL-01", Name: "Tela algodón (m)", UnitsPerPackage: decimal.NewFromInt(1)},
}

func main() {
	role := "admin"
	if len(os.Args) > 1 {
		role = os.Args[1]
	}
	cfg, err := config.Load()
	if err != nil {
		fail("cargar configuración", err)
	}
	if cfg.JWT.Secret == "" {
		fail("configuración", errors.New("JWT_SECRET es requerido"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fail("conexión a PostgreSQL", err)
	}
	defer pool.Close()

	warehouseRepo := postgres.NewWarehouseRepository(pool)
	itemRepo := postgres.NewItemRepository(pool)
	now := time.Now()

	for _, w := range warehouses {
		w := w
		w.ID = uuid.New().String()
		w.Active = true
		w.CreatedAt, w.UpdatedAt = now, now
		switch err := warehouseRepo.Create(ctx, &w); {
		case errors.Is(err, domain.ErrDuplicate):
			fmt.Printf("bodega %s ya existe\n", w.Code)
		case err != nil:
			fail("crear bodega "+w.Code, err)
		default:
			fmt.Printf("bodega %s creada: %s\n", w.Code, w.ID)
		}
	}

	for _, it := range items {
		it := it
		existing, err := itemRepo.GetByCode(ctx, it.Code)
		if err != nil {
			fail("consultar ítem "+it.Code, err)
		}
		if existing != nil {
			fmt.Printf("ítem %s ya existe\n", it.Code)
			continue
		}
		it.ID = uuid.New().String()
		it.CreatedAt, it.UpdatedAt = now, now
		if err := itemRepo.Create(ctx, &it); err != nil {
			fail("crear ítem "+it.Code, err)
		}
		fmt.Printf("ítem %s creado: %s\n", it.Code, it.ID)
	}

	token, err := jwt.Generate(cfg.JWT.Secret, uuid.New().String(), role, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fail("generar token", err)
	}
	fmt.Printf("\nJWT (%s, %d min):\n%s\n", role, cfg.JWT.Expiration, token)
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}
