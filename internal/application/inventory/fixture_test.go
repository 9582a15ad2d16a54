package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
)

const (
	whMain = "WH-MAIN"
	whShop = "WH-SHOP"
	whProd = "WH-PROD" // exenta: salida de producción
	whOff  = "WH-OFF"  // inactiva

	fgShirt = "FG-SHIRT"
	rmCloth = "RM-CLOTH"

	testUser = "user-1"
)

// fixture motor completo sobre el almacén en memoria.
type fixture struct {
	store     *memory.Store
	poster    *inventory.MovementPoster
	queries   *inventory.QueryService
	transfers *inventory.TransferWorkflow
	counts    *inventory.CountReconciliation
	listener  *recordingListener
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()
	store := memory.NewStore(100, log)
	dir := store.Directory()
	items := dir.Items()

	for _, wh := range []entity.Warehouse{
		{ID: whMain, Code: "MAIN", Name: "Bodega principal", Active: true},
		{ID: whShop, Code: "SHOP", Name: "Tienda", Active: true},
		{ID: whProd, Code: "PROD", Name: "Producción", Active: true},
		{ID: whOff, Code: "OFF", Name: "Cerrada", Active: false},
	} {
		wh := wh
		require.NoError(t, dir.Create(ctx, &wh))
	}
	require.NoError(t, items.Create(ctx, &entity.Item{ID: fgShirt, Type: entity.ItemTypeFinishedGood, Code: "CAM-01", Name: "Camisa"}))
	require.NoError(t, items.Create(ctx, &entity.Item{ID: rmCloth, Type: entity.ItemTypeRawMaterial, Code: "TEL-01", Name: "Tela"}))

	refs := inventory.NewSequenceAllocator(dir)
	poster := inventory.NewMovementPoster(store, dir, items, refs, log, whProd)
	listener := &recordingListener{}
	poster.AddListener(listener)

	return &fixture{
		store:     store,
		poster:    poster,
		queries:   inventory.NewQueryService(store.Balances(), store.Movements()),
		transfers: inventory.NewTransferWorkflow(store, poster, store.Transfers(), dir, items, refs, log),
		counts:    inventory.NewCountReconciliation(store, poster, store.Counts(), store.Balances(), dir, items, refs, log),
		listener:  listener,
	}
}

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func key(wh, itemID string) entity.BalanceKey {
	itemType := entity.ItemTypeFinishedGood
	if itemID == rmCloth {
		itemType = entity.ItemTypeRawMaterial
	}
	return entity.BalanceKey{WarehouseID: wh, ItemType: itemType, ItemID: itemID}
}

// post publica un movimiento simple y falla el test si hay error.
func (f *fixture) post(t *testing.T, movementType, wh, itemID string, q int64) string {
	t.Helper()
	k := key(wh, itemID)
	id, err := f.poster.PostMovement(context.Background(), inventory.PostMovementInput{
		WarehouseID: wh,
		ItemType:    k.ItemType,
		ItemID:      itemID,
		Type:        movementType,
		Quantity:    qty(q),
		CreatedBy:   testUser,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) balance(t *testing.T, wh, itemID string) decimal.Decimal {
	t.Helper()
	b, err := f.queries.GetBalance(context.Background(), key(wh, itemID))
	require.NoError(t, err)
	return b.Quantity
}

func (f *fixture) movements(t *testing.T, filter entity.MovementFilter) []*entity.Movement {
	t.Helper()
	ms, err := f.queries.GetTransactions(context.Background(), filter)
	require.NoError(t, err)
	return ms
}

// requireLedgerInvariant saldo == suma de los deltas del libro para cada llave.
func (f *fixture) requireLedgerInvariant(t *testing.T) {
	t.Helper()
	sums := make(map[string]decimal.Decimal)
	for _, m := range f.movements(t, entity.MovementFilter{Limit: 500}) {
		k := m.BalanceKey().String()
		sums[k] = sums[k].Add(m.Quantity)
	}
	balances, err := f.queries.GetBalances(context.Background(), "")
	require.NoError(t, err)
	for _, b := range balances {
		k := b.Key().String()
		require.True(t, sums[k].Equal(b.Quantity), "saldo %s=%s, suma del libro=%s", k, b.Quantity, sums[k])
		delete(sums, k)
	}
	for k, s := range sums {
		require.True(t, s.IsZero(), "movimientos sin saldo para %s (suma %s)", k, s)
	}
}

// seedLedger escribe filas del libro tal cual, con su efecto en saldos, sin pasar por el publicador.
// Representa datos cargados antes de que existieran las validaciones actuales.
func (f *fixture) seedLedger(t *testing.T, movements ...*entity.Movement) {
	t.Helper()
	ctx := context.Background()
	err := f.store.Run(ctx, func(r inventory.TxRepos) error {
		for _, m := range movements {
			if m.CreatedAt.IsZero() {
				m.CreatedAt = time.Now()
			}
			if err := r.Movements.Create(ctx, m); err != nil {
				return err
			}
			b, err := r.Balances.GetForUpdate(ctx, m.BalanceKey())
			if err != nil {
				return err
			}
			b.Quantity = b.Quantity.Add(m.Quantity)
			if err := r.Balances.Upsert(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// recordingListener guarda las notificaciones recibidas.
type recordingListener struct {
	mu    sync.Mutex
	calls [][]entity.Balance
}

func (l *recordingListener) BalancesChanged(_ context.Context, balances []entity.Balance) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, append([]entity.Balance(nil), balances...))
}

func (l *recordingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}
