package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
)

var testKey = entity.BalanceKey{WarehouseID: "WH-1", ItemType: entity.ItemTypeFinishedGood, ItemID: "FG-1"}

func TestRun_ErrorNoPersisteNada(t *testing.T) {
	store := memory.NewStore(0, zerolog.Nop())
	boom := errors.New("boom")

	err := store.Run(context.Background(), func(r inventory.TxRepos) error {
		b, err := r.Balances.GetForUpdate(context.Background(), testKey)
		require.NoError(t, err)
		b.Quantity = decimal.NewFromInt(9)
		require.NoError(t, r.Balances.Upsert(context.Background(), b))
		require.NoError(t, r.Movements.Create(context.Background(), &entity.Movement{ID: "m1", ReferenceNo: "IN-000001", CreatedAt: time.Now()}))
		return boom
	})

	require.ErrorIs(t, err, boom)
	b, err := store.Balances().Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.EqualValues(t, 0, b.Version)
	m, err := store.Movements().GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestRun_LeeSusPropiasEscrituras(t *testing.T) {
	store := memory.NewStore(0, zerolog.Nop())

	err := store.Run(context.Background(), func(r inventory.TxRepos) error {
		for i := 0; i < 3; i++ {
			b, err := r.Balances.GetForUpdate(context.Background(), testKey)
			if err != nil {
				return err
			}
			b.Quantity = b.Quantity.Add(decimal.NewFromInt(2))
			if err := r.Balances.Upsert(context.Background(), b); err != nil {
				return err
			}
		}
		return nil
	})

	require.NoError(t, err)
	b, err := store.Balances().Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, b.Quantity.Equal(decimal.NewFromInt(6)))
	assert.EqualValues(t, 3, b.Version)
}

// Otra escritura confirmada entre la lectura y el commit obliga a reintentar; al agotar
// los reintentos se devuelve ErrTxConflict.
func TestRun_ConflictoAgotaReintentos(t *testing.T) {
	store := memory.NewStore(2, zerolog.Nop())
	attempts := 0

	err := store.Run(context.Background(), func(r inventory.TxRepos) error {
		attempts++
		b, err := r.Balances.GetForUpdate(context.Background(), testKey)
		if err != nil {
			return err
		}
		// escritura concurrente fuera de la unidad de trabajo
		other, err := store.Balances().Get(context.Background(), testKey)
		require.NoError(t, err)
		other.Quantity = other.Quantity.Add(decimal.NewFromInt(1))
		require.NoError(t, store.Balances().Upsert(context.Background(), other))

		b.Quantity = decimal.NewFromInt(100)
		return r.Balances.Upsert(context.Background(), b)
	})

	require.ErrorIs(t, err, domain.ErrTxConflict)
	assert.Equal(t, 3, attempts)
	b, err := store.Balances().Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, b.Quantity.Equal(decimal.NewFromInt(3)))
}

func TestUpsert_VersionDesactualizadaEsConflicto(t *testing.T) {
	store := memory.NewStore(0, zerolog.Nop())
	repo := store.Balances()
	b, err := repo.Get(context.Background(), testKey)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(context.Background(), b))

	stale := *b
	stale.Version = 0
	err = store.Run(context.Background(), func(r inventory.TxRepos) error {
		return r.Balances.Upsert(context.Background(), &stale)
	})

	require.ErrorIs(t, err, domain.ErrTxConflict)
}

// Purgar y recrear un saldo no reinicia su versión: una unidad de trabajo que leyó
// el saldo antes de la purga no puede confirmar sobre el recreado.
func TestRun_PurgaYRecreacionNoReutilizaVersion(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(0, zerolog.Nop())
	repo := store.Balances()
	b, err := repo.Get(ctx, testKey)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, b))
	require.EqualValues(t, 1, b.Version)

	attempts := 0
	err = store.Run(ctx, func(r inventory.TxRepos) error {
		attempts++
		stale, err := r.Balances.GetForUpdate(ctx, testKey)
		if err != nil {
			return err
		}
		if attempts == 1 {
			require.NoError(t, repo.Delete(ctx, testKey))
			fresh, err := repo.Get(ctx, testKey)
			require.NoError(t, err)
			assert.EqualValues(t, 1, fresh.Version)
			fresh.Quantity = decimal.NewFromInt(5)
			require.NoError(t, repo.Upsert(ctx, fresh))
			assert.EqualValues(t, 2, fresh.Version)
		}
		stale.Quantity = stale.Quantity.Add(decimal.NewFromInt(1))
		return r.Balances.Upsert(ctx, stale)
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	got, err := repo.Get(ctx, testKey)
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(6)), "cantidad %s", got.Quantity)
	assert.EqualValues(t, 3, got.Version)
}

// Dos unidades de trabajo que crean la misma llave de idempotencia: solo una confirma.
func TestMovements_LlaveDeIdempotenciaUnica(t *testing.T) {
	store := memory.NewStore(0, zerolog.Nop())
	ctx := context.Background()
	created := 0

	err := store.Run(ctx, func(r inventory.TxRepos) error {
		existing, err := r.Movements.GetByIdempotencyKey(ctx, "k-1")
		if err != nil || existing != nil {
			return err
		}
		if created == 0 {
			// otra transacción gana la carrera antes del commit
			require.NoError(t, store.Movements().Create(ctx, &entity.Movement{ID: "winner", IdempotencyKey: "k-1", CreatedAt: time.Now()}))
		}
		created++
		return r.Movements.Create(ctx, &entity.Movement{ID: "loser", IdempotencyKey: "k-1", CreatedAt: time.Now()})
	})

	require.NoError(t, err)
	assert.Equal(t, 1, created)
	m, err := store.Movements().GetByIdempotencyKey(ctx, "k-1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "winner", m.ID)
	loser, err := store.Movements().GetByID(ctx, "loser")
	require.NoError(t, err)
	assert.Nil(t, loser)
}

func TestMovements_ListNuevoPrimeroConFiltros(t *testing.T) {
	store := memory.NewStore(0, zerolog.Nop())
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, typ := range []string{entity.MovementTypeIN, entity.MovementTypeOUT, entity.MovementTypeIN} {
		require.NoError(t, store.Movements().Create(ctx, &entity.Movement{
			ID: string(rune('a' + i)), WarehouseID: "WH-1", Type: typ, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := store.Movements().List(ctx, entity.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)

	ins, err := store.Movements().List(ctx, entity.MovementFilter{Type: entity.MovementTypeIN, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, ins, 1)
	assert.Equal(t, "a", ins[0].ID)

	from := base.Add(30 * time.Minute)
	later, err := store.Movements().List(ctx, entity.MovementFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, later, 2)
}

func TestDirectory_ContadorPorPrefijo(t *testing.T) {
	dir := memory.NewDirectory()
	ctx := context.Background()

	a, _ := dir.Next(ctx, "TRF")
	b, _ := dir.Next(ctx, "TRF")
	c, _ := dir.Next(ctx, "CNT")

	assert.EqualValues(t, 1, a)
	assert.EqualValues(t, 2, b)
	assert.EqualValues(t, 1, c)
}
