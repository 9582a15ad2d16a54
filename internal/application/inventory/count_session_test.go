package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

func TestCreateSession_SnapshotDeSaldos(t *testing.T) {
	f := newFixture(t)
	f.post(t, entity.MovementTypeIN, whMain, fgShirt, 50)
	f.post(t, entity.MovementTypeIN, whMain, rmCloth, 12)
	f.post(t, entity.MovementTypeIN, whShop, fgShirt, 1)

	s, err := f.counts.CreateSession(context.Background(), whMain, testUser)

	require.NoError(t, err)
	assert.Equal(t, entity.CountStatusOpen, s.Status)
	require.Len(t, s.Lines, 2)
	for _, l := range s.Lines {
		assert.True(t, l.ExpectedQty.Equal(l.CountedQty))
		assert.True(t, l.Diff().IsZero())
	}
	i := s.LineIndex(entity.ItemTypeFinishedGood, fgShirt)
	require.GreaterOrEqual(t, i, 0)
	assert.True(t, s.Lines[i].ExpectedQty.Equal(qty(50)))
}

func TestCreateSession_BodegaInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.counts.CreateSession(context.Background(), "WH-NOPE", testUser)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// Escenario E: esperado 50, contado 45 → un ajuste de -5; re-aprobar se rechaza.
func TestApproveSession_PublicaAjustePorDiferencia(t *testing.T) {
	f := newFixture(t)
	f.post(t, entity.MovementTypeIN, whMain, fgShirt, 50)
	f.post(t, entity.MovementTypeIN, whMain, rmCloth, 12)
	s, err := f.counts.CreateSession(context.Background(), whMain, testUser)
	require.NoError(t, err)

	s, err = f.counts.SaveLines(context.Background(), s.ID, []inventory.CountedLine{
		{ItemType: entity.ItemTypeFinishedGood, ItemID: fgShirt, CountedQty: qty(45)},
	}, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.CountStatusCounted, s.Status)
	assert.True(t, f.balance(t, whMain, fgShirt).Equal(qty(50)))

	approved, err := f.counts.ApproveSession(context.Background(), s.ID, "jefe")
	require.NoError(t, err)
	assert.Equal(t, entity.CountStatusApproved, approved.Status)
	assert.Equal(t, "jefe", approved.ApprovedBy)

	adjustments := f.movements(t, entity.MovementFilter{Type: entity.MovementTypeADJUSTMENT})
	require.Len(t, adjustments, 1)
	adj := adjustments[0]
	assert.True(t, adj.Quantity.Equal(qty(-5)))
	assert.Equal(t, "count_session:"+s.ID, adj.SourceDocument)
	assert.Equal(t, "CNT-000001", adj.ReferenceNo)
	assert.Equal(t, "count-session:"+s.ID+":"+key(whMain, fgShirt).String(), adj.IdempotencyKey)
	assert.True(t, f.balance(t, whMain, fgShirt).Equal(qty(45)))
	assert.True(t, f.balance(t, whMain, rmCloth).Equal(qty(12)))

	_, err = f.counts.ApproveSession(context.Background(), s.ID, "jefe")
	require.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Len(t, f.movements(t, entity.MovementFilter{Type: entity.MovementTypeADJUSTMENT}), 1)
	assert.True(t, f.balance(t, whMain, fgShirt).Equal(qty(45)))
	f.requireLedgerInvariant(t)
}

// Un movimiento ajeno bajo la llave de un ajuste no se toma como ajuste ya publicado.
func TestApproveSession_LlaveOcupadaPorOtroMovimientoSeRechaza(t *testing.T) {
	f := newFixture(t)
	f.post(t, entity.MovementTypeIN, whMain, fgShirt, 50)
	s, err := f.counts.CreateSession(context.Background(), whMain, testUser)
	require.NoError(t, err)
	_, err = f.counts.SaveLines(context.Background(), s.ID, []inventory.CountedLine{
		{ItemType: entity.ItemTypeFinishedGood, ItemID: fgShirt, CountedQty: qty(45)},
	}, testUser)
	require.NoError(t, err)
	f.seedLedger(t, &entity.Movement{
		ID: "ajeno", WarehouseID: whMain, ItemType: entity.ItemTypeFinishedGood, ItemID: fgShirt,
		Type: entity.MovementTypeIN, Quantity: qty(2), ReferenceNo: "IN-000900",
		IdempotencyKey: "count-session:" + s.ID + ":" + key(whMain, fgShirt).String(),
	})

	_, err = f.counts.ApproveSession(context.Background(), s.ID, "jefe")

	require.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Empty(t, f.movements(t, entity.MovementFilter{Type: entity.MovementTypeADJUSTMENT}))
	assert.True(t, f.balance(t, whMain, fgShirt).Equal(qty(52)))
	got, err := f.counts.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CountStatusCounted, got.Status)
	f.requireLedgerInvariant(t)
}

func TestSaveLines_AgregaItemsFueraDelSnapshot(t *testing.T) {
	f := newFixture(t)
	s, err := f.counts.CreateSession(context.Background(), whShop, testUser)
	require.NoError(t, err)
	require.Empty(t, s.Lines)

	s, err = f.counts.SaveLines(context.Background(), s.ID, []inventory.CountedLine{
		{ItemType: entity.ItemTypeRawMaterial, ItemID: rmCloth, CountedQty: qty(9)},
	}, testUser)
	require.NoError(t, err)
	require.Len(t, s.Lines, 1)
	assert.True(t, s.Lines[0].ExpectedQty.IsZero())

	_, err = f.counts.ApproveSession(context.Background(), s.ID, "jefe")
	require.NoError(t, err)
	assert.True(t, f.balance(t, whShop, rmCloth).Equal(qty(9)))
	f.requireLedgerInvariant(t)
}

func TestSaveLines_Validaciones(t *testing.T) {
	f := newFixture(t)
	s, err := f.counts.CreateSession(context.Background(), whMain, testUser)
	require.NoError(t, err)

	_, err = f.counts.SaveLines(context.Background(), s.ID, []inventory.CountedLine{
		{ItemType: entity.ItemTypeFinishedGood, ItemID: fgShirt, CountedQty: qty(-1)},
	}, testUser)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.counts.SaveLines(context.Background(), s.ID, []inventory.CountedLine{
		{ItemType: entity.ItemTypeFinishedGood, ItemID: "FG-NOPE", CountedQty: qty(1)},
	}, testUser)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.counts.SaveLines(context.Background(), "nope", nil, testUser)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveLines_SesionAprobadaEsInmutable(t *testing.T) {
	f := newFixture(t)
	f.post(t, entity.MovementTypeIN, whMain, fgShirt, 5)
	s, err := f.counts.CreateSession(context.Background(), whMain, testUser)
	require.NoError(t, err)
	_, err = f.counts.ApproveSession(context.Background(), s.ID, "jefe")
	require.NoError(t, err)
	assert.Empty(t, f.movements(t, entity.MovementFilter{Type: entity.MovementTypeADJUSTMENT}))

	_, err = f.counts.SaveLines(context.Background(), s.ID, []inventory.CountedLine{
		{ItemType: entity.ItemTypeFinishedGood, ItemID: fgShirt, CountedQty: qty(1)},
	}, testUser)

	require.ErrorIs(t, err, domain.ErrInvalidState)
	got, err := f.counts.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, got.Lines[0].CountedQty.Equal(qty(5)))
}

// Un ajuste negativo que dejaría el saldo bajo cero aborta toda la aprobación.
func TestApproveSession_TodoONada(t *testing.T) {
	f := newFixture(t)
	f.post(t, entity.MovementTypeIN, whMain, fgShirt, 10)
	f.post(t, entity.MovementTypeIN, whMain, rmCloth, 10)
	s, err := f.counts.CreateSession(context.Background(), whMain, testUser)
	require.NoError(t, err)
	_, err = f.counts.SaveLines(context.Background(), s.ID, []inventory.CountedLine{
		{ItemType: entity.ItemTypeFinishedGood, ItemID: fgShirt, CountedQty: qty(12)},
		{ItemType: entity.ItemTypeRawMaterial, ItemID: rmCloth, CountedQty: qty(0)},
	}, testUser)
	require.NoError(t, err)
	// la tela se consumió después del snapshot
	f.post(t, entity.MovementTypeOUT, whMain, rmCloth, 4)

	_, err = f.counts.ApproveSession(context.Background(), s.ID, "jefe")

	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Empty(t, f.movements(t, entity.MovementFilter{Type: entity.MovementTypeADJUSTMENT}))
	assert.True(t, f.balance(t, whMain, fgShirt).Equal(qty(10)))
	got, err := f.counts.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CountStatusCounted, got.Status)
}

func TestListSessions_PorBodega(t *testing.T) {
	f := newFixture(t)
	_, err := f.counts.CreateSession(context.Background(), whMain, testUser)
	require.NoError(t, err)
	_, err = f.counts.CreateSession(context.Background(), whShop, testUser)
	require.NoError(t, err)

	got, err := f.counts.ListSessions(context.Background(), whMain, 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = f.counts.ListSessions(context.Background(), "", 0, 0)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
