package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

// MovementPoster es el único camino que modifica saldos y libro de movimientos.
// Cada publicación corre en una unidad de trabajo atómica: fila(s) del libro y saldo(s) se escriben juntos o nada.
type MovementPoster struct {
	txRunner   TxRunner
	warehouses repository.WarehouseRepository
	items      repository.ItemRepository
	refs       ReferenceAllocator
	exempt     map[string]bool
	listeners  []BalanceListener
	log        zerolog.Logger
	now        func() time.Time
}

// NewMovementPoster construye el publicador. exemptWarehouses son las bodegas (p.ej. "producción")
// que pueden quedar en negativo como origen de un traslado cuando quien llama lo solicita.
func NewMovementPoster(
	txRunner TxRunner,
	warehouses repository.WarehouseRepository,
	items repository.ItemRepository,
	refs ReferenceAllocator,
	log zerolog.Logger,
	exemptWarehouses ...string,
) *MovementPoster {
	exempt := make(map[string]bool, len(exemptWarehouses))
	for _, id := range exemptWarehouses {
		if id != "" {
			exempt[id] = true
		}
	}
	return &MovementPoster{
		txRunner:   txRunner,
		warehouses: warehouses,
		items:      items,
		refs:       refs,
		exempt:     exempt,
		log:        log,
		now:        time.Now,
	}
}

// AddListener registra un suscriptor de cambios de saldo.
func (p *MovementPoster) AddListener(l BalanceListener) {
	p.listeners = append(p.listeners, l)
}

// IsExempt indica si la bodega puede quedar negativa como origen de traslado.
func (p *MovementPoster) IsExempt(warehouseID string) bool {
	return p.exempt[warehouseID]
}

// Prefijos de llaves de idempotencia que genera el motor. Un caller externo no puede usarlos.
const (
	keyPrefixTransferRequest = "transfer-request:"
	keyPrefixCountSession    = "count-session:"
	keyPrefixReversal        = "reversal:"
)

// reservedKey indica si la llave pertenece al espacio interno del motor.
func reservedKey(key string) bool {
	for _, prefix := range []string{keyPrefixTransferRequest, keyPrefixCountSession, keyPrefixReversal} {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// PostMovementInput entrada para publicar un movimiento.
// Para TRANSFER: WarehouseID es el origen y ToWarehouseID el destino.
type PostMovementInput struct {
	WarehouseID    string
	ToWarehouseID  string
	ItemType       string
	ItemID         string
	Type           string
	Quantity       decimal.Decimal
	AllowNegative  bool
	ReferenceNo    string
	IdempotencyKey string
	SourceDocument string
	Note           string
	CreatedBy      string
}

// postResult resultado de una publicación dentro de una unidad de trabajo.
type postResult struct {
	MovementID string
	Balances   []entity.Balance
	Duplicate  bool
}

// PostMovement valida, asigna referencia si falta y publica el movimiento.
// Devuelve el ID del movimiento (la pierna OUT en traslados).
func (p *MovementPoster) PostMovement(ctx context.Context, in PostMovementInput) (string, error) {
	if err := validateMovementShape(in); err != nil {
		return "", err
	}
	if reservedKey(in.IdempotencyKey) {
		return "", domain.Invalid("idempotency_key", "usa un prefijo reservado para documentos internos")
	}
	if err := p.checkDirectory(ctx, in); err != nil {
		return "", err
	}
	if in.ReferenceNo == "" {
		ref, err := p.refs.Next(ctx, ReferencePrefix(in.Type))
		if err != nil {
			return "", fmt.Errorf("asignar referencia: %w", err)
		}
		in.ReferenceNo = ref
	}

	var res *postResult
	err := p.txRunner.Run(ctx, func(r TxRepos) error {
		var err error
		res, err = p.postInTx(ctx, r, in, p.now())
		return err
	})
	if err != nil {
		return "", err
	}
	if res.Duplicate {
		p.log.Info().
			Str("movement_id", res.MovementID).
			Str("idempotency_key", in.IdempotencyKey).
			Msg("movimiento ya publicado, se devuelve el existente")
		return res.MovementID, nil
	}
	p.notify(ctx, res.Balances)
	p.log.Info().
		Str("movement_id", res.MovementID).
		Str("type", in.Type).
		Str("warehouse_id", in.WarehouseID).
		Str("item_id", in.ItemID).
		Str("quantity", in.Quantity.String()).
		Str("reference_no", in.ReferenceNo).
		Msg("movimiento publicado")
	return res.MovementID, nil
}

// validateMovementShape validaciones sincrónicas previas a cualquier transacción.
func validateMovementShape(in PostMovementInput) error {
	if in.WarehouseID == "" {
		return domain.Invalid("warehouse_id", "es requerido")
	}
	if !entity.ValidItemType(in.ItemType) {
		return domain.Invalid("item_type", "debe ser FINISHED_GOOD o RAW_MATERIAL")
	}
	if in.ItemID == "" {
		return domain.Invalid("item_id", "es requerido")
	}
	switch in.Type {
	case entity.MovementTypeIN, entity.MovementTypeOUT:
		if !in.Quantity.IsPositive() {
			return domain.Invalid("quantity", "debe ser mayor que cero")
		}
	case entity.MovementTypeADJUSTMENT:
		if in.Quantity.IsZero() {
			return domain.Invalid("quantity", "no puede ser cero en un ajuste")
		}
	case entity.MovementTypeTRANSFER:
		if !in.Quantity.IsPositive() {
			return domain.Invalid("quantity", "debe ser mayor que cero")
		}
		if in.ToWarehouseID == "" {
			return domain.Invalid("to_warehouse_id", "es requerido en traslados")
		}
		if in.ToWarehouseID == in.WarehouseID {
			return domain.Invalid("to_warehouse_id", "debe ser distinta a la bodega origen")
		}
	default:
		return domain.Invalid("type", "debe ser IN, OUT, ADJUSTMENT o TRANSFER")
	}
	return nil
}

// checkDirectory verifica que bodega(s) e ítem existan en el directorio y catálogo.
func (p *MovementPoster) checkDirectory(ctx context.Context, in PostMovementInput) error {
	if err := checkWarehouse(ctx, p.warehouses, in.WarehouseID); err != nil {
		return err
	}
	if in.Type == entity.MovementTypeTRANSFER {
		if err := checkWarehouse(ctx, p.warehouses, in.ToWarehouseID); err != nil {
			return err
		}
	}
	return checkItem(ctx, p.items, in.ItemType, in.ItemID)
}

func checkWarehouse(ctx context.Context, repo repository.WarehouseRepository, id string) error {
	wh, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if wh == nil {
		return fmt.Errorf("bodega %s: %w", id, domain.ErrNotFound)
	}
	if !wh.Active {
		return domain.Invalid("warehouse_id", fmt.Sprintf("la bodega %s está inactiva", id))
	}
	return nil
}

func checkItem(ctx context.Context, repo repository.ItemRepository, itemType, id string) error {
	item, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("ítem %s: %w", id, domain.ErrNotFound)
	}
	if item.Type != itemType {
		return domain.Invalid("item_type", fmt.Sprintf("el ítem %s es de tipo %s", id, item.Type))
	}
	return nil
}

// postInTx publica usando los repositorios de la unidad de trabajo del caller.
// Con IdempotencyKey, si ya existe el mismo movimiento con esa llave devuelve su ID sin publicar;
// si la llave la tiene un movimiento distinto devuelve ErrDuplicate.
func (p *MovementPoster) postInTx(ctx context.Context, r TxRepos, in PostMovementInput, now time.Time) (*postResult, error) {
	if err := validateMovementShape(in); err != nil {
		return nil, err
	}
	if in.IdempotencyKey != "" {
		existing, err := r.Movements.GetByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			same, err := samePost(ctx, r, existing, in)
			if err != nil {
				return nil, err
			}
			if !same {
				return nil, fmt.Errorf("llave de idempotencia %s usada por el movimiento %s: %w", in.IdempotencyKey, existing.ID, domain.ErrDuplicate)
			}
			return &postResult{MovementID: existing.ID, Duplicate: true}, nil
		}
	}
	if in.Type == entity.MovementTypeTRANSFER {
		return p.doTRANSFER(ctx, r, in, now)
	}
	return p.doSingle(ctx, r, in, now)
}

// samePost compara el movimiento ya guardado bajo la llave con la publicación pedida.
// En traslados la llave es la de la pierna OUT; el destino se verifica en la pierna enlazada.
func samePost(ctx context.Context, r TxRepos, existing *entity.Movement, in PostMovementInput) (bool, error) {
	if existing.Type != in.Type ||
		existing.WarehouseID != in.WarehouseID ||
		existing.ItemType != in.ItemType ||
		existing.ItemID != in.ItemID ||
		existing.SourceDocument != in.SourceDocument {
		return false, nil
	}
	if in.Type != entity.MovementTypeTRANSFER {
		return existing.Quantity.Equal(signedDelta(in.Type, in.Quantity)), nil
	}
	if existing.TransferDirection != entity.TransferDirectionOUT || !existing.Quantity.Equal(in.Quantity.Neg()) {
		return false, nil
	}
	linked, err := r.Movements.GetByID(ctx, existing.LinkedMovementID)
	if err != nil {
		return false, err
	}
	return linked != nil && linked.WarehouseID == in.ToWarehouseID, nil
}

// signedDelta resuelve el signo según el tipo: IN +q, OUT -q, ADJUSTMENT tal cual.
func signedDelta(movementType string, quantity decimal.Decimal) decimal.Decimal {
	if movementType == entity.MovementTypeOUT {
		return quantity.Neg()
	}
	return quantity
}

// doSingle IN/OUT/ADJUSTMENT: lee saldo, calcula siguiente, valida no-negativo, escribe fila + saldo.
func (p *MovementPoster) doSingle(ctx context.Context, r TxRepos, in PostMovementInput, now time.Time) (*postResult, error) {
	key := entity.BalanceKey{WarehouseID: in.WarehouseID, ItemType: in.ItemType, ItemID: in.ItemID}
	bal, err := r.Balances.GetForUpdate(ctx, key)
	if err != nil {
		return nil, err
	}
	delta := signedDelta(in.Type, in.Quantity)
	next := bal.Quantity.Add(delta)
	if !in.AllowNegative {
		if err := checkNonNegative(bal, delta); err != nil {
			return nil, err
		}
	}
	mov := &entity.Movement{
		ID:             uuid.New().String(),
		WarehouseID:    in.WarehouseID,
		ItemType:       in.ItemType,
		ItemID:         in.ItemID,
		Type:           in.Type,
		Quantity:       delta,
		ReferenceNo:    in.ReferenceNo,
		IdempotencyKey: in.IdempotencyKey,
		SourceDocument: in.SourceDocument,
		Note:           in.Note,
		CreatedBy:      in.CreatedBy,
		CreatedAt:      now,
	}
	if err := r.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	bal.Quantity = next
	bal.LastUpdated = now
	if err := r.Balances.Upsert(ctx, bal); err != nil {
		return nil, err
	}
	return &postResult{MovementID: mov.ID, Balances: []entity.Balance{*bal}}, nil
}

// doTRANSFER resta en origen y suma en destino en la misma unidad de trabajo; guarda dos piernas enlazadas.
func (p *MovementPoster) doTRANSFER(ctx context.Context, r TxRepos, in PostMovementInput, now time.Time) (*postResult, error) {
	srcKey := entity.BalanceKey{WarehouseID: in.WarehouseID, ItemType: in.ItemType, ItemID: in.ItemID}
	dstKey := entity.BalanceKey{WarehouseID: in.ToWarehouseID, ItemType: in.ItemType, ItemID: in.ItemID}
	bals, err := lockBalances(ctx, r.Balances, srcKey, dstKey)
	if err != nil {
		return nil, err
	}
	origin, dest := bals[srcKey.String()], bals[dstKey.String()]

	waived := in.AllowNegative && p.exempt[in.WarehouseID]
	nextOrigin := origin.Quantity.Sub(in.Quantity)
	if !waived {
		if err := checkNonNegative(origin, in.Quantity.Neg()); err != nil {
			return nil, err
		}
	}

	outID, inID := uuid.New().String(), uuid.New().String()
	outLeg := &entity.Movement{
		ID:                outID,
		WarehouseID:       in.WarehouseID,
		ItemType:          in.ItemType,
		ItemID:            in.ItemID,
		Type:              entity.MovementTypeTRANSFER,
		Quantity:          in.Quantity.Neg(),
		ReferenceNo:       in.ReferenceNo,
		LinkedMovementID:  inID,
		TransferDirection: entity.TransferDirectionOUT,
		IdempotencyKey:    in.IdempotencyKey,
		SourceDocument:    in.SourceDocument,
		Note:              in.Note,
		CreatedBy:         in.CreatedBy,
		CreatedAt:         now,
	}
	inLeg := &entity.Movement{
		ID:                inID,
		WarehouseID:       in.ToWarehouseID,
		ItemType:          in.ItemType,
		ItemID:            in.ItemID,
		Type:              entity.MovementTypeTRANSFER,
		Quantity:          in.Quantity,
		ReferenceNo:       in.ReferenceNo,
		LinkedMovementID:  outID,
		TransferDirection: entity.TransferDirectionIN,
		IdempotencyKey:    legKey(in.IdempotencyKey, entity.TransferDirectionIN),
		SourceDocument:    in.SourceDocument,
		Note:              in.Note,
		CreatedBy:         in.CreatedBy,
		CreatedAt:         now,
	}
	if err := r.Movements.Create(ctx, outLeg); err != nil {
		return nil, err
	}
	if err := r.Movements.Create(ctx, inLeg); err != nil {
		return nil, err
	}

	origin.Quantity = nextOrigin
	dest.Quantity = dest.Quantity.Add(in.Quantity)
	origin.LastUpdated = now
	dest.LastUpdated = now
	if err := r.Balances.Upsert(ctx, origin); err != nil {
		return nil, err
	}
	if err := r.Balances.Upsert(ctx, dest); err != nil {
		return nil, err
	}
	return &postResult{MovementID: outID, Balances: []entity.Balance{*origin, *dest}}, nil
}

// checkNonNegative rechaza un delta negativo que deje el saldo bajo cero.
// Un delta positivo nunca se rechaza aunque el saldo siga negativo.
func checkNonNegative(bal *entity.Balance, delta decimal.Decimal) error {
	if !delta.IsNegative() {
		return nil
	}
	if bal.Quantity.Add(delta).IsNegative() {
		return &domain.InsufficientStockError{Key: bal.Key().String(), Available: bal.Quantity, Requested: delta.Neg()}
	}
	return nil
}

// legKey llave de idempotencia de la pierna IN; la pierna OUT usa la llave original.
func legKey(key, direction string) string {
	if key == "" {
		return ""
	}
	return key + "#" + direction
}

// lockBalances lee los saldos para update en orden de llave (evita deadlocks entre traslados cruzados).
func lockBalances(ctx context.Context, repo repository.BalanceRepository, keys ...entity.BalanceKey) (map[string]*entity.Balance, error) {
	sorted := make([]entity.BalanceKey, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k.String()] {
			seen[k.String()] = true
			sorted = append(sorted, k)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
	out := make(map[string]*entity.Balance, len(sorted))
	for _, k := range sorted {
		b, err := repo.GetForUpdate(ctx, k)
		if err != nil {
			return nil, err
		}
		out[k.String()] = b
	}
	return out, nil
}

// notify avisa a los suscriptores tras un commit exitoso.
func (p *MovementPoster) notify(ctx context.Context, balances []entity.Balance) {
	if len(balances) == 0 {
		return
	}
	for _, l := range p.listeners {
		l.BalancesChanged(ctx, balances)
	}
}
