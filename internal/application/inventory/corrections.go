package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// UpdateMovement corrige la cantidad de un movimiento que no es traslado.
// Recalcula el delta según el tipo y aplica la diferencia al saldo.
func (p *MovementPoster) UpdateMovement(ctx context.Context, id string, quantity decimal.Decimal, updatedBy string) (*entity.Movement, error) {
	if id == "" {
		return nil, domain.Invalid("id", "es requerido")
	}
	var updated *entity.Movement
	var bals []entity.Balance
	err := p.txRunner.Run(ctx, func(r TxRepos) error {
		m, err := r.Movements.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("movimiento %s: %w", id, domain.ErrNotFound)
		}
		if m.IsTransferLeg() {
			return domain.Invalid("type", "los traslados no se editan; elimine o cancele por referencia")
		}
		switch m.Type {
		case entity.MovementTypeADJUSTMENT:
			if quantity.IsZero() {
				return domain.Invalid("quantity", "no puede ser cero en un ajuste")
			}
		default:
			if !quantity.IsPositive() {
				return domain.Invalid("quantity", "debe ser mayor que cero")
			}
		}
		newDelta := signedDelta(m.Type, quantity)
		diff := newDelta.Sub(m.Quantity)

		bal, err := r.Balances.GetForUpdate(ctx, m.BalanceKey())
		if err != nil {
			return err
		}
		if err := checkNonNegative(bal, diff); err != nil {
			return err
		}
		now := p.now()
		m.Quantity = newDelta
		m.UpdatedBy = updatedBy
		m.UpdatedAt = &now
		if err := r.Movements.Update(ctx, m); err != nil {
			return err
		}
		bal.Quantity = bal.Quantity.Add(diff)
		bal.LastUpdated = now
		if err := r.Balances.Upsert(ctx, bal); err != nil {
			return err
		}
		updated = m
		bals = []entity.Balance{*bal}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.notify(ctx, bals)
	p.log.Info().Str("movement_id", id).Str("quantity", updated.Quantity.String()).Str("updated_by", updatedBy).Msg("movimiento corregido")
	return updated, nil
}

// DeleteMovement elimina un movimiento y revierte su delta.
// Una pierna de traslado se elimina a través de su referencia (ambas piernas juntas).
func (p *MovementPoster) DeleteMovement(ctx context.Context, id, deletedBy string) error {
	if id == "" {
		return domain.Invalid("id", "es requerido")
	}
	var transferRef string
	var bals []entity.Balance
	err := p.txRunner.Run(ctx, func(r TxRepos) error {
		transferRef = ""
		m, err := r.Movements.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("movimiento %s: %w", id, domain.ErrNotFound)
		}
		if m.IsTransferLeg() {
			if m.ReferenceNo == "" {
				return fmt.Errorf("pierna %s sin referencia: %w", id, domain.ErrUnsupportedTransferShape)
			}
			transferRef = m.ReferenceNo
			return nil
		}
		bal, err := r.Balances.GetForUpdate(ctx, m.BalanceKey())
		if err != nil {
			return err
		}
		revert := m.Quantity.Neg()
		if err := checkNonNegative(bal, revert); err != nil {
			return err
		}
		if err := r.Movements.Delete(ctx, m.ID); err != nil {
			return err
		}
		bal.Quantity = bal.Quantity.Add(revert)
		bal.LastUpdated = p.now()
		if err := r.Balances.Upsert(ctx, bal); err != nil {
			return err
		}
		bals = []entity.Balance{*bal}
		return nil
	})
	if err != nil {
		return err
	}
	if transferRef != "" {
		return p.DeleteTransferByReference(ctx, transferRef, deletedBy)
	}
	p.notify(ctx, bals)
	p.log.Info().Str("movement_id", id).Str("deleted_by", deletedBy).Msg("movimiento eliminado")
	return nil
}

// legPair pierna de salida y de entrada de un mismo traslado.
type legPair struct {
	Out *entity.Movement
	In  *entity.Movement
}

// pairTransferLegs agrupa las piernas originales de una referencia en pares OUT/IN.
// Cualquier pierna sin su pareja localizable hace fallar todo con ErrUnsupportedTransferShape.
func pairTransferLegs(ref string, movements []*entity.Movement) ([]legPair, error) {
	byID := make(map[string]*entity.Movement)
	var legs []*entity.Movement
	for _, m := range movements {
		if !m.IsTransferLeg() || m.IsReversal() {
			continue
		}
		byID[m.ID] = m
		legs = append(legs, m)
	}
	if len(legs) == 0 {
		return nil, fmt.Errorf("traslado %s: %w", ref, domain.ErrNotFound)
	}
	seen := make(map[string]bool, len(legs))
	var pairs []legPair
	for _, leg := range legs {
		if seen[leg.ID] {
			continue
		}
		other := byID[leg.LinkedMovementID]
		if leg.LinkedMovementID == "" || other == nil || seen[other.ID] {
			return nil, fmt.Errorf("traslado %s, pierna %s: %w", ref, leg.ID, domain.ErrUnsupportedTransferShape)
		}
		if other.LinkedMovementID != "" && other.LinkedMovementID != leg.ID {
			return nil, fmt.Errorf("traslado %s, pierna %s: %w", ref, other.ID, domain.ErrUnsupportedTransferShape)
		}
		pair := legPair{Out: leg, In: other}
		if leg.Quantity.IsPositive() {
			pair = legPair{Out: other, In: leg}
		}
		if !pair.Out.Quantity.IsNegative() || !pair.In.Quantity.IsPositive() || !pair.Out.Quantity.Add(pair.In.Quantity).IsZero() {
			return nil, fmt.Errorf("traslado %s, pierna %s: %w", ref, leg.ID, domain.ErrUnsupportedTransferShape)
		}
		seen[leg.ID], seen[other.ID] = true, true
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// hasReversal indica si la referencia ya contiene piernas compensatorias.
func hasReversal(movements []*entity.Movement) bool {
	for _, m := range movements {
		if m.IsReversal() {
			return true
		}
	}
	return false
}

// loadTransfer carga y valida las piernas de una referencia dentro de la unidad de trabajo.
func loadTransfer(ctx context.Context, r TxRepos, ref string) ([]legPair, map[string]*entity.Balance, error) {
	movements, err := r.Movements.ListByReference(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if hasReversal(movements) {
		return nil, nil, fmt.Errorf("traslado %s: %w", ref, domain.ErrAlreadyReversed)
	}
	pairs, err := pairTransferLegs(ref, movements)
	if err != nil {
		return nil, nil, err
	}
	keys := make([]entity.BalanceKey, 0, len(pairs)*2)
	for _, pr := range pairs {
		keys = append(keys, pr.Out.BalanceKey(), pr.In.BalanceKey())
	}
	bals, err := lockBalances(ctx, r.Balances, keys...)
	if err != nil {
		return nil, nil, err
	}
	return pairs, bals, nil
}

// cancelOwningRequest marca cancelada la solicitud aprobada que publicó las piernas de la referencia.
// Devuelve el ID de la solicitud, o "" si la referencia no pertenece a ninguna.
func cancelOwningRequest(ctx context.Context, r TxRepos, ref, by, reason string, now time.Time) (string, error) {
	movements, err := r.Movements.ListByReference(ctx, ref)
	if err != nil {
		return "", err
	}
	var id string
	for _, m := range movements {
		if reqID, ok := strings.CutPrefix(m.SourceDocument, sourceTransferRequest); ok && reqID != "" {
			id = reqID
			break
		}
	}
	if id == "" {
		return "", nil
	}
	req, err := r.Transfers.GetForUpdate(ctx, id)
	if err != nil {
		return "", err
	}
	if req == nil || req.Status != entity.TransferStatusApproved {
		return "", nil
	}
	req.Status = entity.TransferStatusCancelled
	req.CancelledBy = by
	req.CancelledAt = &now
	req.CancelReason = reason
	if err := r.Transfers.Update(ctx, req); err != nil {
		return "", err
	}
	return req.ID, nil
}

// DeleteTransferByReference elimina todas las piernas del traslado y restaura ambos saldos.
func (p *MovementPoster) DeleteTransferByReference(ctx context.Context, ref, deletedBy string) error {
	if ref == "" {
		return domain.Invalid("reference_no", "es requerida")
	}
	var bals []entity.Balance
	var cancelledReq string
	err := p.txRunner.Run(ctx, func(r TxRepos) error {
		pairs, locked, err := loadTransfer(ctx, r, ref)
		if err != nil {
			return err
		}
		now := p.now()
		cancelledReq, err = cancelOwningRequest(ctx, r, ref, deletedBy, "traslado eliminado por referencia", now)
		if err != nil {
			return err
		}
		for _, pr := range pairs {
			for _, leg := range []*entity.Movement{pr.In, pr.Out} {
				bal := locked[leg.BalanceKey().String()]
				revert := leg.Quantity.Neg()
				if err := checkNonNegative(bal, revert); err != nil {
					return err
				}
				bal.Quantity = bal.Quantity.Add(revert)
				bal.LastUpdated = now
				if err := r.Movements.Delete(ctx, leg.ID); err != nil {
					return err
				}
			}
		}
		bals = bals[:0]
		for _, k := range sortedKeys(locked) {
			if err := r.Balances.Upsert(ctx, locked[k]); err != nil {
				return err
			}
			bals = append(bals, *locked[k])
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.notify(ctx, bals)
	p.log.Info().Str("reference_no", ref).Str("deleted_by", deletedBy).Str("transfer_request_id", cancelledReq).Msg("traslado eliminado por referencia")
	return nil
}

// ReverseTransferByReference publica un par compensatorio por cada par original de la referencia.
// Todas las piernas se escriben en una sola unidad de trabajo.
func (p *MovementPoster) ReverseTransferByReference(ctx context.Context, ref, reversedBy, reason string) error {
	if ref == "" {
		return domain.Invalid("reference_no", "es requerida")
	}
	var bals []entity.Balance
	var cancelledReq string
	err := p.txRunner.Run(ctx, func(r TxRepos) error {
		now := p.now()
		var err error
		bals, err = p.reverseInTx(ctx, r, ref, reversedBy, reason, now)
		if err != nil {
			return err
		}
		cancelledReq, err = cancelOwningRequest(ctx, r, ref, reversedBy, reason, now)
		return err
	})
	if err != nil {
		return err
	}
	p.notify(ctx, bals)
	p.log.Info().Str("reference_no", ref).Str("reversed_by", reversedBy).Str("transfer_request_id", cancelledReq).Msg("traslado revertido")
	return nil
}

// reverseInTx escribe los pares compensatorios usando la unidad de trabajo del caller.
func (p *MovementPoster) reverseInTx(ctx context.Context, r TxRepos, ref, by, reason string, now time.Time) ([]entity.Balance, error) {
	pairs, locked, err := loadTransfer(ctx, r, ref)
	if err != nil {
		return nil, err
	}
	for _, pr := range pairs {
		qty := pr.In.Quantity
		// la salida compensatoria sale de donde entró la original
		outLeg := &entity.Movement{
			ID:                uuid.New().String(),
			WarehouseID:       pr.In.WarehouseID,
			ItemType:          pr.In.ItemType,
			ItemID:            pr.In.ItemID,
			Type:              entity.MovementTypeTRANSFER,
			Quantity:          qty.Neg(),
			ReferenceNo:       ref,
			TransferDirection: entity.TransferDirectionOUT,
			ReversalOfID:      pr.In.ID,
			IdempotencyKey:    keyPrefixReversal + pr.In.ID,
			SourceDocument:    pr.In.SourceDocument,
			Note:              reason,
			CreatedBy:         by,
			CreatedAt:         now,
		}
		inLeg := &entity.Movement{
			ID:                uuid.New().String(),
			WarehouseID:       pr.Out.WarehouseID,
			ItemType:          pr.Out.ItemType,
			ItemID:            pr.Out.ItemID,
			Type:              entity.MovementTypeTRANSFER,
			Quantity:          qty,
			ReferenceNo:       ref,
			TransferDirection: entity.TransferDirectionIN,
			ReversalOfID:      pr.Out.ID,
			IdempotencyKey:    keyPrefixReversal + pr.Out.ID,
			SourceDocument:    pr.Out.SourceDocument,
			Note:              reason,
			CreatedBy:         by,
			CreatedAt:         now,
		}
		outLeg.LinkedMovementID, inLeg.LinkedMovementID = inLeg.ID, outLeg.ID

		src := locked[outLeg.BalanceKey().String()]
		dst := locked[inLeg.BalanceKey().String()]
		if err := checkNonNegative(src, outLeg.Quantity); err != nil {
			return nil, err
		}
		if err := r.Movements.Create(ctx, outLeg); err != nil {
			return nil, err
		}
		if err := r.Movements.Create(ctx, inLeg); err != nil {
			return nil, err
		}
		src.Quantity = src.Quantity.Add(outLeg.Quantity)
		dst.Quantity = dst.Quantity.Add(inLeg.Quantity)
		src.LastUpdated, dst.LastUpdated = now, now
	}
	out := make([]entity.Balance, 0, len(locked))
	for _, k := range sortedKeys(locked) {
		if err := r.Balances.Upsert(ctx, locked[k]); err != nil {
			return nil, err
		}
		out = append(out, *locked[k])
	}
	return out, nil
}

func sortedKeys(m map[string]*entity.Balance) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetMinStock actualiza el umbral mínimo de un saldo sin tocar la cantidad.
// Si el saldo no existe se crea en cero.
func (p *MovementPoster) SetMinStock(ctx context.Context, key entity.BalanceKey, minStock decimal.Decimal) (*entity.Balance, error) {
	if key.WarehouseID == "" || key.ItemID == "" || !entity.ValidItemType(key.ItemType) {
		return nil, domain.Invalid("key", "bodega, tipo e ítem son requeridos")
	}
	if minStock.IsNegative() {
		return nil, domain.Invalid("min_stock", "no puede ser negativo")
	}
	var bal *entity.Balance
	err := p.txRunner.Run(ctx, func(r TxRepos) error {
		b, err := r.Balances.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		b.MinStock = minStock
		b.LastUpdated = p.now()
		if err := r.Balances.Upsert(ctx, b); err != nil {
			return err
		}
		bal = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.notify(ctx, []entity.Balance{*bal})
	return bal, nil
}

// PurgeBalance elimina un saldo en cero (purga administrativa).
// Un saldo con cantidad distinta de cero no se purga: rompería la suma del libro.
func (p *MovementPoster) PurgeBalance(ctx context.Context, key entity.BalanceKey, purgedBy string) error {
	err := p.txRunner.Run(ctx, func(r TxRepos) error {
		b, err := r.Balances.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if b.Version == 0 {
			return fmt.Errorf("saldo %s: %w", key.String(), domain.ErrNotFound)
		}
		if !b.Quantity.IsZero() {
			return &domain.InvalidStateError{Entity: "saldo", ID: key.String(), Current: b.Quantity.String(), Action: "purgar"}
		}
		return r.Balances.Delete(ctx, key)
	})
	if err != nil {
		return err
	}
	p.log.Warn().Str("balance_key", key.String()).Str("purged_by", purgedBy).Msg("saldo purgado")
	return nil
}
