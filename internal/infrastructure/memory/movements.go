package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo libro de movimientos en memoria.
type MovementRepo struct {
	binding
}

func (u *unitOfWork) movement(id string) (entity.Movement, bool) {
	if m, ok := u.movWrites[id]; ok {
		if m == nil {
			return entity.Movement{}, false
		}
		return *m, true
	}
	u.s.mu.RLock()
	m, ok := u.s.movements[id]
	u.s.mu.RUnlock()
	if _, seen := u.movRead[id]; !seen {
		u.movRead[id] = m.Version
	}
	return m, ok
}

func (u *unitOfWork) idempotent(key string) string {
	if id, ok := u.idWrites[key]; ok {
		return id
	}
	u.s.mu.RLock()
	id := u.s.idem[key]
	u.s.mu.RUnlock()
	if _, seen := u.idRead[key]; !seen {
		u.idRead[key] = id
	}
	return id
}

func (r *MovementRepo) Create(ctx context.Context, movement *entity.Movement) error {
	return r.do(ctx, func(u *unitOfWork) error {
		if _, ok := u.movement(movement.ID); ok {
			return fmt.Errorf("movimiento %s: %w", movement.ID, domain.ErrDuplicate)
		}
		if k := movement.IdempotencyKey; k != "" {
			seen, wasRead := u.idRead[k]
			if u.idempotent(k) != "" {
				// otra transacción la confirmó después de que esta la leyó libre
				if _, staged := u.idWrites[k]; !staged && wasRead && seen == "" {
					return fmt.Errorf("llave de idempotencia %s: %w", k, domain.ErrConflict)
				}
				return fmt.Errorf("llave de idempotencia %s: %w", k, domain.ErrDuplicate)
			}
		}
		movement.Version = 1
		m := *movement
		u.movWrites[m.ID] = &m
		u.movNew = append(u.movNew, m.ID)
		if m.IdempotencyKey != "" {
			u.idWrites[m.IdempotencyKey] = m.ID
		}
		return nil
	})
}

func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	var out *entity.Movement
	err := r.do(ctx, func(u *unitOfWork) error {
		if m, ok := u.movement(id); ok {
			out = &m
		}
		return nil
	})
	return out, err
}

func (r *MovementRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Movement, error) {
	var out *entity.Movement
	err := r.do(ctx, func(u *unitOfWork) error {
		id := u.idempotent(key)
		if id == "" {
			return nil
		}
		if m, ok := u.movement(id); ok {
			out = &m
		}
		return nil
	})
	return out, err
}

// ListByReference registra el conjunto de ids de la referencia: si otro agrega o
// borra piernas antes del commit, la unidad de trabajo se reintenta.
func (r *MovementRepo) ListByReference(ctx context.Context, referenceNo string) ([]*entity.Movement, error) {
	var out []*entity.Movement
	err := r.do(ctx, func(u *unitOfWork) error {
		byID := make(map[string]entity.Movement)
		u.s.mu.RLock()
		ids := u.s.idsByReferenceLocked(referenceNo)
		for _, id := range ids {
			byID[id] = u.s.movements[id]
		}
		u.s.mu.RUnlock()
		if _, seen := u.refRead[referenceNo]; !seen {
			u.refRead[referenceNo] = ids
		}
		for id, m := range byID {
			if _, seen := u.movRead[id]; !seen {
				u.movRead[id] = m.Version
			}
		}
		for id, m := range u.movWrites {
			switch {
			case m == nil:
				delete(byID, id)
			case m.ReferenceNo == referenceNo:
				byID[id] = *m
			}
		}
		out = make([]*entity.Movement, 0, len(byID))
		for _, m := range byID {
			m := m
			out = append(out, &m)
		}
		sortByCreation(out)
		return nil
	})
	return out, err
}

func sortByCreation(ms []*entity.Movement) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].ID < ms[j].ID
		}
		return ms[i].CreatedAt.Before(ms[j].CreatedAt)
	})
}

// List snapshot confirmado, más nuevo primero.
func (r *MovementRepo) List(_ context.Context, filter entity.MovementFilter) ([]*entity.Movement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Movement, 0)
	skipped := 0
	for i := len(r.s.order) - 1; i >= 0; i-- {
		m, ok := r.s.movements[r.s.order[i]]
		if !ok || !matches(&m, filter) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, &m)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func matches(m *entity.Movement, f entity.MovementFilter) bool {
	switch {
	case f.WarehouseID != "" && m.WarehouseID != f.WarehouseID:
		return false
	case f.ItemType != "" && m.ItemType != f.ItemType:
		return false
	case f.ItemID != "" && m.ItemID != f.ItemID:
		return false
	case f.Type != "" && m.Type != f.Type:
		return false
	case f.ReferenceNo != "" && m.ReferenceNo != f.ReferenceNo:
		return false
	case f.From != nil && m.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && m.CreatedAt.After(*f.To):
		return false
	}
	return true
}

func (r *MovementRepo) ListRecent(ctx context.Context, limit int) ([]*entity.Movement, error) {
	return r.List(ctx, entity.MovementFilter{Limit: limit})
}

func (r *MovementRepo) Update(ctx context.Context, movement *entity.Movement) error {
	return r.do(ctx, func(u *unitOfWork) error {
		cur, ok := u.movement(movement.ID)
		if !ok {
			return fmt.Errorf("movimiento %s: %w", movement.ID, domain.ErrNotFound)
		}
		if cur.Version != movement.Version {
			return fmt.Errorf("movimiento %s: %w", movement.ID, domain.ErrConflict)
		}
		next := *movement
		next.Version++
		u.movWrites[next.ID] = &next
		movement.Version = next.Version
		return nil
	})
}

func (r *MovementRepo) Delete(ctx context.Context, id string) error {
	return r.do(ctx, func(u *unitOfWork) error {
		cur, ok := u.movement(id)
		if !ok {
			return fmt.Errorf("movimiento %s: %w", id, domain.ErrNotFound)
		}
		u.movWrites[id] = nil
		if cur.IdempotencyKey != "" && u.idempotent(cur.IdempotencyKey) == id {
			u.idWrites[cur.IdempotencyKey] = ""
		}
		return nil
	})
}
