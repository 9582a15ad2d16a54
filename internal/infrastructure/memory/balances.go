package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo saldos en memoria.
type BalanceRepo struct {
	binding
}

// balance vista del saldo para la unidad de trabajo: escritura pendiente o valor confirmado.
// Un saldo ausente conserva la versión de su último borrado.
func (u *unitOfWork) balance(key string) (entity.Balance, bool) {
	if b, ok := u.balWrites[key]; ok {
		if b == nil {
			u.s.mu.RLock()
			v := u.s.balanceVersionLocked(key)
			u.s.mu.RUnlock()
			return entity.Balance{Version: v}, false
		}
		return *b, true
	}
	u.s.mu.RLock()
	b, ok := u.s.balances[key]
	if !ok {
		b.Version = u.s.balTomb[key]
	}
	u.s.mu.RUnlock()
	if _, seen := u.balRead[key]; !seen {
		u.balRead[key] = b.Version
	}
	return b, ok
}

// balanceVersionLocked versión confirmada de la llave, incluida la de un saldo borrado. Requiere s.mu.
func (s *Store) balanceVersionLocked(key string) int64 {
	if b, ok := s.balances[key]; ok {
		return b.Version
	}
	return s.balTomb[key]
}

func (r *BalanceRepo) Get(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error) {
	var out *entity.Balance
	err := r.do(ctx, func(u *unitOfWork) error {
		b, ok := u.balance(key.String())
		if !ok {
			out = entity.NewBalance(key)
			out.Version = b.Version
			return nil
		}
		out = &b
		return nil
	})
	return out, err
}

// GetForUpdate registra la versión leída; el commit falla si otro la cambió.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error) {
	return r.Get(ctx, key)
}

func (r *BalanceRepo) Upsert(ctx context.Context, balance *entity.Balance) error {
	return r.do(ctx, func(u *unitOfWork) error {
		key := balance.Key().String()
		cur, _ := u.balance(key)
		if cur.Version != balance.Version {
			return fmt.Errorf("saldo %s versión %d (actual %d): %w", key, balance.Version, cur.Version, domain.ErrConflict)
		}
		next := *balance
		next.Version++
		u.balWrites[key] = &next
		balance.Version = next.Version
		return nil
	})
}

func (r *BalanceRepo) Delete(ctx context.Context, key entity.BalanceKey) error {
	return r.do(ctx, func(u *unitOfWork) error {
		if _, ok := u.balance(key.String()); !ok {
			return fmt.Errorf("saldo %s: %w", key.String(), domain.ErrNotFound)
		}
		u.balWrites[key.String()] = nil
		return nil
	})
}

func (r *BalanceRepo) ListByWarehouse(_ context.Context, warehouseID string) ([]*entity.Balance, error) {
	return r.s.listBalances(func(b *entity.Balance) bool { return b.WarehouseID == warehouseID }), nil
}

func (r *BalanceRepo) List(_ context.Context) ([]*entity.Balance, error) {
	return r.s.listBalances(func(*entity.Balance) bool { return true }), nil
}

// listBalances snapshot confirmado, ordenado por llave.
func (s *Store) listBalances(keep func(b *entity.Balance) bool) []*entity.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Balance, 0)
	for _, b := range s.balances {
		b := b
		if keep(&b) {
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().String() < out[j].Key().String() })
	return out
}
