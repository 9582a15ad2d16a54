package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var (
	_ repository.TransferRequestRepository = (*TransferRequestRepo)(nil)
	_ repository.CountSessionRepository    = (*CountSessionRepo)(nil)
)

// TransferRequestRepo solicitudes de traslado en memoria.
type TransferRequestRepo struct {
	binding
}

func (u *unitOfWork) transfer(id string) (entity.TransferRequest, bool) {
	if r, ok := u.trWrites[id]; ok {
		return cloneTransfer(*r), true
	}
	u.s.mu.RLock()
	r, ok := u.s.transfers[id]
	u.s.mu.RUnlock()
	if _, seen := u.trRead[id]; !seen {
		u.trRead[id] = r.Version
	}
	return cloneTransfer(r), ok
}

func (r *TransferRequestRepo) Create(ctx context.Context, req *entity.TransferRequest) error {
	return r.do(ctx, func(u *unitOfWork) error {
		if _, ok := u.transfer(req.ID); ok {
			return fmt.Errorf("solicitud %s: %w", req.ID, domain.ErrDuplicate)
		}
		req.Version = 1
		c := cloneTransfer(*req)
		u.trWrites[c.ID] = &c
		u.trNew[c.ID] = true
		return nil
	})
}

func (r *TransferRequestRepo) GetByID(ctx context.Context, id string) (*entity.TransferRequest, error) {
	var out *entity.TransferRequest
	err := r.do(ctx, func(u *unitOfWork) error {
		if req, ok := u.transfer(id); ok {
			out = &req
		}
		return nil
	})
	return out, err
}

func (r *TransferRequestRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *TransferRequestRepo) Update(ctx context.Context, req *entity.TransferRequest) error {
	return r.do(ctx, func(u *unitOfWork) error {
		cur, ok := u.transfer(req.ID)
		if !ok {
			return fmt.Errorf("solicitud %s: %w", req.ID, domain.ErrNotFound)
		}
		if cur.Version != req.Version {
			return fmt.Errorf("solicitud %s: %w", req.ID, domain.ErrConflict)
		}
		next := cloneTransfer(*req)
		next.Version++
		u.trWrites[next.ID] = &next
		req.Version = next.Version
		return nil
	})
}

// List snapshot confirmado, más reciente primero.
func (r *TransferRequestRepo) List(_ context.Context, filter entity.TransferRequestFilter) ([]*entity.TransferRequest, error) {
	r.s.mu.RLock()
	all := make([]*entity.TransferRequest, 0, len(r.s.transfers))
	for _, req := range r.s.transfers {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.WarehouseID != "" && req.FromWarehouseID != filter.WarehouseID && req.ToWarehouseID != filter.WarehouseID {
			continue
		}
		c := cloneTransfer(req)
		all = append(all, &c)
	}
	r.s.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return page(all, filter.Limit, filter.Offset), nil
}

// CountSessionRepo sesiones de conteo en memoria.
type CountSessionRepo struct {
	binding
}

func (u *unitOfWork) count(id string) (entity.CountSession, bool) {
	if c, ok := u.cntWrites[id]; ok {
		return cloneCount(*c), true
	}
	u.s.mu.RLock()
	c, ok := u.s.counts[id]
	u.s.mu.RUnlock()
	if _, seen := u.cntRead[id]; !seen {
		u.cntRead[id] = c.Version
	}
	return cloneCount(c), ok
}

func (r *CountSessionRepo) Create(ctx context.Context, session *entity.CountSession) error {
	return r.do(ctx, func(u *unitOfWork) error {
		if _, ok := u.count(session.ID); ok {
			return fmt.Errorf("sesión %s: %w", session.ID, domain.ErrDuplicate)
		}
		session.Version = 1
		c := cloneCount(*session)
		u.cntWrites[c.ID] = &c
		u.cntNew[c.ID] = true
		return nil
	})
}

func (r *CountSessionRepo) GetByID(ctx context.Context, id string) (*entity.CountSession, error) {
	var out *entity.CountSession
	err := r.do(ctx, func(u *unitOfWork) error {
		if s, ok := u.count(id); ok {
			out = &s
		}
		return nil
	})
	return out, err
}

func (r *CountSessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.CountSession, error) {
	return r.GetByID(ctx, id)
}

func (r *CountSessionRepo) Update(ctx context.Context, session *entity.CountSession) error {
	return r.do(ctx, func(u *unitOfWork) error {
		cur, ok := u.count(session.ID)
		if !ok {
			return fmt.Errorf("sesión %s: %w", session.ID, domain.ErrNotFound)
		}
		if cur.Version != session.Version {
			return fmt.Errorf("sesión %s: %w", session.ID, domain.ErrConflict)
		}
		next := cloneCount(*session)
		next.Version++
		u.cntWrites[next.ID] = &next
		session.Version = next.Version
		return nil
	})
}

func (r *CountSessionRepo) ListByWarehouse(_ context.Context, warehouseID string, limit, offset int) ([]*entity.CountSession, error) {
	r.s.mu.RLock()
	all := make([]*entity.CountSession, 0)
	for _, s := range r.s.counts {
		if s.WarehouseID != warehouseID {
			continue
		}
		c := cloneCount(s)
		all = append(all, &c)
	}
	r.s.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return page(all, limit, offset), nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []T{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
