package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var (
	_ repository.WarehouseRepository = (*Directory)(nil)
	_ repository.ReferenceCounter    = (*Directory)(nil)
)

// Directory bodegas y contadores de referencia. El catálogo de ítems se expone con Items().
type Directory struct {
	mu         sync.RWMutex
	warehouses map[string]entity.Warehouse
	items      map[string]entity.Item
	counters   map[string]int64
}

func NewDirectory() *Directory {
	return &Directory{
		warehouses: make(map[string]entity.Warehouse),
		items:      make(map[string]entity.Item),
		counters:   make(map[string]int64),
	}
}

// Next contador atómico por prefijo.
func (d *Directory) Next(_ context.Context, prefix string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counters[prefix]++
	return d.counters[prefix], nil
}

func (d *Directory) Create(_ context.Context, w *entity.Warehouse) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.warehouses[w.ID]; ok {
		return fmt.Errorf("bodega %s: %w", w.ID, domain.ErrDuplicate)
	}
	for _, other := range d.warehouses {
		if w.Code != "" && other.Code == w.Code {
			return fmt.Errorf("código de bodega %s: %w", w.Code, domain.ErrDuplicate)
		}
	}
	d.warehouses[w.ID] = *w
	return nil
}

func (d *Directory) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	w, ok := d.warehouses[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (d *Directory) Update(_ context.Context, w *entity.Warehouse) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.warehouses[w.ID]; !ok {
		return fmt.Errorf("bodega %s: %w", w.ID, domain.ErrNotFound)
	}
	d.warehouses[w.ID] = *w
	return nil
}

func (d *Directory) List(_ context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	d.mu.RLock()
	out := make([]*entity.Warehouse, 0, len(d.warehouses))
	for _, w := range d.warehouses {
		w := w
		out = append(out, &w)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, limit, offset), nil
}

// Items catálogo de ítems.
func (d *Directory) Items() *ItemRepo { return &ItemRepo{d: d} }

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo catálogo de ítems en memoria.
type ItemRepo struct {
	d *Directory
}

func (r *ItemRepo) Create(_ context.Context, item *entity.Item) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.items[item.ID]; ok {
		return fmt.Errorf("ítem %s: %w", item.ID, domain.ErrDuplicate)
	}
	for _, other := range r.d.items {
		if item.Code != "" && other.Code == item.Code {
			return fmt.Errorf("código de ítem %s: %w", item.Code, domain.ErrDuplicate)
		}
	}
	r.d.items[item.ID] = *item
	return nil
}

func (r *ItemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	it, ok := r.d.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *ItemRepo) GetByCode(_ context.Context, code string) (*entity.Item, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, it := range r.d.items {
		if it.Code == code {
			it := it
			return &it, nil
		}
	}
	return nil, nil
}

func (r *ItemRepo) List(_ context.Context, itemType string, limit, offset int) ([]*entity.Item, error) {
	r.d.mu.RLock()
	out := make([]*entity.Item, 0, len(r.d.items))
	for _, it := range r.d.items {
		if itemType != "" && it.Type != itemType {
			continue
		}
		it := it
		out = append(out, &it)
	}
	r.d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, limit, offset), nil
}
