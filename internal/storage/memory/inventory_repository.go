package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// InventoryRepository — in-memory складской реестр для локальной разработки
// и тестов. Охранные списания выполняются под общим мьютексом.
type InventoryRepository struct {
	mu     sync.RWMutex
	items  map[int64]domain.StockItem
	nextID int64
}

// NewInventoryRepository возвращает пустой in-memory реестр.
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{items: make(map[int64]domain.StockItem)}
}

func (r *InventoryRepository) Create(item domain.StockItem) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	item.ID = r.nextID
	item.RecomputeStatus()
	r.items[item.ID] = item

	return item.ID, nil
}

func (r *InventoryRepository) GetByID(id int64) (domain.StockItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return domain.StockItem{}, domain.ErrStockItemNotFound
	}
	return item, nil
}

func (r *InventoryRepository) GetByName(name string) (domain.StockItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.Name == name {
			return item, nil
		}
	}
	return domain.StockItem{}, domain.ErrStockItemNotFound
}

func (r *InventoryRepository) List() ([]domain.StockItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.StockItem, 0, len(r.items))
	for _, item := range r.items {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

// Decrement списывает остаток, только если его хватает; проверка и списание
// происходят под одним захватом мьютекса.
func (r *InventoryRepository) Decrement(id int64, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.decrementLocked(id, qty)
}

func (r *InventoryRepository) Increment(id int64, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.incrementLocked(id, qty)
}

func (r *InventoryRepository) RecomputeStatus(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return domain.ErrStockItemNotFound
	}
	item.RecomputeStatus()
	r.items[id] = item

	return nil
}

func (r *InventoryRepository) decrementLocked(id int64, qty int) error {
	item, ok := r.items[id]
	if !ok {
		return domain.ErrStockItemNotFound
	}
	if item.Quantity < qty {
		return domain.ErrInsufficientStock
	}
	item.Quantity -= qty
	item.RecomputeStatus()
	r.items[id] = item

	return nil
}

func (r *InventoryRepository) incrementLocked(id int64, qty int) error {
	item, ok := r.items[id]
	if !ok {
		return domain.ErrStockItemNotFound
	}
	item.Quantity += qty
	item.RecomputeStatus()
	r.items[id] = item

	return nil
}

// applyDeductions атомарно списывает набор позиций: либо хватает остатка по
// всем, либо не меняется ничего. Возвращает новые остатки по позициям.
func (r *InventoryRepository) applyDeductions(deductions map[int64]int) (map[int64]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, qty := range deductions {
		item, ok := r.items[id]
		if !ok {
			return nil, domain.ErrStockItemNotFound
		}
		if item.Quantity < qty {
			return nil, domain.ErrInsufficientStock
		}
	}

	remaining := make(map[int64]int, len(deductions))
	for id, qty := range deductions {
		item := r.items[id]
		item.Quantity -= qty
		item.RecomputeStatus()
		r.items[id] = item
		remaining[id] = item.Quantity
	}

	return remaining, nil
}

// applyRestorations атомарно возвращает набор остатков и отдаёт новые значения.
func (r *InventoryRepository) applyRestorations(restorations map[int64]int) (map[int64]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := make(map[int64]int, len(restorations))
	for id, qty := range restorations {
		item, ok := r.items[id]
		if !ok {
			return nil, domain.ErrStockItemNotFound
		}
		item.Quantity += qty
		item.RecomputeStatus()
		r.items[id] = item
		remaining[id] = item.Quantity
	}

	return remaining, nil
}

var _ domain.InventoryRepository = (*InventoryRepository)(nil)
