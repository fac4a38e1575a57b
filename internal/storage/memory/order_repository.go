package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// OrderRepository — in-memory реализация хранилища заказов. Создание и
// возврат склада выполняются атомарно: сначала все списания проверяются и
// применяются одним захватом складского мьютекса, и только затем заказ
// фиксируется.
type OrderRepository struct {
	mu         sync.RWMutex
	orders     map[int64]domain.Order
	items      map[int64][]domain.LineItem
	nextID     int64
	nextItemID int64

	inventory *InventoryRepository
	catalog   domain.CatalogLookup
	audit     domain.AuditLog
}

// NewOrderRepository собирает in-memory репозиторий заказов поверх складского
// реестра, каталога и журнала аудита.
func NewOrderRepository(inventory *InventoryRepository, catalog domain.CatalogLookup, audit domain.AuditLog) *OrderRepository {
	return &OrderRepository{
		orders:    make(map[int64]domain.Order),
		items:     make(map[int64][]domain.LineItem),
		inventory: inventory,
		catalog:   catalog,
		audit:     audit,
	}
}

func (r *OrderRepository) Create(order domain.Order, items []domain.LineItem) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(items) == 0 {
		return 0, domain.ErrItemsRequired
	}
	order.ApplyDefaults()

	now := time.Now().UTC()
	if order.OrderDate.IsZero() {
		order.OrderDate = now
	}

	// Привязка позиций к складу разрешается до любых мутаций: неизвестный
	// продукт отменяет создание целиком.
	deductions := make(map[int64]int)
	itemInventory := make([]*int64, len(items))
	for i, item := range items {
		product, err := r.catalog.GetProductByID(item.ProductID)
		if err != nil {
			return 0, err
		}
		if product.InventoryID == nil {
			continue
		}
		deductions[*product.InventoryID] += item.Quantity
		itemInventory[i] = product.InventoryID
	}

	remaining, err := r.inventory.applyDeductions(deductions)
	if err != nil {
		return 0, err
	}

	r.nextID++
	orderID := r.nextID

	stored := make([]domain.LineItem, len(items))
	for i, item := range items {
		r.nextItemID++
		item.ID = r.nextItemID
		item.OrderID = orderID
		item.Subtotal = item.ComputeSubtotal()
		item.CreatedAt = now
		item.UpdatedAt = now
		stored[i] = item

		if invID := itemInventory[i]; invID != nil {
			desc := fmt.Sprintf("Order %d placed: deducted %d units from inventory_id=%d (new qty=%d)",
				orderID, item.Quantity, *invID, remaining[*invID])
			if err := r.audit.Append(pickActor(order.UserID), domain.AuditActionInventoryDeduct, desc); err != nil {
				return 0, err
			}
		}
	}

	total := decimal.Zero
	qtyTotal := 0
	for _, item := range stored {
		total = total.Add(item.NetAmount())
		qtyTotal += item.Quantity
	}

	order.ID = orderID
	order.TotalAmount = total
	order.QuantityTotal = qtyTotal
	order.Reference = domain.FormatOrderReference(orderID, order.OrderDate)
	order.Items = nil

	r.orders[orderID] = order
	r.items[orderID] = stored

	return orderID, nil
}

func (r *OrderRepository) GetByID(id int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order.Items = append([]domain.LineItem(nil), r.items[id]...)

	return order, nil
}

func (r *OrderRepository) GetByReference(reference string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, order := range r.orders {
		if order.Reference == reference {
			order.Items = append([]domain.LineItem(nil), r.items[id]...)
			return order, nil
		}
	}

	return domain.Order{}, domain.ErrOrderNotFound
}

func (r *OrderRepository) GetAll() ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		result = append(result, order)
	}
	sortOrders(result)

	return result, nil
}

func (r *OrderRepository) Search(keyword string) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(keyword)
	result := make([]domain.Order, 0)
	for _, order := range r.orders {
		if strings.Contains(strings.ToLower(order.CustomerName), needle) ||
			strings.Contains(strings.ToLower(order.Reference), needle) {
			result = append(result, order)
		}
	}
	sortOrders(result)

	return result, nil
}

func (r *OrderRepository) ListLineItems(orderID int64) ([]domain.LineItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.LineItem(nil), r.items[orderID]...), nil
}

func (r *OrderRepository) UpdateStatus(orderID int64, status domain.OrderStatus, actor *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}

	order.Status = status
	if status == domain.OrderStatusCompleted {
		now := time.Now().UTC()
		order.DateCompleted = &now
	}
	r.orders[orderID] = order

	desc := fmt.Sprintf("Order #%d status changed to '%s'", orderID, status)
	return r.audit.Append(actor, domain.AuditActionStatusChange, desc)
}

func (r *OrderRepository) Complete(orderID int64, completedBy *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}

	now := time.Now().UTC()
	order.Status = domain.OrderStatusCompleted
	order.DateCompleted = &now
	order.PrintedBy = completedBy
	r.orders[orderID] = order

	return nil
}

func (r *OrderRepository) UpdatePayment(orderID int64, paymentStatus, paymentMethod string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}

	order.PaymentStatus = paymentStatus
	order.PaymentMethod = paymentMethod
	r.orders[orderID] = order

	return nil
}

func (r *OrderRepository) RevertInventoryForOrder(orderID int64, actor *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[orderID]; !ok {
		return domain.ErrOrderNotFound
	}

	restorations := make(map[int64]int)
	for _, item := range r.items[orderID] {
		product, err := r.catalog.GetProductByID(item.ProductID)
		if err != nil {
			// Продукт удалён из каталога: позицию пропускаем.
			continue
		}
		if product.InventoryID == nil {
			continue
		}
		restorations[*product.InventoryID] += item.Quantity
	}

	remaining, err := r.inventory.applyRestorations(restorations)
	if err != nil {
		return err
	}

	for invID, qty := range restorations {
		desc := fmt.Sprintf("Order %d cancelled: restored %d units to inventory_id=%d (new qty=%d)",
			orderID, qty, invID, remaining[invID])
		if err := r.audit.Append(actor, domain.AuditActionInventoryRevert, desc); err != nil {
			return err
		}
	}

	return nil
}

func (r *OrderRepository) Delete(orderID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[orderID]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.orders, orderID)
	delete(r.items, orderID)

	return nil
}

func sortOrders(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].OrderDate.After(orders[j].OrderDate)
		}
		return orders[i].ID > orders[j].ID
	})
}

func pickActor(userID int64) *int64 {
	if userID <= 0 {
		return nil
	}
	return &userID
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
