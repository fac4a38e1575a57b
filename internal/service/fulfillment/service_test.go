package fulfillment_test

import (
	"errors"
	"regexp"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/service/fulfillment"
	"github.com/vladislavdragonenkov/printshop/internal/storage/memory"
)

type env struct {
	svc       *fulfillment.Service
	orders    *memory.OrderRepository
	inventory *memory.InventoryRepository
	catalog   *memory.ProductRepository
	outbox    *memory.OutboxRepository
	audit     *memory.LogRepository

	paperID  int64
	flyerID  int64
	designID int64
	employee int64
}

func newEnv(t *testing.T) *env {
	t.Helper()

	inv := memory.NewInventoryRepository()
	catalog := memory.NewProductRepository()
	audit := memory.NewLogRepository()
	orders := memory.NewOrderRepository(inv, catalog, audit)
	outbox := memory.NewOutboxRepository()

	paperID, err := inv.Create(domain.StockItem{
		Name:         "Glossy Paper A4",
		Quantity:     10,
		ReorderLevel: 2,
	})
	if err != nil {
		t.Fatalf("create stock item: %v", err)
	}

	flyerID, err := catalog.Create(domain.Product{
		Name:        "Flyer A5",
		Price:       decimal.RequireFromString("250.00"),
		InventoryID: &paperID,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	designID, err := catalog.Create(domain.Product{
		Name:  "Logo Design",
		Price: decimal.RequireFromString("500.00"),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	svc := fulfillment.NewServiceWithoutMetrics(orders, inv, catalog, outbox, audit, nil)

	return &env{
		svc:       svc,
		orders:    orders,
		inventory: inv,
		catalog:   catalog,
		outbox:    outbox,
		audit:     audit,
		paperID:   paperID,
		flyerID:   flyerID,
		designID:  designID,
		employee:  7,
	}
}

// eventTypes собирает типы событий из outbox-сообщений.
func eventTypes(msgs []domain.OutboxMessage) map[string]int {
	types := map[string]int{}
	for _, msg := range msgs {
		types[msg.EventType]++
	}
	return types
}

func (e *env) placeFlyers(t *testing.T, qty int) domain.Order {
	t.Helper()

	order, err := e.svc.PlaceOrder(domain.Order{UserID: e.employee}, []domain.LineItem{
		{ProductID: e.flyerID, Quantity: qty, UnitPrice: decimal.RequireFromString("250.00")},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return order
}

func TestPlaceOrder(t *testing.T) {
	e := newEnv(t)

	order := e.placeFlyers(t, 2)

	if !order.TotalAmount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected total 500, got %s", order.TotalAmount)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected Pending, got %s", order.Status)
	}
	if ok, _ := regexp.MatchString(`^ORD-\d+-\d{12}$`, order.Reference); !ok {
		t.Fatalf("unexpected reference %q", order.Reference)
	}

	stock, err := e.inventory.GetByID(e.paperID)
	if err != nil {
		t.Fatalf("get stock item: %v", err)
	}
	if stock.Quantity != 8 {
		t.Fatalf("expected 8 units left, got %d", stock.Quantity)
	}

	pending, err := e.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	types := eventTypes(pending)
	if len(pending) != 2 || types["order.created"] != 1 || types["stock.deducted"] != 1 {
		t.Fatalf("expected order.created and stock.deducted events, got %+v", pending)
	}

	entries, err := e.audit.List(10)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	var placed bool
	for _, entry := range entries {
		if entry.Action == domain.AuditActionOrderPlaced {
			placed = true
		}
	}
	if !placed {
		t.Fatalf("expected an %q audit entry, got %+v", domain.AuditActionOrderPlaced, entries)
	}
}

func TestPlaceOrder_ValidationRejected(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.PlaceOrder(domain.Order{UserID: e.employee}, nil)
	if !errors.Is(err, domain.ErrItemsRequired) {
		t.Fatalf("expected ErrItemsRequired, got %v", err)
	}

	_, err = e.svc.PlaceOrder(domain.Order{}, []domain.LineItem{
		{ProductID: e.flyerID, Quantity: 0, UnitPrice: decimal.NewFromInt(-1)},
	})
	if !errors.Is(err, domain.ErrUserRequired) || !errors.Is(err, domain.ErrItemQtyInvalid) ||
		!errors.Is(err, domain.ErrItemPriceInvalid) {
		t.Fatalf("expected joined validation errors, got %v", err)
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.PlaceOrder(domain.Order{UserID: e.employee}, []domain.LineItem{
		{ProductID: e.flyerID, Quantity: 50, UnitPrice: decimal.NewFromInt(250)},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	pending, err := e.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no events for failed placement, got %d", len(pending))
	}
}

func TestCompleteOrder(t *testing.T) {
	e := newEnv(t)
	order := e.placeFlyers(t, 2)

	if err := e.svc.CompleteOrder(order.ID, &e.employee); err != nil {
		t.Fatalf("complete order: %v", err)
	}

	completed, err := e.orders.GetByID(order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if completed.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected Completed, got %s", completed.Status)
	}
	if completed.DateCompleted == nil {
		t.Fatalf("expected date_completed to be set")
	}
	if completed.PrintedBy == nil || *completed.PrintedBy != e.employee {
		t.Fatalf("expected printed_by %d, got %v", e.employee, completed.PrintedBy)
	}

	// Завершение не трогает склад.
	stock, _ := e.inventory.GetByID(e.paperID)
	if stock.Quantity != 8 {
		t.Fatalf("expected stock unchanged at 8, got %d", stock.Quantity)
	}
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	e := newEnv(t)
	order := e.placeFlyers(t, 9)

	stock, _ := e.inventory.GetByID(e.paperID)
	if stock.Quantity != 1 || stock.Status != domain.StockStatusLow {
		t.Fatalf("expected 1 unit / Low after placement, got %d / %s", stock.Quantity, stock.Status)
	}

	if err := e.svc.CancelOrder(order.ID, &e.employee); err != nil {
		t.Fatalf("cancel order: %v", err)
	}

	cancelled, err := e.orders.GetByID(order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected Cancelled, got %s", cancelled.Status)
	}

	stock, _ = e.inventory.GetByID(e.paperID)
	if stock.Quantity != 10 || stock.Status != domain.StockStatusAvailable {
		t.Fatalf("expected 10 units / Available after cancel, got %d / %s", stock.Quantity, stock.Status)
	}

	pending, err := e.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	types := eventTypes(pending)
	if types["order.created"] != 1 || types["order.cancelled"] != 1 {
		t.Fatalf("expected created+cancelled events, got %+v", pending)
	}
	if types["stock.deducted"] != 1 || types["stock.low"] != 1 || types["stock.restored"] != 1 {
		t.Fatalf("expected deducted+low+restored stock events, got %+v", pending)
	}
}

func TestLifecycle_TerminalStatusesAreFinal(t *testing.T) {
	e := newEnv(t)

	order := e.placeFlyers(t, 1)
	if err := e.svc.CancelOrder(order.ID, &e.employee); err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if err := e.svc.CompleteOrder(order.ID, &e.employee); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after cancel, got %v", err)
	}
	if err := e.svc.CancelOrder(order.ID, &e.employee); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on double cancel, got %v", err)
	}

	other := e.placeFlyers(t, 1)
	if err := e.svc.CompleteOrder(other.ID, &e.employee); err != nil {
		t.Fatalf("complete order: %v", err)
	}
	if err := e.svc.CancelOrder(other.ID, &e.employee); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after completion, got %v", err)
	}
}

func TestChangeStatus(t *testing.T) {
	e := newEnv(t)
	order := e.placeFlyers(t, 1)

	if err := e.svc.ChangeStatus(order.ID, domain.OrderStatusPending, &e.employee); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for Pending target, got %v", err)
	}

	if err := e.svc.ChangeStatus(order.ID, domain.OrderStatusCancelled, &e.employee); err != nil {
		t.Fatalf("change status to Cancelled: %v", err)
	}

	stock, _ := e.inventory.GetByID(e.paperID)
	if stock.Quantity != 10 {
		t.Fatalf("expected stock restored via ChangeStatus, got %d", stock.Quantity)
	}
}

func TestPlaceOrder_AppliesPaymentDefaults(t *testing.T) {
	e := newEnv(t)

	order := e.placeFlyers(t, 1)

	if order.PaymentStatus != domain.PaymentStatusUnpaid {
		t.Fatalf("expected payment status %q, got %q", domain.PaymentStatusUnpaid, order.PaymentStatus)
	}
	if order.PaymentMethod != domain.PaymentMethodCash {
		t.Fatalf("expected payment method %q, got %q", domain.PaymentMethodCash, order.PaymentMethod)
	}
}

func TestPlaceOrder_ServiceItemsSkipStockEvents(t *testing.T) {
	e := newEnv(t)

	order, err := e.svc.PlaceOrder(domain.Order{UserID: e.employee}, []domain.LineItem{
		{ProductID: e.designID, Quantity: 1, UnitPrice: decimal.RequireFromString("500.00")},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected Pending, got %s", order.Status)
	}

	pending, err := e.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	types := eventTypes(pending)
	if len(pending) != 1 || types["order.created"] != 1 {
		t.Fatalf("expected only order.created for unlinked products, got %+v", pending)
	}
}

func TestPlaceOrder_CountsOnlyStockBackedDeductions(t *testing.T) {
	e := newEnv(t)
	svc := fulfillment.NewService(e.orders, e.inventory, e.catalog, e.outbox, e.audit, nil)

	before := counterValue(t, "printshop_stock_deductions_total")

	_, err := svc.PlaceOrder(domain.Order{UserID: e.employee}, []domain.LineItem{
		{ProductID: e.flyerID, Quantity: 2, UnitPrice: decimal.RequireFromString("250.00")},
		{ProductID: e.designID, Quantity: 1, UnitPrice: decimal.RequireFromString("500.00")},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	after := counterValue(t, "printshop_stock_deductions_total")
	if delta := after - before; delta != 1 {
		t.Fatalf("expected one counted deduction for a mixed order, got %v", delta)
	}
}

// counterValue читает текущее значение счётчика из глобального реестра.
func counterValue(t *testing.T, name string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestCompleteOrder_NotFound(t *testing.T) {
	e := newEnv(t)

	if err := e.svc.CompleteOrder(999, &e.employee); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
