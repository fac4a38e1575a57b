package postgres

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

func TestInventoryRepository_PostgresGuardedDecrement(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewInventoryRepository(store)

	id := seedStockItemForIntegrationTest(t, store, "Matte Paper A3", 5, 2)

	if err := repo.Decrement(id, 3); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	item, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Quantity != 2 || item.Status != domain.StockStatusLow {
		t.Fatalf("unexpected item after decrement: qty=%d status=%s", item.Quantity, item.Status)
	}

	if err := repo.Decrement(id, 3); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	item, err = repo.GetByID(id)
	if err != nil {
		t.Fatalf("get item after failed decrement: %v", err)
	}
	if item.Quantity != 2 {
		t.Fatalf("failed decrement must not change quantity, got %d", item.Quantity)
	}

	if err := repo.Decrement(id, 2); err != nil {
		t.Fatalf("decrement to zero: %v", err)
	}
	item, err = repo.GetByID(id)
	if err != nil {
		t.Fatalf("get drained item: %v", err)
	}
	if item.Quantity != 0 || item.Status != domain.StockStatusOutOfStock {
		t.Fatalf("unexpected drained item: qty=%d status=%s", item.Quantity, item.Status)
	}
}

func TestInventoryRepository_PostgresIncrementAndRecompute(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewInventoryRepository(store)

	id := seedStockItemForIntegrationTest(t, store, "Toner Black", 0, 3)

	item, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Status != domain.StockStatusOutOfStock {
		t.Fatalf("unexpected initial status: %s", item.Status)
	}

	if err := repo.Increment(id, 2); err != nil {
		t.Fatalf("increment: %v", err)
	}
	item, err = repo.GetByID(id)
	if err != nil {
		t.Fatalf("get item after increment: %v", err)
	}
	if item.Quantity != 2 || item.Status != domain.StockStatusLow {
		t.Fatalf("unexpected item after increment: qty=%d status=%s", item.Quantity, item.Status)
	}

	if err := repo.Increment(id, 10); err != nil {
		t.Fatalf("second increment: %v", err)
	}
	if err := repo.RecomputeStatus(id); err != nil {
		t.Fatalf("recompute status: %v", err)
	}
	item, err = repo.GetByID(id)
	if err != nil {
		t.Fatalf("get restocked item: %v", err)
	}
	if item.Quantity != 12 || item.Status != domain.StockStatusAvailable {
		t.Fatalf("unexpected restocked item: qty=%d status=%s", item.Quantity, item.Status)
	}
}

func TestInventoryRepository_PostgresLookupsAndErrors(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewInventoryRepository(store)

	seedStockItemForIntegrationTest(t, store, "Laminate Film", 7, 2)
	seedStockItemForIntegrationTest(t, store, "Binding Coil", 4, 1)

	item, err := repo.GetByName("Laminate Film")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if item.Quantity != 7 || item.SupplierName != "Paper Plus" {
		t.Fatalf("unexpected item payload: %+v", item)
	}

	items, err := repo.List()
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 2 || items[0].Name != "Binding Coil" {
		t.Fatalf("unexpected list result: %+v", items)
	}

	if _, err := repo.GetByID(9999); !errors.Is(err, domain.ErrStockItemNotFound) {
		t.Fatalf("expected ErrStockItemNotFound by id, got %v", err)
	}
	if _, err := repo.GetByName("missing"); !errors.Is(err, domain.ErrStockItemNotFound) {
		t.Fatalf("expected ErrStockItemNotFound by name, got %v", err)
	}
	if err := repo.Decrement(9999, 1); !errors.Is(err, domain.ErrStockItemNotFound) {
		t.Fatalf("expected ErrStockItemNotFound on decrement, got %v", err)
	}
	if err := repo.Increment(9999, 1); !errors.Is(err, domain.ErrStockItemNotFound) {
		t.Fatalf("expected ErrStockItemNotFound on increment, got %v", err)
	}
}
