package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/storage/memory"
	"github.com/vladislavdragonenkov/printshop/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Orders    domain.OrderRepository
	Inventory domain.InventoryRepository
	Products  domain.ProductRepository
	Audit     domain.AuditLog
	Outbox    domain.OutboxRepository
	Store     *postgres.Store // nil при in-memory хранилище
	Logger    *log.Entry
}

// NewDependencies собирает зависимости приложения: PostgreSQL при заданном
// DSN, иначе in-memory хранилище для локальной разработки.
func NewDependencies(cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.PostgresDSN == "" {
		inventory := memory.NewInventoryRepository()
		catalog := memory.NewProductRepository()
		audit := memory.NewLogRepository()

		logger.Info("using in-memory storage")
		return &Dependencies{
			Orders:    memory.NewOrderRepository(inventory, catalog, audit),
			Inventory: inventory,
			Products:  catalog,
			Audit:     audit,
			Outbox:    memory.NewOutboxRepository(),
			Logger:    logger,
		}, nil
	}

	store, err := postgres.Open(context.Background(), cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}

	logger.Info("using postgres storage")
	return &Dependencies{
		Orders:    postgres.NewOrderRepository(store),
		Inventory: postgres.NewInventoryRepository(store),
		Products:  postgres.NewProductRepository(store),
		Audit:     postgres.NewLogRepository(store),
		Outbox:    postgres.NewOutboxRepository(store),
		Store:     store,
		Logger:    logger,
	}, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d.Store != nil {
		return d.Store.Close()
	}
	return nil
}
