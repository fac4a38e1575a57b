package domain

import "time"

// CatalogLookup разрешает идентификатор продукта в его атрибуты,
// включая ссылку на складскую позицию, обеспечивающую продукт.
type CatalogLookup interface {
	// GetProductByID возвращает продукт или ErrProductNotFound.
	GetProductByID(id int64) (Product, error)
}

// AuditLog — append-only журнал значимых действий.
type AuditLog interface {
	// Append добавляет запись; actorID может отсутствовать.
	Append(actorID *int64, action, description string) error
	// List возвращает последние записи журнала, новые первыми.
	List(limit int) ([]AuditEntry, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
