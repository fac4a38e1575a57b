package domain

import "time"

// Действия, фиксируемые в журнале аудита.
const (
	AuditActionStatusChange    = "Order Status Change"
	AuditActionInventoryDeduct = "Inventory Deduct"
	AuditActionInventoryRevert = "Inventory Revert"
	AuditActionOrderPlaced     = "Order Placed"
)

// AuditEntry — запись append-only журнала значимых действий.
type AuditEntry struct {
	ID int64
	// UserID отсутствует для системных действий.
	UserID      *int64
	Action      string
	Description string
	CreatedAt   time.Time
}
