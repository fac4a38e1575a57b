package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает позицию каталога типографии.
type Product struct {
	ID          int64
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Unit        string
	// MaterialUsed — свободный список материалов; предупреждения о нехватке
	// сопоставляются по имени, а не по ссылке на складскую позицию.
	MaterialUsed string
	QuantityUsed int
	ReorderLevel int
	Status       string
	AddedBy      *int64
	PrintTime    string
	Size         string
	Notes        string
	// InventoryID — опциональная ссылка на единственную складскую позицию,
	// которую потребляет продукт. Продукты без ссылки склад не трогают.
	InventoryID *int64
	DateAdded   time.Time
}
