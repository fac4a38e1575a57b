package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus отражает доступность позиции складского реестра.
type StockStatus string

const (
	// StockStatusAvailable — остаток выше порога дозаказа.
	StockStatusAvailable StockStatus = "Available"
	// StockStatusLow — остаток положителен, но не превышает порог дозаказа.
	StockStatusLow StockStatus = "Low"
	// StockStatusOutOfStock — остаток исчерпан.
	StockStatusOutOfStock StockStatus = "Out of Stock"
)

// StockItem — строка складского реестра: остаток и производный статус.
type StockItem struct {
	ID          int64
	Name        string
	Description string
	Category    string
	Unit        string
	// Quantity никогда не уходит в минус: декремент с охранным условием.
	Quantity int
	// ReorderLevel — порог, ниже которого позиция считается Low.
	ReorderLevel int
	SupplierName string
	LastRestock  *time.Time
	// Status — чистая функция от Quantity и ReorderLevel; пересчитывается
	// после каждой мутации и не хранится независимо от остатка.
	Status      StockStatus
	CostPerUnit decimal.Decimal
	Remarks     string
}

// DeriveStockStatus вычисляет статус по остатку и порогу дозаказа.
func DeriveStockStatus(quantity, reorderLevel int) StockStatus {
	switch {
	case quantity <= 0:
		return StockStatusOutOfStock
	case quantity <= reorderLevel:
		return StockStatusLow
	default:
		return StockStatusAvailable
	}
}

// RecomputeStatus пересчитывает статус позиции из её собственных полей.
func (s *StockItem) RecomputeStatus() {
	s.Status = DeriveStockStatus(s.Quantity, s.ReorderLevel)
}
