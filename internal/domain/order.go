package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа в типографии.
type OrderStatus string

const (
	// OrderStatusPending — заказ принят, но ещё не выполнен.
	OrderStatusPending OrderStatus = "Pending"
	// OrderStatusCompleted — заказ напечатан и выдан; терминальный статус.
	OrderStatusCompleted OrderStatus = "Completed"
	// OrderStatusCancelled — заказ отменён, склад восстановлен; терминальный статус.
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// IsTerminal сообщает, является ли статус конечным.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода между статусами.
// Допустимы только Pending → Completed и Pending → Cancelled.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s != OrderStatusPending {
		return false
	}
	return next == OrderStatusCompleted || next == OrderStatusCancelled
}

// PaymentStatus и PaymentMethod хранятся строками; ниже — значения по умолчанию.
const (
	PaymentStatusUnpaid  = "Unpaid"
	PaymentStatusPartial = "Partial"
	PaymentStatusPaid    = "Paid"

	PaymentMethodCash = "Cash"
)

// LineItem представляет одну позицию заказа.
type LineItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	// Quantity — количество единиц, строго положительное.
	Quantity int
	// UnitPrice — цена за единицу на момент оформления.
	UnitPrice decimal.Decimal
	// Subtotal — производное поле quantity × unit_price; им владеет хранилище.
	Subtotal decimal.Decimal
	// Discount — скидка на позицию в процентах (0–100).
	Discount     decimal.Decimal
	Tax          decimal.Decimal
	MaterialUsed string
	PrintSize    string
	ColorType    string
	Remarks      string
	CreatedBy    *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ComputeSubtotal возвращает производный subtotal = quantity × unit_price.
func (li LineItem) ComputeSubtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// NetAmount возвращает вклад позиции в итог заказа:
// subtotal × (1 − discount/100) + tax.
func (li LineItem) NetAmount() decimal.Decimal {
	subtotal := li.ComputeSubtotal()
	discounted := subtotal.Sub(subtotal.Mul(li.Discount.Div(decimal.NewFromInt(100))))
	return discounted.Add(li.Tax)
}

// Order агрегирует шапку заказа и его позиции.
type Order struct {
	ID int64
	// CustomerID отсутствует для walk-in клиентов.
	CustomerID *int64
	// UserID — сотрудник, оформивший заказ.
	UserID    int64
	OrderDate time.Time
	DueDate   *time.Time
	Status    OrderStatus
	// TotalAmount и QuantityTotal — агрегаты по сохранённым позициям;
	// значение от клиента никогда не является авторитетным.
	TotalAmount   decimal.Decimal
	PaymentStatus string
	PaymentMethod string
	Discount      decimal.Decimal
	Remarks       string
	QuantityTotal int
	// Reference назначается один раз после создания и больше не меняется.
	Reference     string
	DateCompleted *time.Time
	PrintedBy     *int64
	Items         []LineItem

	// Денормализованные имена для списочных выборок (GetAll/Search).
	CustomerName string
	UserName     string
}

// ApplyDefaults подставляет значения по умолчанию для незаполненных полей шапки.
func (o *Order) ApplyDefaults() {
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentStatusUnpaid
	}
	if o.PaymentMethod == "" {
		o.PaymentMethod = PaymentMethodCash
	}
}

// ValidateNewOrder проверяет шапку и позиции перед созданием заказа
// и возвращает список замечаний.
func ValidateNewOrder(order Order, items []LineItem) []error {
	var errs []error

	if order.UserID <= 0 {
		errs = append(errs, ErrUserRequired)
	}
	if len(items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !percentInRange(order.Discount) {
		errs = append(errs, ErrDiscountOutOfRange)
	}

	for _, item := range items {
		if item.ProductID <= 0 {
			errs = append(errs, ErrProductRequired)
		}
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if !percentInRange(item.Discount) {
			errs = append(errs, ErrDiscountOutOfRange)
		}
		if item.Tax.IsNegative() {
			errs = append(errs, ErrItemTaxInvalid)
		}
	}

	return errs
}

func percentInRange(p decimal.Decimal) bool {
	return !p.IsNegative() && !p.GreaterThan(decimal.NewFromInt(100))
}

// FormatOrderReference строит канонический человекочитаемый номер заказа:
// ORD-<orderId>-<yyyyMMddHHmm>. Номер назначается один раз и стабилен.
func FormatOrderReference(orderID int64, at time.Time) string {
	return fmt.Sprintf("ORD-%d-%s", orderID, at.Format("200601021504"))
}
