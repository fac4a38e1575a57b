package domain

import "errors"

var (
	// Ошибка отсутствующего сотрудника-оформителя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one line item")
	// Ошибка отсутствующей ссылки на продукт в позиции.
	ErrProductRequired = errors.New("line item product_id is required")
	// Ошибка при некорректном количестве в позиции (<= 0).
	ErrItemQtyInvalid = errors.New("line item quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("line item unit price must be non-negative")
	// Ошибка, если налог позиции отрицательный.
	ErrItemTaxInvalid = errors.New("line item tax must be non-negative")
	// Ошибка скидки вне диапазона 0–100.
	ErrDiscountOutOfRange = errors.New("discount must be between 0 and 100")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если продукт отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrStockItemNotFound возвращается, если складская позиция не найдена.
	ErrStockItemNotFound = errors.New("stock item not found")
	// ErrInsufficientStock — охранное условие декремента не выполнено;
	// остаток не изменён.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition — запрошенный переход статуса не определён
	// машиной состояний заказа.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound проверяет, является ли ошибка одним из сигналов «не найдено».
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrStockItemNotFound)
}
