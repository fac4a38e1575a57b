package domain

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями как одну единицу работы:
	// вставка шапки, пакетная вставка позиций, охранный декремент склада по
	// позициям с привязанной складской позицией, пересчёт итогов из
	// сохранённых строк, назначение номера заказа. Любая ошибка откатывает
	// всё целиком; возвращается назначенный идентификатор заказа.
	Create(order Order, items []LineItem) (int64, error)
	// GetByID возвращает заказ с позициями или ErrOrderNotFound.
	GetByID(id int64) (Order, error)
	// GetByReference ищет заказ по человекочитаемому номеру.
	GetByReference(reference string) (Order, error)
	// GetAll возвращает все заказы с денормализованными именами клиента и сотрудника.
	GetAll() ([]Order, error)
	// Search ищет по подстроке имени клиента или номера заказа.
	Search(keyword string) ([]Order, error)
	// ListLineItems возвращает позиции заказа.
	ListLineItems(orderID int64) ([]LineItem, error)
	// UpdateStatus меняет статус заказа и пишет запись аудита в той же
	// единице работы; при статусе Completed проставляет дату завершения.
	UpdateStatus(orderID int64, status OrderStatus, actor *int64) error
	// Complete переводит заказ в Completed, проставляя дату и исполнителя.
	Complete(orderID int64, completedBy *int64) error
	// UpdatePayment обновляет платёжные поля шапки.
	UpdatePayment(orderID int64, paymentStatus, paymentMethod string) error
	// RevertInventoryForOrder атомарно возвращает остатки по всем позициям
	// заказа: инкремент складской позиции, пересчёт её статуса и запись
	// аудита на каждую затронутую позицию. Позиции без складской привязки
	// пропускаются без ошибки.
	RevertInventoryForOrder(orderID int64, actor *int64) error
	// Delete удаляет заказ; позиции удаляются каскадно.
	Delete(orderID int64) error
}

// InventoryRepository описывает складской реестр.
type InventoryRepository interface {
	// Create сохраняет позицию и сразу выводит её статус из остатка.
	Create(item StockItem) (int64, error)
	// GetByID возвращает позицию или ErrStockItemNotFound.
	GetByID(id int64) (StockItem, error)
	// GetByName ищет позицию по имени.
	GetByName(name string) (StockItem, error)
	// List возвращает все позиции реестра.
	List() ([]StockItem, error)
	// Decrement уменьшает остаток одной охранной операцией: проверка
	// «остаток ≥ qty» и списание выполняются как один UPDATE. При нехватке
	// возвращает ErrInsufficientStock, остаток не меняется. После успеха
	// статус пересчитывается.
	Decrement(id int64, qty int) error
	// Increment увеличивает остаток и пересчитывает статус.
	Increment(id int64, qty int) error
	// RecomputeStatus пересчитывает и сохраняет статус позиции.
	RecomputeStatus(id int64) error
}

// ProductRepository хранит каталог продуктов.
type ProductRepository interface {
	CatalogLookup
	Create(product Product) (int64, error)
	List() ([]Product, error)
	Search(keyword string) ([]Product, error)
}
