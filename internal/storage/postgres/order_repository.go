package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

const (
	opTimeout = 5 * time.Second
	// txTimeout покрывает многошаговые единицы работы (создание заказа,
	// возврат склада).
	txTimeout = 10 * time.Second
)

// stockStatusCase выводит статус складской позиции прямо в UPDATE, чтобы
// статус и породивший его остаток фиксировались одним оператором.
const stockStatusCase = `CASE
		WHEN quantity <= 0 THEN 'Out of Stock'
		WHEN quantity <= reorder_level THEN 'Low'
		ELSE 'Available'
	END`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create выполняет создание заказа как одну транзакцию: шапка, позиции,
// охранное списание склада, агрегаты и номер заказа — всё или ничего.
func (r *orderRepository) Create(order domain.Order, items []domain.LineItem) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), txTimeout)
	defer cancel()

	if len(items) == 0 {
		return 0, domain.ErrItemsRequired
	}
	order.ApplyDefaults()

	now := time.Now().UTC()
	if order.OrderDate.IsZero() {
		order.OrderDate = now
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var orderID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			customer_id, user_id, order_date, due_date, status, total_amount,
			payment_status, payment_method, discount, remarks, quantity_total,
			date_completed, printed_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING order_id
	`,
		order.CustomerID, order.UserID, order.OrderDate, order.DueDate,
		string(order.Status), order.TotalAmount, order.PaymentStatus,
		order.PaymentMethod, order.Discount, order.Remarks, order.QuantityTotal,
		order.DateCompleted, order.PrintedBy,
	).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_details (
				order_id, product_id, quantity, unit_price, material_used,
				discount, print_size, color_type, remarks, created_by, tax
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`,
			orderID, item.ProductID, item.Quantity, item.UnitPrice,
			item.MaterialUsed, item.Discount, item.PrintSize, item.ColorType,
			item.Remarks, item.CreatedBy, item.Tax,
		); err != nil {
			return 0, fmt.Errorf("insert line item: %w", err)
		}

		if err = r.deductStockTx(ctx, tx, orderID, item, order.UserID); err != nil {
			return 0, err
		}
	}

	// Итоги считаются из сохранённых строк: subtotal принадлежит хранилищу,
	// присланный клиентом total отбрасывается.
	var (
		total    decimal.Decimal
		totalQty int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(subtotal - (subtotal * (discount / 100)) + tax), 0),
			COALESCE(SUM(quantity), 0)
		FROM order_details
		WHERE order_id = $1
	`, orderID).Scan(&total, &totalQty)
	if err != nil {
		return 0, fmt.Errorf("aggregate order totals: %w", err)
	}

	reference := domain.FormatOrderReference(orderID, order.OrderDate)
	if _, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET total_amount = $1, quantity_total = $2, order_reference = $3
		WHERE order_id = $4
	`, total, totalQty, reference, orderID); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("order reference %s already exists: %w", reference, err)
		}
		return 0, fmt.Errorf("patch order totals: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create order: %w", err)
	}

	return orderID, nil
}

// deductStockTx выполняет охранное списание склада по одной позиции внутри
// транзакции создания заказа. Продукты без складской привязки пропускаются.
func (r *orderRepository) deductStockTx(ctx context.Context, tx *sql.Tx, orderID int64, item domain.LineItem, actor int64) error {
	var inventoryID sql.NullInt64
	err := tx.QueryRowContext(ctx, `
		SELECT inventory_id FROM products WHERE product_id = $1
	`, item.ProductID).Scan(&inventoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrProductNotFound
		}
		return fmt.Errorf("resolve product %d: %w", item.ProductID, err)
	}
	if !inventoryID.Valid {
		return nil
	}

	var remaining int
	err = tx.QueryRowContext(ctx, `
		UPDATE inventory
		SET quantity = quantity - $1
		WHERE inventory_id = $2 AND quantity >= $1
		RETURNING quantity
	`, item.Quantity, inventoryID.Int64).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("stock item %d: %w", inventoryID.Int64, domain.ErrInsufficientStock)
		}
		return fmt.Errorf("deduct stock item %d: %w", inventoryID.Int64, err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE inventory SET status = `+stockStatusCase+` WHERE inventory_id = $1
	`, inventoryID.Int64); err != nil {
		return fmt.Errorf("recompute stock status %d: %w", inventoryID.Int64, err)
	}

	desc := fmt.Sprintf("Order %d placed: deducted %d units from inventory_id=%d (new qty=%d)",
		orderID, item.Quantity, inventoryID.Int64, remaining)
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO logs (user_id, action, description) VALUES ($1,$2,$3)
	`, actor, domain.AuditActionInventoryDeduct, desc); err != nil {
		return fmt.Errorf("log stock deduction: %w", err)
	}

	return nil
}

const orderColumns = `
	o.order_id, o.customer_id, o.user_id, o.order_date, o.due_date, o.status,
	o.total_amount, o.payment_status, o.payment_method, o.discount, o.remarks,
	o.quantity_total, o.order_reference, o.date_completed, o.printed_by
`

func (r *orderRepository) GetByID(id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order, err := r.queryOrder(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.order_id = $1`, id)
	if err != nil {
		return domain.Order{}, err
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) GetByReference(reference string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order, err := r.queryOrder(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.order_reference = $1`, reference)
	if err != nil {
		return domain.Order{}, err
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) GetAll() ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.queryOrders(ctx, `
		SELECT `+orderColumns+`, c.name, u.username
		FROM orders o
		LEFT JOIN customers c ON o.customer_id = c.customer_id
		LEFT JOIN users u ON o.user_id = u.user_id
		ORDER BY o.order_date DESC, o.order_id DESC
	`)
}

func (r *orderRepository) Search(keyword string) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	like := "%" + keyword + "%"
	return r.queryOrders(ctx, `
		SELECT `+orderColumns+`, c.name, u.username
		FROM orders o
		LEFT JOIN customers c ON o.customer_id = c.customer_id
		LEFT JOIN users u ON o.user_id = u.user_id
		WHERE c.name ILIKE $1 OR o.order_reference ILIKE $1
		ORDER BY o.order_date DESC, o.order_id DESC
	`, like)
}

func (r *orderRepository) ListLineItems(orderID int64) ([]domain.LineItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.loadItems(ctx, orderID)
}

// UpdateStatus меняет статус и пишет запись аудита одной транзакцией.
// При переходе в Completed проставляется дата завершения.
func (r *orderRepository) UpdateStatus(orderID int64, status domain.OrderStatus, actor *int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    date_completed = (CASE WHEN $1 = 'Completed' THEN CURRENT_DATE ELSE date_completed END)
		WHERE order_id = $2
	`, string(status), orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = domain.ErrOrderNotFound
		return err
	}

	desc := fmt.Sprintf("Order #%d status changed to '%s'", orderID, status)
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO logs (user_id, action, description) VALUES ($1,$2,$3)
	`, actor, domain.AuditActionStatusChange, desc); err != nil {
		return fmt.Errorf("log status change: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit status change: %w", err)
	}

	return nil
}

func (r *orderRepository) Complete(orderID int64, completedBy *int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = 'Completed', date_completed = CURRENT_DATE, printed_by = $1
		WHERE order_id = $2
	`, completedBy, orderID)
	if err != nil {
		return fmt.Errorf("complete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) UpdatePayment(orderID int64, paymentStatus, paymentMethod string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_status = $1, payment_method = $2 WHERE order_id = $3
	`, paymentStatus, paymentMethod, orderID)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

// RevertInventoryForOrder возвращает остатки по всем позициям заказа одной
// транзакцией: инкремент, пересчёт статуса и запись аудита на каждую
// затронутую складскую позицию.
func (r *orderRepository) RevertInventoryForOrder(orderID int64, actor *int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), txTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity FROM order_details WHERE order_id = $1
	`, orderID)
	if err != nil {
		return fmt.Errorf("load order details: %w", err)
	}

	type detail struct {
		productID int64
		qty       int
	}
	details := make([]detail, 0)
	for rows.Next() {
		var d detail
		if err = rows.Scan(&d.productID, &d.qty); err != nil {
			rows.Close()
			return fmt.Errorf("scan order detail: %w", err)
		}
		details = append(details, d)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate order details: %w", err)
	}
	rows.Close()

	for _, d := range details {
		var inventoryID sql.NullInt64
		err = tx.QueryRowContext(ctx, `
			SELECT inventory_id FROM products WHERE product_id = $1
		`, d.productID).Scan(&inventoryID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Продукт удалён из каталога: позицию пропускаем.
				err = nil
				continue
			}
			return fmt.Errorf("resolve product %d: %w", d.productID, err)
		}
		if !inventoryID.Valid {
			continue
		}

		var newQty int
		err = tx.QueryRowContext(ctx, `
			UPDATE inventory
			SET quantity = quantity + $1
			WHERE inventory_id = $2
			RETURNING quantity
		`, d.qty, inventoryID.Int64).Scan(&newQty)
		if err != nil {
			return fmt.Errorf("restore stock item %d: %w", inventoryID.Int64, err)
		}

		if _, err = tx.ExecContext(ctx, `
			UPDATE inventory SET status = `+stockStatusCase+` WHERE inventory_id = $1
		`, inventoryID.Int64); err != nil {
			return fmt.Errorf("recompute stock status %d: %w", inventoryID.Int64, err)
		}

		desc := fmt.Sprintf("Order %d cancelled: restored %d units to inventory_id=%d (new qty=%d)",
			orderID, d.qty, inventoryID.Int64, newQty)
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO logs (user_id, action, description) VALUES ($1,$2,$3)
		`, actor, domain.AuditActionInventoryRevert, desc); err != nil {
			return fmt.Errorf("log stock restoration: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit inventory revert: %w", err)
	}

	return nil
}

func (r *orderRepository) Delete(orderID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) queryOrder(ctx context.Context, query string, arg any) (domain.Order, error) {
	var (
		order         domain.Order
		status        string
		customerID    sql.NullInt64
		dueDate       sql.NullTime
		reference     sql.NullString
		dateCompleted sql.NullTime
		printedBy     sql.NullInt64
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&order.ID, &customerID, &order.UserID, &order.OrderDate, &dueDate,
		&status, &order.TotalAmount, &order.PaymentStatus, &order.PaymentMethod,
		&order.Discount, &order.Remarks, &order.QuantityTotal, &reference,
		&dateCompleted, &printedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	order.Status = domain.OrderStatus(status)
	order.CustomerID = nullableID(customerID)
	order.DueDate = nullableTime(dueDate)
	order.Reference = reference.String
	order.DateCompleted = nullableTime(dateCompleted)
	order.PrintedBy = nullableID(printedBy)

	return order, nil
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			order         domain.Order
			status        string
			customerID    sql.NullInt64
			dueDate       sql.NullTime
			reference     sql.NullString
			dateCompleted sql.NullTime
			printedBy     sql.NullInt64
			customerName  sql.NullString
			userName      sql.NullString
		)
		if err := rows.Scan(
			&order.ID, &customerID, &order.UserID, &order.OrderDate, &dueDate,
			&status, &order.TotalAmount, &order.PaymentStatus, &order.PaymentMethod,
			&order.Discount, &order.Remarks, &order.QuantityTotal, &reference,
			&dateCompleted, &printedBy, &customerName, &userName,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		order.Status = domain.OrderStatus(status)
		order.CustomerID = nullableID(customerID)
		order.DueDate = nullableTime(dueDate)
		order.Reference = reference.String
		order.DateCompleted = nullableTime(dateCompleted)
		order.PrintedBy = nullableID(printedBy)
		order.CustomerName = customerName.String
		order.UserName = userName.String

		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID int64) ([]domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT orderdetail_id, order_id, product_id, quantity, unit_price,
		       subtotal, material_used, discount, print_size, color_type,
		       remarks, created_at, created_by, date_updated, tax
		FROM order_details
		WHERE order_id = $1
		ORDER BY orderdetail_id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load line items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.LineItem, 0)
	for rows.Next() {
		var (
			item      domain.LineItem
			createdBy sql.NullInt64
		)
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
			&item.UnitPrice, &item.Subtotal, &item.MaterialUsed, &item.Discount,
			&item.PrintSize, &item.ColorType, &item.Remarks, &item.CreatedAt,
			&createdBy, &item.UpdatedAt, &item.Tax,
		); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		item.CreatedBy = nullableID(createdBy)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line items: %w", err)
	}

	return items, nil
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func nullableTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
