package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

const inventoryColumns = `
	inventory_id, item_name, description, category, unit, quantity,
	reorder_level, supplier_name, last_restock_date, status, cost_per_unit,
	remarks
`

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository создаёт PostgreSQL-реализацию InventoryRepository.
func NewInventoryRepository(store *Store) domain.InventoryRepository {
	return &inventoryRepository{db: store.DB()}
}

func (r *inventoryRepository) Create(item domain.StockItem) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	item.RecomputeStatus()

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO inventory (
			item_name, description, category, unit, quantity, reorder_level,
			supplier_name, last_restock_date, status, cost_per_unit, remarks
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING inventory_id
	`,
		item.Name, item.Description, item.Category, item.Unit, item.Quantity,
		item.ReorderLevel, item.SupplierName, item.LastRestock,
		string(item.Status), item.CostPerUnit, item.Remarks,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert stock item: %w", err)
	}

	return id, nil
}

func (r *inventoryRepository) GetByID(id int64) (domain.StockItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.queryItem(ctx, `SELECT `+inventoryColumns+` FROM inventory WHERE inventory_id = $1`, id)
}

func (r *inventoryRepository) GetByName(name string) (domain.StockItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.queryItem(ctx, `SELECT `+inventoryColumns+` FROM inventory WHERE item_name = $1`, name)
}

func (r *inventoryRepository) List() ([]domain.StockItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+inventoryColumns+` FROM inventory ORDER BY item_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.StockItem, 0)
	for rows.Next() {
		item, err := scanStockItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock items: %w", err)
	}

	return items, nil
}

// Decrement выполняет охранное списание: количество уменьшается только если
// остатка хватает, иначе строка не изменяется и возвращается
// ErrInsufficientStock. Статус пересчитывается той же операцией.
func (r *inventoryRepository) Decrement(id int64, qty int) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = quantity - $1,
		    status = (CASE
				WHEN quantity - $1 <= 0 THEN 'Out of Stock'
				WHEN quantity - $1 <= reorder_level THEN 'Low'
				ELSE 'Available'
		    END)
		WHERE inventory_id = $2 AND quantity >= $1
	`, qty, id)
	if err != nil {
		return fmt.Errorf("decrement stock item %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Различаем «позиции нет» и «остатка не хватает».
		if _, err := r.GetByID(id); err != nil {
			return err
		}
		return domain.ErrInsufficientStock
	}

	return nil
}

func (r *inventoryRepository) Increment(id int64, qty int) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = quantity + $1,
		    status = (CASE
				WHEN quantity + $1 <= 0 THEN 'Out of Stock'
				WHEN quantity + $1 <= reorder_level THEN 'Low'
				ELSE 'Available'
		    END)
		WHERE inventory_id = $2
	`, qty, id)
	if err != nil {
		return fmt.Errorf("increment stock item %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrStockItemNotFound
	}

	return nil
}

func (r *inventoryRepository) RecomputeStatus(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE inventory SET status = `+stockStatusCase+` WHERE inventory_id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("recompute stock status %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrStockItemNotFound
	}

	return nil
}

func (r *inventoryRepository) queryItem(ctx context.Context, query string, arg any) (domain.StockItem, error) {
	item, err := scanStockItem(r.db.QueryRowContext(ctx, query, arg).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StockItem{}, domain.ErrStockItemNotFound
		}
		return domain.StockItem{}, err
	}
	return item, nil
}

func scanStockItem(scan func(dest ...any) error) (domain.StockItem, error) {
	var (
		item        domain.StockItem
		status      string
		lastRestock sql.NullTime
	)
	if err := scan(
		&item.ID, &item.Name, &item.Description, &item.Category, &item.Unit,
		&item.Quantity, &item.ReorderLevel, &item.SupplierName, &lastRestock,
		&status, &item.CostPerUnit, &item.Remarks,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StockItem{}, err
		}
		return domain.StockItem{}, fmt.Errorf("scan stock item: %w", err)
	}

	item.Status = domain.StockStatus(status)
	item.LastRestock = nullableTime(lastRestock)

	return item, nil
}

var _ domain.InventoryRepository = (*inventoryRepository)(nil)
