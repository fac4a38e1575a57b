package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

const productColumns = `
	product_id, product_name, description, category, price, unit,
	material_used, quantity_used, reorder_level, status, added_by, print_time,
	size, notes, inventory_id, date_added
`

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product domain.Product) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (
			product_name, description, category, price, unit, material_used,
			quantity_used, reorder_level, status, added_by, print_time, size,
			notes, inventory_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING product_id
	`,
		product.Name, product.Description, product.Category, product.Price,
		product.Unit, product.MaterialUsed, product.QuantityUsed,
		product.ReorderLevel, product.Status, product.AddedBy,
		product.PrintTime, product.Size, product.Notes, product.InventoryID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}

	return id, nil
}

func (r *productRepository) GetProductByID(id int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	product, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_id = $1`, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, err
	}

	return product, nil
}

func (r *productRepository) List() ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.queryProducts(ctx, `
		SELECT `+productColumns+` FROM products ORDER BY product_name ASC
	`)
}

func (r *productRepository) Search(keyword string) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	like := "%" + keyword + "%"
	return r.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE product_name ILIKE $1 OR category ILIKE $1
		ORDER BY product_name ASC
	`, like)
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func scanProduct(scan func(dest ...any) error) (domain.Product, error) {
	var (
		product     domain.Product
		addedBy     sql.NullInt64
		inventoryID sql.NullInt64
	)
	if err := scan(
		&product.ID, &product.Name, &product.Description, &product.Category,
		&product.Price, &product.Unit, &product.MaterialUsed,
		&product.QuantityUsed, &product.ReorderLevel, &product.Status,
		&addedBy, &product.PrintTime, &product.Size, &product.Notes,
		&inventoryID, &product.DateAdded,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, err
		}
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}

	product.AddedBy = nullableID(addedBy)
	product.InventoryID = nullableID(inventoryID)

	return product, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
