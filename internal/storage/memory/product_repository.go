package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// ProductRepository — in-memory каталог продуктов.
type ProductRepository struct {
	mu     sync.RWMutex
	items  map[int64]domain.Product
	nextID int64
}

// NewProductRepository возвращает пустой in-memory каталог.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{items: make(map[int64]domain.Product)}
}

func (r *ProductRepository) Create(product domain.Product) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	product.ID = r.nextID
	if product.DateAdded.IsZero() {
		product.DateAdded = time.Now().UTC()
	}
	r.items[product.ID] = product

	return product.ID, nil
}

func (r *ProductRepository) GetProductByID(id int64) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *ProductRepository) List() ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		result = append(result, product)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

func (r *ProductRepository) Search(keyword string) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(keyword)
	result := make([]domain.Product, 0)
	for _, product := range r.items {
		if strings.Contains(strings.ToLower(product.Name), needle) ||
			strings.Contains(strings.ToLower(product.Category), needle) {
			result = append(result, product)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

var _ domain.ProductRepository = (*ProductRepository)(nil)
