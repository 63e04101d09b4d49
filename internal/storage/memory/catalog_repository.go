package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/lucashmcosta/estoque/internal/domain"
)

// catalogRepositoryInMemory — авторитетное in-memory хранилище каталога.
// Все операции выполняются под одним мьютексом, поэтому batch-списание
// атомарно относительно любых конкурентных вызовов.
type catalogRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
	// codes сохраняет порядок регистрации: списочные операции обязаны
	// выдавать позиции в этом порядке.
	codes []string
}

// NewCatalogRepository возвращает in-memory реализацию CatalogRepository.
func NewCatalogRepository() domain.CatalogRepository {
	return &catalogRepositoryInMemory{
		items: make(map[string]domain.Product),
	}
}

// Add регистрирует позицию, если код ещё не занят.
func (r *catalogRepositoryInMemory) Add(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[product.Code]; exists {
		return fmt.Errorf("product %s: %w", product.Code, domain.ErrDuplicateCode)
	}

	r.items[product.Code] = product
	r.codes = append(r.codes, product.Code)
	return nil
}

// Get возвращает позицию или ErrProductNotFound.
func (r *catalogRepositoryInMemory) Get(code string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[code]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", code, domain.ErrProductNotFound)
	}
	return product, nil
}

// Decrement списывает amount с остатка без возможности ухода в минус.
func (r *catalogRepositoryInMemory) Decrement(code string, amount float64) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if amount <= 0 {
		return domain.Product{}, domain.ErrDecrementInvalid
	}

	product, ok := r.items[code]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", code, domain.ErrProductNotFound)
	}
	if amount > product.Quantity {
		return domain.Product{}, fmt.Errorf("product %s: %w", code, domain.ErrInsufficientStock)
	}

	product.Quantity -= amount
	product.UpdatedAt = time.Now().UTC()
	r.items[code] = product
	return product, nil
}

// DecrementBatch атомарно списывает остатки по всем позициям корзины:
// первый проход только проверяет (дубликаты кода суммируются), второй применяет.
// При любой ошибке каталог остаётся нетронутым.
func (r *catalogRepositoryInMemory) DecrementBatch(lines []domain.CartLine) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	need, order, err := r.aggregate(lines)
	if err != nil {
		return nil, err
	}

	for _, code := range order {
		product, ok := r.items[code]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", code, domain.ErrProductNotFound)
		}
		if need[code] > product.Quantity {
			return nil, fmt.Errorf("product %s: %w", code, domain.ErrInsufficientStock)
		}
	}

	now := time.Now().UTC()
	updated := make([]domain.Product, 0, len(order))
	for _, code := range order {
		product := r.items[code]
		product.Quantity -= need[code]
		product.UpdatedAt = now
		r.items[code] = product
		updated = append(updated, product)
	}

	return updated, nil
}

// IncrementBatch возвращает остатки по позициям корзины (компенсация).
func (r *catalogRepositoryInMemory) IncrementBatch(lines []domain.CartLine) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	need, order, err := r.aggregate(lines)
	if err != nil {
		return nil, err
	}

	for _, code := range order {
		if _, ok := r.items[code]; !ok {
			return nil, fmt.Errorf("product %s: %w", code, domain.ErrProductNotFound)
		}
	}

	now := time.Now().UTC()
	updated := make([]domain.Product, 0, len(order))
	for _, code := range order {
		product := r.items[code]
		product.Quantity += need[code]
		product.UpdatedAt = now
		r.items[code] = product
		updated = append(updated, product)
	}

	return updated, nil
}

// Search возвращает подходящие позиции в порядке регистрации.
func (r *catalogRepositoryInMemory) Search(query string) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.codes))
	for _, code := range r.codes {
		product := r.items[code]
		if product.Matches(query) {
			result = append(result, product)
		}
	}
	return result, nil
}

// ListAvailable возвращает позиции с положительным остатком.
func (r *catalogRepositoryInMemory) ListAvailable() ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.codes))
	for _, code := range r.codes {
		product := r.items[code]
		if product.Quantity > 0 {
			result = append(result, product)
		}
	}
	return result, nil
}

// List возвращает весь каталог в порядке регистрации.
func (r *catalogRepositoryInMemory) List() ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.codes))
	for _, code := range r.codes {
		result = append(result, r.items[code])
	}
	return result, nil
}

// aggregate суммирует количества по коду, сохраняя порядок первого вхождения.
func (r *catalogRepositoryInMemory) aggregate(lines []domain.CartLine) (map[string]float64, []string, error) {
	need := make(map[string]float64, len(lines))
	order := make([]string, 0, len(lines))

	for i := range lines {
		line := lines[i]
		if line.ProductCode == "" {
			return nil, nil, domain.ErrLineCodeRequired
		}
		if line.Quantity <= 0 {
			return nil, nil, fmt.Errorf("product %s: %w", line.ProductCode, domain.ErrLineQtyInvalid)
		}
		if _, seen := need[line.ProductCode]; !seen {
			order = append(order, line.ProductCode)
		}
		need[line.ProductCode] += line.Quantity
	}

	return need, order, nil
}

var _ domain.CatalogRepository = (*catalogRepositoryInMemory)(nil)
