package memory

import (
	"fmt"
	"sync"

	"github.com/lucashmcosta/estoque/internal/domain"
)

// ledgerRepositoryInMemory — append-only журнал заказов.
type ledgerRepositoryInMemory struct {
	mu     sync.RWMutex
	orders []domain.Order
	index  map[string]int
}

// NewLedgerRepository возвращает in-memory реализацию LedgerRepository.
func NewLedgerRepository() domain.LedgerRepository {
	return &ledgerRepositoryInMemory{
		index: make(map[string]int),
	}
}

// Append записывает заказ в конец журнала. Пустые заказы отклоняются здесь,
// а не только на вызывающей стороне.
func (r *ledgerRepositoryInMemory) Append(order domain.Order) error {
	if len(order.Lines) == 0 {
		return domain.ErrEmptyOrder
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[order.ID]; exists {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrDuplicateOrder)
	}

	// Сохраняем глубокую копию: журнал не должен видеть последующие мутации корзины.
	order.Lines = domain.CloneLines(order.Lines)
	r.index[order.ID] = len(r.orders)
	r.orders = append(r.orders, order)
	return nil
}

// Get возвращает заказ по идентификатору.
func (r *ledgerRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.index[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrOrderNotFound)
	}

	order := r.orders[idx]
	order.Lines = domain.CloneLines(order.Lines)
	return order, nil
}

// List возвращает журнал в порядке записи, свежие заказы в конце.
func (r *ledgerRepositoryInMemory) List() ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		order.Lines = domain.CloneLines(order.Lines)
		result = append(result, order)
	}
	return result, nil
}

var _ domain.LedgerRepository = (*ledgerRepositoryInMemory)(nil)
