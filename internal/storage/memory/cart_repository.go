package memory

import (
	"sync"

	"github.com/lucashmcosta/estoque/internal/domain"
)

// cartRepositoryInMemory хранит корзины по идентификатору сессии.
// Корзина живёт в памяти процесса; для нескольких инстансов используется
// redis-реализация.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	carts map[string][]domain.CartLine
}

// NewCartRepository возвращает in-memory реализацию CartRepository.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{
		carts: make(map[string][]domain.CartLine),
	}
}

// AddLine добавляет снимок позиции в конец корзины. Проверка остатка здесь
// не выполняется: остаток авторитетен только в момент финализации.
func (r *cartRepositoryInMemory) AddLine(sessionID string, line domain.CartLine) error {
	if errs := line.ValidateInvariants(); len(errs) > 0 {
		return errs[0]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[sessionID] = append(r.carts[sessionID], line)
	return nil
}

// Lines возвращает копию содержимого корзины в порядке добавления.
func (r *cartRepositoryInMemory) Lines(sessionID string) ([]domain.CartLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return domain.CloneLines(r.carts[sessionID]), nil
}

// Clear опустошает корзину сессии.
func (r *cartRepositoryInMemory) Clear(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, sessionID)
	return nil
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
