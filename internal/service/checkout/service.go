package checkout

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/lucashmcosta/estoque/internal/domain"
	"github.com/lucashmcosta/estoque/internal/metrics"
)

// Типы событий, попадающих в outbox.
const (
	eventProductRegistered = "product.registered"
	eventStockUpdated      = "stock.updated"
	eventOrderFinalized    = "order.finalized"
)

// Service реализует операции каталога, корзины и финализации заказов.
// Авторитетное состояние живёт в репозиториях; внешние потребители получают
// изменения через transactional outbox.
type Service struct {
	catalog domain.CatalogRepository
	ledger  domain.LedgerRepository
	carts   domain.CartRepository
	outbox  domain.OutboxRepository
	metrics *metrics.CheckoutMetrics
	logger  *log.Entry
}

// NewService создаёт сервис оформления заказов.
func NewService(
	catalog domain.CatalogRepository,
	ledger domain.LedgerRepository,
	carts domain.CartRepository,
	outbox domain.OutboxRepository,
	checkoutMetrics *metrics.CheckoutMetrics,
) *Service {
	return &Service{
		catalog: catalog,
		ledger:  ledger,
		carts:   carts,
		outbox:  outbox,
		metrics: checkoutMetrics,
		logger:  log.WithField("component", "checkout-service"),
	}
}

// RegisterProduct регистрирует новую позицию каталога.
func (s *Service) RegisterProduct(product domain.Product) (domain.Product, error) {
	product.Code = strings.TrimSpace(product.Code)
	product.Name = strings.TrimSpace(product.Name)

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	if errs := product.ValidateInvariants(); len(errs) > 0 {
		return domain.Product{}, errs[0]
	}

	if err := s.catalog.Add(product); err != nil {
		return domain.Product{}, err
	}

	s.metrics.RecordProductRegistered()
	s.logger.WithFields(log.Fields{
		"product_code": product.Code,
		"quantity":     product.Quantity,
		"unit":         product.Unit,
	}).Info("product registered")

	s.enqueueProductEvent(eventProductRegistered, product)
	return product, nil
}

// SearchProducts возвращает позиции каталога по запросу в порядке регистрации.
func (s *Service) SearchProducts(query string) ([]domain.Product, error) {
	return s.catalog.Search(strings.TrimSpace(query))
}

// SearchAvailable возвращает позиции с положительным остатком, подходящие
// под запрос. Используется экраном выбора товаров при оформлении заказа.
func (s *Service) SearchAvailable(query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)

	available, err := s.catalog.ListAvailable()
	if err != nil {
		return nil, err
	}

	result := make([]domain.Product, 0, len(available))
	for _, product := range available {
		if product.Matches(query) {
			result = append(result, product)
		}
	}
	return result, nil
}

// GetProduct возвращает позицию каталога по коду.
func (s *Service) GetProduct(code string) (domain.Product, error) {
	return s.catalog.Get(strings.TrimSpace(code))
}

// AddToCart добавляет товар в корзину сессии. В корзину попадает снимок
// названия: последующие правки каталога не меняют уже выбранные позиции.
// Остаток на этом шаге не резервируется.
func (s *Service) AddToCart(sessionID, productCode string, quantity float64) (domain.CartLine, error) {
	product, err := s.catalog.Get(strings.TrimSpace(productCode))
	if err != nil {
		return domain.CartLine{}, err
	}

	line := domain.CartLine{
		ProductCode: product.Code,
		ProductName: product.Name,
		Quantity:    quantity,
		AddedAt:     time.Now().UTC(),
	}
	if err := s.carts.AddLine(sessionID, line); err != nil {
		return domain.CartLine{}, err
	}

	s.metrics.RecordCartLineAdded()
	s.logger.WithFields(log.Fields{
		"session_id":   sessionID,
		"product_code": line.ProductCode,
		"quantity":     line.Quantity,
	}).Debug("cart line added")

	return line, nil
}

// CartLines возвращает содержимое корзины сессии.
func (s *Service) CartLines(sessionID string) ([]domain.CartLine, error) {
	return s.carts.Lines(sessionID)
}

// ClearCart опустошает корзину без оформления заказа.
func (s *Service) ClearCart(sessionID string) error {
	return s.carts.Clear(sessionID)
}

// Finalize оформляет заказ из корзины сессии. Пустая корзина не является
// ошибкой: возвращается finalized=false, и состояние не меняется.
// Списание остатков выполняется атомарно по всем позициям, затем заказ
// попадает в журнал. Если запись в журнал не удалась, списание компенсируется.
func (s *Service) Finalize(sessionID string) (domain.Order, bool, error) {
	started := time.Now()

	lines, err := s.carts.Lines(sessionID)
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("read cart: %w", err)
	}
	if len(lines) == 0 {
		s.logger.WithField("session_id", sessionID).Debug("finalize skipped: empty cart")
		return domain.Order{}, false, nil
	}

	updated, err := s.catalog.DecrementBatch(lines)
	if err != nil {
		s.metrics.RecordCheckoutFailed()
		if domain.IsStockConflict(err) {
			s.metrics.RecordInsufficientStock()
		}
		return domain.Order{}, false, err
	}

	order := s.buildOrder(lines)
	if err := s.ledger.Append(order); err != nil {
		// Журнал не принял заказ: возвращаем списанные остатки.
		if _, compErr := s.catalog.IncrementBatch(lines); compErr != nil {
			s.logger.WithError(compErr).WithField("order_id", order.ID).
				Error("stock compensation failed after ledger append error")
		}
		s.metrics.RecordCheckoutFailed()
		return domain.Order{}, false, fmt.Errorf("append order: %w", err)
	}

	if err := s.carts.Clear(sessionID); err != nil {
		// Заказ уже в журнале; незакрытая корзина лишь потребует ручной очистки.
		s.logger.WithError(err).WithField("session_id", sessionID).Warn("clear cart failed after finalize")
	}

	s.metrics.RecordOrderFinalized()
	s.metrics.RecordCheckoutDuration(time.Since(started))
	s.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"order_code": order.Code,
		"lines":      len(order.Lines),
	}).Info("order finalized")

	s.enqueueOrderEvent(order)
	for _, product := range updated {
		s.enqueueProductEvent(eventStockUpdated, product)
	}

	return order, true, nil
}

// Orders возвращает журнал заказов в порядке записи.
func (s *Service) Orders() ([]domain.Order, error) {
	return s.ledger.List()
}

// Order возвращает заказ по идентификатору.
func (s *Service) Order(id string) (domain.Order, error) {
	return s.ledger.Get(id)
}

func (s *Service) buildOrder(lines []domain.CartLine) domain.Order {
	id := uuid.NewString()
	now := time.Now().UTC()
	return domain.Order{
		ID:        id,
		Code:      fmt.Sprintf("PED-%d-%s", now.UnixMilli(), id[:8]),
		Lines:     domain.CloneLines(lines),
		CreatedAt: now,
	}
}

// enqueueProductEvent кладёт снимок позиции в outbox. Ошибка не прерывает
// основную операцию: состояние в памяти уже авторитетно.
func (s *Service) enqueueProductEvent(eventType string, product domain.Product) {
	payload, err := json.Marshal(domain.NewProductDocument(product))
	if err != nil {
		s.logger.WithError(err).WithField("product_code", product.Code).Error("marshal product event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "product",
		AggregateID:   product.Code,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("product_code", product.Code).Error("enqueue product event")
		return
	}
	s.metrics.RecordOutboxEvent()
}

func (s *Service) enqueueOrderEvent(order domain.Order) {
	payload, err := json.Marshal(domain.NewOrderDocument(order))
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("marshal order event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventOrderFinalized,
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("enqueue order event")
		return
	}
	s.metrics.RecordOutboxEvent()
}
