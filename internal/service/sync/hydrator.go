package sync

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/lucashmcosta/estoque/internal/domain"
	"github.com/lucashmcosta/estoque/internal/metrics"
)

// Hydrator восстанавливает состояние в памяти из документного зеркала на
// старте процесса. Повреждённые документы отбраковываются с предупреждением,
// но не останавливают загрузку: лучше неполный каталог, чем мёртвый сервис.
type Hydrator struct {
	store   domain.DocumentStore
	catalog domain.CatalogRepository
	ledger  domain.LedgerRepository
	metrics *metrics.CheckoutMetrics
	logger  *log.Entry
}

// HydrationReport подводит итог загрузки.
type HydrationReport struct {
	ProductsLoaded      int
	ProductsQuarantined int
	OrdersLoaded        int
	OrdersQuarantined   int
}

// NewHydrator создаёт загрузчик состояния из документного хранилища.
func NewHydrator(
	store domain.DocumentStore,
	catalog domain.CatalogRepository,
	ledger domain.LedgerRepository,
	checkoutMetrics *metrics.CheckoutMetrics,
) *Hydrator {
	return &Hydrator{
		store:   store,
		catalog: catalog,
		ledger:  ledger,
		metrics: checkoutMetrics,
		logger:  log.WithField("component", "hydrator"),
	}
}

// Hydrate загружает каталог и журнал заказов. Ошибка чтения коллекции
// прерывает загрузку: стартовать с частично восстановленным состоянием
// опаснее, чем не стартовать вовсе.
func (h *Hydrator) Hydrate(ctx context.Context) (HydrationReport, error) {
	var report HydrationReport

	if err := h.hydrateCatalog(ctx, &report); err != nil {
		return report, err
	}
	if err := h.hydrateLedger(ctx, &report); err != nil {
		return report, err
	}

	h.logger.WithFields(log.Fields{
		"products_loaded":      report.ProductsLoaded,
		"products_quarantined": report.ProductsQuarantined,
		"orders_loaded":        report.OrdersLoaded,
		"orders_quarantined":   report.OrdersQuarantined,
	}).Info("state hydrated from document store")

	return report, nil
}

func (h *Hydrator) hydrateCatalog(ctx context.Context, report *HydrationReport) error {
	docs, err := h.store.LoadAll(ctx, domain.CollectionCatalog)
	if err != nil {
		return fmt.Errorf("load collection %s: %w", domain.CollectionCatalog, err)
	}

	for _, doc := range docs {
		product, err := decodeProduct(doc)
		if err != nil {
			h.quarantine(domain.CollectionCatalog, doc.ID, err)
			report.ProductsQuarantined++
			continue
		}

		if err := h.catalog.Add(product); err != nil {
			if errors.Is(err, domain.ErrDuplicateCode) {
				h.quarantine(domain.CollectionCatalog, doc.ID, err)
				report.ProductsQuarantined++
				continue
			}
			return fmt.Errorf("restore product %s: %w", product.Code, err)
		}

		h.metrics.RecordDocumentHydrated(domain.CollectionCatalog)
		report.ProductsLoaded++
	}

	return nil
}

func (h *Hydrator) hydrateLedger(ctx context.Context, report *HydrationReport) error {
	docs, err := h.store.LoadAll(ctx, domain.CollectionHistory)
	if err != nil {
		return fmt.Errorf("load collection %s: %w", domain.CollectionHistory, err)
	}

	for _, doc := range docs {
		order, err := decodeOrder(doc)
		if err != nil {
			h.quarantine(domain.CollectionHistory, doc.ID, err)
			report.OrdersQuarantined++
			continue
		}

		if err := h.ledger.Append(order); err != nil {
			if errors.Is(err, domain.ErrDuplicateOrder) || errors.Is(err, domain.ErrEmptyOrder) {
				h.quarantine(domain.CollectionHistory, doc.ID, err)
				report.OrdersQuarantined++
				continue
			}
			return fmt.Errorf("restore order %s: %w", order.ID, err)
		}

		h.metrics.RecordDocumentHydrated(domain.CollectionHistory)
		report.OrdersLoaded++
	}

	return nil
}

func (h *Hydrator) quarantine(collection, docID string, reason error) {
	h.metrics.RecordDocumentQuarantined(collection)
	h.logger.WithError(reason).WithFields(log.Fields{
		"collection": collection,
		"doc_id":     docID,
	}).Warn("document quarantined during hydration")
}

func decodeProduct(doc domain.Document) (domain.Product, error) {
	decoded, err := domain.DecodeProductDocument(doc.Payload)
	if err != nil {
		return domain.Product{}, err
	}
	return decoded.ToProduct()
}

func decodeOrder(doc domain.Document) (domain.Order, error) {
	decoded, err := domain.DecodeOrderDocument(doc.Payload)
	if err != nil {
		return domain.Order{}, err
	}
	if decoded.ID == "" {
		decoded.ID = doc.ID
	}
	return decoded.ToOrder()
}
