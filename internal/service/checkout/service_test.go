package checkout

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucashmcosta/estoque/internal/domain"
	"github.com/lucashmcosta/estoque/internal/metrics"
	"github.com/lucashmcosta/estoque/internal/storage/memory"
)

type testEnv struct {
	service *Service
	outbox  interface {
		domain.OutboxRepository
		AllPending() []domain.OutboxMessage
	}
	catalog domain.CatalogRepository
	ledger  domain.LedgerRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	outbox := memory.NewOutboxRepository()
	catalog := memory.NewCatalogRepository()
	ledger := memory.NewLedgerRepository()
	service := NewService(catalog, ledger, memory.NewCartRepository(), outbox, metrics.NewCheckoutMetrics())

	return &testEnv{service: service, outbox: outbox, catalog: catalog, ledger: ledger}
}

func testProduct(code, name string, qty float64) domain.Product {
	return domain.Product{
		Code:      code,
		Name:      name,
		Quantity:  qty,
		Unit:      domain.UnitPiece,
		ExpiresAt: time.Now().UTC().AddDate(0, 6, 0),
	}
}

func TestService_RegisterProduct(t *testing.T) {
	env := newTestEnv(t)

	registered, err := env.service.RegisterProduct(testProduct("001", "Arroz 5kg", 10))
	require.NoError(t, err)
	require.Equal(t, "001", registered.Code)
	require.False(t, registered.CreatedAt.IsZero())

	pending := env.outbox.AllPending()
	require.Len(t, pending, 1)
	require.Equal(t, "product.registered", pending[0].EventType)
	require.Equal(t, "001", pending[0].AggregateID)
}

func TestService_RegisterProductDuplicate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.RegisterProduct(testProduct("001", "Arroz 5kg", 10))
	require.NoError(t, err)

	_, err = env.service.RegisterProduct(testProduct("001", "Feijao 1kg", 5))
	require.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestService_RegisterProductInvalid(t *testing.T) {
	env := newTestEnv(t)

	product := testProduct("001", "Arroz 5kg", 10)
	product.Unit = "litro"
	_, err := env.service.RegisterProduct(product)
	require.ErrorIs(t, err, domain.ErrUnitInvalid)

	_, err = env.service.RegisterProduct(testProduct("  ", "Arroz 5kg", 10))
	require.ErrorIs(t, err, domain.ErrProductCodeRequired)
}

func TestService_SearchAvailable(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.RegisterProduct(testProduct("001", "Arroz 5kg", 10))
	require.NoError(t, err)
	_, err = env.service.RegisterProduct(testProduct("002", "Arroz integral", 0))
	require.NoError(t, err)
	_, err = env.service.RegisterProduct(testProduct("003", "Feijao 1kg", 4))
	require.NoError(t, err)

	// Позиции с нулевым остатком не попадают на экран выбора.
	found, err := env.service.SearchAvailable("arroz")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "001", found[0].Code)

	all, err := env.service.SearchAvailable("")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestService_AddToCartSnapshotsName(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.RegisterProduct(testProduct("001", "Arroz 5kg", 10))
	require.NoError(t, err)

	line, err := env.service.AddToCart("s1", "001", 2)
	require.NoError(t, err)
	require.Equal(t, "Arroz 5kg", line.ProductName)
	require.False(t, line.AddedAt.IsZero())
}

func TestService_AddToCartUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.AddToCart("s1", "999", 2)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestService_FinalizeEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	order, finalized, err := env.service.Finalize("s1")
	require.NoError(t, err)
	require.False(t, finalized)
	require.Empty(t, order.ID)

	orders, err := env.service.Orders()
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestService_Finalize(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.RegisterProduct(testProduct("001", "Arroz 5kg", 10))
	require.NoError(t, err)

	_, err = env.service.AddToCart("s1", "001", 3)
	require.NoError(t, err)

	order, finalized, err := env.service.Finalize("s1")
	require.NoError(t, err)
	require.True(t, finalized)
	require.NotEmpty(t, order.ID)
	require.Regexp(t, `^PED-\d+-[0-9a-f]{8}$`, order.Code)
	require.Len(t, order.Lines, 1)

	product, err := env.service.GetProduct("001")
	require.NoError(t, err)
	require.Equal(t, 7.0, product.Quantity)

	stored, err := env.service.Order(order.ID)
	require.NoError(t, err)
	require.Equal(t, order.Code, stored.Code)

	lines, err := env.service.CartLines("s1")
	require.NoError(t, err)
	require.Empty(t, lines)

	// Событие заказа и обновление остатка уходят через outbox.
	var eventTypes []string
	for _, msg := range env.outbox.AllPending() {
		eventTypes = append(eventTypes, msg.EventType)
	}
	require.Contains(t, eventTypes, "order.finalized")
	require.Contains(t, eventTypes, "stock.updated")
}

func TestService_FinalizeInsufficientStock(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.RegisterProduct(testProduct("001", "Arroz 5kg", 2))
	require.NoError(t, err)

	_, err = env.service.AddToCart("s1", "001", 5)
	require.NoError(t, err)

	_, finalized, err := env.service.Finalize("s1")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	require.False(t, finalized)

	// Остаток и корзина не тронуты, пользователь может поправить количество.
	product, err := env.service.GetProduct("001")
	require.NoError(t, err)
	require.Equal(t, 2.0, product.Quantity)

	lines, err := env.service.CartLines("s1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestService_FinalizeDuplicateCodesAggregate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.RegisterProduct(testProduct("001", "Arroz 5kg", 5))
	require.NoError(t, err)

	_, err = env.service.AddToCart("s1", "001", 3)
	require.NoError(t, err)
	_, err = env.service.AddToCart("s1", "001", 3)
	require.NoError(t, err)

	_, _, err = env.service.Finalize("s1")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
}

type failingLedger struct{}

func (failingLedger) Append(domain.Order) error { return errors.New("ledger unavailable") }

func (failingLedger) Get(string) (domain.Order, error) {
	return domain.Order{}, domain.ErrOrderNotFound
}

func (failingLedger) List() ([]domain.Order, error) { return nil, nil }

func TestService_FinalizeLedgerFailureCompensatesStock(t *testing.T) {
	catalog := memory.NewCatalogRepository()
	service := NewService(catalog, failingLedger{}, memory.NewCartRepository(), memory.NewOutboxRepository(), metrics.NewCheckoutMetrics())

	_, err := service.RegisterProduct(testProduct("001", "Arroz 5kg", 10))
	require.NoError(t, err)

	_, err = service.AddToCart("s1", "001", 4)
	require.NoError(t, err)

	_, finalized, err := service.Finalize("s1")
	require.Error(t, err)
	require.False(t, finalized)

	product, err := catalog.Get("001")
	require.NoError(t, err)
	require.Equal(t, 10.0, product.Quantity)
}

func TestService_FinalizeConcurrentDoesNotOversell(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.RegisterProduct(testProduct("001", "Arroz 5kg", 5))
	require.NoError(t, err)

	_, err = env.service.AddToCart("s1", "001", 4)
	require.NoError(t, err)
	_, err = env.service.AddToCart("s2", "001", 4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	finalized := make([]bool, 2)
	for i, session := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(i int, session string) {
			defer wg.Done()
			_, ok, err := env.service.Finalize(session)
			results[i] = err
			finalized[i] = ok
		}(i, session)
	}
	wg.Wait()

	successes := 0
	for i := range results {
		if results[i] == nil && finalized[i] {
			successes++
		} else {
			require.ErrorIs(t, results[i], domain.ErrInsufficientStock)
		}
	}
	require.Equal(t, 1, successes)

	product, err := env.service.GetProduct("001")
	require.NoError(t, err)
	require.Equal(t, 1.0, product.Quantity)
}
