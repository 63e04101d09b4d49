package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucashmcosta/estoque/internal/metrics"
	"github.com/lucashmcosta/estoque/internal/service/checkout"
	"github.com/lucashmcosta/estoque/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	service := checkout.NewService(
		memory.NewCatalogRepository(),
		memory.NewLedgerRepository(),
		memory.NewCartRepository(),
		memory.NewOutboxRepository(),
		metrics.NewCheckoutMetrics(),
	)
	return NewServer(service, memory.NewIdempotencyRepository())
}

func doRequest(t *testing.T, s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echoHeaderContentType, "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func registerTestProduct(t *testing.T, s *Server, code, name string, qty float64) {
	t.Helper()

	expires := time.Now().UTC().AddDate(0, 6, 0).Format(time.RFC3339)
	body := `{"code":"` + code + `","name":"` + name + `","quantity":` + jsonNumber(qty) + `,"unit":"un","expires_at":"` + expires + `"}`
	rec := doRequest(t, s, http.MethodPost, "/api/v1/products", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func TestCreateProduct(t *testing.T) {
	s := newTestServer(t)

	expires := time.Now().UTC().AddDate(0, 6, 0).Format(time.RFC3339)
	rec := doRequest(t, s, http.MethodPost, "/api/v1/products",
		`{"code":"001","name":"Arroz 5kg","quantity":10,"unit":"kg","expires_at":"`+expires+`","location":"A1","lot":"L42"}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "001", resp["code"])
	require.Equal(t, "Arroz 5kg", resp["name"])
	require.Equal(t, false, resp["expires_soon"])
}

func TestCreateProductDuplicate(t *testing.T) {
	s := newTestServer(t)
	registerTestProduct(t, s, "001", "Arroz 5kg", 10)

	expires := time.Now().UTC().AddDate(0, 6, 0).Format(time.RFC3339)
	rec := doRequest(t, s, http.MethodPost, "/api/v1/products",
		`{"code":"001","name":"Outro","quantity":5,"unit":"un","expires_at":"`+expires+`"}`, nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "DUPLICATE_CODE")
}

func TestCreateProductValidation(t *testing.T) {
	s := newTestServer(t)

	expires := time.Now().UTC().AddDate(0, 6, 0).Format(time.RFC3339)
	rec := doRequest(t, s, http.MethodPost, "/api/v1/products",
		`{"code":"001","name":"Arroz","quantity":5,"unit":"litro","expires_at":"`+expires+`"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION_FAILED")

	rec = doRequest(t, s, http.MethodPost, "/api/v1/products",
		`{"code":"002","name":"Arroz","quantity":5,"unit":"un","expires_at":"amanha"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProductNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/products/999", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "PRODUCT_NOT_FOUND")
}

func TestListAvailableProducts(t *testing.T) {
	s := newTestServer(t)
	registerTestProduct(t, s, "001", "Arroz 5kg", 10)
	registerTestProduct(t, s, "002", "Arroz integral", 0)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/products/available?q=arroz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var products []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	require.Equal(t, "001", products[0]["code"])
}

func TestCartFlow(t *testing.T) {
	s := newTestServer(t)
	registerTestProduct(t, s, "001", "Arroz 5kg", 10)

	headers := map[string]string{HeaderSessionID: "device-1"}

	rec := doRequest(t, s, http.MethodPost, "/api/v1/cart/items",
		`{"product_code":"001","quantity":2}`, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, s, http.MethodGet, "/api/v1/cart", "", headers)
	require.Equal(t, http.StatusOK, rec.Code)

	var lines []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lines))
	require.Len(t, lines, 1)
	require.Equal(t, "Arroz 5kg", lines[0]["product_name"])

	// Другая сессия видит пустую корзину.
	rec = doRequest(t, s, http.MethodGet, "/api/v1/cart", "", map[string]string{HeaderSessionID: "device-2"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())

	rec = doRequest(t, s, http.MethodDelete, "/api/v1/cart", "", headers)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/cart", "", headers)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestAddCartItemUnknownProduct(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/cart/items",
		`{"product_code":"999","quantity":2}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutFlow(t *testing.T) {
	s := newTestServer(t)
	registerTestProduct(t, s, "001", "Arroz 5kg", 10)

	headers := map[string]string{HeaderSessionID: "device-1"}

	rec := doRequest(t, s, http.MethodPost, "/api/v1/cart/items",
		`{"product_code":"001","quantity":3}`, headers)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/checkout", "", headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var order map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.Contains(t, order["code"], "PED-")

	// Остаток списан.
	rec = doRequest(t, s, http.MethodGet, "/api/v1/products/001", "", nil)
	var product map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
	require.Equal(t, 7.0, product["quantity"])

	// Заказ появился в журнале.
	rec = doRequest(t, s, http.MethodGet, "/api/v1/orders", "", nil)
	var orders []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
}

func TestCheckoutEmptyCart(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/checkout", "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	s := newTestServer(t)
	registerTestProduct(t, s, "001", "Arroz 5kg", 2)

	headers := map[string]string{HeaderSessionID: "device-1"}
	rec := doRequest(t, s, http.MethodPost, "/api/v1/cart/items",
		`{"product_code":"001","quantity":5}`, headers)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/checkout", "", headers)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "INSUFFICIENT_STOCK")

	// Корзина сохранена для исправления.
	rec = doRequest(t, s, http.MethodGet, "/api/v1/cart", "", headers)
	var lines []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lines))
	require.Len(t, lines, 1)
}

func TestCheckoutIdempotentReplay(t *testing.T) {
	s := newTestServer(t)
	registerTestProduct(t, s, "001", "Arroz 5kg", 10)

	headers := map[string]string{
		HeaderSessionID:      "device-1",
		HeaderIdempotencyKey: "key-123",
	}

	rec := doRequest(t, s, http.MethodPost, "/api/v1/cart/items",
		`{"product_code":"001","quantity":3}`, map[string]string{HeaderSessionID: "device-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	first := doRequest(t, s, http.MethodPost, "/api/v1/checkout", "", headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	// Повтор с тем же ключом возвращает кешированный ответ и не списывает повторно.
	second := doRequest(t, s, http.MethodPost, "/api/v1/checkout", "", headers)
	require.Equal(t, http.StatusCreated, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())

	rec = doRequest(t, s, http.MethodGet, "/api/v1/products/001", "", nil)
	var product map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
	require.Equal(t, 7.0, product["quantity"])
}

func TestCheckoutIdempotencyKeyReuse(t *testing.T) {
	s := newTestServer(t)
	registerTestProduct(t, s, "001", "Arroz 5kg", 10)

	headers := map[string]string{
		HeaderSessionID:      "device-1",
		HeaderIdempotencyKey: "key-123",
	}
	rec := doRequest(t, s, http.MethodPost, "/api/v1/cart/items",
		`{"product_code":"001","quantity":3}`, map[string]string{HeaderSessionID: "device-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/checkout", "", headers)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Тот же ключ из другой сессии — другой отпечаток запроса.
	rec = doRequest(t, s, http.MethodPost, "/api/v1/checkout", "", map[string]string{
		HeaderSessionID:      "device-2",
		HeaderIdempotencyKey: "key-123",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "IDEMPOTENCY_KEY_REUSED")
}

func TestGetOrderNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/orders/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "ORDER_NOT_FOUND")
}
