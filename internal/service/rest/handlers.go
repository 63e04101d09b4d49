package rest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/lucashmcosta/estoque/internal/domain"
)

type productPayload struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
	ExpiresAt string  `json:"expires_at"`
	Location  string  `json:"location"`
	Lot       string  `json:"lot"`
}

type productResponse struct {
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
	ExpiresAt       string  `json:"expires_at"`
	Location        string  `json:"location,omitempty"`
	Lot             string  `json:"lot,omitempty"`
	ExpiresSoon     bool    `json:"expires_soon"`
	DaysUntilExpiry int     `json:"days_until_expiry"`
}

type cartItemPayload struct {
	ProductCode string  `json:"product_code"`
	Quantity    float64 `json:"quantity"`
}

type cartLineResponse struct {
	ProductCode string  `json:"product_code"`
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	AddedAt     string  `json:"added_at"`
}

type orderResponse struct {
	ID        string             `json:"id"`
	Code      string             `json:"code"`
	CreatedAt string             `json:"created_at"`
	Lines     []cartLineResponse `json:"lines"`
}

func toProductResponse(p domain.Product) productResponse {
	now := time.Now().UTC()
	return productResponse{
		Code:            p.Code,
		Name:            p.Name,
		Quantity:        p.Quantity,
		Unit:            string(p.Unit),
		ExpiresAt:       p.ExpiresAt.UTC().Format(time.RFC3339),
		Location:        p.Location,
		Lot:             p.Lot,
		ExpiresSoon:     p.ExpiresSoon(now),
		DaysUntilExpiry: p.DaysUntilExpiry(now),
	}
}

func toProductResponses(products []domain.Product) []productResponse {
	result := make([]productResponse, 0, len(products))
	for _, p := range products {
		result = append(result, toProductResponse(p))
	}
	return result
}

func toCartLineResponses(lines []domain.CartLine) []cartLineResponse {
	result := make([]cartLineResponse, 0, len(lines))
	for _, line := range lines {
		result = append(result, cartLineResponse{
			ProductCode: line.ProductCode,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			AddedAt:     line.AddedAt.UTC().Format(time.RFC3339),
		})
	}
	return result
}

func toOrderResponse(order domain.Order) orderResponse {
	return orderResponse{
		ID:        order.ID,
		Code:      order.Code,
		CreatedAt: order.CreatedAt.UTC().Format(time.RFC3339),
		Lines:     toCartLineResponses(order.Lines),
	}
}

func (s *Server) createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "unable to parse product"})
	}

	product := domain.Product{
		Code:     payload.Code,
		Name:     payload.Name,
		Quantity: payload.Quantity,
		Unit:     domain.Unit(payload.Unit),
		Location: payload.Location,
		Lot:      payload.Lot,
	}
	if payload.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, payload.ExpiresAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Code: "VALIDATION_FAILED", Message: "expires_at must be RFC3339"})
		}
		product.ExpiresAt = expiresAt
	}

	registered, err := s.service.RegisterProduct(product)
	if err != nil {
		return s.writeDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, toProductResponse(registered))
}

func (s *Server) listProducts(c echo.Context) error {
	products, err := s.service.SearchProducts(c.QueryParam("q"))
	if err != nil {
		return s.writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toProductResponses(products))
}

func (s *Server) listAvailableProducts(c echo.Context) error {
	products, err := s.service.SearchAvailable(c.QueryParam("q"))
	if err != nil {
		return s.writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toProductResponses(products))
}

func (s *Server) getProduct(c echo.Context) error {
	product, err := s.service.GetProduct(c.Param("code"))
	if err != nil {
		return s.writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toProductResponse(product))
}

func (s *Server) addCartItem(c echo.Context) error {
	var payload cartItemPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "unable to parse cart item"})
	}

	line, err := s.service.AddToCart(sessionID(c), payload.ProductCode, payload.Quantity)
	if err != nil {
		return s.writeDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, toCartLineResponses([]domain.CartLine{line})[0])
}

func (s *Server) getCart(c echo.Context) error {
	lines, err := s.service.CartLines(sessionID(c))
	if err != nil {
		return s.writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toCartLineResponses(lines))
}

func (s *Server) clearCart(c echo.Context) error {
	if err := s.service.ClearCart(sessionID(c)); err != nil {
		return s.writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// finalize оформляет заказ из корзины. Пустая корзина — это 204 без заказа,
// поведение мобильного клиента: кнопка просто ничего не делает.
func (s *Server) finalize(c echo.Context) error {
	key := c.Request().Header.Get(HeaderIdempotencyKey)
	if key != "" && s.idempotency != nil {
		return s.finalizeIdempotent(c, key)
	}
	return s.finalizeOnce(c)
}

func (s *Server) finalizeOnce(c echo.Context) error {
	order, finalized, err := s.service.Finalize(sessionID(c))
	if err != nil {
		return s.writeDomainError(c, err)
	}
	if !finalized {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (s *Server) finalizeIdempotent(c echo.Context, key string) error {
	requestHash := checkoutRequestHash(c)

	if _, err := s.idempotency.CreateProcessing(key, requestHash, time.Time{}); err != nil {
		switch {
		case errors.Is(err, domain.ErrIdempotencyHashMismatch):
			return c.JSON(http.StatusUnprocessableEntity, errorResponse{
				Code:    "IDEMPOTENCY_KEY_REUSED",
				Message: "idempotency key was used with a different request",
			})
		case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
			return s.replayIdempotent(c, key)
		default:
			return s.writeDomainError(c, err)
		}
	}

	rec := newResponseRecorder(c)
	err := s.finalizeOnce(c)
	if err != nil {
		if markErr := s.idempotency.MarkFailed(key, nil, http.StatusInternalServerError); markErr != nil {
			s.logger.WithError(markErr).WithField("idempotency_key", key).Warn("mark idempotency failed")
		}
		return err
	}

	status, body := rec.result()
	var markErr error
	if status >= http.StatusBadRequest {
		markErr = s.idempotency.MarkFailed(key, body, status)
	} else {
		markErr = s.idempotency.MarkDone(key, body, status)
	}
	if markErr != nil {
		s.logger.WithError(markErr).WithField("idempotency_key", key).Warn("record idempotency result")
	}

	return nil
}

// replayIdempotent обслуживает повтор запроса с уже известным ключом.
func (s *Server) replayIdempotent(c echo.Context, key string) error {
	record, err := s.idempotency.Get(key)
	if err != nil {
		return s.writeDomainError(c, err)
	}

	switch record.Status {
	case domain.IdempotencyStatusProcessing:
		// Первый запрос ещё выполняется: клиенту следует повторить позже.
		return c.JSON(http.StatusConflict, errorResponse{
			Code:    "REQUEST_IN_PROGRESS",
			Message: "original request is still being processed",
		})
	case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
		s.logger.WithFields(log.Fields{
			"idempotency_key": key,
			"http_status":     record.HTTPStatus,
		}).Debug("idempotent replay served from cache")
		if len(record.ResponseBody) == 0 {
			return c.NoContent(record.HTTPStatus)
		}
		return c.JSONBlob(record.HTTPStatus, record.ResponseBody)
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL", Message: "unknown idempotency status"})
	}
}

// checkoutRequestHash строит отпечаток запроса для проверки повторного
// использования ключа с другим содержимым.
func checkoutRequestHash(c echo.Context) string {
	h := sha256.New()
	io.WriteString(h, c.Request().Method)
	io.WriteString(h, "\n")
	io.WriteString(h, c.Request().URL.Path)
	io.WriteString(h, "\n")
	io.WriteString(h, sessionID(c))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Server) listOrders(c echo.Context) error {
	orders, err := s.service.Orders()
	if err != nil {
		return s.writeDomainError(c, err)
	}

	result := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		result = append(result, toOrderResponse(order))
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) getOrder(c echo.Context) error {
	order, err := s.service.Order(c.Param("id"))
	if err != nil {
		return s.writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(order))
}
