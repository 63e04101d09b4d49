package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/lucashmcosta/estoque/internal/domain"
	"github.com/lucashmcosta/estoque/internal/service/checkout"
)

// HeaderSessionID определяет корзину вызывающей стороны. Мобильный клиент
// передаёт свой идентификатор устройства; без заголовка используется
// общая сессия по умолчанию.
const (
	HeaderSessionID      = "X-Session-Id"
	HeaderIdempotencyKey = "Idempotency-Key"

	defaultSessionID = "default"
)

// Server — HTTP-интерфейс сервиса: каталог, корзина, финализация заказов.
type Server struct {
	echo        *echo.Echo
	service     *checkout.Service
	idempotency domain.IdempotencyRepository
	logger      *log.Entry
}

// NewServer собирает echo-сервер с маршрутами API.
// idempotencyRepo может быть nil: тогда заголовок Idempotency-Key игнорируется.
func NewServer(service *checkout.Service, idempotencyRepo domain.IdempotencyRepository) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		echo:        e,
		service:     service,
		idempotency: idempotencyRepo,
		logger:      log.WithField("component", "rest-server"),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.echo.Group("/api/v1")

	api.POST("/products", s.createProduct)
	api.GET("/products", s.listProducts)
	api.GET("/products/available", s.listAvailableProducts)
	api.GET("/products/:code", s.getProduct)

	api.POST("/cart/items", s.addCartItem)
	api.GET("/cart", s.getCart)
	api.DELETE("/cart", s.clearCart)

	api.POST("/checkout", s.finalize)

	api.GET("/orders", s.listOrders)
	api.GET("/orders/:id", s.getOrder)
}

// Start запускает HTTP-сервер; блокируется до остановки.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler отдаёт http.Handler для тестов.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func sessionID(c echo.Context) string {
	if id := c.Request().Header.Get(HeaderSessionID); id != "" {
		return id
	}
	return defaultSessionID
}

// errorResponse — единый формат ошибок API.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeDomainError транслирует доменные ошибки в HTTP-статусы.
func (s *Server) writeDomainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrDuplicateCode):
		return c.JSON(http.StatusConflict, errorResponse{Code: "DUPLICATE_CODE", Message: err.Error()})
	case errors.Is(err, domain.ErrProductNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Code: "PRODUCT_NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Code: "ORDER_NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.JSON(http.StatusConflict, errorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()})
	case errors.Is(err, domain.ErrEmptyOrder):
		return c.JSON(http.StatusBadRequest, errorResponse{Code: "EMPTY_ORDER", Message: err.Error()})
	case errors.Is(err, domain.ErrProductCodeRequired),
		errors.Is(err, domain.ErrProductNameRequired),
		errors.Is(err, domain.ErrQuantityNegative),
		errors.Is(err, domain.ErrUnitInvalid),
		errors.Is(err, domain.ErrExpirationRequired),
		errors.Is(err, domain.ErrLineCodeRequired),
		errors.Is(err, domain.ErrLineQtyInvalid):
		return c.JSON(http.StatusBadRequest, errorResponse{Code: "VALIDATION_FAILED", Message: err.Error()})
	default:
		s.logger.WithError(err).Error("internal error")
		return c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL", Message: "internal server error"})
	}
}
