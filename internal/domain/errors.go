package domain

import "errors"

var (
	// Ошибка отсутствующего кода товара.
	ErrProductCodeRequired = errors.New("product code is required")
	// Ошибка отсутствующего названия товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отрицательного остатка.
	ErrQuantityNegative = errors.New("product quantity must be non-negative")
	// Ошибка неизвестной единицы измерения.
	ErrUnitInvalid = errors.New("product unit is invalid")
	// Ошибка отсутствующего срока годности.
	ErrExpirationRequired = errors.New("product expiration date is required")
	// Ошибка отсутствующего кода товара в позиции корзины.
	ErrLineCodeRequired = errors.New("cart line product code is required")
	// Ошибка при некорректном количестве в позиции корзины (<= 0).
	ErrLineQtyInvalid = errors.New("cart line quantity must be greater than zero")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order id is required")

	// ErrDuplicateCode возвращается при регистрации товара с уже занятым кодом.
	ErrDuplicateCode = errors.New("product code already registered")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock — списание превышает текущий остаток.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDecrementInvalid — списание с нулевым или отрицательным количеством.
	ErrDecrementInvalid = errors.New("decrement amount must be greater than zero")
	// ErrEmptyOrder — попытка записать в журнал заказ без позиций.
	ErrEmptyOrder = errors.New("order must contain at least one line")
	// ErrDuplicateOrder — заказ с таким идентификатором уже записан в журнал.
	ErrDuplicateOrder = errors.New("order id already recorded")
	// ErrOrderNotFound возвращается, если заказа нет в журнале.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой хеш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован с тем же запросом.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyKeyNotFound — записи с таким ключом нет.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyHashMismatch — ключ уже использован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key used with different request")
)

// IsStockConflict проверяет, является ли ошибка нехваткой остатка.
func IsStockConflict(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}
