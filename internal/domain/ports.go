package domain

import (
	"context"
	"time"
)

// CatalogRepository описывает требования к хранилищу каталога товаров.
// Порядок выдачи во всех списочных операциях — порядок регистрации позиций.
type CatalogRepository interface {
	// Add регистрирует новую позицию. Возвращает ErrDuplicateCode, если код уже занят.
	Add(product Product) error
	// Get возвращает позицию по коду или ErrProductNotFound.
	Get(code string) (Product, error)
	// Decrement списывает amount с остатка. Остаток никогда не уходит в минус:
	// при нехватке возвращается ErrInsufficientStock без частичного списания.
	Decrement(code string, amount float64) (Product, error)
	// DecrementBatch атомарно списывает остатки по всем позициям корзины:
	// сначала проверяются все позиции (дубликаты кода суммируются), и только
	// затем применяются списания. Возвращает обновлённые снимки товаров.
	DecrementBatch(lines []CartLine) ([]Product, error)
	// IncrementBatch возвращает остатки по позициям корзины. Используется как
	// компенсация, если заказ не удалось записать в журнал после списания.
	IncrementBatch(lines []CartLine) ([]Product, error)
	// Search возвращает позиции, подходящие под запрос (подстрока названия
	// без учёта регистра либо подстрока кода).
	Search(query string) ([]Product, error)
	// ListAvailable возвращает только позиции с положительным остатком.
	ListAvailable() ([]Product, error)
	// List возвращает весь каталог.
	List() ([]Product, error)
}

// LedgerRepository описывает журнал заказов: только добавление в конец.
type LedgerRepository interface {
	// Append записывает заказ в конец журнала. Возвращает ErrEmptyOrder для
	// заказа без позиций и ErrDuplicateOrder при повторном идентификаторе.
	Append(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(id string) (Order, error)
	// List возвращает все заказы в порядке записи (свежие в конце).
	List() ([]Order, error)
}

// CartRepository хранит корзины, привязанные к сессии пользователя.
type CartRepository interface {
	// AddLine добавляет снимок позиции в конец корзины сессии.
	AddLine(sessionID string, line CartLine) error
	// Lines возвращает копию содержимого корзины в порядке добавления.
	Lines(sessionID string) ([]CartLine, error)
	// Clear опустошает корзину сессии.
	Clear(sessionID string) error
}

// EventPublisher публикует события из transactional outbox.
type EventPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// Имена коллекций внешнего документного хранилища. Совпадают с коллекциями
// мобильного приложения, чтобы обе стороны видели одни и те же данные.
const (
	CollectionCatalog = "estoque"
	CollectionHistory = "historico"
)

// Document — непрозрачная запись документного хранилища до валидации на границе.
type Document struct {
	ID      string
	Payload []byte
}

// DocumentStore описывает внешнее документное хранилище. Ядро обязано корректно
// работать и без него: загрузка выполняется один раз на старте, запись — асинхронно.
type DocumentStore interface {
	// LoadAll возвращает все документы коллекции.
	LoadAll(ctx context.Context, collection string) ([]Document, error)
	// Upsert записывает актуальное состояние документа.
	Upsert(ctx context.Context, collection, id string, payload []byte) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
