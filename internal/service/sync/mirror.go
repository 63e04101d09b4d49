package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/lucashmcosta/estoque/internal/domain"
)

const mirrorWriteTimeout = 10 * time.Second

// MirrorPublisher записывает события outbox в документное зеркало: снимки
// товаров в коллекцию `estoque`, заказы в `historico`.
type MirrorPublisher struct {
	store domain.DocumentStore
}

// NewMirrorPublisher создаёт publisher поверх документного хранилища.
func NewMirrorPublisher(store domain.DocumentStore) *MirrorPublisher {
	return &MirrorPublisher{store: store}
}

func (p *MirrorPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.store == nil {
		return fmt.Errorf("mirror publisher is not initialized")
	}

	collection, err := collectionFor(event.AggregateType)
	if err != nil {
		return err
	}
	if event.AggregateID == "" {
		return fmt.Errorf("event %s: aggregate id is required", event.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mirrorWriteTimeout)
	defer cancel()

	return p.store.Upsert(ctx, collection, event.AggregateID, event.Payload)
}

func collectionFor(aggregateType string) (string, error) {
	switch aggregateType {
	case "product":
		return domain.CollectionCatalog, nil
	case "order":
		return domain.CollectionHistory, nil
	default:
		return "", fmt.Errorf("unknown aggregate type %q", aggregateType)
	}
}

var _ domain.EventPublisher = (*MirrorPublisher)(nil)

// FanoutPublisher доставляет событие каждому из publishers. Ошибка любого
// получателя делает доставку неуспешной целиком, чтобы retry в воркере
// повторил её; получатели обязаны быть идемпотентными.
type FanoutPublisher struct {
	publishers []domain.EventPublisher
}

// NewFanoutPublisher собирает несколько publishers в один. Nil-записи
// пропускаются, что упрощает сборку с опциональными компонентами.
func NewFanoutPublisher(publishers ...domain.EventPublisher) *FanoutPublisher {
	active := make([]domain.EventPublisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			active = append(active, p)
		}
	}
	return &FanoutPublisher{publishers: active}
}

// Empty сообщает, остались ли активные получатели.
func (p *FanoutPublisher) Empty() bool {
	return len(p.publishers) == 0
}

func (p *FanoutPublisher) Publish(event domain.OutboxMessage) error {
	for _, publisher := range p.publishers {
		if err := publisher.Publish(event); err != nil {
			return err
		}
	}
	return nil
}

var _ domain.EventPublisher = (*FanoutPublisher)(nil)
