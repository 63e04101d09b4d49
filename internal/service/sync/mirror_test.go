package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/lucashmcosta/estoque/internal/domain"
)

type upsertCall struct {
	collection string
	id         string
	payload    []byte
}

// fakeDocumentStore записывает upsert-вызовы и отдаёт подготовленные документы.
type fakeDocumentStore struct {
	upserts  []upsertCall
	docs     map[string][]domain.Document
	loadErr  error
	writeErr error
}

func (s *fakeDocumentStore) LoadAll(_ context.Context, collection string) ([]domain.Document, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.docs[collection], nil
}

func (s *fakeDocumentStore) Upsert(_ context.Context, collection, id string, payload []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.upserts = append(s.upserts, upsertCall{collection: collection, id: id, payload: payload})
	return nil
}

func TestMirrorPublisher_ProductGoesToCatalogCollection(t *testing.T) {
	store := &fakeDocumentStore{}
	publisher := NewMirrorPublisher(store)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "msg-1",
		AggregateType: "product",
		AggregateID:   "001",
		EventType:     "stock.updated",
		Payload:       []byte(`{"codigo":"001"}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if len(store.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upserts))
	}
	if store.upserts[0].collection != domain.CollectionCatalog || store.upserts[0].id != "001" {
		t.Fatalf("unexpected upsert target: %+v", store.upserts[0])
	}
}

func TestMirrorPublisher_OrderGoesToHistoryCollection(t *testing.T) {
	store := &fakeDocumentStore{}
	publisher := NewMirrorPublisher(store)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "msg-2",
		AggregateType: "order",
		AggregateID:   "ord-1",
		EventType:     "order.finalized",
		Payload:       []byte(`{"id":"ord-1"}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if store.upserts[0].collection != domain.CollectionHistory {
		t.Fatalf("expected history collection, got %s", store.upserts[0].collection)
	}
}

func TestMirrorPublisher_UnknownAggregate(t *testing.T) {
	publisher := NewMirrorPublisher(&fakeDocumentStore{})

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "msg-3",
		AggregateType: "payment",
		AggregateID:   "p-1",
	})
	if err == nil {
		t.Fatal("expected error for unknown aggregate type")
	}
}

func TestMirrorPublisher_MissingAggregateID(t *testing.T) {
	publisher := NewMirrorPublisher(&fakeDocumentStore{})

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "msg-4",
		AggregateType: "product",
	})
	if err == nil {
		t.Fatal("expected error for missing aggregate id")
	}
}

func TestFanoutPublisher_DeliversToAll(t *testing.T) {
	first := &fakePublisher{}
	second := &fakePublisher{}

	fanout := NewFanoutPublisher(first, nil, second)
	if fanout.Empty() {
		t.Fatal("fanout should not be empty")
	}

	if err := fanout.Publish(domain.OutboxMessage{ID: "msg-1"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("expected both publishers to receive the event: %d %d", len(first.events), len(second.events))
	}
}

func TestFanoutPublisher_PropagatesError(t *testing.T) {
	failing := &fakePublisher{failFirst: 100}
	second := &fakePublisher{}

	fanout := NewFanoutPublisher(failing, second)
	if err := fanout.Publish(domain.OutboxMessage{ID: "msg-1"}); err == nil {
		t.Fatal("expected error from failing publisher")
	}
	if len(second.events) != 0 {
		t.Fatal("delivery must stop at the first failure")
	}
}

func TestFanoutPublisher_Empty(t *testing.T) {
	fanout := NewFanoutPublisher(nil, nil)
	if !fanout.Empty() {
		t.Fatal("expected empty fanout")
	}
	if err := fanout.Publish(domain.OutboxMessage{ID: "msg-1"}); err != nil {
		t.Fatalf("empty fanout must be a no-op, got %v", err)
	}
}

func TestMirrorPublisher_StoreError(t *testing.T) {
	store := &fakeDocumentStore{writeErr: errors.New("connection reset")}
	publisher := NewMirrorPublisher(store)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "msg-5",
		AggregateType: "product",
		AggregateID:   "001",
	})
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
}
