package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lucashmcosta/estoque/internal/domain"
)

const docQueryTimeout = 10 * time.Second

// documentStore — документное зеркало состояния сервиса в PostgreSQL.
// Таблица documents хранит JSON-снимки по коллекциям; авторитетным источником
// остаётся память процесса, зеркало нужно для восстановления после рестарта.
type documentStore struct {
	store *Store
}

// NewDocumentStore возвращает реализацию DocumentStore поверх открытого Store.
func NewDocumentStore(store *Store) domain.DocumentStore {
	return &documentStore{store: store}
}

// LoadAll читает все документы коллекции. Порядок по updated_at, чтобы
// гидрация воспроизводила последовательность записи.
func (d *documentStore) LoadAll(ctx context.Context, collection string) ([]domain.Document, error) {
	queryCtx, cancel := context.WithTimeout(ctx, docQueryTimeout)
	defer cancel()

	rows, err := d.store.db.QueryContext(queryCtx, `
		SELECT doc_id, payload
		FROM documents
		WHERE collection = $1
		ORDER BY updated_at ASC
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("query documents %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Payload); err != nil {
			return nil, fmt.Errorf("scan document %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents %s: %w", collection, err)
	}

	return docs, nil
}

// Upsert записывает документ, перезаписывая предыдущий снимок с тем же id.
func (d *documentStore) Upsert(ctx context.Context, collection, id string, payload []byte) error {
	if !json.Valid(payload) {
		return fmt.Errorf("document %s/%s: payload is not valid json", collection, id)
	}

	queryCtx, cancel := context.WithTimeout(ctx, docQueryTimeout)
	defer cancel()

	if _, err := d.store.db.ExecContext(queryCtx, `
		INSERT INTO documents (collection, doc_id, payload, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, doc_id)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`, collection, id, payload); err != nil {
		return fmt.Errorf("upsert document %s/%s: %w", collection, id, err)
	}

	return nil
}

var _ domain.DocumentStore = (*documentStore)(nil)
