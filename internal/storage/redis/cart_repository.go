package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/lucashmcosta/estoque/internal/domain"
)

const (
	cartKeyPrefix  = "estoque:cart:"
	defaultCartTTL = 24 * time.Hour
	opTimeout      = 5 * time.Second
)

// cartRepositoryRedis хранит корзины в redis-списках. Используется при запуске
// нескольких инстансов сервиса: корзина сессии должна быть видна каждому.
type cartRepositoryRedis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository подключается к redis и возвращает реализацию CartRepository.
// Соединение проверяется сразу, чтобы ошибка конфигурации всплыла на старте.
func NewCartRepository(addr, password string, db int) (domain.CartRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &cartRepositoryRedis{client: client, ttl: defaultCartTTL}, nil
}

func cartKey(sessionID string) string {
	return cartKeyPrefix + sessionID
}

// AddLine дописывает позицию в конец списка сессии и продлевает TTL корзины.
func (r *cartRepositoryRedis) AddLine(sessionID string, line domain.CartLine) error {
	if errs := line.ValidateInvariants(); len(errs) > 0 {
		return errs[0]
	}

	payload, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("marshal cart line: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	key := cartKey(sessionID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append cart line: %w", err)
	}

	return nil
}

// Lines возвращает содержимое корзины в порядке добавления.
func (r *cartRepositoryRedis) Lines(sessionID string) ([]domain.CartLine, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	raw, err := r.client.LRange(ctx, cartKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(raw))
	for _, item := range raw {
		var line domain.CartLine
		if err := json.Unmarshal([]byte(item), &line); err != nil {
			return nil, fmt.Errorf("decode cart line: %w", err)
		}
		lines = append(lines, line)
	}

	return lines, nil
}

// Ping проверяет доступность redis (используется health-пробами).
func (r *cartRepositoryRedis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Clear удаляет корзину сессии.
func (r *cartRepositoryRedis) Clear(sessionID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

var _ domain.CartRepository = (*cartRepositoryRedis)(nil)
