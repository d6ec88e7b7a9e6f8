package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"toy-rental-pricing/internal/logger"
	"toy-rental-pricing/internal/store"
)

// Connect - подключение к PostgreSQL через драйвер pgx
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть подключение к БД: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД: %w", err)
	}

	logger.Info("Подключение к PostgreSQL успешно")
	return conn, nil
}

// KVRepository - хранилище ключ-значение в таблице kv_records.
// Ключ вида "ns:key" раскладывается на колонки namespace и key.
type KVRepository struct {
	db *sql.DB
}

var _ store.Store = (*KVRepository)(nil)

func NewKVRepository(db *sql.DB) *KVRepository {
	return &KVRepository{db: db}
}

// EnsureSchema создает таблицу, если её нет
func (r *KVRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv_records (
			namespace  TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (namespace, key)
		)
	`)
	if err != nil {
		return fmt.Errorf("ошибка создания таблицы kv_records: %w", err)
	}
	return nil
}

// Get - получение значения по ключу
func (r *KVRepository) Get(ctx context.Context, fullKey string) (string, bool, error) {
	ns, key := store.SplitKey(fullKey)

	var value string
	err := r.db.QueryRowContext(ctx, `
		SELECT value
		FROM kv_records
		WHERE namespace = $1 AND key = $2
	`, ns, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ошибка при получении записи %s: %w", fullKey, err)
	}
	return value, true, nil
}

// Set - добавление или изменение записи
func (r *KVRepository) Set(ctx context.Context, fullKey, value string) error {
	ns, key := store.SplitKey(fullKey)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_records (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, ns, key, value)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении записи %s: %w", fullKey, err)
	}
	return nil
}

// Delete - удаление записи
func (r *KVRepository) Delete(ctx context.Context, fullKey string) error {
	ns, key := store.SplitKey(fullKey)

	_, err := r.db.ExecContext(ctx, `
		DELETE FROM kv_records WHERE namespace = $1 AND key = $2
	`, ns, key)
	if err != nil {
		return fmt.Errorf("ошибка при удалении записи %s: %w", fullKey, err)
	}
	return nil
}
