package store

import (
	"context"
	"strings"
)

// Store - простое хранилище ключ-значение.
// Get возвращает found=false, если ключа нет (это не ошибка).
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Scoped добавляет префикс пространства имен ко всем ключам
func Scoped(s Store, namespace string) Store {
	return &scoped{inner: s, prefix: namespace + ":"}
}

type scoped struct {
	inner  Store
	prefix string
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// SplitKey разделяет "ns:key" на пространство имен и ключ
func SplitKey(full string) (namespace, key string) {
	if i := strings.LastIndex(full, ":"); i >= 0 {
		return full[:i], full[i+1:]
	}
	return "", full
}
