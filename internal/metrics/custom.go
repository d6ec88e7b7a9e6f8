package metrics

import (
	"sync"
	"time"
)

// Window - счетчик запросов за последние сутки
type Window struct {
	mu         sync.Mutex
	timestamps []time.Time
	now        func() time.Time
}

func NewWindow() *Window {
	return &Window{now: time.Now}
}

// Record - зарегистрировать один запрос
func (w *Window) Record() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.timestamps = append(w.timestamps, now)

	// Удалим всё, что старше суток
	cutoff := now.Add(-24 * time.Hour)
	i := 0
	for ; i < len(w.timestamps); i++ {
		if w.timestamps[i].After(cutoff) {
			break
		}
	}
	w.timestamps = w.timestamps[i:]
}

// CountSince - количество запросов за последние d
func (w *Window) CountSince(d time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-d)
	count := 0
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			count++
		}
	}
	return count
}

// Snapshot - запросы за минуту, час и сутки
func (w *Window) Snapshot() map[string]int {
	return map[string]int{
		"requests_last_minute": w.CountSince(time.Minute),
		"requests_last_hour":   w.CountSince(time.Hour),
		"requests_last_day":    w.CountSince(24 * time.Hour),
	}
}
