package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"toy-rental-pricing/internal/logger"
)

// Reloader - каталог, который умеет перечитывать свой файл
type Reloader interface {
	Reload() error
	Len() int
}

// Scheduler - периодические задачи сервиса (cron с секундами, UTC)
type Scheduler struct {
	cron *cron.Cron
}

// New регистрирует перезагрузку каталога по расписанию schedule
func New(schedule string, catalog Reloader) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	if _, err := c.AddFunc(schedule, ReloadCatalog(catalog)); err != nil {
		return nil, fmt.Errorf("invalid catalog reload schedule %q: %w", schedule, err)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	logger.Info("Планировщик запущен", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop останавливает планировщик; контекст завершается после текущих задач
func (s *Scheduler) Stop() context.Context {
	logger.Info("Планировщик остановлен")
	return s.cron.Stop()
}

// ReloadCatalog - задача перезагрузки каталога. При ошибке остается прежний каталог.
func ReloadCatalog(catalog Reloader) func() {
	return func() {
		if err := catalog.Reload(); err != nil {
			logger.Error("Ошибка перезагрузки каталога", "error", err)
			return
		}
		logger.Debug("Каталог перезагружен", "items", catalog.Len())
	}
}
