package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"toy-rental-pricing/internal/api"
	"toy-rental-pricing/internal/catalog"
	"toy-rental-pricing/internal/config"
	"toy-rental-pricing/internal/db"
	"toy-rental-pricing/internal/iso"
	"toy-rental-pricing/internal/kafka"
	"toy-rental-pricing/internal/logger"
	"toy-rental-pricing/internal/metrics"
	"toy-rental-pricing/internal/scheduler"
	"toy-rental-pricing/internal/service"
	"toy-rental-pricing/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("Ошибка загрузки конфигурации", "error", err)
		os.Exit(1)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("Сервис остановлен с ошибкой", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	logger.Info("Каталог загружен", "path", cfg.Catalog.Path, "items", cat.Len())

	kv, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	metrics.Init()

	admins := make(map[string]string, len(cfg.Auth.Admins))
	for _, a := range cfg.Auth.Admins {
		admins[a.Username] = a.PasswordHash
	}

	admin := service.NewPricingAdmin(cat, kv)
	quoter := service.NewQuoter(admin, cfg.Pricing.StrictValidation, metrics.Calculations{})
	auth := service.NewAuthService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute, admins)

	handler := api.NewHandler(quoter, admin, auth, metrics.NewWindow())
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(handler, cfg.Server.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sched, err := scheduler.New(cfg.Scheduler.CatalogReload, cat)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	var wg sync.WaitGroup
	if cfg.Kafka.Enabled {
		startKafka(ctx, &wg, cfg.Kafka, quoter)
	}
	if cfg.ISO.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := iso.NewServer(quoter).ListenAndServe(ctx, net.JoinHostPort("", cfg.ISO.Port)); err != nil {
				logger.Error("ISO8583 сервер остановлен", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Сервер запущен", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Остановка сервиса")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки HTTP сервера", "error", err)
	}
	wg.Wait()
	return nil
}

// openStore - хранилище изменений администратора по store.driver
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case "redis":
		r := store.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, nil, err
		}
		logger.Info("Хранилище: Redis", "addr", cfg.Redis.Addr)
		return r, func() { r.Close() }, nil

	case "postgres":
		conn, err := db.Connect(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, err
		}
		repo := db.NewKVRepository(conn)
		if err := repo.EnsureSchema(ctx); err != nil {
			conn.Close()
			return nil, nil, err
		}
		logger.Info("Хранилище: PostgreSQL", "host", cfg.Database.Host, "db", cfg.Database.Name)
		return repo, func() { conn.Close() }, nil

	default:
		logger.Info("Хранилище: память процесса")
		return store.NewMemory(), func() {}, nil
	}
}

func startKafka(ctx context.Context, wg *sync.WaitGroup, cfg config.KafkaConfig, quoter *service.Quoter) {
	var consumers []*kafka.Consumer
	if cfg.JSONRequestTopic != "" {
		consumers = append(consumers, kafka.NewJSONConsumer(
			kafka.NewReader(cfg.Brokers, cfg.JSONRequestTopic, cfg.GroupID),
			kafka.NewWriter(cfg.Brokers, cfg.JSONResponseTopic),
			quoter,
		))
	}
	if cfg.XMLRequestTopic != "" {
		consumers = append(consumers, kafka.NewXMLConsumer(
			kafka.NewReader(cfg.Brokers, cfg.XMLRequestTopic, cfg.GroupID+"-xml"),
			kafka.NewWriter(cfg.Brokers, cfg.XMLResponseTopic),
			quoter,
		))
	}

	for _, c := range consumers {
		wg.Add(1)
		go func(c *kafka.Consumer) {
			defer wg.Done()
			if err := c.Run(ctx); err != nil {
				logger.Error("Kafka consumer остановлен", "error", err)
			}
		}(c)
	}
}
