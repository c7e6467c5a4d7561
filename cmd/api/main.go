// @title           Invoice Ingestion API
// @version         1.0
// @description     Receives upload notifications, extracts invoice fields from stored documents and serves per-owner reports.
// @termsOfService  http://swagger.io/terms/

// @contact.name    G4
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/data/redisStore"
	"github.com/fhiba/2025Q2-G4/internal/data/store"
	"github.com/fhiba/2025Q2-G4/internal/document"
	"github.com/fhiba/2025Q2-G4/internal/handlers"
	"github.com/fhiba/2025Q2-G4/internal/queue"
	"github.com/fhiba/2025Q2-G4/internal/server"
	"github.com/fhiba/2025Q2-G4/internal/trigger"
	"github.com/fhiba/2025Q2-G4/internal/worker"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

func main() {
	var configPath, listenAddr string
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger_i.Init(false)
		logger_i.NewLogger("main").Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	logger_i.Init(cfg.Prod)
	var logger = logger_i.NewLogger("main")

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	records, closeRecords, err := store.Open(serviceContext, cfg)
	if err != nil {
		logger.Error("Record store is offline", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}

	queueStore, err := redisStore.Connect(serviceContext, redisStore.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.QueueDB,
	})
	if err != nil {
		logger.Error("Work queue is offline", "error", err)
		_ = closeRecords()
		os.Exit(1)
	}
	workQueue := queue.NewRedisQueue(queueStore, queue.OptionsFromConfig(cfg))

	fetcher, closeFetcher, err := document.OpenFetcher(serviceContext, cfg)
	if err != nil {
		logger.Error("Document storage is unavailable", "backend", cfg.Documents.FetchBackend, "error", err)
		_ = queueStore.Close()
		_ = closeRecords()
		os.Exit(1)
	}

	processor := worker.NewProcessor(document.ReaderFromConfig(fetcher, cfg), records)
	ingestion := trigger.New(workQueue, cfg.Trigger.Concurrency)

	logger.Info("Starting worker pool", "min", cfg.Workers.Min, "max", cfg.Workers.Max)
	pool := worker.NewPool(workQueue, processor, worker.PoolOptionsFromConfig(cfg))
	pool.Start(serviceContext)

	h, err := handlers.NewHandler(handlers.Dependencies{
		Trigger:   ingestion,
		Processor: processor,
		Records:   records,
		HealthChecks: map[string]handlers.HealthCheck{
			"queue": queueStore.Ping,
		},
	})
	if err != nil {
		logger.Error("Could not build request handlers", "error", err)
		os.Exit(1)
	}

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	srv := server.CreateServer(cfg.ListenAddr, h)
	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		Workers:          pool,
		CloseServices: func() {
			closeExternalServices()
			for name, closeFn := range map[string]func() error{
				"records":   closeRecords,
				"queue":     queueStore.Close,
				"documents": closeFetcher,
			} {
				if err := closeFn(); err != nil {
					logger.Error("Error closing service", "service", name, "error", err)
				}
			}
		},
	}
	go srv.ShutDownHandler(shutdownParams)
	go srv.ListenAndServe()

	<-stopExecution
	logger.Info("Server stopped")
}
