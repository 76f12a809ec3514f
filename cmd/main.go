package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpapi "august/internal/http"
	"august/internal/metrics"
	"august/internal/notify"
	"august/internal/picklist"
	"august/internal/provider"
	"august/internal/repository"
	"august/internal/service"
	"august/internal/storage"

	_ "august/docs"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	addr := ":" + getenv("PORT", "9091")
	labelsDir := getenv("LABELS_DIR", "data/labels")
	picklistDir := getenv("PICKLIST_DIR", "data/picklists")
	kafkaBrokers := getenv("KAFKA_BROKERS", "")
	kafkaTopic := getenv("KAFKA_TOPIC", "order-notifications")

	store := repository.NewMemoryStore()
	orders := repository.NewMemoryOrders(store)
	logs := repository.NewMemoryStatusLogs(store)
	tx := repository.NewMemoryTx(store)

	ctx := context.Background()
	if err := service.Bootstrap(ctx, store, store, logger); err != nil {
		logger.Fatal("bootstrap failed", zap.Error(err))
	}
	settings, err := store.Get(ctx)
	if err != nil {
		logger.Fatal("settings unavailable", zap.Error(err))
	}

	var dispatcher notify.Dispatcher = notify.NewLogDispatcher(logger)
	if kafka := notify.NewKafkaDispatcher(kafkaBrokers, kafkaTopic); kafka != nil {
		defer kafka.Close()
		dispatcher = kafka
		logger.Info("notifications via kafka", zap.String("topic", kafkaTopic))
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	registry := provider.NewRegistry(
		[]provider.ShippingProvider{
			provider.NewPostNL(httpClient, settings.ShopAddress),
			provider.NewDHL(),
			provider.NewDPD(),
		},
		[]provider.PaymentProvider{
			provider.NewPayPal(httpClient),
			provider.NewBankTransfer(),
		},
	)

	m := metrics.NewServerMetrics()
	ledger := service.NewStockLedger(store)
	machine := service.NewStatusMachine(orders, logs, ledger, dispatcher, picklist.NewFileGenerator(picklistDir), tx, logger, m)

	srv := httpapi.NewServer(
		service.NewProductService(store),
		service.NewOrderService(orders, logs, store, machine, logger),
		service.NewCheckoutService(store, orders, logs, store, store, registry, ledger, dispatcher, tx, logger),
		machine,
		service.NewRateEngine(store, store, store, registry, logger),
		service.NewLabelService(orders, store, registry, storage.NewLabelStore(labelsDir), machine, logger),
		m,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
