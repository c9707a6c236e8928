package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/openpoker/cardroom"
	"github.com/openpoker/cardroom/actor"
	"github.com/openpoker/cardroom/server"
)

func main() {
	godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	addr := envStr("CARDROOM_ADDR", ":7700")
	httpAddr := envStr("CARDROOM_HTTP_ADDR", ":7701")
	tableCount := envInt("CARDROOM_TABLES", 1)
	sb := int64(envInt("CARDROOM_SB", 10))
	bb := int64(envInt("CARDROOM_BB", 20))

	manager := cardroom.NewManager()
	botFactory := func(name string) cardroom.DecisionSource {
		return actor.NewBot(name, actor.Humanized(true))
	}

	for i := 0; i < tableCount; i++ {
		options := cardroom.NewTableEngineOptions()
		options.Logger = logger

		callbacks := cardroom.NewTableEngineCallbacks()
		callbacks.OnError = func(tableID string, err error) {
			logger.Error("table error", zap.String("table_id", tableID), zap.Error(err))
		}
		callbacks.OnClosed = func(tableID string) {
			logger.Info("table closed", zap.String("table_id", tableID))
		}

		table, err := manager.CreateTable(options, callbacks, cardroom.TableSetting{
			Meta: cardroom.TableMeta{
				Name:     fmt.Sprintf("Table %d", i+1),
				Format:   cardroom.FormatCash,
				SB:       sb,
				BB:       bb,
				MinBuyIn: bb * 20,
				MaxBuyIn: bb * 200,
				Rake:     cardroom.RakeConfig{Percent: 0.05, Cap: bb * 3, NoFlopNoDrop: true},
			},
		}, cardroom.WithBotFactory(botFactory))
		if err != nil {
			logger.Fatal("create table", zap.Error(err))
		}
		logger.Info("table ready",
			zap.String("table_id", table.TableID()),
			zap.String("name", table.Meta().Name))
	}

	opts := server.NewOptions()
	opts.Addr = addr
	opts.Logger = logger
	srv := server.New(manager, opts)

	httpSrv := &http.Server{
		Addr:    httpAddr,
		Handler: server.NewRouter(srv),
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("serve failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)
	srv.Close()
	manager.Reset()
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
