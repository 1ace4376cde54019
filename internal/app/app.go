// v1
// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modelmarket/internal/api"
	"modelmarket/internal/chain"
	"modelmarket/internal/config"
	"modelmarket/internal/hashing"
	"modelmarket/internal/ingest"
	"modelmarket/internal/market"
	"modelmarket/internal/public"
	"modelmarket/internal/signing"
	"modelmarket/internal/storage"
)

// Application wires configuration, logging, persistence, messaging and the
// HTTP server of the marketplace service.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	logFile   *os.File
	journal   *storage.Journal
	market    *market.Marketplace
	publisher *public.Publisher
	server    *api.Server
}

// New prepares a fully wired service instance. When a journal path is
// configured the ledger is replayed from it and refused if it does not verify.
func New(cfg config.Config) (*Application, error) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	logPath := filepath.Clean(cfg.LogFilePath)
	if logPath == "" {
		return nil, errors.New("log file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	lf, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	a := &Application{cfg: cfg, logger: newLogger(lf), logFile: lf}
	if err := a.wire(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) wire() error {
	cfg := a.cfg
	hasher, err := hashing.Lookup(cfg.HashAlgorithm)
	if err != nil {
		return err
	}
	signer, err := signing.New(cfg.SignerMode, cfg.SigningSecret, hasher)
	if err != nil {
		return fmt.Errorf("signer init: %w", err)
	}

	opts := chain.Options{Hasher: hasher, Signer: signer, Logger: a.logger}
	if path := strings.TrimSpace(cfg.JournalPath); path != "" {
		journal, err := storage.OpenJournal(path, a.logger)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		a.journal = journal
		opts.Persister = journal
	}
	ledger, err := chain.New(opts)
	if err != nil {
		return fmt.Errorf("ledger init: %w", err)
	}
	if a.journal != nil {
		records, err := a.journal.Load()
		if err != nil {
			return fmt.Errorf("load journal: %w", err)
		}
		if err := ledger.Restore(records); err != nil {
			return fmt.Errorf("restore journal %s: %w", a.journal.Path(), err)
		}
	}

	publisher, err := public.NewPublisher(public.Config{
		Enabled:       cfg.PublicEnabled,
		Topic:         cfg.PublicTopic,
		Brokers:       cfg.KafkaBrokers,
		Acks:          cfg.PublicAcks,
		Partitioner:   public.Partitioner(cfg.PublicPartitioner),
		KeyMode:       public.KeyMode(cfg.PublicKeyMode),
		SchemaVersion: public.SchemaVersionV1,
		Breaker:       cfg.Breaker,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("public publisher init: %w", err)
	}
	a.publisher = publisher
	if hook := public.NewPublisherHook(publisher, hasher, a.logger); hook != nil {
		ledger.AddHook(hook)
	}

	m, err := market.New(market.Options{Ledger: ledger, Logger: a.logger, BasePrice: cfg.BasePrice})
	if err != nil {
		return fmt.Errorf("market init: %w", err)
	}
	a.market = m

	router := api.NewRouter(m, a.logger)
	a.server = api.NewServer(cfg.ListenAddress, cfg.HTTPReadTimeout, cfg.HTTPWriteTimeout, router, a.logger)

	a.logger.Info("app_wired",
		slog.String("hash", cfg.HashAlgorithm),
		slog.String("signer", cfg.SignerMode),
		slog.String("journal", cfg.JournalPath),
		slog.Int("records", ledger.Len()),
		slog.Bool("public_enabled", cfg.PublicEnabled),
		slog.Bool("intent_enabled", cfg.IntentEnabled),
		slog.Bool("mqtt_enabled", cfg.MQTTEnabled),
	)
	return nil
}

// Logger exposes the configured slog logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Market exposes the wired marketplace.
func (a *Application) Market() *market.Marketplace {
	return a.market
}

// Run blocks until the context is cancelled or the HTTP server fails. The
// publisher drains queued records before Run returns.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.publisher.Start(ctx); err != nil {
		return fmt.Errorf("start publisher: %w", err)
	}

	consumer, err := ingest.Start(ctx, ingest.Config{
		Enabled: a.cfg.IntentEnabled,
		Brokers: a.cfg.KafkaBrokers,
		GroupID: a.cfg.IntentGroupID,
		Topic:   a.cfg.IntentTopic,
		Breaker: a.cfg.Breaker,
	}, a.market, a.logger)
	if err != nil {
		_ = a.publisher.Stop(context.Background())
		return fmt.Errorf("start intent consumer: %w", err)
	}

	bridge, err := ingest.StartMQTT(ingest.MQTTConfig{
		Enabled:  a.cfg.MQTTEnabled,
		Broker:   a.cfg.MQTTBroker,
		Topic:    a.cfg.MQTTTopic,
		ClientID: a.cfg.MQTTClientID,
		QoS:      byte(a.cfg.MQTTQoS),
	}, a.market, a.logger)
	if err != nil {
		cancel()
		consumer.Wait()
		_ = a.publisher.Stop(context.Background())
		return fmt.Errorf("start mqtt bridge: %w", err)
	}

	httpCh := make(chan error, 1)
	go func() {
		httpCh <- a.server.Start()
	}()

	var runErr error
	select {
	case err := <-httpCh:
		httpCh = nil
		if err != nil {
			a.logger.Error("http_server_error", slog.Any("err", err))
			runErr = err
		}
	case <-ctx.Done():
		a.logger.Info("shutdown_signal")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer shutdownCancel()
	if httpCh != nil {
		if err := a.server.Stop(shutdownCtx); err != nil {
			a.logger.Error("server_shutdown_failed", slog.Any("err", err))
			if runErr == nil {
				runErr = fmt.Errorf("shutdown: %w", err)
			}
		}
		if err := <-httpCh; err != nil && runErr == nil {
			runErr = err
		}
	}
	bridge.Stop()
	consumer.Wait()
	if err := a.publisher.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("stop publisher: %w", err)
	}
	if runErr == nil {
		a.logger.Info("shutdown_complete")
	}
	return runErr
}

func (a *Application) shutdownTimeout() time.Duration {
	if a.cfg.ShutdownTimeout > 0 {
		return a.cfg.ShutdownTimeout
	}
	return 5 * time.Second
}

// Close releases the journal and the log file.
func (a *Application) Close() error {
	var firstErr error
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			firstErr = err
		}
		a.journal = nil
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.logFile = nil
	}
	return firstErr
}
