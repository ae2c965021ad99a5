package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/junglepay/forwarder/internal/api"
	"github.com/junglepay/forwarder/internal/booking"
	"github.com/junglepay/forwarder/internal/btcpay"
	"github.com/junglepay/forwarder/internal/config"
	"github.com/junglepay/forwarder/internal/disburse"
	"github.com/junglepay/forwarder/internal/lnd"
	"github.com/junglepay/forwarder/internal/lnurl"
	"github.com/junglepay/forwarder/internal/logger"
	"github.com/junglepay/forwarder/internal/offramp"
	"github.com/junglepay/forwarder/internal/repository"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer log.Sync()

	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalw("init database", "path", cfg.DBPath, "err", err)
	}
	defer db.Close()
	log.Infow("database ready", "path", cfg.DBPath)

	ledgerRepo := repository.NewLedgerRepo(db)
	storeRepo := repository.NewStoreRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)

	processor := btcpay.NewClient(cfg.BTCPayBaseURL, cfg.BTCPayAPIKey, cfg.HTTPTimeout)
	railResolver := lnurl.NewClient(cfg.LNURLBaseURL, cfg.HTTPTimeout)
	payer := lnd.NewClient(cfg.LNDRestURL, cfg.LNDMacaroonHex, cfg.HTTPTimeout)
	bookingSvc := booking.NewClient(cfg.BookingNotifyURL, cfg.BookingAPIKey, cfg.HTTPTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var offRampClient disburse.OffRamp
	if cfg.OffRampEnabled() {
		oc := offramp.NewClient(cfg.OffRampBaseURL, cfg.OffRampUsername, cfg.OffRampPassword, cfg.HTTPTimeout, log)
		go oc.StartTokenRefresh(ctx, cfg.OffRampRefreshInterval)
		offRampClient = oc
		log.Infow("off-ramp connector enabled", "url", cfg.OffRampBaseURL)
	}

	disburseSvc := disburse.NewService(
		ledgerRepo,
		storeRepo,
		paymentRepo,
		processor,
		railResolver,
		payer,
		offRampClient,
		log,
	)

	router := api.NewRouter(cfg, disburseSvc, storeRepo, paymentRepo, ledgerRepo, processor, bookingSvc, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "err", err)
		}
	}()

	<-ctx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("shutdown", "err", err)
	}
}
