package main

import (
	"context"
	"log"
	"os"
	"strings"

	"log/slog"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/zealits/bulkpayout-sub001/internal/config"
	apphttp "github.com/zealits/bulkpayout-sub001/internal/http"
	"github.com/zealits/bulkpayout-sub001/internal/mailer"
	"github.com/zealits/bulkpayout-sub001/internal/modules/payouts"
	"github.com/zealits/bulkpayout-sub001/internal/modules/refdata"
	"github.com/zealits/bulkpayout-sub001/internal/providers"
	"github.com/zealits/bulkpayout-sub001/internal/providers/giftogram"
	"github.com/zealits/bulkpayout-sub001/internal/providers/httpclient"
	"github.com/zealits/bulkpayout-sub001/internal/providers/paypal"
	"github.com/zealits/bulkpayout-sub001/internal/providers/xe"
	"github.com/zealits/bulkpayout-sub001/internal/storage"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}

	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	gw, err := buildGateways(cfg.Providers)
	if err != nil {
		log.Fatalf("failed to build provider gateways: %v", err)
	}

	uploader := payouts.NewUploader(db)
	uploader.SetLogger(logger)
	if res, err := storage.FromEnv(context.Background()); err != nil {
		logger.Warn("upload archival disabled", "err", err)
	} else {
		logger.Info("upload archival enabled", "driver", res.Driver)
		uploader.SetArchive(res.Storage)
	}

	processor := payouts.NewProcessor(db, gw)
	processor.SetLogger(logger)
	if cfg.SMTP.Host != "" && cfg.NotifyTo != "" {
		to := strings.Split(cfg.NotifyTo, ",")
		notifier := payouts.NewNotifier(db, mailer.NewSMTPMailer(cfg.SMTP), cfg.NotifyFrom, to)
		notifier.SetLogger(logger)
		processor.SetNotifier(notifier)
	}

	reconciler := payouts.NewReconciler(db, gw)
	reconciler.SetLogger(logger)

	webhookSvc := payouts.NewWebhookService(db)
	webhookSvc.SetLogger(logger)

	r := apphttp.NewRouter(apphttp.Deps{
		Logger:        logger,
		DB:            db,
		Gateways:      gw,
		Uploader:      uploader,
		Processor:     processor,
		Reconciler:    reconciler,
		WebhookSvc:    webhookSvc,
		RefData:       refdata.NewCache(db),
		JWTSecret:     cfg.JWTSecret,
		WebhookSecret: cfg.WebhookSecret,
	})

	logger.Info("listening", "addr", cfg.Addr, "provider_env", cfg.Providers.Environment)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatal(err)
	}
}

func buildGateways(pc config.ProviderConfig) (payouts.Gateways, error) {
	env := providers.EnvSandbox
	if pc.Environment == "production" {
		env = providers.EnvProduction
	}
	hc := httpclient.NewWithTimeout(pc.Timeout)

	pp, err := paypal.New(paypal.Config{
		Env:          env,
		BaseURL:      pc.PayPalBaseURL,
		ClientID:     pc.PayPalClientID,
		ClientSecret: pc.PayPalClientSecret,
		HTTPClient:   hc,
	})
	if err != nil {
		return payouts.Gateways{}, err
	}

	gg, err := giftogram.New(giftogram.Config{
		Env:        env,
		BaseURL:    pc.GiftogramBaseURL,
		APIKey:     pc.GiftogramAPIKey,
		HTTPClient: hc,
	})
	if err != nil {
		return payouts.Gateways{}, err
	}

	xc, err := xe.New(xe.Config{
		Env:          env,
		BaseURL:      pc.XEBaseURL,
		ClientID:     pc.XEClientID,
		ClientSecret: pc.XEClientSecret,
		HTTPClient:   hc,
	})
	if err != nil {
		return payouts.Gateways{}, err
	}

	return payouts.Gateways{PayPal: pp, GiftCard: gg, BankTransfer: xc}, nil
}
