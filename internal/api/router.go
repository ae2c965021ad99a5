package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/junglepay/forwarder/internal/booking"
	"github.com/junglepay/forwarder/internal/btcpay"
	"github.com/junglepay/forwarder/internal/config"
	"github.com/junglepay/forwarder/internal/disburse"
	"github.com/junglepay/forwarder/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	cfg *config.Config,
	disburseSvc *disburse.Service,
	storeRepo *repository.StoreRepo,
	paymentRepo *repository.PaymentRepo,
	ledgerRepo *repository.LedgerRepo,
	processor *btcpay.Client,
	bookingSvc *booking.Client,
	log *zap.SugaredLogger,
) http.Handler {
	h := &Handlers{
		disburseSvc:   disburseSvc,
		storeRepo:     storeRepo,
		paymentRepo:   paymentRepo,
		ledgerRepo:    ledgerRepo,
		processor:     processor,
		bookingSvc:    bookingSvc,
		webhookSecret: cfg.WebhookSecret,
		internalKey:   cfg.InternalKey,
		publicBaseURL: cfg.PublicBaseURL,
		onChainZpub:   cfg.OnChainZpub,
		defaultLogo:   cfg.DefaultLogoURL,
		log:           log,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Processor-signed endpoints.
		r.Group(func(r chi.Router) {
			r.Use(h.verifySignature)
			r.Post("/webhook", h.HandleWebhook)
			r.Post("/booking-notify", h.HandleBookingNotify)
		})

		// Internal management endpoints.
		r.Group(func(r chi.Router) {
			r.Use(h.requireInternalKey)
			r.Post("/stores", h.AddStore)
			r.Get("/stores/{storeID}/tip-recipients", h.ListTipRecipients)
			r.Post("/stores/{storeID}/tip-recipients", h.AddTipRecipient)
			r.Delete("/stores/{storeID}/tip-recipients/{recipientID}", h.RemoveTipRecipient)
			r.Get("/stores/{storeID}/payments", h.ListPayments)
			r.Post("/admin/claims/release", h.ReleaseClaim)
		})
	})

	return r
}
