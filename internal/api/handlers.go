package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/junglepay/forwarder/internal/booking"
	"github.com/junglepay/forwarder/internal/btcpay"
	"github.com/junglepay/forwarder/internal/disburse"
	"github.com/junglepay/forwarder/internal/domain"
	"github.com/junglepay/forwarder/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	disburseSvc *disburse.Service
	storeRepo   *repository.StoreRepo
	paymentRepo *repository.PaymentRepo
	ledgerRepo  *repository.LedgerRepo
	processor   *btcpay.Client
	bookingSvc  *booking.Client

	webhookSecret string
	internalKey   string
	publicBaseURL string
	onChainZpub   string
	defaultLogo   string

	log *zap.SugaredLogger
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- webhook ---

// HandleWebhook consumes one authenticated settlement notification. The
// response status is the contract with the processor's redelivery
// mechanism: 2xx acknowledges, anything else asks for redelivery.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var event domain.SettlementEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}
	if event.Type == "" || event.StoreID == "" || event.InvoiceID == "" {
		writeError(w, http.StatusBadRequest, "missing required event fields")
		return
	}

	outcome, err := h.disburseSvc.Process(r.Context(), event)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvoiceInFlight):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrStoreNotFound),
			errors.Is(err, domain.ErrBadUpstreamData):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, domain.ErrPayoutFailed):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			h.log.Errorw("webhook processing failed",
				"store", event.StoreID, "invoice", event.InvoiceID, "err", err)
			writeError(w, http.StatusInternalServerError, "processing failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// --- booking relay ---

// HandleBookingNotify relays a settled invoice to the booking system. Not
// part of the payout core; no ledger interaction.
func (h *Handlers) HandleBookingNotify(w http.ResponseWriter, r *http.Request) {
	var event domain.SettlementEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}
	if event.Type != domain.EventTypeInvoiceSettled {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	inv, err := h.processor.GetInvoice(r.Context(), event.StoreID, event.InvoiceID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "fetch invoice: "+err.Error())
		return
	}
	if inv.Status != btcpay.InvoiceStatusSettled {
		writeJSON(w, http.StatusOK, map[string]string{"status": "not_settled"})
		return
	}
	if inv.Metadata.OrderID == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no_order_id"})
		return
	}

	if err := h.bookingSvc.NotifyPaid(r.Context(), inv.Metadata.OrderID, inv.Amount, inv.ID); err != nil {
		h.log.Warnw("booking notify failed", "order", inv.Metadata.OrderID, "err", err)
		writeError(w, http.StatusBadGateway, "booking notify failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "notified"})
}

// --- store provisioning ---

type addStoreRequest struct {
	StoreName       string  `json:"storeName"`
	StoreOwnerEmail string  `json:"storeOwnerEmail"`
	DefaultCurrency string  `json:"defaultCurrency"`
	DefaultLanguage string  `json:"defaultLanguage"`
	Rate            float64 `json:"rate"`
	PayoutRecipient string  `json:"payoutRecipient"`
	OffRamp         *struct {
		Percent      float64 `json:"percent"`
		AccountToken string  `json:"accountToken"`
		RecipientID  string  `json:"recipientId"`
	} `json:"offRamp"`
}

// AddStore provisions a merchant end to end: store, owner user, webhook
// and payment methods on the processor, then the local payout config.
func (h *Handlers) AddStore(w http.ResponseWriter, r *http.Request) {
	var req addStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.StoreName == "":
		writeError(w, http.StatusBadRequest, "storeName is required")
		return
	case req.StoreOwnerEmail == "":
		writeError(w, http.StatusBadRequest, "storeOwnerEmail is required")
		return
	case req.DefaultCurrency == "":
		writeError(w, http.StatusBadRequest, "defaultCurrency is required")
		return
	case req.DefaultLanguage == "":
		writeError(w, http.StatusBadRequest, "defaultLanguage is required")
		return
	case req.Rate <= 0 || req.Rate > 1:
		writeError(w, http.StatusBadRequest, "rate must be in (0,1]")
		return
	case req.PayoutRecipient == "":
		writeError(w, http.StatusBadRequest, "payoutRecipient is required")
		return
	}

	ctx := r.Context()

	storeID, err := h.processor.CreateStore(ctx, btcpay.CreateStoreParams{
		Name:                 req.StoreName,
		DefaultCurrency:      req.DefaultCurrency,
		DefaultLanguage:      req.DefaultLanguage,
		PaymentTolerance:     1,
		DefaultPaymentMethod: "BTC_LightningNetwork",
		CustomLogo:           h.defaultLogo,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, "create store on processor: "+err.Error())
		return
	}

	userID, err := h.processor.CreateUser(ctx, req.StoreOwnerEmail, uuid.NewString())
	if err != nil || userID == "" {
		// The owner may already have an account.
		userID, err = h.processor.GetUser(ctx, req.StoreOwnerEmail)
		if err != nil {
			writeError(w, http.StatusBadGateway, "create user on processor: "+err.Error())
			return
		}
	}

	if err := h.processor.AddUserToStore(ctx, storeID, userID); err != nil {
		writeError(w, http.StatusBadGateway, "attach user to store: "+err.Error())
		return
	}

	if _, err := h.processor.CreateWebhook(ctx, storeID, h.publicBaseURL+"/api/v1/webhook", h.webhookSecret); err != nil {
		writeError(w, http.StatusBadGateway, "create webhook: "+err.Error())
		return
	}

	if err := h.processor.EnableLightning(ctx, storeID); err != nil {
		writeError(w, http.StatusBadGateway, "enable lightning: "+err.Error())
		return
	}
	if err := h.processor.EnableOnChain(ctx, storeID, h.onChainZpub); err != nil {
		// Lightning is the payout rail; on-chain is a fallback method only.
		h.log.Warnw("on-chain payment method not enabled", "store", storeID, "err", err)
	}

	store := &domain.Store{
		StoreID:         storeID,
		PayoutRecipient: req.PayoutRecipient,
		PayoutRate:      req.Rate,
		CreatedAt:       time.Now().UTC(),
	}
	if req.OffRamp != nil && req.OffRamp.Percent > 0 {
		store.OffRamp = &domain.OffRampConfig{
			Percent:      req.OffRamp.Percent,
			AccountToken: req.OffRamp.AccountToken,
			RecipientID:  req.OffRamp.RecipientID,
		}
	}

	if err := h.storeRepo.Insert(ctx, store); err != nil {
		h.log.Errorw("store provisioned on processor but not recorded locally",
			"store", storeID, "err", err)
		writeError(w, http.StatusInternalServerError, "error writing store config")
		return
	}

	h.log.Infow("store provisioned", "store", storeID, "rate", req.Rate)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "storeId": storeID})
}

// --- tip recipients ---

func (h *Handlers) ListTipRecipients(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")

	recipients, err := h.storeRepo.ListTipRecipients(r.Context(), storeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recipients == nil {
		recipients = []domain.TipRecipient{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": recipients})
}

func (h *Handlers) AddTipRecipient(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")

	var req struct {
		RailAddress string `json:"railAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RailAddress == "" {
		writeError(w, http.StatusBadRequest, "railAddress is required")
		return
	}

	if _, err := h.storeRepo.Get(r.Context(), storeID); err != nil {
		writeError(w, http.StatusNotFound, "store not found")
		return
	}

	rec, err := h.storeRepo.AddTipRecipient(r.Context(), storeID, req.RailAddress)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": rec})
}

func (h *Handlers) RemoveTipRecipient(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	recipientID := chi.URLParam(r, "recipientID")

	err := h.storeRepo.RemoveTipRecipient(r.Context(), storeID, recipientID)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "recipient not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// --- payments ---

func (h *Handlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.PaymentFilter{
		StoreID:   chi.URLParam(r, "storeID"),
		InvoiceID: q.Get("invoice"),
		Page:      parseIntDefault(q.Get("page"), 1),
		Limit:     parseIntDefault(q.Get("limit"), 50),
	}

	payments, total, err := h.paymentRepo.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if payments == nil {
		payments = []domain.PaymentRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payments": payments,
		"total":    total,
		"page":     filter.Page,
		"limit":    filter.Limit,
	})
}

// --- admin ---

// ReleaseClaim clears a stuck processing claim after a crash or failed
// payout so the next redelivery can retry. Deliberately manual; there is
// no automatic expiry.
func (h *Handlers) ReleaseClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StoreID   string `json:"storeId"`
		InvoiceID string `json:"invoiceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StoreID == "" || req.InvoiceID == "" {
		writeError(w, http.StatusBadRequest, "storeId and invoiceId are required")
		return
	}

	err := h.ledgerRepo.Release(r.Context(), req.StoreID, req.InvoiceID)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no releasable claim for invoice")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Infow("claim released by administrator",
		"store", req.StoreID, "invoice", req.InvoiceID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
