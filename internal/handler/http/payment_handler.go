package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/BrightCodeshub/BakeryShop/internal/auth"
	"github.com/BrightCodeshub/BakeryShop/internal/payment"
	"github.com/BrightCodeshub/BakeryShop/internal/profile"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	SignatureHeader     = "Stripe-Signature"
	maxWebhookBodyBytes = 65536
)

type PaymentHandler struct {
	service  payment.Service
	verifier payment.Verifier
}

func NewPaymentHandler(service payment.Service, verifier payment.Verifier) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		verifier: verifier,
	}
}

func (h *PaymentHandler) RegisterRoutes(router chi.Router, authn *auth.Authenticator) {
	router.Post("/stripe/webhook", h.handleWebhook)
	router.With(authn.Require()).Get("/invoices", h.handleMyInvoices)
	router.With(authn.Require(profile.RoleManager)).Get("/manager/invoices", h.handleCustomerInvoices)
}

// handleWebhook never lets an unverified body reach the payment service.
func (h *PaymentHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read webhook body")
		respondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	event, err := h.verifier.Verify(body, r.Header.Get(SignatureHeader))
	if err != nil {
		if errors.Is(err, payment.ErrMissingSignature) {
			respondWithError(w, http.StatusBadRequest, "No signature")
			return
		}
		log.Warn().Err(err).Msg("Webhook signature verification failed")
		respondWithError(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	if err := h.service.HandleEvent(r.Context(), event); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Str("event_type", event.Type).Msg("Webhook processing failed")
		respondWithError(w, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *PaymentHandler) handleMyInvoices(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	if identity.Email == "" {
		respondWithError(w, http.StatusBadRequest, "Account has no email")
		return
	}
	h.respondInvoices(w, r, identity.Email)
}

func (h *PaymentHandler) handleCustomerInvoices(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		respondWithError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}
	h.respondInvoices(w, r, email)
}

func (h *PaymentHandler) respondInvoices(w http.ResponseWriter, r *http.Request, email string) {
	invoices, err := h.service.Invoices(r.Context(), email)
	if err != nil {
		log.Error().Err(err).Str("customer_email", email).Msg("Failed to load invoices")
		respondWithError(w, http.StatusInternalServerError, "Failed to load invoices")
		return
	}
	respondWithJSON(w, http.StatusOK, invoices)
}
