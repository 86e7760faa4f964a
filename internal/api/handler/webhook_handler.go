package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/roviton/dispatch-api/internal/api/metrics"
	"github.com/roviton/dispatch-api/internal/infrastructure/webhook"
)

// WebhookHandler receives signed deliveries from the auth and payment
// providers. A nil verifier means the secret was not configured: the
// delivery is processed unverified with a logged warning. That fallback is
// for dev environments only.
type WebhookHandler struct {
	authVerifier    webhook.Verifier
	billingVerifier webhook.Verifier
	log             zerolog.Logger
}

func NewWebhookHandler(authVerifier, billingVerifier webhook.Verifier, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		authVerifier:    authVerifier,
		billingVerifier: billingVerifier,
		log:             log,
	}
}

// webhookEvent is the envelope both providers share: a type tag and an
// opaque payload.
type webhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ReceiveAuth handles POST /webhooks/auth — user lifecycle notifications
// from the auth provider (svix-signed).
//
// @Summary      Receive an auth provider webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200   {object}  map[string]bool
// @Failure      400   {object}  errorResponse
// @Router       /webhooks/auth [post]
func (h *WebhookHandler) ReceiveAuth(c echo.Context) error {
	return h.receive(c, "auth", h.authVerifier, h.handleAuthEvent)
}

// ReceiveBilling handles POST /webhooks/billing — subscription and invoice
// notifications from the payment provider (Stripe-signed).
//
// @Summary      Receive a payment provider webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200   {object}  map[string]bool
// @Failure      400   {object}  errorResponse
// @Router       /webhooks/billing [post]
func (h *WebhookHandler) ReceiveBilling(c echo.Context) error {
	return h.receive(c, "billing", h.billingVerifier, h.handleBillingEvent)
}

func (h *WebhookHandler) receive(c echo.Context, provider string, verifier webhook.Verifier, handle func(webhookEvent)) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	if verifier == nil {
		// Known gap, not a recommended pattern: without a secret we cannot
		// verify, and we choose to keep dev environments running.
		metrics.WebhooksReceivedTotal.WithLabelValues(provider, "unverified").Inc()
		h.log.Warn().Str("provider", provider).Msg("webhook secret not configured, processing unverified payload")
	} else if err := verifier.Verify(c.Request().Header, body, time.Now()); err != nil {
		metrics.WebhooksReceivedTotal.WithLabelValues(provider, "rejected").Inc()
		h.log.Warn().Err(err).Str("provider", provider).Msg("webhook verification failed")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
	} else {
		metrics.WebhooksReceivedTotal.WithLabelValues(provider, "verified").Inc()
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	handle(event)
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

// handleAuthEvent and handleBillingEvent acknowledge provider events.
// External system state is owned by the providers; for now the events are
// logged for the audit trail.

func (h *WebhookHandler) handleAuthEvent(event webhookEvent) {
	switch event.Type {
	case "user.created", "user.updated", "user.deleted", "session.revoked":
		h.log.Info().Str("type", event.Type).Msg("auth webhook event")
	default:
		h.log.Debug().Str("type", event.Type).Msg("unhandled auth webhook event")
	}
}

func (h *WebhookHandler) handleBillingEvent(event webhookEvent) {
	switch event.Type {
	case "checkout.session.completed", "invoice.paid", "invoice.payment_failed",
		"customer.subscription.updated", "customer.subscription.deleted":
		h.log.Info().Str("type", event.Type).Msg("billing webhook event")
	default:
		h.log.Debug().Str("type", event.Type).Msg("unhandled billing webhook event")
	}
}
