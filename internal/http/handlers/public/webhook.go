package public

import (
	"io"
	"net/http"

	"github.com/leafbox-next/internal/http/response"
	"github.com/leafbox-next/internal/service"

	"github.com/gin-gonic/gin"
)

// maxWebhookBodyBytes caps what a gateway may post
const maxWebhookBodyBytes = 1 << 20

const stripeSignatureHeader = "Stripe-Signature"

// StripeWebhook POST /webhooks/stripe
func (h *Handler) StripeWebhook(c *gin.Context) {
	body, ok := readWebhookBody(c)
	if !ok {
		return
	}
	result, err := h.ReconcileService.HandleStripeWebhook(c.Request.Context(), body, c.GetHeader(stripeSignatureHeader))
	h.respondWebhook(c, "stripe", result, err)
}

// OmiseWebhook POST /webhooks/omise
func (h *Handler) OmiseWebhook(c *gin.Context) {
	body, ok := readWebhookBody(c)
	if !ok {
		return
	}
	result, err := h.ReconcileService.HandleOmiseWebhook(c.Request.Context(), c.Request.Header, body)
	h.respondWebhook(c, "omise", result, err)
}

func readWebhookBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, err)
		return nil, false
	}
	if len(body) > maxWebhookBodyBytes {
		respondError(c, http.StatusRequestEntityTooLarge, "webhook payload too large", nil)
		return nil, false
	}
	return body, true
}

// respondWebhook acknowledges every verified event with 200 so the gateway
// stops retrying; only storage failures answer 5xx to request a redelivery.
func (h *Handler) respondWebhook(c *gin.Context, gateway string, result *service.ReconcileResult, err error) {
	log := requestLog(c)
	if err != nil {
		log.Warnw("webhook_handle_failed", "gateway", gateway, "client_ip", c.ClientIP(), "error", err)
		respondWithMappedError(c, err, webhookErrorRules)
		return
	}
	data := gin.H{"received": true}
	if result != nil {
		data["outcome"] = result.Outcome
		if result.Order != nil {
			data["order_number"] = result.Order.OrderNumber
		}
	}
	log.Infow("webhook_handled", "gateway", gateway, "outcome", data["outcome"])
	response.Success(c, data)
}
