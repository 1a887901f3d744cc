// README: Payment gateway callback; validates the shared secret, then hands off.
package handlers

import (
	"crypto/hmac"
	"net/http"

	"github.com/gin-gonic/gin"

	"soko/internal/modules/payment"
)

type WebhookHandler struct {
	payments *payment.Service
	// secret is the value the gateway sends back in X-Webhook-Secret.
	// Empty disables the check (local development).
	secret string
}

func NewWebhookHandler(svc *payment.Service, secret string) *WebhookHandler {
	return &WebhookHandler{payments: svc, secret: secret}
}

type gatewayCallbackRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	Status        string `json:"status" binding:"required"`
}

// PaymentResult handles POST /webhooks/payments. The gateway retries on
// non-2xx, so permanent rejections (unknown transaction, already settled)
// still return 4xx and only transient failures return 5xx.
func (h *WebhookHandler) PaymentResult(c *gin.Context) {
	if h.secret != "" {
		got := c.GetHeader("X-Webhook-Secret")
		if !hmac.Equal([]byte(got), []byte(h.secret)) {
			writeError(c, http.StatusUnauthorized, "invalid webhook secret")
			return
		}
	}
	var req gatewayCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "transaction_id and status are required")
		return
	}
	err := h.payments.ResolveFromGateway(c.Request.Context(), payment.GatewayResultCommand{
		TransactionID: req.TransactionID,
		Succeeded:     req.Status == "SUCCESS",
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"received": true})
}
