// README: Admin payment handlers for list/confirm/fail.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"soko/internal/modules/payment"
	"soko/internal/types"
)

type PaymentHandler struct {
	payments *payment.Service
}

func NewPaymentHandler(svc *payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: svc}
}

type paymentResponse struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"order_id"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	TransactionID *string    `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toPaymentResponse(p *payment.Payment) paymentResponse {
	return paymentResponse{
		ID:            string(p.ID),
		OrderID:       string(p.OrderID),
		Amount:        p.Amount.Amount,
		Currency:      p.Amount.Currency,
		Method:        string(p.Method),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
}

func (h *PaymentHandler) List(c *gin.Context) {
	var status *payment.Status
	if raw := c.Query("status"); raw != "" {
		st := payment.Status(raw)
		status = &st
	}
	payments, err := h.payments.List(c.Request.Context(), status)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]paymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, toPaymentResponse(&payments[i]))
	}
	writeJSON(c, http.StatusOK, gin.H{"payments": out})
}

func (h *PaymentHandler) Confirm(c *gin.Context) {
	p, err := h.payments.Confirm(c.Request.Context(), payment.ConfirmCommand{
		PaymentID: types.ID(c.Param("id")),
		AdminID:   actorID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"payment": toPaymentResponse(p)})
}

func (h *PaymentHandler) Fail(c *gin.Context) {
	p, err := h.payments.Fail(c.Request.Context(), payment.FailCommand{
		PaymentID: types.ID(c.Param("id")),
		AdminID:   actorID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"payment": toPaymentResponse(p)})
}
