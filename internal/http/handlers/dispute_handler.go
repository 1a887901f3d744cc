// README: Admin dispute handlers for list/resolve/reject.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"soko/internal/modules/dispute"
	"soko/internal/types"
)

type DisputeHandler struct {
	disputes *dispute.Service
}

func NewDisputeHandler(svc *dispute.Service) *DisputeHandler {
	return &DisputeHandler{disputes: svc}
}

type disputeResponse struct {
	ID           string     `json:"id"`
	OrderID      string     `json:"order_id"`
	Status       string     `json:"status"`
	Reason       string     `json:"reason"`
	Description  string     `json:"description"`
	Resolution   *string    `json:"resolution,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CustomerName string     `json:"customer_name,omitempty"`
	VendorName   string     `json:"vendor_name,omitempty"`
	OrderTotal   int64      `json:"order_total,omitempty"`
}

func (h *DisputeHandler) List(c *gin.Context) {
	var status *dispute.Status
	if raw := c.Query("status"); raw != "" {
		st := dispute.Status(raw)
		status = &st
	}
	views, err := h.disputes.FindAll(c.Request.Context(), status)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]disputeResponse, 0, len(views))
	for _, v := range views {
		out = append(out, disputeResponse{
			ID:           string(v.ID),
			OrderID:      string(v.OrderID),
			Status:       string(v.Status),
			Reason:       v.Reason,
			Description:  v.Description,
			Resolution:   v.Resolution,
			ResolvedAt:   v.ResolvedAt,
			CreatedAt:    v.CreatedAt,
			CustomerName: v.CustomerName,
			VendorName:   v.VendorName,
			OrderTotal:   v.OrderTotal.Amount,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"disputes": out})
}

type resolveRequest struct {
	Notes string `json:"notes"`
}

func (h *DisputeHandler) Resolve(c *gin.Context) {
	var req resolveRequest
	_ = c.ShouldBindJSON(&req) // notes optional
	d, err := h.disputes.Resolve(c.Request.Context(), dispute.ResolveCommand{
		DisputeID: types.ID(c.Param("id")),
		AdminID:   actorID(c),
		Notes:     req.Notes,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"dispute": disputeResponse{
			ID:          string(d.ID),
			OrderID:     string(d.OrderID),
			Status:      string(dispute.DeriveStatus(d.Resolution)),
			Reason:      d.Reason,
			Description: d.Description,
			Resolution:  d.Resolution,
			ResolvedAt:  d.ResolvedAt,
			CreatedAt:   d.CreatedAt,
		},
	})
}

func (h *DisputeHandler) Reject(c *gin.Context) {
	d, err := h.disputes.Reject(c.Request.Context(), dispute.RejectCommand{
		DisputeID: types.ID(c.Param("id")),
		AdminID:   actorID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"dispute": disputeResponse{
			ID:          string(d.ID),
			OrderID:     string(d.OrderID),
			Status:      string(dispute.DeriveStatus(d.Resolution)),
			Reason:      d.Reason,
			Description: d.Description,
			Resolution:  d.Resolution,
			ResolvedAt:  d.ResolvedAt,
			CreatedAt:   d.CreatedAt,
		},
	})
}
