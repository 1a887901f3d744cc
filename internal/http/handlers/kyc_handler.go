// README: Admin KYC queue handlers; the review id is parsed once at this boundary.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"soko/internal/modules/kyc"
)

type KYCHandler struct {
	reviews *kyc.Service
}

func NewKYCHandler(svc *kyc.Service) *KYCHandler {
	return &KYCHandler{reviews: svc}
}

func (h *KYCHandler) List(c *gin.Context) {
	var status *kyc.Status
	if raw := c.Query("status"); raw != "" {
		st := kyc.Status(raw)
		status = &st
	}
	items, err := h.reviews.FindAll(c.Request.Context(), status)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"items": items})
}

func (h *KYCHandler) Approve(c *gin.Context) {
	target := kyc.ParseReviewID(c.Param("id"))
	err := h.reviews.Approve(c.Request.Context(), kyc.ReviewCommand{
		Target:  target,
		AdminID: actorID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": target.WireID(), "status": kyc.StatusApproved})
}

type rejectReviewRequest struct {
	Reason string `json:"reason"`
}

func (h *KYCHandler) Reject(c *gin.Context) {
	var req rejectReviewRequest
	_ = c.ShouldBindJSON(&req) // emptiness is checked by the service
	target := kyc.ParseReviewID(c.Param("id"))
	err := h.reviews.Reject(c.Request.Context(), kyc.ReviewCommand{
		Target:  target,
		AdminID: actorID(c),
		Reason:  req.Reason,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": target.WireID(), "status": kyc.StatusRejected})
}
