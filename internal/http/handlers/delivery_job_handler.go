// README: Admin delivery-job handlers: listing, stats, detail, assignment; agency progress routes.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"soko/internal/modules/deliveryjob"
	"soko/internal/types"
)

type DeliveryJobHandler struct {
	jobs *deliveryjob.Service
}

func NewDeliveryJobHandler(svc *deliveryjob.Service) *DeliveryJobHandler {
	return &DeliveryJobHandler{jobs: svc}
}

type jobResponse struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	Status      string     `json:"status"`
	PickupCity  string     `json:"pickup_city"`
	DropoffCity string     `json:"dropoff_city"`
	AgencyID    *string    `json:"agency_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
	InTransitAt *time.Time `json:"in_transit_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func toJobResponse(j *deliveryjob.Job) jobResponse {
	resp := jobResponse{
		ID:          string(j.ID),
		OrderID:     string(j.OrderID),
		Status:      string(j.Status),
		PickupCity:  j.PickupCity,
		DropoffCity: j.DropoffCity,
		CreatedAt:   j.CreatedAt,
		AcceptedAt:  j.AcceptedAt,
		PickedUpAt:  j.PickedUpAt,
		InTransitAt: j.InTransitAt,
		DeliveredAt: j.DeliveredAt,
		CancelledAt: j.CancelledAt,
	}
	if j.AgencyID != nil {
		v := string(*j.AgencyID)
		resp.AgencyID = &v
	}
	return resp
}

type jobLogResponse struct {
	Event          string          `json:"event"`
	PreviousStatus string          `json:"previous_status"`
	NewStatus      string          `json:"new_status"`
	ActorID        *string         `json:"actor_id,omitempty"`
	ActorType      string          `json:"actor_type"`
	Notes          *string         `json:"notes,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (h *DeliveryJobHandler) List(c *gin.Context) {
	var f deliveryjob.Filter
	if raw := c.Query("status"); raw != "" {
		st := deliveryjob.Status(raw)
		f.Status = &st
	}
	f.City = c.Query("city")
	if raw := c.Query("agencyId"); raw != "" {
		id := types.ID(raw)
		f.AgencyID = &id
	}
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	jobs, total, err := h.jobs.FindAll(c.Request.Context(), f)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobResponse(&jobs[i]))
	}
	writeJSON(c, http.StatusOK, gin.H{"jobs": out, "total": total})
}

func (h *DeliveryJobHandler) Stats(c *gin.Context) {
	stats, err := h.jobs.Stats(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, stats)
}

func (h *DeliveryJobHandler) Get(c *gin.Context) {
	id := types.ID(c.Param("id"))
	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	logs, err := h.jobs.Logs(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	outLogs := make([]jobLogResponse, 0, len(logs))
	for _, l := range logs {
		entry := jobLogResponse{
			Event:          l.Event,
			PreviousStatus: string(l.PreviousStatus),
			NewStatus:      string(l.NewStatus),
			ActorType:      string(l.ActorType),
			Notes:          l.Notes,
			Metadata:       l.Metadata,
			CreatedAt:      l.CreatedAt,
		}
		if l.ActorID != nil {
			v := string(*l.ActorID)
			entry.ActorID = &v
		}
		outLogs = append(outLogs, entry)
	}
	writeJSON(c, http.StatusOK, gin.H{"job": toJobResponse(job), "logs": outLogs})
}

type assignRequest struct {
	AgencyID string `json:"agencyId"`
}

func (h *DeliveryJobHandler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.AgencyID == "" {
		writeError(c, http.StatusBadRequest, "missing agencyId")
		return
	}
	job, err := h.jobs.AssignToAgency(c.Request.Context(), deliveryjob.AssignCommand{
		JobID:    types.ID(c.Param("id")),
		AgencyID: types.ID(req.AgencyID),
		AdminID:  actorID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"job": toJobResponse(job)})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *DeliveryJobHandler) Cancel(c *gin.Context) {
	var req cancelRequest
	_ = c.ShouldBindJSON(&req) // body optional
	job, err := h.jobs.Cancel(c.Request.Context(), deliveryjob.CancelCommand{
		JobID:   types.ID(c.Param("id")),
		AdminID: actorID(c),
		Reason:  req.Reason,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"job": toJobResponse(job)})
}

// Agency self-service routes. The acting agency is the authenticated actor.

func (h *DeliveryJobHandler) Accept(c *gin.Context) {
	job, err := h.jobs.Accept(c.Request.Context(), deliveryjob.AcceptCommand{
		JobID:    types.ID(c.Param("id")),
		AgencyID: actorID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"job": toJobResponse(job)})
}

func (h *DeliveryJobHandler) PickUp(c *gin.Context) {
	h.progress(c, h.jobs.MarkPickedUp)
}

func (h *DeliveryJobHandler) Transit(c *gin.Context) {
	h.progress(c, h.jobs.MarkInTransit)
}

func (h *DeliveryJobHandler) Deliver(c *gin.Context) {
	h.progress(c, h.jobs.MarkDelivered)
}

func (h *DeliveryJobHandler) progress(c *gin.Context, op func(ctx context.Context, cmd deliveryjob.ProgressCommand) (*deliveryjob.Job, error)) {
	job, err := op(c.Request.Context(), deliveryjob.ProgressCommand{
		JobID:    types.ID(c.Param("id")),
		AgencyID: actorID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"job": toJobResponse(job)})
}
