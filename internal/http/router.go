// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"soko/internal/http/handlers"
	"soko/internal/http/middleware"
	"soko/internal/infra"
	"soko/internal/modules/deliveryjob"
	"soko/internal/modules/dispute"
	"soko/internal/modules/kyc"
	"soko/internal/modules/payment"
)

type RouterConfig struct {
	Verifier      infra.TokenVerifier
	WebhookSecret string
}

func NewRouter(
	cfg RouterConfig,
	paymentService *payment.Service,
	jobService *deliveryjob.Service,
	disputeService *dispute.Service,
	kycService *kyc.Service,
) http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	webhookHandler := handlers.NewWebhookHandler(paymentService, cfg.WebhookSecret)
	r.POST("/webhooks/payments", webhookHandler.PaymentResult)

	admin := r.Group("/admin", middleware.Auth(cfg.Verifier), middleware.RequireRole("ADMIN"))

	paymentHandler := handlers.NewPaymentHandler(paymentService)
	admin.GET("/payments", paymentHandler.List)
	admin.PATCH("/payments/:id/confirm", paymentHandler.Confirm)
	admin.PATCH("/payments/:id/fail", paymentHandler.Fail)

	jobHandler := handlers.NewDeliveryJobHandler(jobService)
	admin.GET("/delivery-jobs", jobHandler.List)
	admin.GET("/delivery-jobs/stats", jobHandler.Stats)
	admin.GET("/delivery-jobs/:id", jobHandler.Get)
	admin.PATCH("/delivery-jobs/:id/assign", jobHandler.Assign)
	admin.PATCH("/delivery-jobs/:id/cancel", jobHandler.Cancel)

	disputeHandler := handlers.NewDisputeHandler(disputeService)
	admin.GET("/disputes", disputeHandler.List)
	admin.PATCH("/disputes/:id/resolve", disputeHandler.Resolve)
	admin.PATCH("/disputes/:id/reject", disputeHandler.Reject)

	kycHandler := handlers.NewKYCHandler(kycService)
	admin.GET("/kyc", kycHandler.List)
	admin.PATCH("/kyc/:id/approve", kycHandler.Approve)
	admin.PATCH("/kyc/:id/reject", kycHandler.Reject)

	// Agency self-service: the assigned courier moves its own job forward.
	agency := r.Group("/agency", middleware.Auth(cfg.Verifier), middleware.RequireRole("AGENCY"))
	agency.PATCH("/delivery-jobs/:id/accept", jobHandler.Accept)
	agency.PATCH("/delivery-jobs/:id/pickup", jobHandler.PickUp)
	agency.PATCH("/delivery-jobs/:id/transit", jobHandler.Transit)
	agency.PATCH("/delivery-jobs/:id/deliver", jobHandler.Deliver)

	return r
}
