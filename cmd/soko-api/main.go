// README: Entry point; loads config, wires services, starts HTTP server and background monitor.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"soko/internal/config"
	"soko/internal/events"
	httptransport "soko/internal/http"
	"soko/internal/infra"
	"soko/internal/modules/deliveryjob"
	"soko/internal/modules/dispute"
	"soko/internal/modules/kyc"
	"soko/internal/modules/payment"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	var publisher events.Publisher = events.Noop{}
	if cfg.AMQP.URL != "" {
		conn, err := infra.NewAMQP(cfg.AMQP.URL)
		if err != nil {
			log.Fatalf("amqp connect: %v", err)
		}
		defer conn.Close()
		publisher = events.NewAMQPPublisher(conn, cfg.AMQP.Exchange)
	}

	verifier := infra.NewJWTVerifier(cfg.Auth.JWTSecret)

	gin.SetMode(gin.ReleaseMode)

	paymentSvc := payment.NewService(payment.NewStore(dbPool))
	jobStore := deliveryjob.NewStore(dbPool, deliveryjob.PGLegacySyncer{})
	jobSvc := deliveryjob.NewService(jobStore, redisClient, publisher)
	disputeSvc := dispute.NewService(dispute.NewStore(dbPool))
	kycSvc := kyc.NewService(kyc.NewStore(dbPool))

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Verifier:      verifier,
		WebhookSecret: cfg.Auth.WebhookSecret,
	}, paymentSvc, jobSvc, disputeSvc, kycSvc)

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go runStaleJobMonitor(ctx, jobSvc, time.Duration(cfg.Monitor.TickSeconds)*time.Second)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("soko-api listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// runStaleJobMonitor periodically logs how many OPEN jobs have gone stale so
// operators notice a stuck assignment queue without polling the stats endpoint.
func runStaleJobMonitor(ctx context.Context, svc *deliveryjob.Service, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := svc.Stats(ctx)
			if err != nil {
				log.Printf("stale job monitor: %v", err)
				continue
			}
			if stats.Stale > 0 {
				log.Printf("stale job monitor: %d open jobs older than %s", stats.Stale, deliveryjob.StaleJobAge)
			}
		}
	}
}
