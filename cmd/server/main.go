package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront/internal/cache"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/routes"
	"storefront/internal/utils"
)

func main() {
	config.Load()
	cfg := config.Server()

	if cfg.StripeSecretKey == "" {
		log.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
	}
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey)
	log.Println("✅ Stripe initialisé")

	if cfg.StripeWebhookSecret == "" {
		log.Println("⚠️ Pas de STRIPE_WEBHOOK_SECRET : tous les webhooks seront refusés")
	}

	// Redis est optionnel : sans lui, pas d'idempotence, de notifications ni de rate limit.
	// Les interfaces restent nil (et non un *cache.Redis nil) pour que les gardes fonctionnent.
	var (
		events     payment.EventLog
		publisher  payment.Publisher
		subscriber handlers.CheckoutSubscriber
		counter    middleware.RateCounter
	)
	if cfg.RedisHost != "" {
		rdb, err := cache.InitRedis(cfg.RedisHost, cfg.RedisPassword)
		if err != nil {
			log.Printf("⚠️ Redis indisponible, fonctionnalités temps réel désactivées: %v", err)
		} else {
			defer rdb.Close()
			events, publisher, subscriber, counter = rdb, rdb, rdb, rdb
		}
	}

	var mailer payment.Mailer
	if m := utils.NewMailer(cfg.SMTP); m != nil {
		mailer = m
		log.Println("✅ Envoi des e-mails de confirmation activé")
	}

	h := &handlers.PaymentHandler{
		Gateway:    gateway,
		Verifier:   payment.NewVerifier(cfg.StripeWebhookSecret),
		Dispatcher: payment.NewDispatcher(payment.NewFulfiller(events, publisher, mailer)),
		Subscriber: subscriber,
		Options: payment.SessionOptions{
			Currency: cfg.Currency,
			ImageURL: cfg.ImageURL,
			Pricing:  checkout.DefaultPricing,
		},
	}

	r := gin.Default()
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	routes.RegisterRoutes(r, h, middleware.APIRateLimit(counter, "checkout", cfg.RateLimitPerMinute))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("🚀 Proxy de paiement lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Serveur arrêté: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🔄 Arrêt du serveur...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("❌ Arrêt forcé: %v", err)
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", "Stripe-Signature")
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
