package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var ctx = context.Background()

// Redis regroupe les usages Redis du proxy : idempotence des webhooks,
// diffusion des événements de paiement et rate limiting.
type Redis struct {
	Client *redis.Client
}

// InitRedis ouvre la connexion Redis et la vérifie avec un PING
func InitRedis(addr, password string) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("REDIS_HOST non configuré")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0, // Base de données par défaut
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// Test de connexion
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("impossible de se connecter à Redis: %v", err)
	}

	log.Println("✅ Redis connecté avec succès")
	return &Redis{Client: client}, nil
}

// Close ferme la connexion Redis
func (r *Redis) Close() error {
	if r != nil && r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// --- Idempotence des webhooks ---

// ProcessedEventTTL couvre la fenêtre de ré-émission des webhooks par le processeur
const ProcessedEventTTL = 72 * time.Hour

// MarkEventProcessed renvoie true si l'événement est vu pour la première fois
func (r *Redis) MarkEventProcessed(eventID string) (bool, error) {
	key := fmt.Sprintf("webhook_event:%s", eventID)
	return r.Client.SetNX(ctx, key, "1", ProcessedEventTTL).Result()
}

// --- Diffusion des événements de paiement ---

// CheckoutChannel est le canal des notifications de paiement d'une commande
func CheckoutChannel(orderID string) string {
	return fmt.Sprintf("checkout:%s", orderID)
}

// PublishCheckoutEvent publie payload sur checkout:<orderId>
func (r *Redis) PublishCheckoutEvent(orderID string, payload []byte) error {
	return r.Client.Publish(ctx, CheckoutChannel(orderID), payload).Err()
}

// SubscribeCheckout s'abonne aux notifications de paiement d'une commande
func (r *Redis) SubscribeCheckout(c context.Context, orderID string) *redis.PubSub {
	return r.Client.Subscribe(c, CheckoutChannel(orderID))
}

// --- Rate Limiting ---

// IncrementRateLimit incrémente le compteur de rate limit et fixe sa fenêtre au premier appel
func (r *Redis) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	n, err := r.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := r.Client.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}
