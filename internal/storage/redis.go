package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis partage l'état entre plusieurs clients (plusieurs terminaux, plusieurs vues).
// Chaque écriture est publiée sur un canal pour que les autres instances se resynchronisent.
type Redis struct {
	notifier
	client    *redis.Client
	namespace string
	writerID  string
	ctx       context.Context
}

// NewRedis crée un store dont les clés sont préfixées par storefront:<namespace>:
func NewRedis(client *redis.Client, namespace string) *Redis {
	return &Redis{
		client:    client,
		namespace: namespace,
		writerID:  uuid.NewString(),
		ctx:       context.Background(),
	}
}

func (r *Redis) key(k string) string {
	return fmt.Sprintf("storefront:%s:%s", r.namespace, k)
}

func (r *Redis) channel() string {
	return fmt.Sprintf("storefront:%s:changes", r.namespace)
}

func (r *Redis) Get(key string) ([]byte, bool, error) {
	v, err := r.client.Get(r.ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (r *Redis) Set(key string, value []byte) error {
	// Pas d'expiration : l'état vit jusqu'au logout, comme le localStorage
	if err := r.client.Set(r.ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	r.publish(key)
	r.notify(key)
	return nil
}

func (r *Redis) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(r.ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	for _, k := range keys {
		r.publish(k)
	}
	r.notify(keys...)
	return nil
}

func (r *Redis) Clear() error {
	prefix := r.key("")
	var keys []string
	iter := r.client.Scan(r.ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(r.ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return r.Delete(keys...)
}

// Listen relaie les changements publiés par les autres instances. Bloque jusqu'à l'annulation de ctx.
func (r *Redis) Listen(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel())
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("abonnement %s: %w", r.channel(), err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			writer, key, found := strings.Cut(msg.Payload, "|")
			if !found || writer == r.writerID {
				continue
			}
			r.notify(key)
		}
	}
}

func (r *Redis) publish(key string) {
	if err := r.client.Publish(r.ctx, r.channel(), r.writerID+"|"+key).Err(); err != nil {
		log.Printf("⚠️ Publication changement %s échouée: %v", key, err)
	}
}
