package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/session"
	"storefront/internal/storage"
	"storefront/internal/wishlist"
)

const fileWatchInterval = 500 * time.Millisecond

// app regroupe les services du client, construits une fois par exécution
type app struct {
	cfg      config.ClientConfig
	store    storage.Store
	sessions *session.Manager
	catalog  *catalog.Catalog
	cart     *cart.Store
	wishlist *wishlist.Store
	checkout *checkout.Service

	cancel  context.CancelFunc
	closers []func()
}

func newApp(ctx context.Context, cfg config.ClientConfig) (*app, error) {
	a := &app{cfg: cfg}
	ctx, a.cancel = context.WithCancel(ctx)

	store, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	httpClient := client.NewHTTPClient(cfg.HTTPTimeout)

	a.sessions = session.NewManager(session.NewAPI(cfg.APIBaseURL, httpClient), store)
	a.sessions.OnLogout(func(reason error) {
		if reason != nil {
			fmt.Fprintf(os.Stderr, "Your session has ended (%v). Please log in again: storefront login -u <username>\n", reason)
		}
	})

	api := client.New(cfg.APIBaseURL, httpClient, a.sessions)
	a.catalog = catalog.New(api)

	if a.cart, err = cart.New(store); err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.cart.Close)

	if a.wishlist, err = wishlist.New(store); err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.wishlist.Close)

	// le proxy de paiement n'utilise pas le jeton Sugary
	proxy := client.New(cfg.PaymentBaseURL, httpClient, nil)
	a.checkout = checkout.NewService(proxy, checkout.DefaultPricing)

	return a, nil
}

// openStorage ouvre l'état persisté et relaie les changements faits par d'autres processus
func (a *app) openStorage(ctx context.Context) (storage.Store, error) {
	switch a.cfg.StateBackend {
	case "memory":
		return storage.NewMemory(), nil

	case "redis":
		if a.cfg.RedisHost == "" {
			return nil, errors.New("STATE_BACKEND=redis requires REDIS_HOST")
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:        a.cfg.RedisHost,
			Password:    a.cfg.RedisPassword,
			DialTimeout: 5 * time.Second,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("impossible de se connecter à Redis: %w", err)
		}
		a.closers = append(a.closers, func() { rdb.Close() })

		store := storage.NewRedis(rdb, "default")
		go func() {
			if err := store.Listen(ctx); err != nil {
				log.Printf("⚠️ Synchronisation Redis interrompue: %v", err)
			}
		}()
		return store, nil

	case "file", "":
		store, err := storage.NewFile(a.cfg.StateFile)
		if err != nil {
			return nil, err
		}
		go store.Watch(ctx, fileWatchInterval)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown STATE_BACKEND %q (file, redis, memory)", a.cfg.StateBackend)
	}
}

func (a *app) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
