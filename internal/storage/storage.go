// Package storage fournit l'état persistant du client (équivalent du localStorage du navigateur).
package storage

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Clés persistées, toutes encodées en JSON
const (
	KeyToken          = "token"
	KeyRefreshToken   = "refreshToken"
	KeyTokenExpiresAt = "tokenExpiresAt"
	KeyCartItems      = "cart_items"
	KeyWishlistItems  = "wishlist_items"
)

// Store est un magasin clé/valeur persistant qui notifie ses abonnés à chaque changement,
// qu'il vienne de ce processus ou d'un autre écrivain.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(keys ...string) error
	Clear() error
	Subscribe(fn func(key string)) (unsubscribe func())
}

// GetJSON décode la valeur de key dans dst. found vaut false si la clé est absente.
func GetJSON(s Store, key string, dst any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("décodage %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encode v et l'enregistre sous key
func SetJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encodage %s: %w", key, err)
	}
	return s.Set(key, raw)
}

// notifier implémente le mécanisme d'abonnement partagé par tous les stores
type notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(string)
}

func (n *notifier) Subscribe(fn func(key string)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(string))
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *notifier) notify(keys ...string) {
	n.mu.Lock()
	fns := make([]func(string), 0, len(n.subs))
	for id := 0; id < n.nextID; id++ {
		if fn, ok := n.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	n.mu.Unlock()

	for _, key := range keys {
		for _, fn := range fns {
			fn(key)
		}
	}
}

var writeLocks sync.Map

// WriteLock renvoie le verrou des lectures-modifications-écritures sur s.
// Tous les appelants qui partagent s dans ce processus reçoivent le même verrou.
func WriteLock(s Store) *sync.Mutex {
	l, _ := writeLocks.LoadOrStore(s, &sync.Mutex{})
	return l.(*sync.Mutex)
}
