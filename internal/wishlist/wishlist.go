// Package wishlist gère les favoris, persistés à côté du panier mais indépendants de lui.
package wishlist

import (
	"fmt"
	"log"
	"slices"
	"sync"

	"storefront/internal/models"
	"storefront/internal/storage"
)

type Store struct {
	storage storage.Store

	writeMu *sync.Mutex // partagé par tous les Store du même storage
	mu      sync.RWMutex
	items   []models.WishlistEntry

	subsMu sync.Mutex
	subs   []func([]models.WishlistEntry)

	unsubscribe func()
}

// New charge les favoris depuis s et s'abonne à ses changements
func New(s storage.Store) (*Store, error) {
	w := &Store{storage: s, writeMu: storage.WriteLock(s)}
	items, err := w.load()
	if err != nil {
		return nil, err
	}
	w.items = items
	w.unsubscribe = s.Subscribe(w.onStorageChange)
	return w, nil
}

func (w *Store) Close() {
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
}

// OnChange enregistre fn, appelée avec la liste à jour après chaque changement
func (w *Store) OnChange(fn func([]models.WishlistEntry)) {
	w.subsMu.Lock()
	w.subs = append(w.subs, fn)
	w.subsMu.Unlock()
}

// Toggle ajoute le produit s'il est absent, le retire sinon. Renvoie true s'il a été ajouté.
func (w *Store) Toggle(m models.Material) (bool, error) {
	added := false
	err := w.mutate(func(items []models.WishlistEntry) []models.WishlistEntry {
		for i, it := range items {
			if it.ID == m.ID {
				return append(items[:i], items[i+1:]...)
			}
		}
		added = true
		return append(items, m)
	})
	return added, err
}

// Remove retire le produit id
func (w *Store) Remove(id int) error {
	return w.mutate(func(items []models.WishlistEntry) []models.WishlistEntry {
		out := items[:0]
		for _, it := range items {
			if it.ID != id {
				out = append(out, it)
			}
		}
		return out
	})
}

func (w *Store) Contains(id int) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, it := range w.items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func (w *Store) Items() []models.WishlistEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]models.WishlistEntry(nil), w.items...)
}

func (w *Store) mutate(apply func([]models.WishlistEntry) []models.WishlistEntry) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	current, err := w.load()
	if err != nil {
		return err
	}
	next := dedupe(apply(current))
	if err := storage.SetJSON(w.storage, storage.KeyWishlistItems, next); err != nil {
		return fmt.Errorf("sauvegarde favoris: %w", err)
	}
	w.mu.Lock()
	w.items = next
	w.mu.Unlock()
	return nil
}

func (w *Store) onStorageChange(key string) {
	if key != storage.KeyWishlistItems {
		return
	}
	items, err := w.load()
	if err != nil {
		log.Printf("⚠️ Resynchronisation favoris impossible: %v", err)
		return
	}
	w.mu.Lock()
	w.items = items
	w.mu.Unlock()

	w.subsMu.Lock()
	subs := slices.Clone(w.subs)
	w.subsMu.Unlock()
	for _, fn := range subs {
		fn(append([]models.WishlistEntry(nil), items...))
	}
}

func (w *Store) load() ([]models.WishlistEntry, error) {
	var items []models.WishlistEntry
	if _, err := storage.GetJSON(w.storage, storage.KeyWishlistItems, &items); err != nil {
		return nil, fmt.Errorf("lecture favoris: %w", err)
	}
	return dedupe(items), nil
}

func dedupe(items []models.WishlistEntry) []models.WishlistEntry {
	seen := make(map[int]bool, len(items))
	out := make([]models.WishlistEntry, 0, len(items))
	for _, it := range items {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}
