// Package cart gère le panier persistant du client.
package cart

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"storefront/internal/models"
	"storefront/internal/storage"
)

var (
	ErrInvalidQuantity = errors.New("quantité invalide")
	ErrNotInCart       = errors.New("produit absent du panier")
)

// Store est le panier : lignes uniques par produit, quantité >= 1, persisté après chaque mutation.
// Plusieurs Store peuvent partager le même storage.Store : chacun se resynchronise
// quand la clé cart_items change.
type Store struct {
	storage storage.Store

	writeMu *sync.Mutex // partagé par tous les Store du même storage
	mu      sync.RWMutex
	lines   []models.CartLine

	subsMu sync.Mutex
	nextID int
	subs   map[int]func([]models.CartLine)

	unsubscribe func()
}

// New charge le panier depuis s et s'abonne à ses changements
func New(s storage.Store) (*Store, error) {
	c := &Store{storage: s, writeMu: storage.WriteLock(s), subs: make(map[int]func([]models.CartLine))}
	lines, err := c.load()
	if err != nil {
		return nil, err
	}
	c.lines = lines
	c.unsubscribe = s.Subscribe(c.onStorageChange)
	return c, nil
}

// Close détache le panier du storage
func (c *Store) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// Subscribe enregistre fn, appelée avec un instantané du panier après chaque changement
func (c *Store) Subscribe(fn func([]models.CartLine)) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
	}
}

// AddItem ajoute le produit avec la quantité 1, ou incrémente sa quantité s'il est déjà présent
func (c *Store) AddItem(m models.Material) error {
	return c.mutate(func(lines []models.CartLine) ([]models.CartLine, error) {
		for i := range lines {
			if lines[i].ProductID == m.ID {
				lines[i].Quantity++
				return lines, nil
			}
		}
		return append(lines, models.LineFromMaterial(m)), nil
	})
}

// RemoveItem supprime la ligne du produit id (sans erreur si elle est absente)
func (c *Store) RemoveItem(id int) error {
	return c.mutate(func(lines []models.CartLine) ([]models.CartLine, error) {
		out := lines[:0]
		for _, l := range lines {
			if l.ProductID != id {
				out = append(out, l)
			}
		}
		return out, nil
	})
}

// UpdateQuantity fixe la quantité de la ligne id. n < 1 ne change rien et renvoie
// ErrInvalidQuantity : la suppression passe uniquement par RemoveItem.
func (c *Store) UpdateQuantity(id, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, n)
	}
	return c.mutate(func(lines []models.CartLine) ([]models.CartLine, error) {
		for i := range lines {
			if lines[i].ProductID == id {
				lines[i].Quantity = n
				return lines, nil
			}
		}
		return nil, fmt.Errorf("%w: %d", ErrNotInCart, id)
	})
}

// Clear vide le panier
func (c *Store) Clear() error {
	return c.mutate(func([]models.CartLine) ([]models.CartLine, error) {
		return []models.CartLine{}, nil
	})
}

// Lines renvoie une copie des lignes, dans l'ordre d'ajout
func (c *Store) Lines() []models.CartLine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.CartLine(nil), c.lines...)
}

// Count est la somme des quantités
func (c *Store) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Total est la somme des prix unitaires multipliés par les quantités
func (c *Store) Total() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total float64
	for _, l := range c.lines {
		total += l.UnitPrice * float64(l.Quantity)
	}
	return total
}

// Quantity renvoie la quantité du produit id, 0 s'il n'est pas dans le panier
func (c *Store) Quantity(id int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range c.lines {
		if l.ProductID == id {
			return l.Quantity
		}
	}
	return 0
}

func (c *Store) mutate(apply func([]models.CartLine) ([]models.CartLine, error)) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	// relit l'état persisté : un autre écrivain a pu passer depuis la dernière notification
	current, err := c.load()
	if err != nil {
		return err
	}
	next, err := apply(current)
	if err != nil {
		return err
	}
	next = sanitize(next)

	// le storage notifie ensuite onStorageChange, qui met à jour c.lines et les abonnés
	if err := storage.SetJSON(c.storage, storage.KeyCartItems, next); err != nil {
		return fmt.Errorf("sauvegarde panier: %w", err)
	}
	c.mu.Lock()
	c.lines = next
	c.mu.Unlock()
	return nil
}

func (c *Store) onStorageChange(key string) {
	if key != storage.KeyCartItems {
		return
	}
	lines, err := c.load()
	if err != nil {
		log.Printf("⚠️ Resynchronisation panier impossible: %v", err)
		return
	}
	c.mu.Lock()
	c.lines = lines
	c.mu.Unlock()
	c.publish(lines)
}

func (c *Store) publish(lines []models.CartLine) {
	c.subsMu.Lock()
	fns := make([]func([]models.CartLine), 0, len(c.subs))
	for id := 0; id < c.nextID; id++ {
		if fn, ok := c.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	c.subsMu.Unlock()
	for _, fn := range fns {
		fn(append([]models.CartLine(nil), lines...))
	}
}

func (c *Store) load() ([]models.CartLine, error) {
	var lines []models.CartLine
	if _, err := storage.GetJSON(c.storage, storage.KeyCartItems, &lines); err != nil {
		return nil, fmt.Errorf("lecture panier: %w", err)
	}
	return sanitize(lines), nil
}

// sanitize fusionne les doublons et retire les lignes de quantité <= 0
func sanitize(lines []models.CartLine) []models.CartLine {
	out := make([]models.CartLine, 0, len(lines))
	index := make(map[int]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}
