package catalog

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"storefront/internal/models"
)

var (
	ErrNoMore   = errors.New("plus de produits à charger")
	ErrMaxCalls = errors.New("nombre maximum d'appels atteint, rechargez pour continuer")
)

// Pager implémente le défilement infini : chaque Next charge la page suivante de PageSize produits.
// Des Next concurrents sur la même page ne produisent qu'un seul appel.
type Pager struct {
	catalog  *Catalog
	types    []int
	maxCalls int

	group singleflight.Group

	mu      sync.Mutex
	skip    int
	hasMore bool
	calls   int
	items   []models.Material
}

// NewPager crée un pager ; maxCalls <= 0 désactive la limite d'appels
func (c *Catalog) NewPager(maxCalls int) *Pager {
	return &Pager{catalog: c, types: DefaultTypes, maxCalls: maxCalls, hasMore: true}
}

// errStale signale qu'une autre page a été chargée entre la lecture de la position et l'appel
var errStale = errors.New("position de page périmée")

// Next charge et renvoie la page suivante
func (p *Pager) Next(ctx context.Context) ([]models.Material, error) {
	for {
		page, err := p.next(ctx)
		if errors.Is(err, errStale) {
			continue
		}
		return page, err
	}
}

func (p *Pager) next(ctx context.Context) ([]models.Material, error) {
	p.mu.Lock()
	skip, hasMore := p.skip, p.hasMore
	p.mu.Unlock()
	if !hasMore {
		return nil, ErrNoMore
	}
	return p.load(ctx, skip)
}

// load charge la page à skip, ou renvoie errStale si la position a avancé depuis
func (p *Pager) load(ctx context.Context, skip int) ([]models.Material, error) {
	v, err, _ := p.group.Do(strconv.Itoa(skip), func() (any, error) {
		p.mu.Lock()
		if p.skip != skip {
			p.mu.Unlock()
			return nil, errStale
		}
		if p.maxCalls > 0 && p.calls >= p.maxCalls {
			p.mu.Unlock()
			return nil, ErrMaxCalls
		}
		p.calls++
		p.mu.Unlock()

		res, err := p.catalog.GetAll(ctx, models.CatalogFilter{Skip: skip, Limit: PageSize, Types: p.types})
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		p.items = append(p.items, res.Materials...)
		p.skip += PageSize
		p.hasMore = len(res.Materials) == PageSize
		return res.Materials, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Material), nil
}

func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// Items renvoie tous les produits chargés jusqu'ici
func (p *Pager) Items() []models.Material {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Material(nil), p.items...)
}

// Reset repart de la première page et remet le compteur d'appels à zéro
func (p *Pager) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skip, p.hasMore, p.calls, p.items = 0, true, 0, nil
}
