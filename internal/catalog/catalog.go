// Package catalog lit les produits de l'API distante /Materials/GetAll.
package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"storefront/internal/client"
	"storefront/internal/models"
)

const (
	PageSize = 20
	// FindLimit est le nombre de produits parcourus pour retrouver un produit par id
	FindLimit = 100
)

// DefaultTypes filtre les produits vendables
var DefaultTypes = []int{1}

// Getter est la partie du client HTTP utilisée par le catalogue
type Getter interface {
	Get(ctx context.Context, path string, dst any) error
}

type Catalog struct {
	api Getter
}

func New(api Getter) *Catalog {
	return &Catalog{api: api}
}

// EncodeFilter encode le filtre en base64 JSON, comme btoa(JSON.stringify(...)) côté navigateur
func EncodeFilter(f models.CatalogFilter) (string, error) {
	if f.Types == nil {
		f.Types = []int{}
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// GetAll appelle GET /Materials/GetAll?filter=<base64>
func (c *Catalog) GetAll(ctx context.Context, f models.CatalogFilter) (*models.CatalogResponse, error) {
	filter, err := EncodeFilter(f)
	if err != nil {
		return nil, fmt.Errorf("encodage filtre: %w", err)
	}
	var res models.CatalogResponse
	if err := c.api.Get(ctx, "/Materials/GetAll?filter="+url.QueryEscape(filter), &res); err != nil {
		return nil, fmt.Errorf("chargement catalogue: %w", err)
	}
	return &res, nil
}

// Find retrouve un produit parmi les FindLimit premiers ; ErrNotFound s'il est absent
func (c *Catalog) Find(ctx context.Context, id int) (*models.Material, []models.Material, error) {
	res, err := c.GetAll(ctx, models.CatalogFilter{Skip: 0, Limit: FindLimit, Types: DefaultTypes})
	if err != nil {
		return nil, nil, err
	}
	for i := range res.Materials {
		if res.Materials[i].ID == id {
			m := res.Materials[i]
			return &m, res.Materials, nil
		}
	}
	return nil, res.Materials, fmt.Errorf("produit %d: %w", id, client.ErrNotFound)
}

// Related renvoie les produits de la même marque, sans le produit lui-même
func Related(all []models.Material, m models.Material) []models.Material {
	var out []models.Material
	for _, other := range all {
		if other.BrandName == m.BrandName && other.ID != m.ID {
			out = append(out, other)
		}
	}
	return out
}

// Search filtre par titre ou marque, sans tenir compte de la casse
func Search(all []models.Material, query string) []models.Material {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all
	}
	var out []models.Material
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.Title), q) || strings.Contains(strings.ToLower(m.BrandName), q) {
			out = append(out, m)
		}
	}
	return out
}
