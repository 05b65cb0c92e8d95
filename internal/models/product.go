package models

import "encoding/json"

// Material est un produit du catalogue distant (format de l'API Sugary)
type Material struct {
	ID              int     `json:"Id"`
	Title           string  `json:"Title"`
	BrandName       string  `json:"BrandName"`
	CoverPhoto      string  `json:"CoverPhoto"`
	SalesPriceInUsd float64 `json:"SalesPriceInUsd"`
	Type            int     `json:"Type,omitempty"`
}

// CatalogFilter est encodé en base64 JSON dans le paramètre ?filter=
type CatalogFilter struct {
	Skip  int   `json:"Skip"`
	Limit int   `json:"Limit"`
	Types []int `json:"Types"`
}

// CatalogResponse est la réponse de GET /Materials/GetAll
type CatalogResponse struct {
	Materials     []Material        `json:"Materials"`
	Tags          []json.RawMessage `json:"Tags,omitempty"`
	DeliveryAreas []json.RawMessage `json:"DeliveryAreas,omitempty"`
}
