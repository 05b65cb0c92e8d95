package models

// CartLine est une ligne du panier persistée sous la clé cart_items.
// Les noms JSON reprennent ceux du catalogue pour rester compatibles avec l'état déjà stocké.
type CartLine struct {
	ProductID int     `json:"Id"`
	Title     string  `json:"Title"`
	Brand     string  `json:"BrandName"`
	UnitPrice float64 `json:"SalesPriceInUsd"`
	ImageRef  string  `json:"CoverPhoto"`
	Quantity  int     `json:"quantity"`
}

// LineFromMaterial crée une ligne de quantité 1 pour un produit du catalogue
func LineFromMaterial(m Material) CartLine {
	return CartLine{
		ProductID: m.ID,
		Title:     m.Title,
		Brand:     m.BrandName,
		UnitPrice: m.SalesPriceInUsd,
		ImageRef:  m.CoverPhoto,
		Quantity:  1,
	}
}
