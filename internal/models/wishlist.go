package models

// WishlistEntry est un instantané du produit au moment de l'ajout (clé wishlist_items)
type WishlistEntry = Material
