package models

import "github.com/shopspring/decimal"

type Cart struct {
	ID     string     `json:"cart_id"`
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}

// CartItem est une ligne de panier enrichie des infos produit courantes.
// Le prix affiché ici est le prix du moment, pas un prix figé.
type CartItem struct {
	ID        string          `json:"id,omitempty"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}
