package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Cycle de vie d'une commande : pending → processing → shipped → completed.
// L'annulation n'est possible que depuis un état non terminal et non expédié.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusCompleted},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

// IsValid indique si le statut fait partie de l'énumération
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransitionTo vérifie que le passage de statut est autorisé
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	UserEmail   string          `json:"user_email,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Status      OrderStatus     `json:"status"`
	AddressText string          `json:"address_text,omitempty"`
	Items       []OrderItem     `json:"order_items"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"-"`
}

// OrderItem est une copie figée : le prix et le sous-total ne bougent
// plus jamais, même si le produit change de prix ensuite.
type OrderItem struct {
	ID          string          `json:"id,omitempty"`
	OrderID     string          `json:"-"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}
