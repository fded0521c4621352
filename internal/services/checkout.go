package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"velora_back_end/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart          = errors.New("empty cart")
	ErrProductUnavailable = errors.New("product unavailable")
)

// InsufficientStockError désigne le produit fautif pour que le client
// sache quelle ligne du panier corriger.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// CartLine est une ligne de panier jointe à l'état courant du produit
type CartLine struct {
	CartID      string
	CartItemID  string
	ProductID   string
	ProductName string
	Price       decimal.Decimal
	Stock       int
	IsActive    bool
	Quantity    int
}

// CheckoutStore est le port de persistance du checkout.
// SaveOrder doit exécuter en UNE transaction : insertion commande + lignes,
// décréments de stock conditionnels, suppression des lignes de panier.
type CheckoutStore interface {
	CartLines(ctx context.Context, userID string) ([]CartLine, error)
	SaveOrder(ctx context.Context, order *models.Order, cartID string) error
}

type CheckoutService struct {
	store CheckoutStore
}

func NewCheckoutService(store CheckoutStore) *CheckoutService {
	return &CheckoutService{store: store}
}

// Checkout transforme le panier de l'utilisateur en commande.
// Les prix sont figés au moment de l'appel : les lignes de commande
// copient prix, quantité et sous-total, déconnectés du produit vivant.
func (s *CheckoutService) Checkout(ctx context.Context, userID, address string) (*models.Order, error) {
	lines, err := s.store.CartLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	now := time.Now()
	order := &models.Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Status:      models.OrderStatusPending,
		AddressText: address,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	total := decimal.Zero
	for _, line := range lines {
		if !line.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, line.ProductID)
		}
		// Pré-vérification pour échouer tôt avec un message utile.
		// La transaction re-vérifie de toute façon au moment du décrément.
		if line.Stock < line.Quantity {
			return nil, &InsufficientStockError{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Requested:   line.Quantity,
				Available:   line.Stock,
			}
		}

		subtotal := line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		order.Items = append(order.Items, models.OrderItem{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			Price:       line.Price,
			Subtotal:    subtotal,
		})
		total = total.Add(subtotal)
	}
	order.Total = total

	if err := s.store.SaveOrder(ctx, order, lines[0].CartID); err != nil {
		return nil, err
	}

	return order, nil
}
