package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"velora_back_end/internal/models"

	"github.com/shopspring/decimal"
)

// Mock CheckoutStore
type mockCheckoutStore struct {
	mu      sync.Mutex
	carts   map[string][]CartLine // userID → lignes (sans stock/prix vivants)
	prices  map[string]decimal.Decimal
	stock   map[string]int
	active  map[string]bool
	saved   []*models.Order
	saveErr error
}

func newMockCheckoutStore() *mockCheckoutStore {
	return &mockCheckoutStore{
		carts:  make(map[string][]CartLine),
		prices: make(map[string]decimal.Decimal),
		stock:  make(map[string]int),
		active: make(map[string]bool),
	}
}

func (m *mockCheckoutStore) addProduct(id, name string, price string, stock int) {
	m.prices[id] = decimal.RequireFromString(price)
	m.stock[id] = stock
	m.active[id] = true
}

func (m *mockCheckoutStore) addCartLine(userID, productID string, qty int) {
	m.carts[userID] = append(m.carts[userID], CartLine{
		CartID:    "cart-" + userID,
		ProductID: productID,
		Quantity:  qty,
	})
}

func (m *mockCheckoutStore) CartLines(ctx context.Context, userID string) ([]CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := make([]CartLine, 0, len(m.carts[userID]))
	for _, l := range m.carts[userID] {
		l.ProductName = l.ProductID
		l.Price = m.prices[l.ProductID]
		l.Stock = m.stock[l.ProductID]
		l.IsActive = m.active[l.ProductID]
		lines = append(lines, l)
	}
	return lines, nil
}

func (m *mockCheckoutStore) SaveOrder(ctx context.Context, order *models.Order, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}

	// Décrément conditionnel, tout ou rien, comme la transaction MySQL
	for _, item := range order.Items {
		if m.stock[item.ProductID] < item.Quantity {
			return &InsufficientStockError{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: m.stock[item.ProductID],
			}
		}
	}
	for _, item := range order.Items {
		m.stock[item.ProductID] -= item.Quantity
	}

	m.saved = append(m.saved, order)
	delete(m.carts, order.UserID)
	return nil
}

func (m *mockCheckoutStore) savedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func TestCheckout_TotalAndFrozenLines(t *testing.T) {
	store := newMockCheckoutStore()
	store.addProduct("prod-a", "A", "10.00", 10)
	store.addProduct("prod-b", "B", "5.00", 10)
	store.addCartLine("user-1", "prod-a", 2)
	store.addCartLine("user-1", "prod-b", 1)

	svc := NewCheckoutService(store)
	order, err := svc.Checkout(context.Background(), "user-1", "12 rue des Lilas, Paris")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !order.Total.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("expected total 25.00, got %s", order.Total)
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("expected status pending, got %s", order.Status)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}

	wantSubtotals := map[string]string{"prod-a": "20.00", "prod-b": "5.00"}
	for _, item := range order.Items {
		want := decimal.RequireFromString(wantSubtotals[item.ProductID])
		if !item.Subtotal.Equal(want) {
			t.Errorf("item %s: expected subtotal %s, got %s", item.ProductID, want, item.Subtotal)
		}
		if !item.Subtotal.Equal(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))) {
			t.Errorf("item %s: subtotal != price * qty", item.ProductID)
		}
	}

	// Stock décrémenté d'exactement les quantités commandées
	if store.stock["prod-a"] != 8 || store.stock["prod-b"] != 9 {
		t.Errorf("expected stock 8/9, got %d/%d", store.stock["prod-a"], store.stock["prod-b"])
	}

	// Panier vidé
	lines, _ := store.CartLines(context.Background(), "user-1")
	if len(lines) != 0 {
		t.Errorf("expected empty cart after checkout, got %d lines", len(lines))
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	store := newMockCheckoutStore()
	svc := NewCheckoutService(store)

	_, err := svc.Checkout(context.Background(), "user-1", "")
	if !errors.Is(err, ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got: %v", err)
	}
	if store.savedCount() != 0 {
		t.Errorf("expected no order saved, got %d", store.savedCount())
	}
}

func TestCheckout_InsufficientStock(t *testing.T) {
	store := newMockCheckoutStore()
	store.addProduct("prod-a", "A", "10.00", 1)
	store.addCartLine("user-1", "prod-a", 5)

	svc := NewCheckoutService(store)
	_, err := svc.Checkout(context.Background(), "user-1", "")

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if stockErr.ProductID != "prod-a" || stockErr.Requested != 5 || stockErr.Available != 1 {
		t.Errorf("unexpected error detail: %+v", stockErr)
	}

	// Aucun effet de bord
	if store.stock["prod-a"] != 1 {
		t.Errorf("expected stock untouched at 1, got %d", store.stock["prod-a"])
	}
	if store.savedCount() != 0 {
		t.Errorf("expected no order saved, got %d", store.savedCount())
	}
	if len(store.carts["user-1"]) != 1 {
		t.Errorf("expected cart untouched")
	}
}

func TestCheckout_InactiveProduct(t *testing.T) {
	store := newMockCheckoutStore()
	store.addProduct("prod-a", "A", "10.00", 5)
	store.active["prod-a"] = false
	store.addCartLine("user-1", "prod-a", 1)

	svc := NewCheckoutService(store)
	_, err := svc.Checkout(context.Background(), "user-1", "")
	if !errors.Is(err, ErrProductUnavailable) {
		t.Errorf("expected ErrProductUnavailable, got: %v", err)
	}
	if store.savedCount() != 0 {
		t.Errorf("expected no order saved")
	}
}

func TestCheckout_StoreFailure(t *testing.T) {
	store := newMockCheckoutStore()
	store.addProduct("prod-a", "A", "10.00", 5)
	store.addCartLine("user-1", "prod-a", 1)
	store.saveErr = errors.New("connection lost")

	svc := NewCheckoutService(store)
	_, err := svc.Checkout(context.Background(), "user-1", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if store.stock["prod-a"] != 5 {
		t.Errorf("expected stock untouched, got %d", store.stock["prod-a"])
	}
}

func TestCheckout_PriceFrozenAfterOrder(t *testing.T) {
	store := newMockCheckoutStore()
	store.addProduct("prod-a", "A", "10.00", 10)
	store.addCartLine("user-1", "prod-a", 1)

	svc := NewCheckoutService(store)
	order, err := svc.Checkout(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Le produit change de prix après coup : la commande ne bouge pas
	store.prices["prod-a"] = decimal.RequireFromString("99.00")

	if !order.Items[0].Price.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("expected frozen price 10.00, got %s", order.Items[0].Price)
	}
	if !order.Total.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("expected frozen total 10.00, got %s", order.Total)
	}
}

func TestCheckout_ConcurrentLastUnit(t *testing.T) {
	store := newMockCheckoutStore()
	store.addProduct("prod-c", "C", "10.00", 1)
	store.addCartLine("user-1", "prod-c", 1)
	store.addCartLine("user-2", "prod-c", 1)

	svc := NewCheckoutService(store)

	var successCount, stockFailCount atomic.Int32
	var wg sync.WaitGroup

	for _, userID := range []string{"user-1", "user-2"} {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			_, err := svc.Checkout(context.Background(), uid, "")
			var stockErr *InsufficientStockError
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.As(err, &stockErr):
				stockFailCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(userID)
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 success, got %d", successCount.Load())
	}
	if stockFailCount.Load() != 1 {
		t.Errorf("expected exactly 1 stock failure, got %d", stockFailCount.Load())
	}
	if store.stock["prod-c"] != 0 {
		t.Errorf("expected final stock 0, got %d", store.stock["prod-c"])
	}
	if store.savedCount() != 1 {
		t.Errorf("expected 1 order saved, got %d", store.savedCount())
	}
}
