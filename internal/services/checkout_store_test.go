package services

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"velora_back_end/internal/database"
	"velora_back_end/internal/models"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/velora_test?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	database.MySQL = db
	if err := database.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	// Base de test dédiée : on repart de zéro, dans l'ordre des FK
	for _, table := range []string{
		"order_items", "orders", "cart_items", "carts",
		"wishlist_items", "addresses", "products", "categories", "users",
	} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("cleanup %s failed: %v", table, err)
		}
	}

	return db
}

type seed struct {
	userID string
	cartID string
}

func seedCart(t *testing.T, db *sql.DB, products map[string]struct {
	price string
	stock int
	qty   int
}) seed {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	s := seed{userID: uuid.NewString(), cartID: uuid.NewString()}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO users (user_id, email, password, name, role, created_at, updated_at)
		VALUES (?, ?, 'x', 'Test', 'customer', ?, ?)`,
		s.userID, s.userID+"@test.local", now, now); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO carts (cart_id, user_id, created_at) VALUES (?, ?, ?)`,
		s.cartID, s.userID, now); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	for productID, p := range products {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO products (product_id, name, description, price, stock, is_active, created_at, updated_at)
			VALUES (?, ?, '', ?, ?, TRUE, ?, ?)`,
			productID, "product "+productID[:8], p.price, p.stock, now, now); err != nil {
			t.Fatalf("seed product: %v", err)
		}
		if p.qty > 0 {
			if _, err := db.ExecContext(ctx, `
				INSERT INTO cart_items (cart_item_id, cart_id, product_id, quantity) VALUES (?, ?, ?, ?)`,
				uuid.NewString(), s.cartID, productID, p.qty); err != nil {
				t.Fatalf("seed cart item: %v", err)
			}
		}
	}

	return s
}

func productStock(t *testing.T, db *sql.DB, productID string) int {
	t.Helper()
	var stock int
	if err := db.QueryRow(`SELECT stock FROM products WHERE product_id = ?`, productID).Scan(&stock); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return stock
}

func TestMySQLStore_CheckoutCommitsAtomically(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	prodA, prodB := uuid.NewString(), uuid.NewString()
	s := seedCart(t, db, map[string]struct {
		price string
		stock int
		qty   int
	}{
		prodA: {price: "10.00", stock: 5, qty: 2},
		prodB: {price: "5.00", stock: 3, qty: 1},
	})

	svc := NewCheckoutService(NewMySQLCheckoutStore(db))
	order, err := svc.Checkout(context.Background(), s.userID, "1 rue du Test")
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if !order.Total.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("expected total 25.00, got %s", order.Total)
	}

	// Commande persistée avec le bon total
	var storedTotal decimal.Decimal
	var status string
	if err := db.QueryRow(`SELECT total, status FROM orders WHERE order_id = ?`, order.ID).
		Scan(&storedTotal, &status); err != nil {
		t.Fatalf("order row missing: %v", err)
	}
	if !storedTotal.Equal(order.Total) || status != string(models.OrderStatusPending) {
		t.Errorf("stored order mismatch: total=%s status=%s", storedTotal, status)
	}

	var itemCount int
	db.QueryRow(`SELECT COUNT(*) FROM order_items WHERE order_id = ?`, order.ID).Scan(&itemCount)
	if itemCount != 2 {
		t.Errorf("expected 2 order items, got %d", itemCount)
	}

	// Stock décrémenté d'exactement les quantités commandées
	if got := productStock(t, db, prodA); got != 3 {
		t.Errorf("expected stock 3 for A, got %d", got)
	}
	if got := productStock(t, db, prodB); got != 2 {
		t.Errorf("expected stock 2 for B, got %d", got)
	}

	// Panier vidé, la ligne carts reste
	var remaining int
	db.QueryRow(`SELECT COUNT(*) FROM cart_items WHERE cart_id = ?`, s.cartID).Scan(&remaining)
	if remaining != 0 {
		t.Errorf("expected empty cart, got %d items", remaining)
	}
	var cartCount int
	db.QueryRow(`SELECT COUNT(*) FROM carts WHERE cart_id = ?`, s.cartID).Scan(&cartCount)
	if cartCount != 1 {
		t.Errorf("cart row should survive checkout")
	}
}

func TestMySQLStore_InsufficientStockRollsBackEverything(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	prodA, prodB := uuid.NewString(), uuid.NewString()
	s := seedCart(t, db, map[string]struct {
		price string
		stock int
		qty   int
	}{
		prodA: {price: "10.00", stock: 5, qty: 2},
		prodB: {price: "5.00", stock: 1, qty: 4}, // en rupture
	})

	// Passer sous le pré-contrôle du service pour éprouver la transaction :
	// le store est appelé directement avec une commande déjà construite
	store := NewMySQLCheckoutStore(db)
	lines, err := store.CartLines(context.Background(), s.userID)
	if err != nil {
		t.Fatalf("cart lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	now := time.Now()
	order := &models.Order{
		ID:        uuid.NewString(),
		UserID:    s.userID,
		Status:    models.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	total := decimal.Zero
	for _, l := range lines {
		sub := l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		order.Items = append(order.Items, models.OrderItem{
			ID: uuid.NewString(), OrderID: order.ID, ProductID: l.ProductID,
			Quantity: l.Quantity, Price: l.Price, Subtotal: sub,
		})
		total = total.Add(sub)
	}
	order.Total = total

	err = store.SaveOrder(context.Background(), order, s.cartID)
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if stockErr.ProductID != prodB {
		t.Errorf("expected offending product %s, got %s", prodB, stockErr.ProductID)
	}

	// Tout ou rien : pas de commande, stocks intacts, panier intact
	var orderCount int
	db.QueryRow(`SELECT COUNT(*) FROM orders WHERE order_id = ?`, order.ID).Scan(&orderCount)
	if orderCount != 0 {
		t.Errorf("order row should not survive rollback")
	}
	if got := productStock(t, db, prodA); got != 5 {
		t.Errorf("expected stock 5 for A after rollback, got %d", got)
	}
	if got := productStock(t, db, prodB); got != 1 {
		t.Errorf("expected stock 1 for B after rollback, got %d", got)
	}
	var remaining int
	db.QueryRow(`SELECT COUNT(*) FROM cart_items WHERE cart_id = ?`, s.cartID).Scan(&remaining)
	if remaining != 2 {
		t.Errorf("expected cart untouched, got %d items", remaining)
	}
}

func TestMySQLStore_EmptyCartRejected(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	s := seedCart(t, db, map[string]struct {
		price string
		stock int
		qty   int
	}{})

	svc := NewCheckoutService(NewMySQLCheckoutStore(db))
	_, err := svc.Checkout(context.Background(), s.userID, "")
	if !errors.Is(err, ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got: %v", err)
	}

	var orderCount int
	db.QueryRow(`SELECT COUNT(*) FROM orders WHERE user_id = ?`, s.userID).Scan(&orderCount)
	if orderCount != 0 {
		t.Errorf("no order should exist for empty cart")
	}
}
