package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"velora_back_end/internal/models"
)

// MySQLCheckoutStore implémente CheckoutStore sur le schéma MySQL
type MySQLCheckoutStore struct {
	db *sql.DB
}

func NewMySQLCheckoutStore(db *sql.DB) *MySQLCheckoutStore {
	return &MySQLCheckoutStore{db: db}
}

// CartLines charge le panier de l'utilisateur joint aux produits vivants
func (m *MySQLCheckoutStore) CartLines(ctx context.Context, userID string) ([]CartLine, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT ci.cart_id, ci.cart_item_id, p.product_id, p.name, p.price, p.stock, p.is_active, ci.quantity
		FROM carts c
		JOIN cart_items ci ON ci.cart_id = c.cart_id
		JOIN products p ON p.product_id = ci.product_id
		WHERE c.user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	defer rows.Close()

	var lines []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.CartID, &l.CartItemID, &l.ProductID, &l.ProductName,
			&l.Price, &l.Stock, &l.IsActive, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// SaveOrder persiste la commande en une seule transaction :
// commande + lignes figées, décréments de stock conditionnels,
// vidage du panier. Tout ou rien.
func (m *MySQLCheckoutStore) SaveOrder(ctx context.Context, order *models.Order, cartID string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (order_id, user_id, total, status, address_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.Total, order.Status, order.AddressText,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_item_id, order_id, product_id, quantity, price, subtotal)
			VALUES (?, ?, ?, ?, ?, ?)`,
			item.ID, order.ID, item.ProductID, item.Quantity, item.Price, item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}

		// Décrément conditionnel : zéro ligne affectée = stock insuffisant
		// (ou produit disparu / désactivé) → rollback complet
		result, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - ?, updated_at = NOW()
			WHERE product_id = ? AND stock >= ? AND is_active = TRUE`,
			item.Quantity, item.ProductID, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return m.stockFailure(ctx, tx, item)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	return tx.Commit()
}

// stockFailure qualifie l'échec du décrément pour nommer le produit fautif
func (m *MySQLCheckoutStore) stockFailure(ctx context.Context, tx *sql.Tx, item models.OrderItem) error {
	var stock int
	var active bool
	err := tx.QueryRowContext(ctx,
		`SELECT stock, is_active FROM products WHERE product_id = ?`,
		item.ProductID,
	).Scan(&stock, &active)

	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return fmt.Errorf("%w: %s", ErrProductUnavailable, item.ProductID)
	}
	if err != nil {
		return fmt.Errorf("inspect product %s: %w", item.ProductID, err)
	}

	return &InsufficientStockError{
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Requested:   item.Quantity,
		Available:   stock,
	}
}
