package database

import (
	"context"
	"fmt"
	"log"
)

// Schéma créé au démarrage. Les ALTER se font à la main en production.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id    CHAR(36) PRIMARY KEY,
		email      VARCHAR(255) NOT NULL UNIQUE,
		password   VARCHAR(255) NOT NULL,
		name       VARCHAR(255) NOT NULL,
		role       VARCHAR(32)  NOT NULL DEFAULT 'customer',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		category_id CHAR(36) PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		slug        VARCHAR(255) NOT NULL UNIQUE,
		description TEXT,
		created_at  DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id  CHAR(36) PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		description TEXT,
		price       DECIMAL(10,2) NOT NULL,
		stock       INT NOT NULL DEFAULT 0,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		category_id CHAR(36),
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL,
		CONSTRAINT fk_products_category FOREIGN KEY (category_id) REFERENCES categories(category_id),
		CONSTRAINT chk_products_stock CHECK (stock >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		cart_id    CHAR(36) PRIMARY KEY,
		user_id    CHAR(36) NOT NULL UNIQUE,
		created_at DATETIME NOT NULL,
		CONSTRAINT fk_carts_user FOREIGN KEY (user_id) REFERENCES users(user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		cart_item_id CHAR(36) PRIMARY KEY,
		cart_id      CHAR(36) NOT NULL,
		product_id   CHAR(36) NOT NULL,
		quantity     INT NOT NULL,
		UNIQUE KEY uniq_cart_product (cart_id, product_id),
		CONSTRAINT fk_cart_items_cart FOREIGN KEY (cart_id) REFERENCES carts(cart_id),
		CONSTRAINT fk_cart_items_product FOREIGN KEY (product_id) REFERENCES products(product_id),
		CONSTRAINT chk_cart_items_qty CHECK (quantity >= 1)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id     CHAR(36) PRIMARY KEY,
		user_id      CHAR(36) NOT NULL,
		total        DECIMAL(10,2) NOT NULL,
		status       VARCHAR(20) NOT NULL,
		address_text TEXT,
		created_at   DATETIME NOT NULL,
		updated_at   DATETIME NOT NULL,
		INDEX idx_orders_user (user_id, created_at),
		CONSTRAINT fk_orders_user FOREIGN KEY (user_id) REFERENCES users(user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_item_id CHAR(36) PRIMARY KEY,
		order_id      CHAR(36) NOT NULL,
		product_id    CHAR(36) NOT NULL,
		quantity      INT NOT NULL,
		price         DECIMAL(10,2) NOT NULL,
		subtotal      DECIMAL(10,2) NOT NULL,
		CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders(order_id),
		CONSTRAINT fk_order_items_product FOREIGN KEY (product_id) REFERENCES products(product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS addresses (
		address_id  CHAR(36) PRIMARY KEY,
		user_id     CHAR(36) NOT NULL,
		street      VARCHAR(255) NOT NULL,
		postal_code VARCHAR(32)  NOT NULL,
		city        VARCHAR(255) NOT NULL,
		country     VARCHAR(255) NOT NULL,
		is_default  BOOLEAN NOT NULL DEFAULT FALSE,
		CONSTRAINT fk_addresses_user FOREIGN KEY (user_id) REFERENCES users(user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS wishlist_items (
		user_id    CHAR(36) NOT NULL,
		product_id CHAR(36) NOT NULL,
		added_at   DATETIME NOT NULL,
		PRIMARY KEY (user_id, product_id),
		CONSTRAINT fk_wishlist_user FOREIGN KEY (user_id) REFERENCES users(user_id),
		CONSTRAINT fk_wishlist_product FOREIGN KEY (product_id) REFERENCES products(product_id)
	)`,
}

// Migrate crée les tables manquantes
func Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := MySQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("création table: %w", err)
		}
	}
	log.Println("✅ Schéma MySQL vérifié")
	return nil
}
