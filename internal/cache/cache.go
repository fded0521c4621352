package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"velora_back_end/internal/database"
	"velora_back_end/internal/models"
)

const (
	ProductCacheTTL  = 10 * time.Minute
	ListingCacheTTL  = time.Hour
	ProductKeyPrefix = "product:"
)

// GetProductFromCache récupère un produit depuis Redis ou MySQL
func GetProductFromCache(ctx context.Context, productID string) (*models.Product, error) {
	key := ProductKeyPrefix + productID

	// 1. Essayer le cache Redis
	data, err := database.Redis.Get(ctx, key).Result()
	if err == nil {
		var product models.Product
		if json.Unmarshal([]byte(data), &product) == nil {
			return &product, nil
		}
	}

	// 2. Récupérer de MySQL
	var p models.Product
	err = database.MySQL.QueryRowContext(ctx, `
		SELECT product_id, name, description, price, stock, is_active, category_id, created_at, updated_at
		FROM products WHERE product_id = ?`, productID).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.IsActive,
			&p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	// 3. Mettre en cache pour les prochains appels
	if data, err := json.Marshal(p); err == nil {
		database.Redis.Set(ctx, key, data, ProductCacheTTL)
	}

	return &p, nil
}

// InvalidateProduct purge un produit et les listings qui le contiennent
func InvalidateProduct(ctx context.Context, productID string) {
	database.Redis.Del(ctx, ProductKeyPrefix+productID, "products:all")
}

// InvalidateListings purge uniquement les caches de listing
func InvalidateListings(ctx context.Context) {
	database.Redis.Del(ctx, "products:all", "categories:all")
}

// IsNotFound distingue "produit absent" d'une panne du store
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
