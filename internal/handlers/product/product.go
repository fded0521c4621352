package product

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"velora_back_end/internal/cache"
	"velora_back_end/internal/database"
	"velora_back_end/internal/models"
	"velora_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 🟢 POST /products (admin)
func CreateProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if p.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le champ 'name' est obligatoire"})
		return
	}
	if p.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prix invalide"})
		return
	}
	if p.Stock < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le stock ne peut pas être négatif"})
		return
	}

	ctx := context.Background()

	// ✅ Vérifie la catégorie si fournie
	if p.CategoryID != nil {
		var categoryName string
		err := database.MySQL.QueryRowContext(ctx,
			`SELECT name FROM categories WHERE category_id = ?`, *p.CategoryID).Scan(&categoryName)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Catégorie introuvable"})
			return
		}
	}

	p.ID = uuid.NewString()
	p.IsActive = true
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := database.MySQL.ExecContext(ctx, `
		INSERT INTO products (product_id, name, description, price, stock, is_active, category_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.IsActive, p.CategoryID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		log.Printf("❌ Erreur création produit: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création produit"})
		return
	}

	cache.InvalidateProduct(ctx, p.ID)

	// 🔄 Indexation Elasticsearch
	go services.IndexProduct(p)

	c.JSON(http.StatusOK, p)
}

// 🔵 GET /products : produits actifs, avec cache Redis
func GetAllProducts(c *gin.Context) {
	ctx := context.Background()
	cacheKey := "products:all"

	// ✅ Vérifie le cache Redis
	if val, err := database.RedisClient.Get(ctx, cacheKey).Result(); err == nil && val != "" {
		var cached []models.Product
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	rows, err := database.MySQL.QueryContext(ctx, `
		SELECT product_id, name, description, price, stock, is_active, category_id, created_at, updated_at
		FROM products WHERE is_active = TRUE ORDER BY created_at DESC`)
	if err != nil {
		log.Printf("❌ Erreur lecture produits: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produits"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
			&p.IsActive, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produits"})
			return
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produits"})
		return
	}

	// ✅ Met en cache
	if data, err := json.Marshal(products); err == nil {
		database.RedisClient.Set(ctx, cacheKey, data, cache.ListingCacheTTL)
	}

	c.JSON(http.StatusOK, products)
}

// 🔵 GET /products/:id
func GetProductByID(c *gin.Context) {
	productID := c.Param("id")

	p, err := cache.GetProductFromCache(context.Background(), productID)
	if err != nil {
		if cache.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}
		log.Printf("❌ Erreur lecture produit %s: %v", productID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produit"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// 🔎 GET /products/search?q=
func SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre 'q' manquant"})
		return
	}

	// 1️⃣ Recherche dans Elasticsearch (prioritaire)
	results, err := services.SearchProducts(query)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
		return
	}

	// 2️⃣ Repli LIKE sur MySQL si Elastic est indisponible
	log.Printf("⚠️ Recherche Elastic indisponible (%v), repli MySQL", err)
	rows, err := database.MySQL.QueryContext(context.Background(), `
		SELECT product_id, name, description, price, stock, is_active, category_id, created_at, updated_at
		FROM products
		WHERE is_active = TRUE AND (name LIKE CONCAT('%', ?, '%') OR description LIKE CONCAT('%', ?, '%'))`,
		query, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur recherche"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
			&p.IsActive, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur recherche"})
			return
		}
		products = append(products, p)
	}

	c.JSON(http.StatusOK, gin.H{"results": products, "count": len(products)})
}

// 🔁 PUT /products/:id (admin)
func UpdateProduct(c *gin.Context) {
	productID := c.Param("id")

	var req struct {
		Name        *string          `json:"name"`
		Description *string          `json:"description"`
		Price       *decimal.Decimal `json:"price"`
		IsActive    *bool            `json:"is_active"`
		CategoryID  *string          `json:"category_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prix invalide"})
		return
	}

	ctx := context.Background()

	var p models.Product
	err := database.MySQL.QueryRowContext(ctx, `
		SELECT product_id, name, description, price, stock, is_active, category_id, created_at, updated_at
		FROM products WHERE product_id = ?`, productID).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.IsActive,
			&p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produit"})
		return
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.CategoryID != nil {
		p.CategoryID = req.CategoryID
	}
	p.UpdatedAt = time.Now()

	_, err = database.MySQL.ExecContext(ctx, `
		UPDATE products SET name = ?, description = ?, price = ?, is_active = ?, category_id = ?, updated_at = ?
		WHERE product_id = ?`,
		p.Name, p.Description, p.Price, p.IsActive, p.CategoryID, p.UpdatedAt, productID)
	if err != nil {
		log.Printf("❌ Erreur mise à jour produit %s: %v", productID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour produit"})
		return
	}

	cache.InvalidateProduct(ctx, productID)

	if p.IsActive {
		go services.IndexProduct(p)
	} else {
		go services.RemoveProductFromIndex(productID)
	}

	c.JSON(http.StatusOK, p)
}

// ❌ DELETE /products/:id (admin)
// Un produit référencé par des commandes n'est jamais détruit : les lignes
// de commande pointent dessus. Il est désactivé à la place.
func DeleteProduct(c *gin.Context) {
	productID := c.Param("id")
	ctx := context.Background()

	var referenced int
	if err := database.MySQL.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM order_items WHERE product_id = ?`, productID).Scan(&referenced); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression produit"})
		return
	}

	if referenced > 0 {
		result, err := database.MySQL.ExecContext(ctx,
			`UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE product_id = ?`, productID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression produit"})
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}
		cache.InvalidateProduct(ctx, productID)
		go services.RemoveProductFromIndex(productID)
		c.JSON(http.StatusOK, gin.H{"message": "Produit désactivé (référencé par des commandes)"})
		return
	}

	// Sortir le produit des paniers et wishlists avant de le détruire
	tx, err := database.MySQL.BeginTx(ctx, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression produit"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE product_id = ?`, productID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression produit"})
		return
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM wishlist_items WHERE product_id = ?`, productID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression produit"})
		return
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM products WHERE product_id = ?`, productID)
	if err != nil {
		log.Printf("❌ Erreur suppression produit %s: %v", productID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression produit"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression produit"})
		return
	}

	cache.InvalidateProduct(ctx, productID)
	go services.RemoveProductFromIndex(productID)

	c.JSON(http.StatusOK, gin.H{"message": "Produit supprimé"})
}
