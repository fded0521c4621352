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

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 🟢 POST /categories (admin)
func CreateCategory(c *gin.Context) {
	var cat models.Category
	if err := c.ShouldBindJSON(&cat); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if cat.Name == "" || cat.Slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Les champs 'name' et 'slug' sont obligatoires"})
		return
	}

	cat.ID = uuid.NewString()
	now := time.Now()
	cat.CreatedAt = &now

	_, err := database.MySQL.ExecContext(context.Background(), `
		INSERT INTO categories (category_id, name, slug, description, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		cat.ID, cat.Name, cat.Slug, cat.Description, cat.CreatedAt)
	if err != nil {
		log.Printf("❌ Erreur création catégorie: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création catégorie"})
		return
	}

	cache.InvalidateListings(context.Background())
	c.JSON(http.StatusOK, gin.H{"id": cat.ID})
}

// 🔵 GET /categories
func GetAllCategories(c *gin.Context) {
	ctx := context.Background()
	cacheKey := "categories:all"

	// Cache Redis
	if val, err := database.RedisClient.Get(ctx, cacheKey).Result(); err == nil && val != "" {
		var cached []models.Category
		if json.Unmarshal([]byte(val), &cached) == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	rows, err := database.MySQL.QueryContext(ctx,
		`SELECT category_id, name, slug, description, created_at FROM categories ORDER BY name`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture catégories"})
		return
	}
	defer rows.Close()

	cats := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Description, &cat.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture catégories"})
			return
		}
		cats = append(cats, cat)
	}

	if data, err := json.Marshal(cats); err == nil {
		database.RedisClient.Set(ctx, cacheKey, data, time.Hour)
	}

	c.JSON(http.StatusOK, cats)
}

// 🔁 PUT /categories/:id (admin)
func UpdateCategory(c *gin.Context) {
	categoryID := c.Param("id")

	var req struct {
		Name        *string `json:"name"`
		Slug        *string `json:"slug"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	ctx := context.Background()

	var cat models.Category
	err := database.MySQL.QueryRowContext(ctx,
		`SELECT category_id, name, slug, description FROM categories WHERE category_id = ?`, categoryID).
		Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Description)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Catégorie introuvable"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture catégorie"})
		return
	}

	if req.Name != nil {
		cat.Name = *req.Name
	}
	if req.Slug != nil {
		cat.Slug = *req.Slug
	}
	if req.Description != nil {
		cat.Description = *req.Description
	}

	_, err = database.MySQL.ExecContext(ctx,
		`UPDATE categories SET name = ?, slug = ?, description = ? WHERE category_id = ?`,
		cat.Name, cat.Slug, cat.Description, categoryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour catégorie"})
		return
	}

	cache.InvalidateListings(ctx)
	c.JSON(http.StatusOK, cat)
}

// ❌ DELETE /categories/:id (admin)
func DeleteCategory(c *gin.Context) {
	categoryID := c.Param("id")
	ctx := context.Background()

	// Une catégorie encore utilisée par des produits ne part pas
	var used int
	if err := database.MySQL.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE category_id = ?`, categoryID).Scan(&used); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression catégorie"})
		return
	}
	if used > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Catégorie utilisée par des produits"})
		return
	}

	result, err := database.MySQL.ExecContext(ctx,
		`DELETE FROM categories WHERE category_id = ?`, categoryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression catégorie"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Catégorie introuvable"})
		return
	}

	cache.InvalidateListings(ctx)
	c.JSON(http.StatusOK, gin.H{"message": "Catégorie supprimée"})
}
