package user

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"velora_back_end/internal/database"
	"velora_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

const wishlistCacheTTL = 10 * time.Minute

func wishlistKey(userID string) string { return "wishlist:" + userID }

// 🔵 GET /wishlist
func GetWishlist(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := context.Background()

	// Récupérer depuis Redis d'abord
	if cached, err := database.Redis.Get(ctx, wishlistKey(userID)).Result(); err == nil {
		var wishlist models.Wishlist
		if json.Unmarshal([]byte(cached), &wishlist) == nil {
			c.JSON(http.StatusOK, wishlist)
			return
		}
	}

	rows, err := database.MySQL.QueryContext(ctx, `
		SELECT p.product_id, p.name, p.description, p.price, p.stock, p.is_active, p.category_id, p.created_at, p.updated_at
		FROM wishlist_items w
		JOIN products p ON p.product_id = w.product_id
		WHERE w.user_id = ?
		ORDER BY w.added_at DESC`, userID)
	if err != nil {
		log.Printf("❌ Erreur lecture wishlist: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture wishlist"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
			&p.IsActive, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture wishlist"})
			return
		}
		products = append(products, p)
	}

	wishlist := models.Wishlist{
		UserID: userID,
		Items:  products,
		Count:  len(products),
	}

	if data, err := json.Marshal(wishlist); err == nil {
		database.Redis.Set(ctx, wishlistKey(userID), data, wishlistCacheTTL)
	}

	c.JSON(http.StatusOK, wishlist)
}

// 🟢 POST /wishlist/:productId
func AddToWishlist(c *gin.Context) {
	userID := c.GetString("user_id")
	productID := c.Param("productId")

	ctx := context.Background()

	var exists int
	if err := database.MySQL.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE product_id = ?`, productID).Scan(&exists); err != nil || exists == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	// Ré-ajouter un produit déjà présent est un no-op
	_, err := database.MySQL.ExecContext(ctx, `
		INSERT IGNORE INTO wishlist_items (user_id, product_id, added_at) VALUES (?, ?, ?)`,
		userID, productID, time.Now())
	if err != nil {
		log.Printf("❌ Erreur ajout wishlist: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur ajout wishlist"})
		return
	}

	database.Redis.Del(ctx, wishlistKey(userID))
	c.JSON(http.StatusOK, gin.H{"message": "Produit ajouté à la wishlist"})
}

// ❌ DELETE /wishlist/:productId
func RemoveFromWishlist(c *gin.Context) {
	userID := c.GetString("user_id")
	productID := c.Param("productId")

	ctx := context.Background()
	_, err := database.MySQL.ExecContext(ctx,
		`DELETE FROM wishlist_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression wishlist"})
		return
	}

	database.Redis.Del(ctx, wishlistKey(userID))
	c.JSON(http.StatusOK, gin.H{"message": "Produit retiré de la wishlist"})
}
