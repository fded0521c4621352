package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"velora_back_end/internal/database"
	"velora_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const cartCacheTTL = 30 * 24 * time.Hour

func cartKey(userID string) string { return "cart:" + userID }

// ensureCart crée le panier au premier accès et retourne son id
func ensureCart(ctx context.Context, userID string) (string, error) {
	var cartID string
	err := database.MySQL.QueryRowContext(ctx,
		`SELECT cart_id FROM carts WHERE user_id = ?`, userID).Scan(&cartID)
	if err == nil {
		return cartID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	cartID = uuid.NewString()
	_, err = database.MySQL.ExecContext(ctx,
		`INSERT INTO carts (cart_id, user_id, created_at) VALUES (?, ?, ?)`,
		cartID, userID, time.Now())
	if err != nil {
		// Deux requêtes simultanées peuvent créer le panier en même temps :
		// l'unicité sur user_id fait gagner la première, on relit
		if qErr := database.MySQL.QueryRowContext(ctx,
			`SELECT cart_id FROM carts WHERE user_id = ?`, userID).Scan(&cartID); qErr == nil {
			return cartID, nil
		}
		return "", err
	}
	return cartID, nil
}

// loadCartItems lit les lignes du panier jointes aux produits
func loadCartItems(ctx context.Context, userID string) ([]models.CartItem, error) {
	rows, err := database.MySQL.QueryContext(ctx, `
		SELECT ci.cart_item_id, ci.product_id, p.name, p.price, ci.quantity
		FROM carts c
		JOIN cart_items ci ON ci.cart_id = c.cart_id
		JOIN products p ON p.product_id = ci.product_id
		WHERE c.user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// notifyCartChanged invalide le cache et prévient le websocket
func notifyCartChanged(ctx context.Context, userID, event string) {
	database.Redis.Del(ctx, cartKey(userID))
	database.Redis.Publish(ctx, cartKey(userID), event)
}

// 🔵 GET /cart
func GetCart(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := context.Background()

	// ✅ Vérifie le cache Redis
	if data, err := database.Redis.Get(ctx, cartKey(userID)).Result(); err == nil && data != "" {
		var items []models.CartItem
		if json.Unmarshal([]byte(data), &items) == nil {
			c.JSON(http.StatusOK, gin.H{"items": items})
			return
		}
	}

	items, err := loadCartItems(ctx, userID)
	if err != nil {
		log.Printf("❌ Erreur lecture panier: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}

	// 💾 Met en cache
	if data, err := json.Marshal(items); err == nil {
		database.Redis.Set(ctx, cartKey(userID), data, cartCacheTTL)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// 🟢 POST /cart/add
func AddToCart(c *gin.Context) {
	userID := c.GetString("user_id")

	var input struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	if input.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité invalide"})
		return
	}
	if _, err := uuid.Parse(input.ProductID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	ctx := context.Background()

	// 🧩 Le produit doit exister et être actif
	var name string
	var active bool
	err := database.MySQL.QueryRowContext(ctx,
		`SELECT name, is_active FROM products WHERE product_id = ?`, input.ProductID).
		Scan(&name, &active)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}
	if !active {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Produit indisponible"})
		return
	}

	cartID, err := ensureCart(ctx, userID)
	if err != nil {
		log.Printf("❌ Erreur création panier: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur panier"})
		return
	}

	// 🔁 Un produit déjà présent incrémente la quantité, pas de doublon
	_, err = database.MySQL.ExecContext(ctx, `
		INSERT INTO cart_items (cart_item_id, cart_id, product_id, quantity)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
		uuid.NewString(), cartID, input.ProductID, input.Quantity)
	if err != nil {
		log.Printf("❌ Erreur ajout panier: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur ajout au panier"})
		return
	}

	notifyCartChanged(ctx, userID, "updated")

	items, err := loadCartItems(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Produit ajouté au panier",
		"items":   items,
	})
}

// 🔁 PUT /cart/:productId
func UpdateCartItem(c *gin.Context) {
	userID := c.GetString("user_id")
	productID := c.Param("productId")

	var input struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Quantity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité invalide"})
		return
	}

	ctx := context.Background()
	result, err := database.MySQL.ExecContext(ctx, `
		UPDATE cart_items ci
		JOIN carts c ON c.cart_id = ci.cart_id
		SET ci.quantity = ?
		WHERE c.user_id = ? AND ci.product_id = ?`,
		input.Quantity, userID, productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour panier"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit absent du panier"})
		return
	}

	notifyCartChanged(ctx, userID, "updated")

	items, _ := loadCartItems(ctx, userID)
	c.JSON(http.StatusOK, gin.H{"message": "Panier mis à jour", "items": items})
}

// ❌ DELETE /cart/:productId
func RemoveFromCart(c *gin.Context) {
	userID := c.GetString("user_id")
	productID := c.Param("productId")

	ctx := context.Background()
	_, err := database.MySQL.ExecContext(ctx, `
		DELETE ci FROM cart_items ci
		JOIN carts c ON c.cart_id = ci.cart_id
		WHERE c.user_id = ? AND ci.product_id = ?`, userID, productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression"})
		return
	}

	notifyCartChanged(ctx, userID, "updated")

	items, _ := loadCartItems(ctx, userID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Produit supprimé du panier",
		"items":   items,
	})
}

// 🧹 DELETE /cart
func ClearCart(c *gin.Context) {
	userID := c.GetString("user_id")

	ctx := context.Background()
	_, err := database.MySQL.ExecContext(ctx, `
		DELETE ci FROM cart_items ci
		JOIN carts c ON c.cart_id = ci.cart_id
		WHERE c.user_id = ?`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du vidage du panier"})
		return
	}

	notifyCartChanged(ctx, userID, "cleared")

	c.JSON(http.StatusOK, gin.H{"message": "Panier vidé avec succès"})
}

// cartTotal calcule le total affiché par le websocket
func cartTotal(items []models.CartItem) string {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.StringFixed(2)
}
