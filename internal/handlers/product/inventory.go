package product

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"

	"velora_back_end/internal/cache"
	"velora_back_end/internal/database"

	"github.com/gin-gonic/gin"
)

// UpdateStock - PUT /products/:id/stock (admin)
// "restock" ajoute au stock courant, "adjustment" pose une valeur absolue
func UpdateStock(c *gin.Context) {
	productID := c.Param("id")

	var req struct {
		Quantity int    `json:"quantity"`
		Type     string `json:"type" binding:"required"` // "restock", "adjustment"
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	ctx := context.Background()

	switch req.Type {
	case "restock":
		if req.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité invalide pour un restock"})
			return
		}
		// Incrément atomique : pas de lecture-modification-écriture,
		// le restock n'écrase pas les checkouts concurrents
		_, err := database.MySQL.ExecContext(ctx, `
			UPDATE products SET stock = stock + ?, updated_at = NOW() WHERE product_id = ?`,
			req.Quantity, productID)
		if err != nil {
			log.Printf("❌ Erreur restock %s: %v", productID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour du stock"})
			return
		}

	case "adjustment":
		if req.Quantity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Le stock ne peut pas être négatif"})
			return
		}
		_, err := database.MySQL.ExecContext(ctx, `
			UPDATE products SET stock = ?, updated_at = NOW() WHERE product_id = ?`,
			req.Quantity, productID)
		if err != nil {
			log.Printf("❌ Erreur ajustement stock %s: %v", productID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour du stock"})
			return
		}

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Type d'opération invalide"})
		return
	}

	cache.InvalidateProduct(ctx, productID)

	var newStock int
	err := database.MySQL.QueryRowContext(ctx,
		`SELECT stock FROM products WHERE product_id = ?`, productID).Scan(&newStock)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit non trouvé"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture stock"})
		return
	}

	log.Printf("✅ Stock mis à jour (%s): produit %s → %d", req.Type, productID, newStock)
	c.JSON(http.StatusOK, gin.H{"message": "Stock mis à jour", "stock": newStock})
}
