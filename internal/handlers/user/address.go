package user

import (
	"context"
	"log"
	"net/http"

	"velora_back_end/internal/database"
	"velora_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//
// --- HANDLERS ADRESSES ---
//

// 🔵 GET /addresses
func ListMyAddresses(c *gin.Context) {
	userID := c.GetString("user_id")

	rows, err := database.MySQL.QueryContext(context.Background(), `
		SELECT address_id, user_id, street, postal_code, city, country, is_default
		FROM addresses WHERE user_id = ? ORDER BY is_default DESC`, userID)
	if err != nil {
		log.Printf("❌ Erreur lecture adresses: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture adresses"})
		return
	}
	defer rows.Close()

	addresses := []models.Address{}
	for rows.Next() {
		var a models.Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Street, &a.PostalCode, &a.City,
			&a.Country, &a.IsDefault); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture adresses"})
			return
		}
		addresses = append(addresses, a)
	}

	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

// 🟢 POST /addresses
func CreateAddress(c *gin.Context) {
	userID := c.GetString("user_id")

	var a models.Address
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	if a.Street == "" || a.City == "" || a.Country == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Champs 'street', 'city' et 'country' obligatoires"})
		return
	}

	a.ID = uuid.NewString()
	a.UserID = userID

	ctx := context.Background()

	// Une seule adresse par défaut à la fois
	if a.IsDefault {
		if _, err := database.MySQL.ExecContext(ctx,
			`UPDATE addresses SET is_default = FALSE WHERE user_id = ?`, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création adresse"})
			return
		}
	}

	_, err := database.MySQL.ExecContext(ctx, `
		INSERT INTO addresses (address_id, user_id, street, postal_code, city, country, is_default)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Street, a.PostalCode, a.City, a.Country, a.IsDefault)
	if err != nil {
		log.Printf("❌ Erreur création adresse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création adresse"})
		return
	}

	c.JSON(http.StatusCreated, a)
}

// ❌ DELETE /addresses/:id
func DeleteAddress(c *gin.Context) {
	userID := c.GetString("user_id")
	addressID := c.Param("id")

	result, err := database.MySQL.ExecContext(context.Background(),
		`DELETE FROM addresses WHERE address_id = ? AND user_id = ?`, addressID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression adresse"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Adresse introuvable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Adresse supprimée"})
}
