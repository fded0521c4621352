package admin

import (
	"context"
	"log"
	"net/http"
	"time"

	"velora_back_end/internal/database"
	"velora_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

// 🔵 GET /users : liste des comptes
func ListUsers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := database.MySQL.QueryContext(ctx, `
		SELECT user_id, email, name, role, created_at FROM users ORDER BY created_at DESC`)
	if err != nil {
		log.Printf("❌ Erreur lecture users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération utilisateurs"})
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur décodage"})
			return
		}
		users = append(users, u)
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// 🔁 PUT /users/:id/role
func UpdateUserRole(c *gin.Context) {
	userID := c.Param("id")

	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	if req.Role != "customer" && req.Role != "admin" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rôle inconnu"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := database.MySQL.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = NOW() WHERE user_id = ?`, req.Role, userID)
	if err != nil {
		log.Printf("❌ Erreur mise à jour rôle: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Rôle mis à jour"})
}

// ❌ DELETE /users/:id
func DeleteUser(c *gin.Context) {
	userID := c.Param("id")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Un compte avec des commandes est conservé pour l'historique
	var orderCount int
	if err := database.MySQL.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = ?`, userID).Scan(&orderCount); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression"})
		return
	}
	if orderCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Utilisateur avec commandes, suppression refusée"})
		return
	}

	// Purge panier, adresses et wishlist avec le compte, en une transaction
	tx, err := database.MySQL.BeginTx(ctx, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression"})
		return
	}
	defer tx.Rollback()

	cleanups := []string{
		`DELETE ci FROM cart_items ci JOIN carts ca ON ca.cart_id = ci.cart_id WHERE ca.user_id = ?`,
		`DELETE FROM carts WHERE user_id = ?`,
		`DELETE FROM addresses WHERE user_id = ?`,
		`DELETE FROM wishlist_items WHERE user_id = ?`,
	}
	for _, stmt := range cleanups {
		if _, err := tx.ExecContext(ctx, stmt, userID); err != nil {
			log.Printf("❌ Erreur purge données user %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression"})
			return
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		log.Printf("❌ Erreur suppression user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Utilisateur supprimé"})
}
