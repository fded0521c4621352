package admin

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"velora_back_end/internal/database"
	"velora_back_end/internal/handlers/user"
	"velora_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

// 🔵 GET /order/all : toutes les commandes, avec user et lignes
func GetAllOrders(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	rows, err := database.MySQL.QueryContext(ctx, `
		SELECT o.order_id, o.user_id, u.email, o.total, o.status, o.address_text, o.created_at
		FROM orders o
		JOIN users u ON u.user_id = o.user_id
		ORDER BY o.created_at DESC`)
	if err != nil {
		log.Printf("❌ Erreur lecture commandes admin: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.UserEmail, &o.Total, &o.Status,
			&o.AddressText, &o.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur décodage"})
			return
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
		return
	}

	for i := range orders {
		items, err := user.LoadOrderItems(ctx, orders[i].ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
			return
		}
		orders[i].Items = items
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// 🔁 PUT /order/:id/status : transition de statut validée
func UpdateOrderStatus(c *gin.Context) {
	orderID := c.Param("id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	next := models.OrderStatus(req.Status)
	if !next.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut inconnu"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var current models.OrderStatus
	err := database.MySQL.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE order_id = ?`, orderID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}
	if err != nil {
		log.Printf("❌ Erreur lecture commande %s: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour"})
		return
	}

	if !current.CanTransitionTo(next) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Transition de statut interdite",
			"current": current,
			"wanted":  next,
		})
		return
	}

	// La transition repart du statut lu : si un autre admin est passé
	// entre-temps, zéro ligne affectée et on rejette
	result, err := database.MySQL.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = NOW()
		WHERE order_id = ? AND status = ?`, next, orderID, current)
	if err != nil {
		log.Printf("❌ Erreur mise à jour statut %s: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "La commande a changé, réessayez"})
		return
	}

	log.Printf("✅ Commande %s: %s → %s", orderID, current, next)
	c.JSON(http.StatusOK, gin.H{"message": "Statut mis à jour", "status": next})
}
