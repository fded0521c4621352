package user

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"velora_back_end/internal/database"
	"velora_back_end/internal/models"
	"velora_back_end/internal/services"
	"velora_back_end/internal/utils"

	"github.com/gin-gonic/gin"
)

// 🟢 POST /order : transforme le panier en commande
func Checkout(c *gin.Context) {
	userID := c.GetString("user_id")
	email := c.GetString("email")

	var req struct {
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	svc := services.NewCheckoutService(services.NewMySQLCheckoutStore(database.MySQL))
	order, err := svc.Checkout(ctx, userID, req.Address)
	if err != nil {
		var stockErr *services.InsufficientStockError
		switch {
		case errors.Is(err, services.ErrEmptyCart):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide"})
		case errors.As(err, &stockErr):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Stock insuffisant",
				"product":   stockErr.ProductName,
				"requested": stockErr.Requested,
				"available": stockErr.Available,
			})
		case errors.Is(err, services.ErrProductUnavailable):
			c.JSON(http.StatusNotFound, gin.H{"error": "Un produit du panier n'est plus disponible"})
		default:
			// Détail loggé côté serveur uniquement
			log.Printf("❌ Erreur checkout pour %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la commande"})
		}
		return
	}

	// La commande est validée : cache panier obsolète, clients websocket
	// prévenus, e-mail de confirmation en tâche de fond
	notifyCartChanged(ctx, userID, "cleared")
	go sendOrderConfirmation(email, *order)

	log.Printf("✅ Commande %s créée (%s€) pour %s", order.ID, order.Total.StringFixed(2), userID)
	c.JSON(http.StatusCreated, order)
}

func sendOrderConfirmation(email string, order models.Order) {
	if email == "" {
		return
	}
	html := utils.GenerateOrderConfirmationHTML(order)
	if err := utils.SendConfirmationEmail(email, "Confirmation de votre commande Velora", html); err != nil {
		log.Printf("⚠️ Échec envoi e-mail de confirmation à %s: %v", email, err)
	}
}

// 🔵 GET /order : commandes du user, plus récentes d'abord
func GetMyOrders(c *gin.Context) {
	userID := c.GetString("user_id")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `SELECT order_id, user_id, total, status, address_text, created_at
		FROM orders WHERE user_id = ?`
	args := []interface{}{userID}

	// Filtre de statut optionnel ("received" est l'alias côté boutique de "completed")
	if status := c.Query("status"); status != "" {
		if status == "received" {
			status = string(models.OrderStatusCompleted)
		}
		if !models.OrderStatus(status).IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Statut inconnu"})
			return
		}
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := database.MySQL.QueryContext(ctx, query, args...)
	if err != nil {
		log.Printf("❌ Erreur lecture commandes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.AddressText, &o.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur décodage"})
			return
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
		return
	}

	// ✅ Attacher les lignes de chaque commande
	for i := range orders {
		items, err := LoadOrderItems(ctx, orders[i].ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
			return
		}
		orders[i].Items = items
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// 🔵 GET /order/:id : une commande, uniquement si elle appartient au user
func GetOrderByID(c *gin.Context) {
	userID := c.GetString("user_id")
	orderID := c.Param("id")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var o models.Order
	err := database.MySQL.QueryRowContext(ctx, `
		SELECT order_id, user_id, total, status, address_text, created_at
		FROM orders WHERE order_id = ? AND user_id = ?`, orderID, userID).
		Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.AddressText, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Même réponse pour "inexistante" et "pas à vous" : pas de fuite
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}
	if err != nil {
		log.Printf("❌ Erreur lecture commande %s: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commande"})
		return
	}

	items, err := LoadOrderItems(ctx, o.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commande"})
		return
	}
	o.Items = items

	c.JSON(http.StatusOK, o)
}

// LoadOrderItems lit les lignes figées d'une commande, nom produit attaché
func LoadOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	rows, err := database.MySQL.QueryContext(ctx, `
		SELECT oi.order_item_id, oi.product_id, p.name, oi.quantity, oi.price, oi.subtotal
		FROM order_items oi
		JOIN products p ON p.product_id = oi.product_id
		WHERE oi.order_id = ?`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.Price, &item.Subtotal); err != nil {
			return nil, err
		}
		item.OrderID = orderID
		items = append(items, item)
	}
	return items, rows.Err()
}
