package routes

import (
	"os"
	"time"

	"velora_back_end/internal/handlers/admin"
	"velora_back_end/internal/handlers/product"
	"velora_back_end/internal/handlers/user"
	"velora_back_end/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	// ✅ CORS pour le front React (cookies de session → credentials obligatoires)
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{frontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// --- Auth ---
	auth := r.Group("/auth")
	auth.POST("/register", middleware.RegisterRateLimit(), user.CreateUser)
	auth.POST("/login", middleware.LoginRateLimit(), user.Login)
	auth.POST("/logout", user.Logout)
	auth.GET("/me", middleware.AuthRequired(), user.Me)

	// --- Catalogue public ---
	r.GET("/products", product.GetAllProducts)
	r.GET("/products/search", product.SearchProducts)
	r.GET("/products/:id", product.GetProductByID)
	r.GET("/categories", product.GetAllCategories)

	// --- Panier ---
	cart := r.Group("/cart", middleware.AuthRequired())
	cart.GET("", user.GetCart)
	cart.GET("/ws", user.CartWebSocket)
	cart.POST("/add", user.AddToCart)
	cart.PUT("/:productId", user.UpdateCartItem)
	cart.DELETE("/:productId", user.RemoveFromCart)
	cart.DELETE("", user.ClearCart)

	// --- Commandes ---
	order := r.Group("/order", middleware.AuthRequired())
	order.POST("", user.Checkout)
	order.GET("", user.GetMyOrders)
	order.GET("/all", middleware.RequireAdmin, admin.GetAllOrders)
	order.GET("/:id", user.GetOrderByID)
	order.PUT("/:id/status", middleware.RequireAdmin, admin.UpdateOrderStatus)

	// --- Adresses ---
	addresses := r.Group("/addresses", middleware.AuthRequired())
	addresses.GET("", user.ListMyAddresses)
	addresses.POST("", user.CreateAddress)
	addresses.DELETE("/:id", user.DeleteAddress)

	// --- Wishlist ---
	wishlist := r.Group("/wishlist", middleware.AuthRequired())
	wishlist.GET("", user.GetWishlist)
	wishlist.POST("/:productId", user.AddToWishlist)
	wishlist.DELETE("/:productId", user.RemoveFromWishlist)

	// --- Back office ---
	back := r.Group("/", middleware.AuthRequired(), middleware.RequireAdmin)
	back.GET("/users", admin.ListUsers)
	back.PUT("/users/:id/role", admin.UpdateUserRole)
	back.DELETE("/users/:id", admin.DeleteUser)
	back.POST("/products", product.CreateProduct)
	back.PUT("/products/:id", product.UpdateProduct)
	back.DELETE("/products/:id", product.DeleteProduct)
	back.PUT("/products/:id/stock", product.UpdateStock)
	back.POST("/categories", product.CreateCategory)
	back.PUT("/categories/:id", product.UpdateCategory)
	back.DELETE("/categories/:id", product.DeleteCategory)
}
