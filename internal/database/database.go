package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

// --- Variables Globales ---
var (
	MySQL       *sql.DB
	Redis       *redis.Client
	RedisClient *redis.Client // Alias pour compatibilité
	Elastic     *elasticsearch.Client
)

// --- Initialisation ---
func ConnectDatabases() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Initialiser MySQL
	if err := connectMySQL(ctx); err != nil {
		log.Fatalf("❌ Échec initialisation MySQL: %v", err)
	}

	// 2. Créer le schéma si nécessaire
	if err := Migrate(ctx); err != nil {
		log.Fatalf("❌ Échec migration du schéma: %v", err)
	}

	// 3. Initialiser Redis
	connectRedis(ctx)

	// 4. Initialiser Elasticsearch
	connectElastic()

	log.Println("✅ Toutes les bases de données sont connectées")
}

// =============================================
// MYSQL
// =============================================

func connectMySQL(ctx context.Context) error {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/velora?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("ouverture MySQL: %w", err)
	}

	// ✅ Pool de connexions dimensionné pour les pics de checkout
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping MySQL: %w", err)
	}

	MySQL = db
	log.Println("✅ Connecté à MySQL")
	return nil
}

// CloseMySQL ferme le pool de connexions MySQL
func CloseMySQL() {
	if MySQL != nil {
		MySQL.Close()
		log.Println("🔌 Connexion MySQL fermée")
	}
}

// =============================================
// REDIS
// =============================================
func connectRedis(ctx context.Context) {
	Redis = redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_HOST"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	RedisClient = Redis // Alias pour compatibilité

	if err := Redis.Ping(ctx).Err(); err != nil {
		log.Fatal("❌ Erreur connexion Redis:", err)
	}
	log.Println("✅ Connecté à Redis")
}

// =============================================
// ELASTICSEARCH
// =============================================
func connectElastic() {
	cfg := elasticsearch.Config{
		Addresses: []string{os.Getenv("ELASTIC_URL")},
		Username:  os.Getenv("ELASTIC_USER"),
		Password:  os.Getenv("ELASTIC_PASSWORD"),
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		log.Fatal("❌ Erreur création client Elasticsearch:", err)
	}

	res, err := client.Info()
	if err != nil {
		// ⚠️ Elastic est optionnel : la recherche retombe sur MySQL si absent
		log.Println("⚠️ Elasticsearch injoignable, recherche avancée désactivée:", err)
		return
	}
	defer res.Body.Close()

	Elastic = client
	log.Println("✅ Connecté à Elasticsearch")
}
