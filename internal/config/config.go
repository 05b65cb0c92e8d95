package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load charge le fichier .env s'il existe
func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
}

// ServerConfig regroupe la configuration du proxy de paiement
type ServerConfig struct {
	Port                string
	StripeSecretKey     string
	StripeWebhookSecret string
	ImageURL            string
	Currency            string
	AllowedOrigins      []string
	RedisHost           string
	RedisPassword       string
	RateLimitPerMinute  int
	SMTP                SMTPConfig
}

// SMTPConfig est vide (Host == "") quand l'envoi d'e-mails est désactivé
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled indique si un serveur SMTP est configuré
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

// Server lit la configuration serveur depuis l'environnement
func Server() ServerConfig {
	return ServerConfig{
		Port:                getEnv("PORT", "5000"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		ImageURL:            os.Getenv("IMAGE_URL"),
		Currency:            strings.ToLower(getEnv("CURRENCY", "usd")),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "*")),
		RedisHost:           os.Getenv("REDIS_HOST"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RateLimitPerMinute:  getInt("RATE_LIMIT_PER_MINUTE", 30),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("MAIL_FROM"),
		},
	}
}

// ClientConfig regroupe la configuration du client storefront
type ClientConfig struct {
	APIBaseURL      string
	PaymentBaseURL  string
	StateBackend    string
	StateFile       string
	RedisHost       string
	RedisPassword   string
	HTTPTimeout     time.Duration
	CatalogMaxCalls int
}

// Client lit la configuration client depuis l'environnement
func Client() ClientConfig {
	return ClientConfig{
		APIBaseURL:      strings.TrimRight(getEnv("API_BASE_URL", "https://sugarytestapi.azurewebsites.net"), "/"),
		PaymentBaseURL:  strings.TrimRight(getEnv("PAYMENT_BASE_URL", "http://localhost:5000"), "/"),
		StateBackend:    getEnv("STATE_BACKEND", "file"),
		StateFile:       getEnv("STATE_FILE", defaultStateFile()),
		RedisHost:       os.Getenv("REDIS_HOST"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		HTTPTimeout:     getDuration("HTTP_TIMEOUT", 10*time.Second),
		CatalogMaxCalls: getInt("CATALOG_MAX_CALLS", 3),
	}
}

func defaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "storefront_state.json"
	}
	return filepath.Join(home, ".storefront", "state.json")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("⚠️ %s invalide (%q), valeur par défaut %d", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("⚠️ %s invalide (%q), valeur par défaut %s", key, v, fallback)
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
