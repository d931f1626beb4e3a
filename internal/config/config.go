package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	LogLevel  string // debug, info, warn, error
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to sign JWTs

	SessionTTLMin     int    // shopper session token lifetime in minutes
	AdminTokenTTLMin  int    // admin token lifetime in minutes
	AdminPasswordHash string // bcrypt hash of the admin password; empty disables admin login

	HoldTTL time.Duration // lifetime of a seat hold, new and extended

	SweepEnabled  bool          // run the expiry sweeper inside the server
	SweepInterval time.Duration // period of the expiry sweep

	CartTickInterval      time.Duration // how often carts drop lapsed holds
	CartReconcileInterval time.Duration // how often carts are checked against the store
	CartSessionIdleTTL    time.Duration // idle empty carts are evicted after this

	RabbitMQURL          string // broker for order events
	OrderConsumerEnabled bool   // run the order.confirmed consumer in-process
	OrderLogPath         string // file the consumer appends to
	PublishOrderEvents   bool   // publish order.confirmed after checkout
}

// LoadDotEnv loads variables from a .env file in the working directory when
// one exists.  Variables already set in the environment win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),
		Port:      envStr("APP_PORT", "8080"),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"),
		DBHost:    must("DB_HOST"),
		DBPort:    envStr("DB_PORT", "3306"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),

		SessionTTLMin:     envInt("SESSION_TTL_MIN", 60),
		AdminTokenTTLMin:  envInt("ADMIN_TOKEN_TTL_MIN", 30),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		HoldTTL: envDur("HOLD_TTL", 10*time.Minute),

		SweepEnabled:  envBool("SWEEP_ENABLED", true),
		SweepInterval: envDur("SWEEP_INTERVAL", time.Minute),

		CartTickInterval:      envDur("CART_TICK_INTERVAL", time.Second),
		CartReconcileInterval: envDur("CART_RECONCILE_INTERVAL", 15*time.Second),
		CartSessionIdleTTL:    envDur("CART_SESSION_IDLE_TTL", 30*time.Minute),

		RabbitMQURL:          rabbitURL(),
		OrderConsumerEnabled: envBool("ORDER_CONSUMER_ENABLED", true),
		OrderLogPath:         envStr("ORDER_LOG_PATH", "logs/orders.log"),
		PublishOrderEvents:   envBool("ORDER_EVENTS_ENABLED", true),
	}
}

// AdminBcryptCost is the bcrypt cost used when hashing the admin password
// (ADMIN_BCRYPT_COST, default 12).  It needs no database settings.
func AdminBcryptCost() int { return envInt("ADMIN_BCRYPT_COST", 12) }

// IsDevelopment reports whether the service runs in a local environment.
func (c Config) IsDevelopment() bool {
	return c.Env == "dev" || c.Env == "development" || c.Env == "local"
}

func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
