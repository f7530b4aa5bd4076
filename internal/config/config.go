package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string        // application environment (e.g. "development", "production")
	Port           string        // HTTP port to listen on
	APIBaseURL     string        // base URL of the clinic REST API
	APITimeout     time.Duration // timeout for a single API call
	SessionSecret  string        // HS256 key for the session cookie
	SealSecret     string        // secret the session value codec derives its key from
	SessionTTL     time.Duration // idle lifetime of a session, refreshed while in use
	SessionBackend string        // memory | redis | mysql
	CookieSecure   bool          // set the Secure attribute on cookies
	RememberDays   int           // lifetime of the remember-me cookie
	DBUser         string        // database username (mysql backend)
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
}

// Load reads an optional .env file, then the environment.  Required
// variables are enforced by must() and missing values stop the program.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}
	cfg := Config{
		Env:            envStr("APP_ENV", "development"),
		Port:           envStr("APP_PORT", "8080"),
		APIBaseURL:     must("CLINIC_API_BASE_URL"),
		APITimeout:     envDur("CLINIC_API_TIMEOUT", 10*time.Second),
		SessionSecret:  must("SESSION_SECRET"),
		SealSecret:     must("SEAL_SECRET"),
		SessionTTL:     envDur("SESSION_TTL", 8*time.Hour),
		SessionBackend: envStr("SESSION_BACKEND", "memory"),
		CookieSecure:   envBool("COOKIE_SECURE", false),
		RememberDays:   envInt("REMEMBER_ME_DAYS", 30),
	}
	if cfg.SessionBackend == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	return cfg
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
