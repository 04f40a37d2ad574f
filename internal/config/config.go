package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Token lifetimes default to 30 minutes for
// members and 60 minutes for admins.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	AutoMigrate   bool          // apply embedded migrations at startup
	JWTSecret     string        // secret used to sign JWTs
	UserTokenTTL  time.Duration // lifetime of member access tokens
	AdminTokenTTL time.Duration // lifetime of admin access tokens
	BcryptCost    int           // bcrypt cost for password hashing
	CORSOrigins   []string      // allowed browser origins
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          envStr("APP_PORT", "8000"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASSWORD"), // empty allowed
		DBHost:        must("DB_HOST"),
		DBPort:        envStr("DB_PORT", "3306"),
		DBName:        must("DB_NAME"),
		AutoMigrate:   envBool("AUTO_MIGRATE", false),
		JWTSecret:     must("JWT_SECRET"),
		UserTokenTTL:  envDur("ACCESS_TOKEN_TTL", 30*time.Minute),
		AdminTokenTTL: envDur("ADMIN_ACCESS_TOKEN_TTL", 60*time.Minute),
		BcryptCost:    mustInt("BCRYPT_COST", 12),
		CORSOrigins:   splitList(envStr("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
	}
}

// IsProduction reports whether the service runs with production defaults.
func (c Config) IsProduction() bool { return c.Env == "prod" || c.Env == "production" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt reads an optional integer.  A value that is present but not a
// number is a configuration mistake and stops the program.
func mustInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
