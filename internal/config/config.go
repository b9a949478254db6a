package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The three token secrets are independent on
// purpose: a token signed with one secret must never verify under another.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	AccessSecret  string // secret signing access tokens
	RefreshSecret string // secret signing refresh tokens
	ResetSecret   string // secret signing password-reset tokens
	AccessTTLMin  int    // access token time-to-live in minutes
	RefreshTTLHrs int    // refresh token time-to-live in hours
	ResetTTLMin   int    // reset token time-to-live in minutes

	BcryptCost int    // bcrypt cost for password hashing
	AppURL     string // external base URL used in verification/reset links
	TOTPIssuer string // issuer label rendered into otpauth enrollment URIs

	SMTPHost string // SMTP relay host; empty disables real mail delivery
	SMTPPort int    // SMTP relay port
	SMTPUser string // SMTP username
	SMTPPass string // SMTP password
	MailFrom string // From address on outgoing mail
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must(); missing values cause the
// program to exit with a fatal log message. The signing secrets and their
// lifetimes are required because running with a default secret would make
// every issued credential forgeable.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		AccessSecret:  must("AUTH_SECRET"),
		RefreshSecret: must("AUTH_REFRESH_SECRET"),
		ResetSecret:   must("RESET_SECRET"),
		AccessTTLMin:  mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLHrs: mustInt("REFRESH_TOKEN_TTL_HOURS"),
		ResetTTLMin:   mustInt("RESET_TOKEN_TTL_MIN"),

		BcryptCost: mustInt("BCRYPT_COST"),
		AppURL:     envStr("APP_URL", "http://localhost:8081"),
		TOTPIssuer: envStr("TOTP_ISSUER", "School Management"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: envInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: envStr("MAIL_FROM", "no-reply@school-manage.local"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
