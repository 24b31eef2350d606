package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string
	IMAPServer   string
	IMAPUsername string
	IMAPPassword string
	IMAPUseTLS   bool
	Timezone     string
}

// Credentials is what the session manager needs to establish one
// authenticated connection.
type Credentials struct {
	Server   string
	Username string
	Password string
	UseTLS   bool
}

func NewConfig() (*Config, error) {
	env := os.Getenv("MAILMIND_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:  env,
		IMAPServer:   os.Getenv("MAILMIND_IMAP_SERVER"),
		IMAPUsername: os.Getenv("MAILMIND_IMAP_USER"),
		IMAPPassword: os.Getenv("MAILMIND_IMAP_PASSWORD"),
		IMAPUseTLS:   getEnvOrDefault("MAILMIND_IMAP_TLS", "true") != "false",
		Timezone:     getEnvOrDefault("TZ", "UTC"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.IMAPServer == "" {
		return fmt.Errorf("MAILMIND_IMAP_SERVER is required")
	}

	if c.IMAPUsername == "" {
		return fmt.Errorf("MAILMIND_IMAP_USER is required")
	}

	if c.IMAPPassword == "" {
		return fmt.Errorf("MAILMIND_IMAP_PASSWORD is required")
	}

	return nil
}

// IMAPCredentials returns the credentials used to acquire IMAP sessions.
// It implements the credentials provider consumed by the imap package.
func (c *Config) IMAPCredentials() Credentials {
	return Credentials{
		Server:   c.IMAPServer,
		Username: c.IMAPUsername,
		Password: c.IMAPPassword,
		UseTLS:   c.IMAPUseTLS,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
