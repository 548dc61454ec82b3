package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET_KEY must be set")

// Config holds everything main needs to wire the application together.
type Config struct {
	MongoURI          string
	MongoDatabase     string
	MongoTimeout      time.Duration
	MongoTransactions bool

	WebserverIP   string
	WebserverPort int

	JWTSecret string
	JWTTTL    time.Duration

	// RabbitMQIP may be empty, in which case account events are not published.
	RabbitMQIP   string
	RabbitMQUser string
	RabbitMQPass string

	LogDevelopment bool
	LogDebug       bool
	LogFile        string
}

// Load reads envFile (if it exists) into the environment and builds a Config from it.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		MongoURI:      mongoURI(),
		MongoDatabase: getString("MONGO_DATABASE", "mflix"),
		WebserverIP:   getString("WEBSERVER_IP", "0.0.0.0"),
		JWTSecret:     os.Getenv("JWT_SECRET_KEY"),
		RabbitMQIP:    os.Getenv("RABBITMQ_IP"),
		RabbitMQUser:  getString("RABBITMQ_DEFAULT_USER", "guest"),
		RabbitMQPass:  getString("RABBITMQ_DEFAULT_PASS", "guest"),
		LogFile:       getString("LOG_FILE", "web-server.log"),
	}

	var err error
	if cfg.MongoTimeout, err = getDuration("MONGO_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MongoTransactions, err = getBool("MONGO_TRANSACTIONS", false); err != nil {
		return nil, err
	}
	if cfg.WebserverPort, err = getInt("WEBSERVER_PORT", 5000); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = getDuration("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LogDevelopment, err = getBool("LOG_DEVELOPMENT", false); err != nil {
		return nil, err
	}
	if cfg.LogDebug, err = getBool("LOG_DEBUG", false); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	return cfg, nil
}

// mongoURI prefers MONGO_URI, falling back to the credentials the mongo container is initialised with.
func mongoURI() string {
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		return uri
	}
	host := getString("MONGO_IP", "localhost")
	user := os.Getenv("MONGO_INITDB_ROOT_USERNAME")
	if user == "" {
		return fmt.Sprintf("mongodb://%s:27017", host)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:27017", user, os.Getenv("MONGO_INITDB_ROOT_PASSWORD"), host)
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

// Addr returns the host:port the web server listens on.
func (c *Config) Addr() string {
	return c.WebserverIP + ":" + strconv.Itoa(c.WebserverPort)
}

// RabbitMQURL returns the AMQP URL of the broker, or "" when no broker is configured.
func (c *Config) RabbitMQURL() string {
	if c.RabbitMQIP == "" {
		return ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:5672/", c.RabbitMQUser, c.RabbitMQPass, c.RabbitMQIP)
}
