package common

import (
	"os"
	"strconv"
)

type Config struct {
	Port         string
	RPCEndpoint  string
	ChainID      int64  // required network, decimal chain id
	PrivateKey   string // hex key for local signing; empty delegates to the provider
	JWTSecret    string
	PollSeconds  int // provider change-notification poll interval
	StoreBackend string
	StoreDir     string
	DB           DBConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func LoadConfig() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		RPCEndpoint:  getEnv("RPC_ENDPOINT", "http://localhost:8545"),
		ChainID:      int64(GetEnvInt("CHAIN_ID", 11155111)),
		PrivateKey:   getEnv("PRIVATE_KEY", ""),
		JWTSecret:    getEnv("JWT_SECRET", "super-secret-key-change-me"),
		PollSeconds:  GetEnvInt("POLL_SECONDS", 2),
		StoreBackend: getEnv("STORE_BACKEND", "file"),
		StoreDir:     getEnv("STORE_DIR", "data"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "marketplace"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return fallback
}
