package config

import "os"

type Config struct {
	ServerPort   string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	ClientOrigin string
	PayloadsDir  string
}

// Load reads configuration from the process environment. Callers that
// support env files load them before calling Load.
func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "4000"),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "chatflow"),
		DBPassword:   getEnv("DB_PASSWORD", "chatflow_dev_password"),
		DBName:       getEnv("DB_NAME", "chatflow"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "*"),
		PayloadsDir:  getEnv("PAYLOADS_DIR", "./payloads"),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}
