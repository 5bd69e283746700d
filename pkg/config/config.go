package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/mindtek/leadchat/internal/storage"
)

type Config struct {
	Server   ServerConfig           `mapstructure:"server"`
	Database storage.DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig           `mapstructure:"openai"`
	Chat     ChatConfig             `mapstructure:"chat"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type OpenAIConfig struct {
	APIKey              string  `mapstructure:"api_key"`
	Model               string  `mapstructure:"model"`
	ChatMaxTokens       int     `mapstructure:"chat_max_tokens"`
	ChatTemperature     float32 `mapstructure:"chat_temperature"`
	AnalysisMaxTokens   int     `mapstructure:"analysis_max_tokens"`
	AnalysisTemperature float32 `mapstructure:"analysis_temperature"`
}

type ChatConfig struct {
	MaxMessages int `mapstructure:"max_messages"`
}

func parseDatabaseURL(dbURL string) (storage.DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return storage.DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return storage.DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", 3000)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.chat_max_tokens", 500)
	v.SetDefault("openai.chat_temperature", 0.7)
	v.SetDefault("openai.analysis_max_tokens", 1000)
	v.SetDefault("openai.analysis_temperature", 0.3)
	v.SetDefault("chat.max_messages", 20)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file; env-only deployments may not ship one
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if port := v.GetInt("PORT"); port != 0 {
		config.Server.Port = port
	}

	return &config, nil
}
