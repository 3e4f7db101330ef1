package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level folio configuration file.
type YAMLConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Store   StoreConfig   `yaml:"store"`
	Client  ClientConfig  `yaml:"client"`
	MCP     MCPConfig     `yaml:"mcp"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host      string     `yaml:"host"`
	Port      int        `yaml:"port"`
	RateLimit int        `yaml:"rate_limit"`
	CORS      CORSConfig `yaml:"cors"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// AuthConfig controls identity sessions and the admin token check.
type AuthConfig struct {
	JWTSecret      string `yaml:"jwt_secret"`
	JWTExpiry      string `yaml:"jwt_expiry"`
	AdminTokenHash string `yaml:"admin_token_hash"`
	AdminToken     string `yaml:"admin_token,omitempty"`
	AllowDevLogin  bool   `yaml:"allow_dev_login"`
}

// StoreConfig selects the database backing messages and admin bindings.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ClientConfig configures the admin view client.
type ClientConfig struct {
	BackendURL string        `yaml:"backend_url"`
	AdminToken string        `yaml:"admin_token,omitempty"`
	Session    SessionConfig `yaml:"session"`
}

// SessionConfig selects where the client keeps its session-scoped values.
type SessionConfig struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	TTL       string `yaml:"ttl"`
	ID        string `yaml:"id"`
}

// MCPConfig controls the MCP (Model Context Protocol) server.
type MCPConfig struct {
	Transport string `yaml:"transport"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file. Environment
// variables referenced as ${VAR_NAME} in the file are expanded before parsing.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	var cfg YAMLConfig
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			RateLimit: 30,
			CORS: CORSConfig{
				Origins: []string{"*"},
			},
		},
		Auth: AuthConfig{
			JWTExpiry: "24h",
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Client: ClientConfig{
			BackendURL: "http://localhost:8080",
			Session: SessionConfig{
				Backend: "memory",
				TTL:     "12h",
			},
		},
		MCP: MCPConfig{
			Transport: "stdio",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	cfg := DefaultYAMLConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
