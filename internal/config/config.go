// Package config loads application configuration from environment variables,
// an optional .env file, and an optional YAML config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration. Precedence, highest first:
// environment variables (DEALPORTER_*), ./.env (dotenv), then
// ~/.config/dealporter/config.yaml.
type Config struct {
	// OAuth application credentials for both services.
	ZohoClientID        string `yaml:"zoho_client_id"`
	ZohoClientSecret    string `yaml:"zoho_client_secret"`
	HubSpotClientID     string `yaml:"hubspot_client_id"`
	HubSpotClientSecret string `yaml:"hubspot_client_secret"`

	// API endpoints, overridable so tests can point at local servers.
	ZohoAPIBase      string `yaml:"zoho_api_base"`
	ZohoAccountsBase string `yaml:"zoho_accounts_base"`
	HubSpotAPIBase   string `yaml:"hubspot_api_base"`
	HubSpotAuthURL   string `yaml:"hubspot_auth_url"`

	// Local OAuth callback listener.
	ListenAddr  string        `yaml:"listen_addr"`
	RedirectURI string        `yaml:"redirect_uri"`
	AuthTimeout time.Duration `yaml:"auth_timeout"`

	// Local storage.
	DBPath           string `yaml:"db_path"`
	AttachmentsDir   string `yaml:"attachments_dir"`
	ZohoTokenPath    string `yaml:"zoho_token_path"`
	HubSpotTokenPath string `yaml:"hubspot_token_path"`
	FolderConfigPath string `yaml:"folder_config_path"`

	// Destination-tenant-specific note attribution values.
	NoteOwnerID           string `yaml:"note_owner_id"`
	NoteAssociationTypeID int    `yaml:"note_association_type_id"`

	LogLevel string `yaml:"log_level"`
}

// HasOAuthCredentials returns true when client id and secret are configured
// for both services. The migrate command refuses to start without them.
func (c *Config) HasOAuthCredentials() bool {
	return c.ZohoClientID != "" && c.ZohoClientSecret != "" &&
		c.HubSpotClientID != "" && c.HubSpotClientSecret != ""
}

// Load reads configuration from all sources and returns a validated Config.
func Load() (*Config, error) {
	// .env is optional; ignore a missing file.
	_ = godotenv.Load()

	cfg := &Config{
		ZohoAPIBase:           "https://www.zohoapis.in/crm/v7",
		ZohoAccountsBase:      "https://accounts.zoho.in/oauth/v2",
		HubSpotAPIBase:        "https://api.hubapi.com",
		HubSpotAuthURL:        "https://app.hubspot.com/oauth/authorize",
		ListenAddr:            "127.0.0.1:8000",
		RedirectURI:           "http://localhost:8000",
		AuthTimeout:           5 * time.Minute,
		DBPath:                "migration.db",
		AttachmentsDir:        "attachments",
		ZohoTokenPath:         "zoho_tokens.json",
		HubSpotTokenPath:      "hubspot_tokens.json",
		FolderConfigPath:      "hubspot_folder_config.json",
		NoteOwnerID:           "671151283",
		NoteAssociationTypeID: 214,
		LogLevel:              "info",
	}

	if err := loadYAML(cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadYAML merges ~/.config/dealporter/config.yaml into cfg if it exists.
func loadYAML(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil // No home directory; YAML config simply unavailable.
	}

	path := filepath.Join(home, ".config", "dealporter", "config.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides cfg fields from DEALPORTER_* environment variables.
func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("DEALPORTER_ZOHO_CLIENT_ID", &cfg.ZohoClientID)
	setString("DEALPORTER_ZOHO_CLIENT_SECRET", &cfg.ZohoClientSecret)
	setString("DEALPORTER_HUBSPOT_CLIENT_ID", &cfg.HubSpotClientID)
	setString("DEALPORTER_HUBSPOT_CLIENT_SECRET", &cfg.HubSpotClientSecret)
	setString("DEALPORTER_ZOHO_API_BASE", &cfg.ZohoAPIBase)
	setString("DEALPORTER_ZOHO_ACCOUNTS_BASE", &cfg.ZohoAccountsBase)
	setString("DEALPORTER_HUBSPOT_API_BASE", &cfg.HubSpotAPIBase)
	setString("DEALPORTER_HUBSPOT_AUTH_URL", &cfg.HubSpotAuthURL)
	setString("DEALPORTER_LISTEN_ADDR", &cfg.ListenAddr)
	setString("DEALPORTER_REDIRECT_URI", &cfg.RedirectURI)
	setString("DEALPORTER_DB_PATH", &cfg.DBPath)
	setString("DEALPORTER_ATTACHMENTS_DIR", &cfg.AttachmentsDir)
	setString("DEALPORTER_ZOHO_TOKEN_PATH", &cfg.ZohoTokenPath)
	setString("DEALPORTER_HUBSPOT_TOKEN_PATH", &cfg.HubSpotTokenPath)
	setString("DEALPORTER_FOLDER_CONFIG_PATH", &cfg.FolderConfigPath)
	setString("DEALPORTER_NOTE_OWNER_ID", &cfg.NoteOwnerID)
	setString("DEALPORTER_LOG_LEVEL", &cfg.LogLevel)

	if v, ok := os.LookupEnv("DEALPORTER_AUTH_TIMEOUT"); ok && v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DEALPORTER_AUTH_TIMEOUT has invalid duration %q: %w", v, err)
		}
		cfg.AuthTimeout = parsed
	}

	if v, ok := os.LookupEnv("DEALPORTER_NOTE_ASSOCIATION_TYPE_ID"); ok && v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEALPORTER_NOTE_ASSOCIATION_TYPE_ID has invalid value %q: %w", v, err)
		}
		cfg.NoteAssociationTypeID = parsed
	}

	return nil
}
