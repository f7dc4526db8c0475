// Package config handles configuration loading, validation, and
// persistence for the game server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultConfigDir  = "config"
	DefaultConfigFile = "config.json"
	DefaultGamePort   = 8880
	DefaultAPIPort    = 5000
)

// Server version constants. Version is the numeric protocol version
// sent in the handshake; VersionString is its display form.
const (
	ServerVersion       = 2700
	ServerVersionString = "2.7.00"
)

// Config is the root configuration structure.
type Config struct {
	mu   sync.RWMutex
	path string

	ServerData      ServerData      `json:"server_data"`
	ApplicationData ApplicationData `json:"application_data"`
}

// ServerData contains game-facing server configuration.
type ServerData struct {
	// Identity
	Name     string `json:"srv_name"`
	Location string `json:"srv_location"`

	// Network
	BindAddress string `json:"srv_bind_address"`
	GamePort    int    `json:"srv_game_port"`
	APIPort     int    `json:"srv_api_port"`

	// Session policy
	MaxGames                int `json:"srv_max_games"`
	MaxGameNameLength       int `json:"srv_max_game_name_length"`
	NicknameTakeoverSec     int `json:"srv_nickname_takeover_sec"`
	StaleConnectionSweepSec int `json:"srv_stale_sweep_sec"`
	PingIntervalSec         int `json:"srv_ping_interval_sec"`

	// Accounts
	AccountsRequired bool   `json:"srv_accounts_required"`
	OpenRegistration bool   `json:"srv_open_registration"`
	DatabasePath     string `json:"srv_database_path"`

	// Privileged nicknames allowed to use debug chat commands
	DebugUsers []string `json:"srv_debug_users"`
}

// ApplicationData contains operational configuration.
type ApplicationData struct {
	MQTT     MQTTConfig     `json:"mqtt"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// MQTTConfig holds MQTT telemetry settings.
type MQTTConfig struct {
	Enabled   bool   `json:"enabled"`
	BrokerURL string `json:"broker_url"`
	Port      int    `json:"port"`
	UseTLS    bool   `json:"use_tls"`
	CertFile  string `json:"cert_file"`
	KeyFile   string `json:"key_file"`
	CAFile    string `json:"ca_file"`
	ClientID  string `json:"client_id"`
	TopicRoot string `json:"topic_root"`
}

// SecurityConfig holds API security settings.
type SecurityConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
	RateLimitRPS   int      `json:"rate_limit_rps"`
	AuthDisabled   bool     `json:"auth_disabled"`
	AdminToken     string   `json:"admin_token"`
	TLSEnabled     bool     `json:"tls_enabled"`
	CertFile       string   `json:"cert_file"`
	KeyFile        string   `json:"key_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `json:"level"`
	Directory string `json:"directory"`
	Console   bool   `json:"console"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerData: ServerData{
			Name:                    "hexhaven",
			BindAddress:             "0.0.0.0",
			GamePort:                DefaultGamePort,
			APIPort:                 DefaultAPIPort,
			MaxGames:                100,
			MaxGameNameLength:       30,
			NicknameTakeoverSec:     30,
			StaleConnectionSweepSec: 300,
			PingIntervalSec:         60,
			OpenRegistration:        true,
			DatabasePath:            "data/accounts.db",
		},
		ApplicationData: ApplicationData{
			MQTT: MQTTConfig{
				Enabled:   false,
				Port:      8883,
				UseTLS:    true,
				TopicRoot: "hexhaven",
			},
			Security: SecurityConfig{
				RateLimitRPS: 100,
				AuthDisabled: true,
			},
			Logging: LoggingConfig{
				Level:     "info",
				Directory: "logs",
				Console:   true,
			},
		},
	}
}

// Load reads configuration from a JSON file, creating a default file
// on first run.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig() // start with defaults, then overlay
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")

	// Re-save so the file always reflects the complete option set,
	// including fields added after the file was first written.
	if saveErr := cfg.Save(); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to re-save config with updated defaults")
	}
	return cfg, nil
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// GetServerData returns a copy of the server configuration.
func (c *Config) GetServerData() ServerData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ServerData
}

// SetServerData updates the server configuration.
func (c *Config) SetServerData(data ServerData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ServerData = data
}

// GetApplicationData returns a copy of the application configuration.
func (c *Config) GetApplicationData() ApplicationData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ApplicationData
}

// SetApplicationData updates the application configuration.
func (c *Config) SetApplicationData(data ApplicationData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ApplicationData = data
}

// UpdateServerField updates one field of the server configuration by
// its JSON key.
func (c *Config) UpdateServerField(key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, _ := json.Marshal(c.ServerData)
	m := make(map[string]interface{})
	json.Unmarshal(data, &m)
	m[key] = value
	updated, _ := json.Marshal(m)
	if err := json.Unmarshal(updated, &c.ServerData); err != nil {
		return fmt.Errorf("failed to update field %s: %w", key, err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}

// IsDebugUser reports whether a nickname may run debug chat commands.
func (c *Config) IsDebugUser(nickname string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, u := range c.ServerData.DebugUsers {
		if u == nickname {
			return true
		}
	}
	return false
}
