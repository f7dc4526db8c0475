package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Validate performs comprehensive validation of the configuration.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	validateServerData(&cfg.ServerData, result)
	validateApplicationData(&cfg.ApplicationData, result)

	return result
}

func validateServerData(data *ServerData, result *ValidationResult) {
	if strings.TrimSpace(data.Name) == "" {
		result.AddError("server_data.srv_name", "server name is required")
	}

	validatePort(data.GamePort, "server_data.srv_game_port", result)
	validatePort(data.APIPort, "server_data.srv_api_port", result)
	if data.GamePort == data.APIPort {
		result.AddError("server_data.ports", "game port and API port must differ")
	}

	if data.MaxGames < 1 {
		result.AddError("server_data.srv_max_games", "must allow at least 1 game")
	}
	if data.MaxGames > 10000 {
		result.AddWarning("server_data.srv_max_games",
			fmt.Sprintf("high game limit (%d) may cause memory pressure", data.MaxGames))
	}

	if data.NicknameTakeoverSec < 5 {
		result.AddWarning("server_data.srv_nickname_takeover_sec",
			"takeover window under 5s can evict clients on routine network hiccups")
	}
	if data.PingIntervalSec < 10 {
		result.AddWarning("server_data.srv_ping_interval_sec",
			"ping interval less than 10s may cause excessive traffic")
	}

	if data.AccountsRequired && strings.TrimSpace(data.DatabasePath) == "" {
		result.AddError("server_data.srv_database_path",
			"database path is required when accounts are required")
	}
}

func validateApplicationData(data *ApplicationData, result *ValidationResult) {
	if data.MQTT.Enabled {
		if strings.TrimSpace(data.MQTT.BrokerURL) == "" {
			result.AddError("application_data.mqtt.broker_url", "MQTT broker URL is required when enabled")
		}
		if data.MQTT.Port < 1 || data.MQTT.Port > 65535 {
			result.AddError("application_data.mqtt.port", "invalid MQTT port")
		}
		if data.MQTT.UseTLS && strings.TrimSpace(data.MQTT.CAFile) == "" {
			result.AddWarning("application_data.mqtt.ca_file",
				"TLS enabled without a CA file, system roots will be used")
		}
	}

	if data.Security.RateLimitRPS < 1 {
		result.AddWarning("application_data.security.rate_limit_rps",
			"rate limit is disabled (0 RPS), this may expose the API to abuse")
	}
	if !data.Security.AuthDisabled && strings.TrimSpace(data.Security.AdminToken) == "" {
		result.AddError("application_data.security.admin_token",
			"admin token is required when API auth is enabled")
	}

	switch data.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		result.AddError("application_data.logging.level",
			fmt.Sprintf("unknown log level %q", data.Logging.Level))
	}
}

func validatePort(port int, field string, result *ValidationResult) {
	if port < 1 || port > 65535 {
		result.AddError(field, fmt.Sprintf("invalid port number: %d (must be 1-65535)", port))
		return
	}
	if port < 1024 {
		result.AddWarning(field,
			fmt.Sprintf("port %d is a privileged port, may require elevated permissions", port))
	}
}

// IsPortAvailable checks if a port is available for binding.
func IsPortAvailable(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
