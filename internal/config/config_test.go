package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, DefaultConfigFile))
	assert.Equal(t, DefaultGamePort, cfg.GetServerData().GamePort)
	assert.Equal(t, DefaultAPIPort, cfg.GetServerData().APIPort)

	// a second load reads the written file back
	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.GetServerData(), again.GetServerData())
}

func TestValidateDefaults(t *testing.T) {
	result := Validate(DefaultConfig())
	assert.True(t, result.IsValid(), "defaults must validate: %v", result.Errors)
}

func TestValidateCatchesBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServerData.Name = ""
	cfg.ServerData.APIPort = cfg.ServerData.GamePort
	cfg.ServerData.MaxGames = 0
	cfg.ApplicationData.Logging.Level = "loud"

	result := Validate(cfg)
	assert.False(t, result.IsValid())
	fields := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "server_data.srv_name")
	assert.Contains(t, fields, "server_data.ports")
	assert.Contains(t, fields, "server_data.srv_max_games")
	assert.Contains(t, fields, "application_data.logging.level")
}

func TestValidateAdminToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplicationData.Security.AuthDisabled = false

	result := Validate(cfg)
	require.False(t, result.IsValid(), "enabled auth without a token must fail")

	cfg.ApplicationData.Security.AdminToken = "s3cret"
	assert.True(t, Validate(cfg).IsValid())
}

func TestUpdateServerField(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.UpdateServerField("srv_max_games", 42))
	assert.Equal(t, 42, cfg.GetServerData().MaxGames)

	require.NoError(t, cfg.UpdateServerField("srv_name", "west-1"))
	assert.Equal(t, "west-1", cfg.GetServerData().Name)
}

func TestIsDebugUser(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServerData.DebugUsers = []string{"alice"}
	assert.True(t, cfg.IsDebugUser("alice"))
	assert.False(t, cfg.IsDebugUser("bob"))
}
