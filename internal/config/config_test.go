package config_test

import (
	"helo/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	conf, err := config.NewFromUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *conf)
	require.NoError(t, conf.Validate())

	conf.DiscordAdminUserIDs = []string{"1234"}
	conf.Storage = config.StorageBolt
	conf.DB = "/var/lib/helo/helo.bolt"
	require.NoError(t, conf.Write())

	got, err := config.NewFromUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, conf, got)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HELO_RULESET", "console")
	t.Setenv("HELO_REDIS_ADDR", "localhost:6379")
	t.Setenv("HELO_DISCORD_ADMIN_IDS", "1, 2,,3")

	conf, err := config.NewFromUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "console", conf.Ruleset)
	assert.Equal(t, "localhost:6379", conf.RedisAddr)
	assert.Equal(t, []string{"1", "2", "3"}, conf.DiscordAdminUserIDs)
	assert.Equal(t, "./helo.db", conf.DB)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"storage", func(c *config.Config) { c.Storage = "postgres" }},
		{"db", func(c *config.Config) { c.DB = "" }},
		{"ruleset", func(c *config.Config) { c.Ruleset = "arcade" }},
		{"log level", func(c *config.Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			conf := config.Default()
			tt.mutate(&conf)
			assert.Error(t, conf.Validate())
		})
	}
}
