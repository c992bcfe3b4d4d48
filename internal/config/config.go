package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"helo/internal/rating"
	"helo/internal/util"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	StorageSQLite = "sqlite"
	StorageBolt   = "bolt"
)

type Config struct {
	// DiscordListenIDs is a list of channel ID where the bot will listen and
	// accept commands. PMs are always listened to.
	DiscordListenIDs []string

	// Who is allowed to use `!dev` commands.
	DiscordAdminUserIDs []string

	// Who is not allowed to do anything.
	DiscordBannedUserIDs []string

	DiscordToken string

	// Storage is either "sqlite" or "bolt", DB is the path of the database
	// file.
	Storage, DB string

	// RedisAddr enables Redis locks when several processes share the
	// storage, in-process locks are used otherwise.
	RedisAddr string

	Ruleset  string
	WebAddr  string
	LogLevel string
}

func Default() Config {
	return Config{
		Storage:  StorageSQLite,
		DB:       "./helo.db",
		Ruleset:  rating.Primary.Name,
		WebAddr:  "127.0.0.1:3001",
		LogLevel: "info",
	}
}

func NewFromUserConfigDir() (*Config, error) {
	c := &Config{}
	if err := c.ReloadFromUserConfigDir(); err != nil {
		return nil, err
	}

	return c, nil
}

// expandFromEnv overrides the configuration with HELO_* variables, read
// from the environment or a .env file in the working directory.
func (c *Config) expandFromEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("unable to load .env: %s", err)
	}

	vars := []struct {
		src string
		dst *string
	}{
		{"HELO_DISCORD_TOKEN", &c.DiscordToken},
		{"HELO_DB", &c.DB},
		{"HELO_STORAGE", &c.Storage},
		{"HELO_REDIS_ADDR", &c.RedisAddr},
		{"HELO_RULESET", &c.Ruleset},
		{"HELO_WEB_ADDR", &c.WebAddr},
		{"HELO_LOG_LEVEL", &c.LogLevel},
	}

	for _, v := range vars {
		if str := os.Getenv(v.src); str != "" {
			*v.dst = str
		}
	}

	if str := os.Getenv("HELO_DISCORD_ADMIN_IDS"); str != "" {
		c.DiscordAdminUserIDs = util.SplitList(str)
	}
	if str := os.Getenv("HELO_DISCORD_LISTEN_IDS"); str != "" {
		c.DiscordListenIDs = util.SplitList(str)
	}
}

func (c *Config) ReloadFromUserConfigDir() error {
	defer c.expandFromEnv()

	path, err := getOrCreateUserConfigPath()
	if err != nil {
		return err
	}
	log.Debugf("reading conf from %s", path)

	*c = Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(c)
}

// Validate checks the values that would otherwise only fail when used.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageSQLite, StorageBolt:
	default:
		return fmt.Errorf("unknown storage %q, expected %q or %q", c.Storage, StorageSQLite, StorageBolt)
	}

	if c.DB == "" {
		return errors.New("no database path configured")
	}

	if _, err := rating.RulesetByName(c.Ruleset); err != nil {
		return err
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

func getOrCreateUserConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(configDir, "helo")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}

	return filepath.Join(dir, "config.json"), nil
}

func (c *Config) Write() error {
	path, err := getOrCreateUserConfigPath()
	if err != nil {
		return err
	}
	log.Debugf("writing conf to %s", path)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(f).Encode(c); err != nil {
		if err2 := f.Close(); err2 != nil {
			return fmt.Errorf("unable to close file (%s) after error: %w", err2, err)
		}

		return err
	}

	return f.Close()
}
