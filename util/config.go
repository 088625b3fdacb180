package util

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/deemkeen/nostrodon/logging"
	"gopkg.in/yaml.v3"
)

const Name = "nostrodon"
const ConfigFileName = "config.yaml"

const (
	DefaultTimelineLimit = 50
	DefaultDatabase      = "database.db"
	DefaultLogFile       = "nostrodon.log"
	DefaultRelay         = "wss://relay.damus.io"
)

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host          string
		SshPort       int      `yaml:"sshPort"`
		HttpPort      int      `yaml:"httpPort"`
		WithSsh       bool     `yaml:"withSsh"`
		WithWeb       bool     `yaml:"withWeb"`
		PubKey        string   `yaml:"pubkey"`
		Follows       []string `yaml:"follows"`
		Relays        []string `yaml:"relays"`
		TimelineLimit int      `yaml:"timelineLimit"`
		Database      string   `yaml:"database"`
		LogLevel      string   `yaml:"logLevel"`
		LogFile       string   `yaml:"logFile"`
		// AuthorizedKeys restricts the ssh server to these keys when non-empty.
		AuthorizedKeys []string `yaml:"authorizedKeys"`
	}
}

// ReadConf reads config.yaml from the working directory or the user config
// directory, falling back to the embedded defaults.
func ReadConf() (*AppConfig, error) {
	configPath := ResolveFilePath(ConfigFileName)

	buf, err := os.ReadFile(configPath)
	if err != nil {
		logging.Info().Str("path", configPath).Msg("config file not found, using embedded defaults")
		buf = embeddedConfig

		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			if writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644); writeErr != nil {
				logging.Warn().Err(writeErr).Str("path", userConfigPath).Msg("could not write default config")
			} else {
				logging.Info().Str("path", userConfigPath).Msg("created default config file")
			}
		}
	}

	return parseConf(buf)
}

// ReadConfFrom reads the config at an explicit path. A missing file is an error.
func ReadConfFrom(path string) (*AppConfig, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return parseConf(buf)
}

func parseConf(buf []byte) (*AppConfig, error) {
	c := &AppConfig{}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}
	applyEnv(c)
	applyDefaults(c)
	return c, nil
}

func applyEnv(c *AppConfig) {
	if v := os.Getenv("NOSTRODON_HOST"); v != "" {
		c.Conf.Host = v
	}
	if v := os.Getenv("NOSTRODON_SSHPORT"); v != "" {
		if port, err := strconv.Atoi(v); err != nil {
			logging.Warn().Err(err).Str("NOSTRODON_SSHPORT", v).Msg("ignoring invalid port")
		} else {
			c.Conf.SshPort = port
		}
	}
	if v := os.Getenv("NOSTRODON_HTTPPORT"); v != "" {
		if port, err := strconv.Atoi(v); err != nil {
			logging.Warn().Err(err).Str("NOSTRODON_HTTPPORT", v).Msg("ignoring invalid port")
		} else {
			c.Conf.HttpPort = port
		}
	}
	if os.Getenv("NOSTRODON_WITH_SSH") == "true" {
		c.Conf.WithSsh = true
	}
	if os.Getenv("NOSTRODON_WITH_WEB") == "true" {
		c.Conf.WithWeb = true
	}
	if v := os.Getenv("NOSTRODON_PUBKEY"); v != "" {
		c.Conf.PubKey = v
	}
	if v := os.Getenv("NOSTRODON_RELAYS"); v != "" {
		c.Conf.Relays = splitList(v)
	}
	if v := os.Getenv("NOSTRODON_LOG_LEVEL"); v != "" {
		c.Conf.LogLevel = v
	}
}

func applyDefaults(c *AppConfig) {
	if c.Conf.TimelineLimit <= 0 {
		c.Conf.TimelineLimit = DefaultTimelineLimit
	}
	if len(c.Conf.Relays) == 0 {
		c.Conf.Relays = []string{DefaultRelay}
	}
	if c.Conf.Database == "" {
		c.Conf.Database = DefaultDatabase
	}
	if c.Conf.LogFile == "" {
		c.Conf.LogFile = DefaultLogFile
	}
	if c.Conf.LogLevel == "" {
		c.Conf.LogLevel = "info"
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
