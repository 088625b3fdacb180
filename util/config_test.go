package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "nostrodon", Name)
	assert.Equal(t, "config.yaml", ConfigFileName)
}

func TestReadConfFromYaml(t *testing.T) {
	path := writeConf(t, `
conf:
  host: 127.0.0.1
  sshPort: 23232
  httpPort: 9999
  withSsh: true
  pubkey: abc
  follows: [f1, f2]
  relays:
    - wss://one.example
  timelineLimit: 20
  database: cache.db
  authorizedKeys:
    - ssh-ed25519 AAAA
`)

	config, err := ReadConfFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", config.Conf.Host)
	assert.Equal(t, 23232, config.Conf.SshPort)
	assert.Equal(t, 9999, config.Conf.HttpPort)
	assert.True(t, config.Conf.WithSsh)
	assert.False(t, config.Conf.WithWeb)
	assert.Equal(t, "abc", config.Conf.PubKey)
	assert.Equal(t, []string{"f1", "f2"}, config.Conf.Follows)
	assert.Equal(t, []string{"wss://one.example"}, config.Conf.Relays)
	assert.Equal(t, 20, config.Conf.TimelineLimit)
	assert.Equal(t, "cache.db", config.Conf.Database)
	assert.Equal(t, []string{"ssh-ed25519 AAAA"}, config.Conf.AuthorizedKeys)
}

func TestReadConfFromAppliesDefaults(t *testing.T) {
	path := writeConf(t, "conf:\n  host: 0.0.0.0\n")

	config, err := ReadConfFrom(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultTimelineLimit, config.Conf.TimelineLimit)
	assert.Equal(t, []string{DefaultRelay}, config.Conf.Relays)
	assert.Equal(t, DefaultDatabase, config.Conf.Database)
	assert.Equal(t, DefaultLogFile, config.Conf.LogFile)
	assert.Equal(t, "info", config.Conf.LogLevel)
}

func TestReadConfWithEnvOverrides(t *testing.T) {
	path := writeConf(t, `
conf:
  host: 127.0.0.1
  sshPort: 23232
  httpPort: 9999
  relays: [wss://yaml.example]
`)
	t.Setenv("NOSTRODON_HOST", "192.168.1.1")
	t.Setenv("NOSTRODON_SSHPORT", "2222")
	t.Setenv("NOSTRODON_HTTPPORT", "8080")
	t.Setenv("NOSTRODON_WITH_WEB", "true")
	t.Setenv("NOSTRODON_PUBKEY", "envkey")
	t.Setenv("NOSTRODON_RELAYS", "wss://a.example, wss://b.example,")
	t.Setenv("NOSTRODON_LOG_LEVEL", "debug")

	config, err := ReadConfFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.1", config.Conf.Host)
	assert.Equal(t, 2222, config.Conf.SshPort)
	assert.Equal(t, 8080, config.Conf.HttpPort)
	assert.True(t, config.Conf.WithWeb)
	assert.Equal(t, "envkey", config.Conf.PubKey)
	assert.Equal(t, []string{"wss://a.example", "wss://b.example"}, config.Conf.Relays)
	assert.Equal(t, "debug", config.Conf.LogLevel)
}

func TestReadConfInvalidPortEnvKeepsYamlValue(t *testing.T) {
	path := writeConf(t, "conf:\n  sshPort: 23232\n")
	t.Setenv("NOSTRODON_SSHPORT", "not_a_number")

	config, err := ReadConfFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 23232, config.Conf.SshPort)
}

func TestReadConfWithSshFalseEnv(t *testing.T) {
	path := writeConf(t, "conf:\n  withSsh: true\n")
	t.Setenv("NOSTRODON_WITH_SSH", "false")

	config, err := ReadConfFrom(path)
	require.NoError(t, err)
	assert.True(t, config.Conf.WithSsh, "only \"true\" toggles the flag")
}

func TestReadConfFromMissingFile(t *testing.T) {
	_, err := ReadConfFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestReadConfInvalidYaml(t *testing.T) {
	path := writeConf(t, `
conf:
  host: 127.0.0.1
  sshPort: not_a_number
  invalid yaml structure
`)

	_, err := ReadConfFrom(path)
	assert.Error(t, err)
}

func TestReadConfPrefersLocalFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(ConfigFileName, []byte("conf:\n  host: local.example\n"), 0644))

	config, err := ReadConf()
	require.NoError(t, err)
	assert.Equal(t, "local.example", config.Conf.Host)
}

func TestEmbeddedDefaultsParse(t *testing.T) {
	config, err := parseConf(embeddedConfig)
	require.NoError(t, err)

	assert.Equal(t, 23232, config.Conf.SshPort)
	assert.True(t, config.Conf.WithSsh)
	assert.NotEmpty(t, config.Conf.Relays)
}
