package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linuxdo-keepalive/internal/domain"
)

var managedEnv = []string{
	"APP_ENV", "CONFIG_FILE", "GITHUB_ACTIONS", "USERNAME", "PASSWORD",
	"LINUXDO_USERNAME", "LINUXDO_PASSWORD", "LIKE_PROBABILITY", "REPLY_PROBABILITY",
	"COLLECT_PROBABILITY", "MAX_TOPICS", "TOPIC_CAP_MODE", "HOME_URL", "CONNECT_URL",
	"USE_TELEGRAM", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "NOTIFY_MODE", "BROWSER",
	"HEADLESS", "NAV_TIMEOUT", "RUN_INTERVAL", "LOG_FORMAT",
}

// isolate очищает окружение и переходит во временный каталог без .env.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range managedEnv {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("LINUXDO_USERNAME", "alice")
	t.Setenv("LINUXDO_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Credentials.Username)
	assert.InDelta(t, 0.02, cfg.Settings.LikeProbability, 1e-9)
	assert.Zero(t, cfg.Settings.ReplyProbability)
	assert.InDelta(t, 0.02, cfg.Settings.CollectProbability, 1e-9)
	assert.Equal(t, 10, cfg.Settings.MaxTopics)
	assert.Equal(t, "listing", cfg.Settings.TopicCapMode)
	assert.Equal(t, "https://linux.do/", cfg.URLs.Home)
	assert.Equal(t, "https://connect.linux.do/", cfg.URLs.Connect)
	assert.False(t, cfg.Telegram.Enabled)
	assert.Equal(t, "firefox", cfg.Browser.Engine)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser.NavTimeout)
	assert.Equal(t, 2*time.Second, cfg.Browser.ActionTimeout)
}

func TestLoadMissingCredentials(t *testing.T) {
	isolate(t)

	_, err := Load()
	require.ErrorIs(t, err, domain.ErrConfigMissing)
	assert.Contains(t, err.Error(), "LINUXDO_USERNAME")
	assert.Contains(t, err.Error(), "LINUXDO_PASSWORD")
}

func TestLoadAcceptsShortAliases(t *testing.T) {
	isolate(t)
	t.Setenv("USERNAME", "bob")
	t.Setenv("PASSWORD", "pw")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.Credentials.Username)
	assert.Equal(t, "pw", cfg.Credentials.Password)
}

func TestLoadRejectsOutOfRangeProbability(t *testing.T) {
	isolate(t)
	t.Setenv("LINUXDO_USERNAME", "alice")
	t.Setenv("LINUXDO_PASSWORD", "secret")
	t.Setenv("LIKE_PROBABILITY", "1.5")

	_, err := Load()
	require.ErrorIs(t, err, domain.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "LIKE_PROBABILITY")
}

func TestLoadTelegramRequiresTokenAndChat(t *testing.T) {
	isolate(t)
	t.Setenv("LINUXDO_USERNAME", "alice")
	t.Setenv("LINUXDO_PASSWORD", "secret")
	t.Setenv("USE_TELEGRAM", "true")

	_, err := Load()
	require.ErrorIs(t, err, domain.ErrConfigMissing)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
	assert.Contains(t, err.Error(), "TELEGRAM_CHAT_ID")
}

const sampleINI = `[credentials]
username = ini-user
password = ini-pass

[settings]
like_probability = 0.5
max_topics = 7
topic_cap_mode = visits

[telegram]
enabled = false
`

func TestLoadReadsINIWithEnvOverrides(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(sampleINI), 0o600))
	t.Setenv("MAX_TOPICS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ini-user", cfg.Credentials.Username)
	assert.InDelta(t, 0.5, cfg.Settings.LikeProbability, 1e-9)
	assert.Equal(t, 3, cfg.Settings.MaxTopics, "environment wins over the file")
	assert.Equal(t, "visits", cfg.Settings.TopicCapMode)
}

func TestLoadIgnoresINIUnderGitHubActions(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.ini")
	require.NoError(t, os.WriteFile(path, []byte(sampleINI), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("GITHUB_ACTIONS", "true")

	_, err := Load()
	assert.ErrorIs(t, err, domain.ErrConfigMissing)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LINUXDO_USERNAME=dot\nLINUXDO_PASSWORD=env\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dot", cfg.Credentials.Username)
	assertUnset(t, "LINUXDO_USERNAME", "LINUXDO_PASSWORD")
}

func TestLoadLeavesEnvironmentUntouched(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(sampleINI), 0o600))
	t.Setenv("USERNAME", "alias-user")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "alias-user", cfg.Credentials.Username, "alias beats the file")
	assert.Equal(t, "ini-pass", cfg.Credentials.Password)
	assert.Equal(t, 7, cfg.Settings.MaxTopics)

	assertUnset(t, "LINUXDO_USERNAME", "LINUXDO_PASSWORD", "MAX_TOPICS", "LIKE_PROBABILITY", "TOPIC_CAP_MODE")
	v, ok := os.LookupEnv("USERNAME")
	assert.True(t, ok)
	assert.Equal(t, "alias-user", v)
}

func TestLoadDotEnvOverridesINI(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(sampleINI), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MAX_TOPICS=4\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Settings.MaxTopics)
	assert.Equal(t, "ini-user", cfg.Credentials.Username)
	assertUnset(t, "MAX_TOPICS")
}

func assertUnset(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		_, ok := os.LookupEnv(k)
		assert.False(t, ok, "%s leaked into the environment", k)
	}
}
