package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return "--env=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load([]string{noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8*time.Second, cfg.APITimeout)
	assert.Equal(t, 170, cfg.SpeechRate)
	assert.Equal(t, 12*time.Second, cfg.PhraseLimit)
	assert.Equal(t, 1500*time.Millisecond, cfg.Ambient)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, ".", cfg.NotesDir)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, 20, cfg.DuckVolume)
	assert.Equal(t, time.Second, cfg.ReminderTick)
	assert.Equal(t, "/tmp/jarvis.sock", cfg.Socket)
	assert.Equal(t, "jarvis", cfg.Shard)
	assert.Empty(t, cfg.BusURL)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("PERSONAL_API_URL", "http://localhost:9000/q")
	t.Setenv("PERSONAL_API_KEY", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("JARVIS_TTS_RATE", "200")
	t.Setenv("JARVIS_PHRASE_TIME_LIMIT", "5s")

	cfg, err := Load([]string{noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/q", cfg.APIURL)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "sk-test", cfg.OpenAIKey)
	assert.Equal(t, 200, cfg.SpeechRate)
	assert.Equal(t, 5*time.Second, cfg.PhraseLimit)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("JARVIS_TTS_RATE", "200")

	cfg, err := Load([]string{noEnvFile(t), "--rate", "140", "--log", "debug"})
	require.NoError(t, err)

	assert.Equal(t, 140, cfg.SpeechRate)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("JARVIS_NOTES_DIR=/tmp/notes\n"), 0o644))
	t.Setenv("JARVIS_NOTES_DIR", "")
	os.Unsetenv("JARVIS_NOTES_DIR")

	cfg, err := Load([]string{"--env", path})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/notes", cfg.NotesDir)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jarvis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: gpt-4o\nduck: 0\n"), 0o644))

	cfg, err := Load([]string{noEnvFile(t), "--config", path})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 0, cfg.DuckVolume)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, args := range map[string][]string{
		"log level": {"--log", "verbose"},
		"rate":      {"--rate", "0"},
		"duck":      {"--duck", "150"},
		"timeout":   {"--api-timeout", "-1s"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(append([]string{noEnvFile(t)}, args...))
			assert.Error(t, err)
		})
	}
}

func TestLoadUnknownFlag(t *testing.T) {
	_, err := Load([]string{noEnvFile(t), "--nope"})
	assert.Error(t, err)
}
