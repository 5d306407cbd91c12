// Package config merges command-line flags, the environment (optionally
// seeded from a .env file) and an optional config file.
//
// Precedence, highest first: flags set explicitly, environment, config
// file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	EnvFile    string
	ConfigFile string
	LogLevel   string

	APIURL     string
	APIKey     string
	APITimeout time.Duration

	OpenAIKey string
	Model     string

	SpeechRate int
	Voice      string

	PhraseLimit  time.Duration
	Ambient      time.Duration
	WhisperModel string
	Language     string
	BeepPath     string
	DuckVolume   int

	NotesDir     string
	ReminderTick time.Duration

	Proxy  string
	BusURL string
	Shard  string
	Socket string
}

// env names for keys that do not follow the JARVIS_ prefix scheme
var envNames = map[string][]string{
	"api-url":      {"PERSONAL_API_URL", "JARVIS_API_URL"},
	"api-key":      {"PERSONAL_API_KEY", "JARVIS_API_KEY"},
	"openai-key":   {"OPENAI_API_KEY"},
	"api-timeout":  {"JARVIS_API_TIMEOUT"},
	"rate":         {"JARVIS_TTS_RATE"},
	"phrase-limit": {"JARVIS_PHRASE_TIME_LIMIT"},
	"ambient":      {"JARVIS_AMBIENT_ADJUST"},
	"model":        {"JARVIS_MODEL"},
	"notes":        {"JARVIS_NOTES_DIR"},
	"whisper":      {"JARVIS_WHISPER_MODEL"},
	"lang":         {"JARVIS_LANGUAGE"},
	"voice":        {"JARVIS_VOICE"},
	"proxy":        {"JARVIS_PROXY"},
	"bus":          {"JARVIS_BUS_URL"},
	"shard":        {"JARVIS_SHARD"},
	"beep":         {"JARVIS_BEEP"},
	"duck":         {"JARVIS_DUCK_VOLUME"},
	"tick":         {"JARVIS_REMINDER_TICK"},
	"socket":       {"JARVIS_SOCKET"},
	"log":          {"JARVIS_LOG"},
}

var LogLevels = []string{"debug", "info", "warn", "error"}

func newFlagSet(name string) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)

	f.StringP("env", "e", ".env", "Env file path")
	f.StringP("config", "c", "", "Config file (yaml, json or toml)")
	f.StringP("log", "l", "info", "Log level")

	f.String("api-url", "", "Personal API endpoint")
	f.String("api-key", "", "Personal API bearer token")
	f.Duration("api-timeout", 8*time.Second, "Personal API call timeout")
	f.String("model", "gpt-4o-mini", "Chat model")

	f.Int("rate", 170, "Speech rate, words per minute")
	f.String("voice", "en", "espeak-ng voice")
	f.Duration("phrase-limit", 12*time.Second, "Longest phrase to record")
	f.Duration("ambient", 1500*time.Millisecond, "Ambient noise calibration before listening")
	f.String("whisper", "third_party/whisper.cpp/models/ggml-base.en.bin", "Whisper model path")
	f.String("lang", "en", "Transcription language, or auto")
	f.String("beep", "", "mp3 played before listening")
	f.Int("duck", 20, "Other streams' volume while listening, percent (0 disables)")

	f.String("notes", ".", "Directory for notes")
	f.Duration("tick", time.Second, "Reminder check interval")

	f.StringP("proxy", "p", "", "SOCKS5 proxy address for outbound HTTP")
	f.StringP("bus", "b", "", "Websocket bus URL; replaces the microphone when set")
	f.String("shard", "jarvis", "Shard name on the bus")
	f.String("socket", "/tmp/jarvis.sock", "Control socket path")

	return f
}

// Load parses args (without the program name) and resolves every option.
func Load(args []string) (*Config, error) {
	flags := newFlagSet("jarvis")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	envFile, _ := flags.GetString("env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	v.SetDefault("openai-key", "")
	for key, names := range envNames {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		EnvFile:    envFile,
		ConfigFile: v.GetString("config"),
		LogLevel:   v.GetString("log"),

		APIURL:     v.GetString("api-url"),
		APIKey:     v.GetString("api-key"),
		APITimeout: v.GetDuration("api-timeout"),

		OpenAIKey: v.GetString("openai-key"),
		Model:     v.GetString("model"),

		SpeechRate: v.GetInt("rate"),
		Voice:      v.GetString("voice"),

		PhraseLimit:  v.GetDuration("phrase-limit"),
		Ambient:      v.GetDuration("ambient"),
		WhisperModel: v.GetString("whisper"),
		Language:     v.GetString("lang"),
		BeepPath:     v.GetString("beep"),
		DuckVolume:   v.GetInt("duck"),

		NotesDir:     v.GetString("notes"),
		ReminderTick: v.GetDuration("tick"),

		Proxy:  v.GetString("proxy"),
		BusURL: v.GetString("bus"),
		Shard:  v.GetString("shard"),
		Socket: v.GetString("socket"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	known := false
	for _, l := range LogLevels {
		known = known || l == c.LogLevel
	}
	if !known {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, fmt.Errorf("api timeout must be positive, got %s", c.APITimeout))
	}
	if c.SpeechRate <= 0 {
		errs = append(errs, fmt.Errorf("speech rate must be positive, got %d", c.SpeechRate))
	}
	if c.PhraseLimit <= 0 {
		errs = append(errs, fmt.Errorf("phrase limit must be positive, got %s", c.PhraseLimit))
	}
	if c.Ambient < 0 {
		errs = append(errs, fmt.Errorf("ambient calibration cannot be negative, got %s", c.Ambient))
	}
	if c.DuckVolume < 0 || c.DuckVolume > 100 {
		errs = append(errs, fmt.Errorf("duck volume must be 0-100, got %d", c.DuckVolume))
	}
	if c.ReminderTick <= 0 {
		errs = append(errs, fmt.Errorf("reminder tick must be positive, got %s", c.ReminderTick))
	}

	return errors.Join(errs...)
}
