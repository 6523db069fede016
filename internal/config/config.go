// Package config loads startup settings from flags, an env file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	log "log/slog"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"venture/internal/ipc"
	"venture/pkg/inference"
	"venture/pkg/voice"
)

const APIKeyEnv = "OPENAI_API_KEY"

var ErrMissingAPIKey = errors.New(APIKeyEnv + " is not set")

// Error is a fatal startup configuration problem.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Config struct {
	EnvFile      string
	LogLevel     string
	Proxy        string
	Renderer     string
	Model        string
	TTSModel     string
	WhisperModel string
	Language     string
	VoicesFile   string
	MetricsAddr  string
	Socket       string
	Cue          string
	Duck         bool
	Speech       bool
	Timeout      time.Duration

	APIKey string
	Voices *voice.Catalog

	envFileSet bool
}

var logLevels = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// Parse reads command line flags. args excludes the program name.
func Parse(args []string) (*Config, error) {
	c := &Config{}
	set := cli.NewFlagSet("venture", cli.ContinueOnError)

	set.StringVarP(&c.EnvFile, "env", "e", ".env", "Env file path")
	set.StringVarP(&c.LogLevel, "log", "l", "info", "Log level (debug, info, warn, error)")
	set.StringVarP(&c.Proxy, "proxy", "p", "", "SOCKS5 proxy address for provider calls")
	set.StringVarP(&c.Renderer, "renderer", "r", "", "Websocket URL of the scene renderer")
	set.StringVar(&c.Model, "model", inference.DefaultModel, "Chat model")
	set.StringVar(&c.TTSModel, "tts-model", "tts-1", "Speech synthesis model")
	set.StringVar(&c.WhisperModel, "whisper-model", "", "Local whisper.cpp model; empty uses the hosted transcriber")
	set.StringVar(&c.Language, "language", "en", "Speech recognition language")
	set.StringVar(&c.VoicesFile, "voices", "", "YAML voice catalog overriding the built-in voices")
	set.StringVar(&c.MetricsAddr, "metrics", "", "Serve Prometheus metrics on this address")
	set.StringVar(&c.Socket, "socket", ipc.SocketPath, "Control socket path")
	set.StringVar(&c.Cue, "cue", "", "Sound played when the microphone opens")
	set.BoolVar(&c.Duck, "duck", false, "Lower other applications while an NPC speaks")
	set.BoolVar(&c.Speech, "speech", false, "Start conversations in speech mode")
	set.DurationVar(&c.Timeout, "timeout", 30*time.Second, "Per-request inference timeout")

	if err := set.Parse(args); err != nil {
		return nil, err
	}
	c.envFileSet = set.Changed("env")

	if _, ok := logLevels[c.LogLevel]; !ok {
		return nil, &Error{Field: "log", Err: fmt.Errorf("unknown level %q", c.LogLevel)}
	}
	return c, nil
}

// Level returns the configured log level.
func (c *Config) Level() log.Level {
	return logLevels[c.LogLevel]
}

// Load resolves the credential and the voice catalog. getenv takes
// precedence over the env file. A missing default env file is not an error.
func (c *Config) Load(getenv func(string) string) error {
	file, err := godotenv.Read(c.EnvFile)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !c.envFileSet:
		file = nil
	case err != nil:
		return &Error{Field: "env", Err: err}
	}

	c.APIKey = getenv(APIKeyEnv)
	if c.APIKey == "" {
		c.APIKey = file[APIKeyEnv]
	}
	if c.APIKey == "" {
		return &Error{Field: APIKeyEnv, Err: ErrMissingAPIKey}
	}

	c.Voices = voice.DefaultCatalog()
	if c.VoicesFile != "" {
		cat, err := voice.LoadCatalog(c.VoicesFile)
		if err != nil {
			return &Error{Field: "voices", Err: err}
		}
		c.Voices = cat
	}
	return nil
}
