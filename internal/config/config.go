package config

import (
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"wellbot/internal/display"
	"wellbot/internal/ipc"
)

const DefaultConfigID = "5eeee856-2fc9-4407-a1ec-95ac3ddcde7d"

var ErrMissingCredentials = errors.New("missing credentials")

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type Config struct {
	EnvFile  string
	LogLevel log.Level

	APIKey    string
	SecretKey string
	BaseURL   string
	ConfigID  string
	Proxy     string

	Assets    display.Assets
	FramePath string

	Audio  bool
	Device int

	ControlSocket string
}

// Load parses args, loads the env file and reads credentials from the
// environment.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("wellbot", pflag.ContinueOnError)

	envFile := fs.StringP("env", "e", ".env", "Env file path")
	logLevel := fs.StringP("log", "l", "info", "Log level")
	configID := fs.StringP("config-id", "c", DefaultConfigID, "EVI configuration id")
	baseURL := fs.String("base-url", "https://api.hume.ai", "Voice service base url")
	proxyAddr := fs.StringP("proxy", "p", "", "Socks proxy address")
	assets := fs.StringP("assets", "a", ".", "Directory with title.png, FirstTime.png and SecondTime.png")
	frame := fs.StringP("frame", "f", "wellbot-frame.png", "Where the current frame is written")
	noAudio := fs.Bool("no-audio", false, "Do not play the assistant's voice")
	device := fs.IntP("device", "d", -1, "Input device index, -1 for the default")
	ctl := fs.String("ctl-socket", ipc.SocketPath, "Control socket path")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	level, ok := logLevelMap[strings.ToLower(*logLevel)]
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", *logLevel)
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg := &Config{
		EnvFile:   *envFile,
		LogLevel:  level,
		APIKey:    os.Getenv("HUME_API_KEY"),
		SecretKey: os.Getenv("HUME_SECRET_KEY"),
		BaseURL:   *baseURL,
		ConfigID:  *configID,
		Proxy:     *proxyAddr,
		Assets: display.Assets{
			Title:     filepath.Join(*assets, "title.png"),
			Listening: filepath.Join(*assets, "FirstTime.png"),
			Speaking:  filepath.Join(*assets, "SecondTime.png"),
		},
		FramePath:     *frame,
		Audio:         !*noAudio,
		Device:        *device,
		ControlSocket: *ctl,
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: HUME_API_KEY not set", ErrMissingCredentials)
	}

	return cfg, nil
}
