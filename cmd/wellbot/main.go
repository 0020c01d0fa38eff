package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
	log "log/slog"

	"wellbot/internal/app"
	"wellbot/internal/audio"
	"wellbot/internal/config"
	"wellbot/internal/display"
	"wellbot/internal/evi"
	"wellbot/internal/ipc"
	"wellbot/internal/proxy"
	"wellbot/internal/report"
	"wellbot/internal/session"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: cfg.LogLevel,
	})))

	log.Info("Booting up")

	httpClient, wsDialer, err := proxy.Clients(cfg.Proxy)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
		os.Exit(1)
	}

	renderer, err := display.NewRenderer(cfg.Assets, &display.PNGSurface{Path: cfg.FramePath})
	if err != nil {
		log.Error("Failed to init renderer", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded renderer", "frame", cfg.FramePath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := &session.Driver{
		Dial: func(ctx context.Context) (session.Conn, error) {
			return evi.Dial(ctx, evi.Config{
				BaseURL:    cfg.BaseURL,
				ConfigID:   cfg.ConfigID,
				APIKey:     cfg.APIKey,
				SecretKey:  cfg.SecretKey,
				HTTPClient: httpClient,
				Dialer:     wsDialer,
			})
		},
		Classifier: report.NewClassifier(),
		Renderer:   renderer,
		Out:        os.Stdout,
	}

	mic := audio.NewMicrophone(cfg.Device)
	if err := mic.Init(); err != nil {
		log.Warn("Microphone unavailable, text input only", "err", err)
	} else {
		defer mic.Close()
		driver.Mic = mic
		driver.Audio = evi.AudioSettings{
			Encoding:   "linear16",
			SampleRate: audio.SampleRate,
			Channels:   audio.Channels,
		}
		log.Debug("Loaded microphone", "device", cfg.Device)
	}

	if cfg.Audio {
		player := audio.NewPlayer()
		go player.Run(ctx)
		driver.Player = player
	}

	controls := make(chan string, 4)
	srv, err := ipc.StartServer(cfg.ControlSocket, func(msg ipc.ControlMessage) {
		select {
		case controls <- msg.Cmd:
		default:
			log.Warn("Dropping control command", "cmd", msg.Cmd)
		}
	})
	if err != nil {
		log.Warn("Control socket unavailable", "path", cfg.ControlSocket, "err", err)
	} else {
		defer srv.Close()
	}

	lines := session.ReadLines(os.Stdin)
	driver.Lines = lines

	log.Info("Boot up - successful")

	if err := app.New(renderer, driver, lines, controls).Run(ctx); err != nil {
		log.Error("Fatal", "err", err)
		os.Exit(1)
	}

	log.Info("Bye")
}
