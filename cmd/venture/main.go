package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"venture/internal/audio"
	"venture/internal/bridge"
	"venture/internal/config"
	"venture/internal/conversation"
	"venture/internal/game"
	"venture/internal/input"
	"venture/internal/ipc"
	"venture/internal/notify"
	"venture/internal/observe"
	"venture/internal/proximity"
	"venture/internal/proxy"
	"venture/internal/speech"
	"venture/pkg/inference"
	"venture/pkg/stt"
	"venture/pkg/voice"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if errors.Is(err, cli.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: cfg.Level(),
	})))

	log.Info("Booting up")

	if err := cfg.Load(os.Getenv); err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded config", "model", cfg.Model, "voices", len(cfg.Voices.IDs()))

	if err := run(cfg); err != nil {
		log.Error("Exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	metrics, shutdownMetrics, err := observe.Init(cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownMetrics(sctx); err != nil {
			log.Warn("Failed to shut down metrics", "err", err)
		}
	}()

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Proxy != "" {
		httpClient, err := proxy.NewSocksClient(cfg.Proxy, 0)
		if err != nil {
			return fmt.Errorf("socks proxy %s: %w", cfg.Proxy, err)
		}
		opts = append(opts, option.WithHTTPClient(httpClient))
		log.Debug("Loaded proxy", "addr", cfg.Proxy)
	}
	client := openai.NewClient(opts...)

	rec, closeRec, err := recognizer(cfg, client)
	if err != nil {
		return err
	}
	defer closeRec()

	player := audio.NewPlayer()
	var ducker speech.Ducker
	if cfg.Duck {
		ducker = audio.NewDucker([]string{"venture"}, 10)
	}

	driver := speech.NewDriver(speech.Config{
		Voices:     voice.NewRegistry(cfg.Voices),
		Synth:      speech.NewOpenAISynth(client, cfg.TTSModel),
		Player:     player,
		Recognizer: rec,
		OpenMic:    openMic,
		Ducker:     ducker,
		Cue:        notify.NewCue(player, cfg.Cue).Ring,
		Metrics:    metrics,
	})
	defer driver.StopListening()

	inf := inference.NewClient(inference.NewOpenAI(client, cfg.Model), cfg.Timeout, metrics)
	dlg := conversation.New(inf, driver, conversation.Options{
		SpeechOnStart: cfg.Speech,
		Metrics:       metrics,
	})
	g := game.New(dlg, proximity.NewController(proximity.DefaultNPCs()))

	events := make(chan input.Event, 64)
	grp, gctx := errgroup.WithContext(ctx)

	srv, err := ipc.Listen(cfg.Socket, ipc.Feeder{Out: events}.Handle)
	if err != nil {
		return fmt.Errorf("control socket: %w", err)
	}
	defer srv.Close()
	grp.Go(func() error { return srv.Serve(gctx) })

	var pub game.Publisher = newConsole()
	if cfg.Renderer != "" {
		br, err := bridge.Dial(ctx, cfg.Renderer, 0)
		if err != nil {
			return fmt.Errorf("renderer %s: %w", cfg.Renderer, err)
		}
		defer br.Close()
		pub = br

		grp.Go(func() error { return br.Run(gctx) })
		grp.Go(func() error { return forward(gctx, br.Events(), events) })
	}

	log.Info("Boot up - successful", "socket", cfg.Socket, "renderer", cfg.Renderer)

	grp.Go(func() error {
		defer cancel()
		return g.Run(gctx, events, pub)
	})

	err = grp.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("Shut down")
	return err
}

func recognizer(cfg *config.Config, client openai.Client) (stt.Recognizer, func(), error) {
	if cfg.WhisperModel == "" {
		return stt.NewRemote(client, "", cfg.Language), func() {}, nil
	}

	tr, err := stt.NewTranscriber(cfg.WhisperModel, stt.Options{Language: cfg.Language})
	if err != nil {
		return nil, nil, fmt.Errorf("whisper: %w", err)
	}
	log.Debug("Loaded whisper", "model", cfg.WhisperModel)
	return tr, func() { tr.Close() }, nil
}

func openMic() (speech.Microphone, error) {
	m, err := audio.Open()
	if err != nil {
		return nil, err
	}
	return m, nil
}

func forward(ctx context.Context, in <-chan input.Event, out chan<- input.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-in:
			select {
			case out <- e:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
