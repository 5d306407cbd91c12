package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/errgroup"

	"jarvis/internal/api"
	"jarvis/internal/audio"
	"jarvis/internal/bus"
	"jarvis/internal/chat"
	"jarvis/internal/config"
	"jarvis/internal/dispatch"
	"jarvis/internal/handler"
	"jarvis/internal/ipc"
	"jarvis/internal/mixer"
	"jarvis/internal/notes"
	"jarvis/internal/notify"
	"jarvis/internal/proxy"
	"jarvis/internal/reminder"
	"jarvis/internal/system"
	"jarvis/internal/tts"
	"jarvis/internal/voice"
	"jarvis/pkg/audioconv"
	"jarvis/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

const duckFade = 300 * time.Millisecond

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(2)
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[cfg.LogLevel],
	})))

	log.Info("Booting up")

	if err := run(cfg); err != nil {
		log.Error("Jarvis stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Shut down")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpClient, err := proxy.NewClient(cfg.Proxy, 0)
	if err != nil {
		return err
	}
	log.Debug("Loaded http client", "proxy", cfg.Proxy)

	notesDir := notes.NewDir(cfg.NotesDir)
	log.Debug("Loaded notes", "dir", notesDir.Path())

	deps := handler.Deps{
		API: api.NewClient(api.Config{
			URL:     cfg.APIURL,
			Key:     cfg.APIKey,
			Timeout: cfg.APITimeout,
		}, httpClient),
		Processes: system.NewProcesses(),
		Browser:   system.NewBrowser(),
		Notes:     notesDir,
	}

	if cfg.OpenAIKey != "" {
		client := openai.NewClient(
			option.WithAPIKey(cfg.OpenAIKey),
			option.WithHTTPClient(httpClient),
		)
		deps.Chat = chat.NewCompleter(client, chat.Options{Model: cfg.Model})
		log.Debug("Loaded chat", "model", cfg.Model)
	} else {
		log.Warn("OPENAI_API_KEY not set, chat disabled")
	}

	whisper, err := stt.NewTranscriber(cfg.WhisperModel, stt.Options{Language: cfg.Language})
	if err != nil {
		return err
	}
	defer whisper.Close()
	log.Debug("Loaded whisper", "model", cfg.WhisperModel)

	var (
		in   dispatch.Listener
		out  dispatch.Speaker
		link *bus.Bus
	)

	if cfg.BusURL != "" {
		maxSamples := int(cfg.PhraseLimit.Seconds() * audio.SampleRate)
		decode := func(b []byte) ([]float32, error) {
			return audioconv.Decode(b, audioconv.Options{MaxSamples: maxSamples})
		}

		b, err := bus.Dial(ctx, cfg.BusURL, cfg.Shard, decode, whisper)
		if err != nil {
			return err
		}
		defer b.Close()

		in, out, link = b, b, b
		log.Info("Listening on bus", "url", cfg.BusURL, "shard", cfg.Shard)
	} else {
		rec := audio.NewRecorder(audio.Options{
			Ambient:     cfg.Ambient,
			PhraseLimit: cfg.PhraseLimit,
		})
		if err := rec.Init(); err != nil {
			return err
		}
		defer rec.Close()

		var opts []voice.Option
		if cfg.BeepPath != "" {
			opts = append(opts, voice.WithCue(notify.NewCue(cfg.BeepPath)))
		}
		if cfg.DuckVolume > 0 {
			opts = append(opts, voice.WithDucker(mixer.NewDucker(cfg.DuckVolume, duckFade, "jarvis", "espeak")))
		}

		in = voice.NewMicrophone(rec, whisper, opts...)
		out = tts.NewEspeak(cfg.Voice, cfg.SpeechRate)
		log.Info("Listening on microphone")
	}

	reminders := reminder.NewScheduler(func(r reminder.Reminder) {
		if err := out.Speak("Reminder: " + r.Message); err != nil {
			log.Error("Failed to speak reminder", "id", r.ID, "err", err)
		}
	}, reminder.WithInterval(cfg.ReminderTick))
	deps.Reminders = reminders

	loop := dispatch.NewLoop(in, out, handler.NewRegistry(deps))

	log.Info("Boot up - successful")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return loop.Run(gctx)
	})
	g.Go(func() error {
		return reminders.Run(gctx)
	})
	g.Go(func() error {
		return ipc.Serve(gctx, cfg.Socket, control(cancel, reminders))
	})
	if link != nil {
		g.Go(func() error {
			select {
			case <-link.Lost():
				return link.Err()
			case <-gctx.Done():
				return nil
			}
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func control(cancel context.CancelFunc, reminders *reminder.Scheduler) ipc.HandlerFunc {
	return func(msg ipc.ControlMessage) ipc.Reply {
		switch msg.Cmd {
		case "stop":
			cancel()
			return ipc.Reply{OK: true, Message: "stopping"}
		case "reminders":
			data, err := json.Marshal(reminders.Snapshot())
			if err != nil {
				return ipc.Reply{Message: err.Error()}
			}
			return ipc.Reply{OK: true, Data: data}
		case "remind":
			if len(msg.Args) == 0 {
				return ipc.Reply{Message: "nothing to remind"}
			}
			return ipc.Reply{OK: true, Message: reminders.Add(strings.Join(msg.Args, " "))}
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return ipc.Reply{Message: "unknown command " + msg.Cmd}
		}
	}
}
