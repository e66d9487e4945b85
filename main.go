package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/soocke/coop-overlay-go/config"
	"github.com/soocke/coop-overlay-go/debug"
	"github.com/soocke/coop-overlay-go/domain/engine"
	"github.com/soocke/coop-overlay-go/domain/icons"
	"github.com/soocke/coop-overlay-go/domain/recognition"
	"github.com/soocke/coop-overlay-go/domain/templates"
	"github.com/soocke/coop-overlay-go/domain/timer"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("coop-overlay", pflag.ContinueOnError)
	cfgPath := flags.String("config", "coop-overlay.yaml", "path to a YAML or JSON config file")
	flags.String("template_root", "templates", "template library root")
	flags.String("language", "enUS", "template language directory")
	flags.String("log_level", "info", "debug, info, warn or error")
	flags.String("log_format", "json", "json or text")
	flags.String("window_title", "StarCraft II", "title of the game window")
	flags.String("backend", config.BackendTemplate, "recognition backend: template or tesseract")
	flags.String("tesseract_language", "eng", "tesseract traineddata language")
	flags.Bool("debug", false, "log runtime and engine statistics")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath, flags)
	if err != nil {
		return err
	}
	logger := NewLogger(parseLevel(cfg.LogLevel), cfg.LogFormat)

	lib, err := templates.Load(cfg.TemplateRoot, cfg.Language, logger)
	if err != nil {
		return err
	}

	recognizer, closeBackend := selectBackend(cfg, lib, logger)
	defer closeBackend()

	eng, err := engine.New(cfg, engine.Deps{
		Library:    lib,
		Recognizer: recognizer,
		Alerter:    consoleAlerter{logger: logger},
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Debug {
		debug.StartRuntimeLogger(ctx, 5*time.Second, logger, func() []any {
			s := eng.Stats()
			return []any{"iterations", s.Iterations, "dropped", s.Dropped, "panics", s.Panics}
		})
	}
	go consume(ctx, eng, logger)

	if err := eng.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	eng.Stop()
	<-eng.Done()
	return nil
}

// selectBackend returns the configured recognizer. A tesseract request that
// cannot be served falls back to template matching.
func selectBackend(cfg *config.Config, lib *templates.Library, logger *slog.Logger) (recognition.Recognizer, func()) {
	if cfg.Backend == config.BackendTesseract {
		r, err := recognition.NewTesseract(cfg.TesseractLanguage, logger)
		if err == nil {
			return r, func() {
				if c, ok := r.(io.Closer); ok {
					_ = c.Close()
				}
			}
		}
		logger.Warn("tesseract backend unavailable; using template matching", "error", err)
	}
	return recognition.NewGlyphMatcher(lib, cfg, logger), func() {}
}

// consoleAlerter stands in for the overlay's toast and sound collaborator.
type consoleAlerter struct {
	logger *slog.Logger
}

func (a consoleAlerter) Alert(r timer.Result) {
	a.logger.Info("overlay.alert", resultAttrs(r)...)
}

// consume prints icon transitions until ctx ends. Results reach the console
// through the alerter.
func consume(ctx context.Context, eng *engine.Engine, logger *slog.Logger) {
	events, cancel := eng.Icons().Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			logIcons(logger, ev)
		}
	}
}

func logIcons(logger *slog.Logger, ev icons.Event) {
	logger.Info("overlay.icons", "race", ev.Race, "mutators", ev.Mutators, "mutators_done", ev.MutatorsDone)
}

func resultAttrs(r timer.Result) []any {
	count := "-"
	if r.Count != nil {
		count = strconv.Itoa(*r.Count)
	}
	return []any{"count", count, "time", r.Time}
}
