// Command claudir bridges Telegram group chats to a spam classifier and
// a Claude Code CLI backend. Grounded on the teacher's root program.go
// (fx.New(...).Run() shape) and sources/telegram/cmdutils.go's
// kong.New/parser.Parse idiom, promoted here from in-chat command
// parsing to the process entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"claudir/sources/admincache"
	"claudir/sources/backend"
	"claudir/sources/chatplatform"
	"claudir/sources/classifier"
	"claudir/sources/configuration"
	"claudir/sources/convo"
	"claudir/sources/debounce"
	"claudir/sources/errs"
	"claudir/sources/external"
	"claudir/sources/features"
	"claudir/sources/metrics"
	"claudir/sources/network"
	"claudir/sources/persistence"
	"claudir/sources/platform"
	"claudir/sources/prefilter"
	"claudir/sources/router"
	"claudir/sources/spam"
	"claudir/sources/strikes"
	"claudir/sources/supervisor"
	"claudir/sources/toolthrottle"
	"claudir/sources/tracing"

	"github.com/alecthomas/kong"
	"go.uber.org/fx"
)

var (
	version   = "0.0.0"
	buildTime = "1970-01-01"
)

// cli is spec.md §6's CLI surface: `claudir <config.json> [--message
// "<system message>"]`.
type cli struct {
	ConfigPath string `arg:"" name:"config" help:"Path to the JSON configuration file."`
	Message    string `short:"m" name:"message" help:"System message injected into every allowed chat at startup."`
}

// chatSender adapts chatplatform.ChatPlatform to tracing.Sender so the
// log mirror doesn't need to import chatplatform.
type chatSender struct {
	cp chatplatform.ChatPlatform
}

func (s chatSender) Send(ctx context.Context, chat int64, text string) error {
	_, err := s.cp.Send(ctx, platform.ChatID(chat), text, nil)
	return err
}

func main() {
	var args cli
	kong.Parse(&args)

	platform.SetAppManifest(version, buildTime, time.Now())

	app := fx.New(
		fx.Supply(configuration.Path(args.ConfigPath)),

		tracing.Module,
		configuration.Module,
		network.Module,
		persistence.Module,
		metrics.Module,
		features.Module,
		external.Module,
		chatplatform.Module,
		classifier.Module,
		prefilter.Module,
		strikes.Module,
		convo.Module,
		debounce.Module,
		spam.Module,
		admincache.Module,
		toolthrottle.Module,
		backend.Module,
		router.Module,
		supervisor.Module,

		fx.Invoke(func(lc fx.Lifecycle, log *tracing.Logger, cfg *configuration.Config, r *router.Router, cp chatplatform.ChatPlatform) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					attachLogSinks(cfg, log, cp)

					log.I("claudir started successfully", "version", version, "build_time", buildTime)
					if cfg.DryRun {
						log.I("dry_run mode enabled")
					}

					if args.Message != "" {
						r.InjectSystemMessage(context.Background(), args.Message)
					}
					return nil
				},
				OnStop: func(ctx context.Context) error {
					log.I("claudir stopped", "version", version, "build_time", buildTime)
					return nil
				},
			})
		}),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	if err := app.Start(startCtx); err != nil {
		if errs.Fatal(err) {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "fatal startup error:", err)
		os.Exit(2)
	}

	<-app.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStop()

	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintln(os.Stderr, "error during shutdown:", err)
		os.Exit(2)
	}
}

// attachLogSinks widens the shared *tracing.Logger with the file log
// and optional chat mirror spec.md §6 names (data_dir/logs/claudir.log,
// log_chat_id). Failures here degrade to console-only logging rather
// than aborting startup, since neither is required for correctness.
func attachLogSinks(cfg *configuration.Config, log *tracing.Logger, cp chatplatform.ChatPlatform) {
	if cfg.DataDir != "" {
		logDir := filepath.Join(cfg.DataDir, "logs")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.W("failed to create log directory", tracing.InnerError, err)
		} else if err := log.AddFileSink(filepath.Join(logDir, "claudir.log")); err != nil {
			log.W("failed to open log file", tracing.InnerError, err)
		}
	}

	if cfg.LogChatID != nil {
		log.SetMirror(tracing.NewLogMirror(chatSender{cp: cp}, int64(*cfg.LogChatID)))
	}
}
