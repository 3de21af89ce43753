package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"sportcal/internal/config"
	"sportcal/internal/fetch"
	appLog "sportcal/internal/log"
	"sportcal/internal/pipeline"
	"sportcal/internal/web"
)

type flagConfig struct {
	configPath string
	input      string
	once       bool
	debug      bool
}

func main() {
	appLog.Info("sportcal starting", "version", "0.1.0")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"timezone", conf.Timezone,
		"calendar_path", conf.CalendarPath,
		"retention_days", conf.RetentionDays,
		"source_mode", conf.Source.Mode,
		"refresh", conf.RefreshCron,
		"listen", conf.Listen,
		"once", flags.once,
	)

	source, err := buildSource(conf, flags.input)
	if err != nil {
		appLog.Error("failed to set up acquisition source", err)
		os.Exit(1)
	}

	runner := &pipeline.Runner{Config: conf, Source: source}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once || conf.RefreshCron == "" {
		if _, err := runner.Run(ctx); err != nil {
			appLog.Error("run failed", err)
			os.Exit(1)
		}
		appLog.Info("sportcal exiting")
		return
	}

	runDaemon(ctx, conf, runner)
}

// runDaemon runs the pipeline immediately, then on the configured cron
// schedule, alongside the optional status server. Scheduled-run failures
// are logged but do not stop the daemon.
func runDaemon(ctx context.Context, conf *config.Config, runner *pipeline.Runner) {
	if conf.Listen != "" {
		go func() {
			if err := web.StartServer(ctx, conf); err != nil {
				appLog.Error("status server stopped", err)
			}
		}()
	}

	runOnce := func() {
		if _, err := runner.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			appLog.Error("scheduled run failed", err)
		}
	}

	runOnce()

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, runOnce); err != nil {
		appLog.Error("invalid refresh cron spec", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()

	<-ctx.Done()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
	}
	appLog.Info("sportcal exiting")
}

// buildSource assembles the acquisition chain from config. The -input
// flag short-circuits everything with a local text file, which keeps
// debugging against saved OCR output trivial.
func buildSource(conf *config.Config, inputOverride string) (fetch.Source, error) {
	if inputOverride != "" {
		return fetch.FileSource{Path: inputOverride}, nil
	}

	ocr := fetch.OCR{
		Binary:   conf.Source.OCR.Binary,
		Language: conf.Source.OCR.Language,
	}

	var src fetch.Source
	switch conf.Source.Mode {
	case "file":
		if conf.Source.Path == "" {
			return nil, errors.New("source.path is required in file mode")
		}
		src = fetch.FileSource{Path: conf.Source.Path}

	case "telegram":
		if conf.Source.Telegram.Token == "" {
			return nil, errors.New("source.telegram.token is required in telegram mode")
		}
		ts, err := fetch.NewTelegramSource(conf.Source.Telegram.Token, conf.Source.Telegram.ChannelID, ocr)
		if err != nil {
			return nil, err
		}
		src = ts

	case "web":
		if conf.Source.Web.URL == "" {
			return nil, errors.New("source.web.url is required in web mode")
		}
		src = fetch.WebSource{
			URL:          conf.Source.Web.URL,
			WaitSelector: conf.Source.Web.WaitSelector,
			Width:        conf.Source.Web.Width,
			Height:       conf.Source.Web.Height,
			OCR:          ocr,
		}

	default:
		return nil, errors.New("unknown source mode: " + conf.Source.Mode)
	}

	return fetch.NewRetrier(src,
		conf.Retry.MaxAttempts,
		time.Duration(conf.Retry.BaseDelayMS)*time.Millisecond,
		time.Duration(conf.Retry.MaxJitterMS)*time.Millisecond,
	), nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./sportcal.yaml", "Path to config file")
	flag.StringVar(&cfg.input, "input", "", "Read OCR text from this file instead of the configured source")
	flag.BoolVar(&cfg.once, "once", false, "Run a single extraction+merge cycle and exit even when refresh is configured")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
