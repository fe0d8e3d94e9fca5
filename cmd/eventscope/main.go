package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/eventscope/pkg/classify"
	"github.com/umputun/eventscope/pkg/config"
	"github.com/umputun/eventscope/pkg/content"
	"github.com/umputun/eventscope/pkg/db"
	"github.com/umputun/eventscope/pkg/extract"
	"github.com/umputun/eventscope/pkg/notion"
	"github.com/umputun/eventscope/pkg/ocr"
	"github.com/umputun/eventscope/pkg/pipeline"
	"github.com/umputun/eventscope/pkg/processor"
	"github.com/umputun/eventscope/pkg/session"
	"github.com/umputun/eventscope/pkg/telegram"
	"github.com/umputun/eventscope/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"f" long:"config" env:"CONFIG" default:"config.yml" description:"config file"`
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`
	DryRun bool   `long:"dry-run" env:"DRY_RUN" description:"report saves without calling the Notion API"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug, opts.NoColor)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		lgr.Printf("[ERROR] failed to load config %s: %v", opts.Config, err)
		os.Exit(1)
	}

	// keep tokens out of the log output
	setupLog(opts.Debug, opts.NoColor, secrets(cfg)...)

	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	if opts.DryRun {
		cfg.Notion.DryRun = true
	}

	lgr.Printf("[INFO] starting eventscope version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		lgr.Printf("[INFO] termination signal received")
		cancel()
	}()

	err = run(ctx, cfg, opts.Debug)
	cancel()

	if err != nil {
		lgr.Printf("[ERROR] eventscope failed: %v", err)
		os.Exit(1)
	}

	lgr.Printf("[INFO] shutdown complete")
}

// run wires all components and blocks until the context is canceled
func run(ctx context.Context, cfg *config.Config, debug bool) error {
	database, err := db.New(ctx, db.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer func() {
		if e := database.Close(); e != nil {
			lgr.Printf("[WARN] failed to close database: %v", e)
		}
	}()

	extractor := extract.New(cfg.LLM)

	var llmFallback classify.LLMClassifier
	if cfg.LLM.Fallback {
		llmFallback = extractor
	}
	classifier := classify.New(llmFallback)
	fetcher := content.NewFetcher(cfg.Fetch)
	engine := ocr.NewHTTPEngine(cfg.OCR)
	bot := telegram.NewClient(cfg.Telegram)
	persister := notion.NewClient(cfg.Notion)

	textProc := processor.NewText(extractor)
	urlProc := processor.NewURL(fetcher, extractor)
	imageProc := processor.NewImage(engine, extractor, bot, cfg.OCR.MinConfidence)

	audit := db.NewAudit(database)
	p := pipeline.New(classifier, textProc, urlProc, imageProc, persister, auditRecorder{audit: audit})

	var store session.Store
	switch cfg.Session.Store {
	case "sqlite":
		store = session.NewSQLiteStore(database)
	default:
		store = session.NewMemoryStore()
	}
	sessions := session.NewManager(store, cfg.Session.TTL)

	srv := server.New(cfg, p, sessions, bot, audit, classifier, revision, debug)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return srv.Run(groupCtx) })
	group.Go(func() error {
		ticker := time.NewTicker(cfg.Session.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if _, err := sessions.CleanupExpired(groupCtx); err != nil {
					lgr.Printf("[WARN] session cleanup failed: %v", err)
				}
			}
		}
	})
	return group.Wait()
}

// auditRecorder adapts the db audit log to the pipeline recorder
type auditRecorder struct {
	audit *db.Audit
}

// Record writes one pipeline run to the audit log
func (a auditRecorder) Record(ctx context.Context, run pipeline.AuditRun) error {
	return a.audit.Record(ctx, db.Run{
		RunID:      run.RunID,
		UserID:     run.UserID,
		InputType:  run.InputType,
		Method:     run.Method,
		Status:     run.Status,
		Stage:      run.Stage,
		EventTitle: run.EventTitle,
		Confidence: run.Confidence,
		Gated:      run.Gated,
		Sessions:   run.Sessions,
		Error:      run.Error,
		ElapsedMs:  run.ElapsedMs,
	})
}

// secrets collects non-empty tokens for log redaction
func secrets(cfg *config.Config) []string {
	var secs []string
	for _, s := range []string{cfg.Telegram.Token, cfg.Notion.Token, cfg.LLM.APIKey} {
		if s != "" {
			secs = append(secs, s)
		}
	}
	return secs
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec,
			lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
