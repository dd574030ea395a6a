package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"menu_rag/internal/app"
	"menu_rag/internal/config"
	"menu_rag/internal/indexer"
	"menu_rag/internal/logging"
	"menu_rag/internal/rules"
	"menu_rag/internal/server"
	"menu_rag/internal/tui"
)

const usage = `Usage: menu_rag <command> [flags]

Commands:
  ingest   index the menu and the allergen catalog
  chat     answer questions read from stdin, one per line
  tui      full-screen chat
  serve    web form and plain-text API

Run "menu_rag <command> -h" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	dataDir := fs.String("data", "", "Data directory for the vector DB and manifest")
	rulesFile := fs.String("rules", "", "YAML file overriding the retrieval rules")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")

	var (
		menuFile, allergenFile, addr *string
		force, reset                 *bool
	)
	switch cmd {
	case "ingest":
		menuFile = fs.String("menu", "", "Menu document (.pdf, .md or .txt)")
		allergenFile = fs.String("allergens", "", "Allergen catalog (.json)")
		force = fs.Bool("force", false, "Re-index files even if unchanged")
		reset = fs.Bool("reset", false, "Empty the collection before indexing")
	case "serve":
		addr = fs.String("addr", "", "Listen address")
	case "chat", "tui":
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	_ = fs.Parse(args)

	// Flags win over .env: godotenv never overrides variables already set.
	setEnv("DATA_DIR", *dataDir)
	setEnv("RULES_FILE", *rulesFile)
	setEnv("LOG_LEVEL", *logLevel)
	if menuFile != nil {
		setEnv("MENU_FILE", *menuFile)
		setEnv("ALLERGEN_FILE", *allergenFile)
	}
	if addr != nil {
		setEnv("LISTEN_ADDR", *addr)
	}

	_ = godotenv.Load()

	cfg := config.Config{}
	if err := config.Init(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	r, err := rules.Load(cfg.RulesFile)
	if err != nil {
		logger.Fatal("failed to load rules", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := app.New(&cfg, r, logger, app.WithRegistry(reg))
	if err != nil {
		logger.Fatal("failed to create app", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Init(ctx); err != nil {
		logger.Fatal("failed to initialize app", zap.Error(err))
	}

	switch cmd {
	case "ingest":
		err = ingest(ctx, a, indexer.Options{Force: *force, Reset: *reset})
	case "chat":
		err = a.Run(ctx, os.Stdin, os.Stdout)
	case "tui":
		err = tui.Run(ctx, a, fmt.Sprintf("%d documents dans %s", a.Count(), cfg.Collection))
	case "serve":
		err = server.New(a, reg, logger.Named("server")).Serve(ctx, cfg.ListenAddr)
	}
	if err != nil {
		logger.Fatal("command failed", zap.String("command", cmd), zap.Error(err))
	}
}

func ingest(ctx context.Context, a *app.App, opts indexer.Options) error {
	report, err := a.Ingest(ctx, opts)
	if report != nil {
		for _, s := range report.Sources {
			line := fmt.Sprintf("%-9s %s", s.Outcome, s.Path)
			if s.Chunks > 0 {
				line += fmt.Sprintf(" (%d chunks)", s.Chunks)
			}
			if s.Err != nil {
				line += ": " + s.Err.Error()
			}
			fmt.Println(line)
		}
		fmt.Printf("Total: %d documents\n", report.Total)
	}
	return err
}

func setEnv(key, value string) {
	if value != "" {
		_ = os.Setenv(key, value)
	}
}
