package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"storefront/cms/internal/config"
)

// Global carries what every command needs after flag parsing.
type Global struct {
	Config config.Config
	Logger *slog.Logger
}

type CLI struct {
	Addr        string `help:"HTTP listen address (overrides API_ADDR)"`
	DatabaseURL string `name:"database-url" help:"Postgres connection URL (overrides DATABASE_URL)"`
	LogLevel    string `name:"log-level" help:"debug, info, warn or error (overrides LOG_LEVEL)"`

	Serve        ServeCmd        `cmd:"" default:"1" help:"Run the content API"`
	Migrate      MigrateCmd      `cmd:"" help:"Apply pending SQL migrations"`
	Reindex      ReindexCmd      `cmd:"" help:"Rebuild the Meilisearch indexes from Postgres"`
	Presets      PresetsCmd      `cmd:"" help:"List the built-in site presets"`
	Templates    TemplatesCmd    `cmd:"" help:"List the landing page templates"`
	Assemble     AssembleCmd     `cmd:"" help:"Assemble a landing page from a template without storing it"`
	HashPassword HashPasswordCmd `cmd:"" name:"hash-password" help:"Print a bcrypt hash for an editor or admin password"`
}

func (c *CLI) config() config.Config {
	cfg := config.Load()
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.DatabaseURL != "" {
		cfg.DatabaseURL = c.DatabaseURL
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	return cfg
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("storefront-cms"),
		kong.Description("Storefront content assembly and site preset service."),
		kong.UsageOnError(),
	)

	cfg := cli.config()
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	err = ctx.Run(&Global{Config: cfg, Logger: logger})
	if err != nil {
		logger.Error("command failed", slog.String("command", ctx.Command()), slog.Any("error", err))
		os.Exit(1)
	}
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}
