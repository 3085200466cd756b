package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/ironsheep/searchpdf-mcp/internal/config"
	"github.com/ironsheep/searchpdf-mcp/internal/logging"
	"github.com/ironsheep/searchpdf-mcp/internal/pipeline"
	"github.com/ironsheep/searchpdf-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `searchpdf-mcp - make image-only PDFs searchable

Usage:
  searchpdf-mcp [serve] [-config file]    Run the MCP server on stdin/stdout
  searchpdf-mcp convert -in a.pdf -out b.pdf [-lang por+eng] [-config file]
  searchpdf-mcp probe [-config file]      Report installed OCR tools

Options:
  --version, -v    Print version information
  --help, -h       Print this help message

Configuration is read from the YAML file given with -config (or
SEARCHPDF_CONFIG), then from .env in the working directory, then from
SEARCHPDF_* environment variables, e.g.:
  SEARCHPDF_LANG=por+eng          Default recognition languages
  SEARCHPDF_ENGINE=cli            Recognition backend (auto, gosseract, cli)
  SEARCHPDF_BUNDLER_DISABLED=1    Always use the page-by-page route
  SEARCHPDF_LOG_LEVEL=debug       Enable debug logging (stderr)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Fprintf(stdout, "searchpdf-mcp %s\n", Version)
			fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
			return 0
		case "--help", "-h", "help":
			fmt.Fprint(stdout, usage)
			return 0
		case "serve", "convert", "probe":
			cmd, args = args[0], args[1:]
		}
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "YAML configuration file")
	in := fs.String("in", "", "source PDF (convert)")
	out := fs.String("out", "", "destination PDF (convert)")
	langs := fs.String("lang", "", "recognition languages, e.g. por+eng (convert)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(stderr, "logging: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	conv, err := pipeline.New(cfg, pipeline.WithLogger(logger))
	if err != nil {
		logger.Error("failed to build converter", zap.Error(err))
		return 1
	}

	switch cmd {
	case "convert":
		return convert(ctx, conv, *in, *out, *langs, stdout, stderr)
	case "probe":
		caps := conv.Capabilities(ctx)
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(caps); err != nil {
			fmt.Fprintf(stderr, "probe: %v\n", err)
			return 1
		}
		if caps.Route == pipeline.RouteNone {
			return 1
		}
		return 0
	default:
		logger.Info("starting MCP server",
			zap.String("version", Version),
			zap.String("build_time", BuildTime),
			zap.String("commit", GitCommit))
		srv := server.New(conv, logger, Version)
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("server error", zap.Error(err))
			return 1
		}
		return 0
	}
}

func convert(ctx context.Context, conv *pipeline.Converter, in, out, langs string, stdout, stderr io.Writer) int {
	if in == "" || out == "" {
		fmt.Fprintln(stderr, "convert: -in and -out are required")
		return 2
	}
	src, err := os.ReadFile(in)
	if err != nil {
		fmt.Fprintf(stderr, "convert: %v\n", err)
		return 1
	}

	var languages any
	if langs != "" {
		languages = langs
	}
	res, err := conv.Run(ctx, src, languages)
	if err != nil {
		fmt.Fprintf(stderr, "convert: %s: %v\n", pipeline.Kind(err), err)
		return 1
	}
	if err := os.WriteFile(out, res.Output, 0o644); err != nil {
		fmt.Fprintf(stderr, "convert: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "%s: %s via %s route, %s, %s\n",
		out, res.Language, res.Route, humanize.Bytes(uint64(len(res.Output))), res.Duration.Round(time.Millisecond))
	return 0
}
