// Command smtpcheck runs one scripted SMTP transaction against a server and
// reports every stage, to find out where a mail server configuration breaks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/OliverSchlueter/goutils/sloki"
	"github.com/OliverSchlueter/smtpcheck/internal/config"
	"github.com/OliverSchlueter/smtpcheck/internal/reference"
	"github.com/OliverSchlueter/smtpcheck/internal/report"
	"github.com/OliverSchlueter/smtpcheck/internal/smtp"
	"github.com/google/uuid"
)

const (
	exitCompleted = 0
	exitFailed    = 1
	exitUsage     = 2
)

type options struct {
	configPath string
	reference  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cfg, opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitCompleted
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	logger := setupLogger(cfg.Logging, cfg.SMTP.Verbose)

	session, err := cfg.Session()
	if err != nil {
		logger.Error("Invalid configuration", sloki.WrapError(err))
		return exitUsage
	}

	var dkimOpts *smtp.DKIMOptions
	if cfg.DKIMEnabled() {
		signer, err := smtp.LoadDKIMPrivateKey(cfg.DKIM.KeyFile)
		if err != nil {
			logger.Error("Failed to load DKIM key", "path", cfg.DKIM.KeyFile, sloki.WrapError(err))
			return exitUsage
		}
		dkimOpts = &smtp.DKIMOptions{Selector: cfg.DKIM.Selector, Signer: signer}
	}

	reporter := report.NewConsole(logger)

	client, err := smtp.NewClient(smtp.Configuration{
		Session:  session,
		Reporter: reporter,
		Timeout:  cfg.SMTP.Timeout,
		DKIM:     dkimOpts,
	})
	if err != nil {
		logger.Error("Invalid configuration", sloki.WrapError(err))
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting SMTP check", "server", session.Addr(), "sender", session.Sender, "recipient", session.Recipient)

	out := client.Run(ctx)
	if out.Completed() {
		logger.Info("SMTP check completed")
		return exitCompleted
	}
	if out.Stage == smtp.StagePrepare {
		return exitUsage
	}

	if opts.reference {
		runReference(ctx, logger, reporter, session, cfg.SMTP.Timeout)
	}

	return exitFailed
}

// runReference sends the same message with go-mail. Its result is informational only.
func runReference(ctx context.Context, logger *slog.Logger, reporter smtp.Reporter, session smtp.SessionConfig, timeout time.Duration) {
	logger.Info("Retrying with reference client")

	cfg := reference.Configuration{Session: session, Timeout: timeout}
	if session.Verbose {
		cfg.Logger = report.NewWireLogger(reporter)
	}

	if err := reference.Send(ctx, cfg); err != nil {
		logger.Warn("Reference client failed as well, the server is likely misconfigured", sloki.WrapError(err))
		return
	}

	logger.Warn("Reference client succeeded, the server deviates from the strict transaction")
}

// parseArgs loads the configuration and lets explicitly set flags win over it.
func parseArgs(args []string, stderr io.Writer) (*config.Config, options, error) {
	fs := flag.NewFlagSet("smtpcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "path to YAML configuration file (optional)")
	fs.BoolVar(&opts.reference, "reference", false, "after a failure, retry the message with a full featured client")

	host := fs.String("host", "", "SMTP server host")
	port := fs.Int("port", smtp.DefaultPort, "SMTP server port")
	user := fs.String("user", "", "login name, also the default sender")
	sender := fs.String("sender", "", "envelope sender (defaults to -user)")
	recipient := fs.String("recipient", "", "envelope recipient")
	password := fs.String("password", "", "password, enables AUTH LOGIN")
	verbose := fs.Bool("verbose", false, "log every line sent and received")
	timeout := fs.Duration("timeout", smtp.DefaultTimeout, "connect and inactivity timeout")
	dkimKey := fs.String("dkim-key", "", "PEM private key to DKIM sign the test message")
	dkimSelector := fs.String("dkim-selector", "", "DKIM selector")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	lokiURL := fs.String("loki-url", "", "push logs to this Loki endpoint")

	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}
	if fs.NArg() > 0 {
		return nil, opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, opts, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.SMTP.Host = *host
		case "port":
			cfg.SMTP.Port = *port
		case "user":
			cfg.SMTP.User = *user
		case "sender":
			cfg.SMTP.Sender = *sender
		case "recipient":
			cfg.SMTP.Recipient = *recipient
		case "password":
			cfg.SMTP.Password = *password
		case "verbose":
			cfg.SMTP.Verbose = *verbose
		case "timeout":
			cfg.SMTP.Timeout = *timeout
		case "dkim-key":
			cfg.DKIM.KeyFile = *dkimKey
		case "dkim-selector":
			cfg.DKIM.Selector = *dkimSelector
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "loki-url":
			cfg.Logging.LokiURL = *lokiURL
			cfg.Logging.LokiEnabled = *lokiURL != ""
		}
	})

	return cfg, opts, nil
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger installs the sloki handler as default logger. A verbose run
// lowers the console level to debug so the wire trace is visible.
func setupLogger(cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := parseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}

	lokiService := sloki.NewService(sloki.Configuration{
		URL:          cfg.LokiURL,
		Service:      "smtpcheck",
		ConsoleLevel: level,
		LokiLevel:    slog.LevelInfo,
		EnableLoki:   cfg.LokiEnabled && cfg.LokiURL != "",
	})

	logger := slog.New(lokiService).With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
