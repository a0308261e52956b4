// Command testserver runs a local SMTP server to point smtpcheck at.
package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/OliverSchlueter/goutils/sloki"
	"github.com/OliverSchlueter/smtpcheck/internal/accounts"
	"github.com/OliverSchlueter/smtpcheck/internal/accounts/database/fake"
	"github.com/OliverSchlueter/smtpcheck/internal/smtptest"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:2525", "listen address")
	hostname := flag.String("hostname", "localhost", "server hostname, recipients in this domain are local")
	legacy := flag.Bool("legacy", false, "answer EHLO with 502")
	silent := flag.Bool("silent", false, "never send a banner")
	user := flag.String("user", "", "account name, enables AUTH LOGIN")
	password := flag.String("password", "", "account password")
	email := flag.String("email", "", "local mailbox of the account (defaults to <user>@<hostname>)")
	requireAuth := flag.Bool("require-auth", false, "reject MAIL FROM before AUTH")
	flag.Parse()

	lokiService := sloki.NewService(sloki.Configuration{
		URL:          "http://localhost:3100/loki/api/v1/push",
		Service:      "smtpcheck-testserver",
		ConsoleLevel: slog.LevelDebug,
		LokiLevel:    slog.LevelInfo,
		EnableLoki:   false,
	})
	slog.SetDefault(slog.New(lokiService))

	config := smtptest.Configuration{
		Hostname:    *hostname,
		Addr:        *addr,
		Legacy:      *legacy,
		Silent:      *silent,
		RequireAuth: *requireAuth,
	}

	if *user != "" {
		store := accounts.NewStore(accounts.Configuration{
			DB: fake.NewDB(),
		})

		mailbox := *email
		if mailbox == "" {
			mailbox = *user + "@" + *hostname
		}

		err := store.Create(accounts.Account{
			Name:     *user,
			Password: *password,
			Emails:   []string{mailbox},
		})
		if err != nil {
			slog.Error("Failed to create account", sloki.WrapError(err))
			os.Exit(1)
		}
		config.Accounts = store
	}

	server := smtptest.NewServer(config)
	if err := server.Start(); err != nil {
		slog.Error("Failed to start SMTP server", sloki.WrapError(err))
		os.Exit(1)
	}

	host, port := server.Addr()
	slog.Info("Started SMTP server", "host", host, "port", port, "legacy", *legacy, "silent", *silent, "auth", config.Accounts != nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	slog.Info("Received signal, shutting down", "signal", sig.String(), "messages", len(server.Messages()))
	if err := server.Close(); err != nil {
		slog.Warn("Failed to close SMTP server", sloki.WrapError(err))
	}
}
