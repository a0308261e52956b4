// Package report turns session events into log records for the terminal.
package report

import (
	"log/slog"
	"strings"

	"github.com/OliverSchlueter/smtpcheck/internal/smtp"
)

// Console is the smtp.Reporter used by the command line.
type Console struct {
	logger *slog.Logger
}

func NewConsole(logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{logger: logger}
}

func (c *Console) Info(msg string) {
	c.logger.Info(msg)
}

func (c *Console) Warn(msg string) {
	c.logger.Warn(msg)
}

// Debug logs one record per line, prefixed "C: " for sent and "S: " for received data.
func (c *Console) Debug(dir smtp.Direction, raw []byte) {
	prefix := "S: "
	if dir == smtp.DirectionSent {
		prefix = "C: "
	}

	for _, line := range strings.Split(strings.TrimRight(string(raw), "\r\n"), "\r\n") {
		c.logger.Debug(prefix+line, "direction", string(dir))
	}
}

func (c *Console) Fatal(stage smtp.Stage, msg string) {
	c.logger.Error("SMTP check failed", "stage", stage.String(), "detail", msg)
}
