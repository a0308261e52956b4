package report

import (
	"fmt"

	"github.com/OliverSchlueter/smtpcheck/internal/smtp"
	"github.com/wneessen/go-mail/log"
)

// WireLogger forwards go-mail client logs to a smtp.Reporter so the reference
// send shows up in the same trace as the diagnostic run.
type WireLogger struct {
	reporter smtp.Reporter
}

func NewWireLogger(r smtp.Reporter) *WireLogger {
	return &WireLogger{reporter: r}
}

func (l *WireLogger) Debugf(lg log.Log) {
	dir := smtp.DirectionReceived
	if lg.Direction == log.DirClientToServer {
		dir = smtp.DirectionSent
	}
	l.reporter.Debug(dir, []byte(fmt.Sprintf(lg.Format, lg.Messages...)))
}

func (l *WireLogger) Infof(lg log.Log) {
	l.reporter.Info(fmt.Sprintf(lg.Format, lg.Messages...))
}

func (l *WireLogger) Warnf(lg log.Log) {
	l.reporter.Warn(fmt.Sprintf(lg.Format, lg.Messages...))
}

// Errorf is downgraded to a warning: the reference send never decides the outcome.
func (l *WireLogger) Errorf(lg log.Log) {
	l.reporter.Warn(fmt.Sprintf(lg.Format, lg.Messages...))
}
