package smtp

// Direction tells which way a traced wire chunk travelled.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Reporter receives progress events from a Client. Debug is only called in verbose mode.
type Reporter interface {
	Info(msg string)
	Warn(msg string)
	Debug(dir Direction, raw []byte)
	Fatal(stage Stage, msg string)
}

type nopReporter struct{}

func (nopReporter) Info(string)             {}
func (nopReporter) Warn(string)             {}
func (nopReporter) Debug(Direction, []byte) {}
func (nopReporter) Fatal(Stage, string)     {}
