package smtptest

import "strings"

type Session struct {
	Hostname     string
	RemoteAddr   string
	HeloReceived bool
	Extended     bool
	Mail         Mail
	AuthLogin    AuthLogin
}

type Mail struct {
	From        string
	To          []string
	DataBuffer  []string
	ReadingData bool
}

func (m *Mail) Body() string {
	var sb strings.Builder
	for _, line := range m.DataBuffer {
		sb.WriteString(line)
		sb.WriteString("\r\n")
	}
	return sb.String()
}

func (m *Mail) Reset() {
	m.From = ""
	m.To = nil
	m.DataBuffer = nil
	m.ReadingData = false
}

type AuthLogin struct {
	RequestedUsername bool
	Username          string
	RequestedPassword bool
	IsAuthenticated   bool
}

// Message is a mail the Server accepted.
type Message struct {
	From string
	To   []string
	User string // authenticated account, empty without AUTH
	Data string
}
