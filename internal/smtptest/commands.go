package smtptest

type Command struct {
	Name   string
	Prefix string
}

var (
	CmdEhlo      = Command{Name: "EHLO", Prefix: "EHLO "}
	CmdHelo      = Command{Name: "HELO", Prefix: "HELO "}
	CmdAuthLogin = Command{Name: "AUTH LOGIN", Prefix: "AUTH LOGIN"}
	CmdMailFrom  = Command{Name: "MAIL FROM", Prefix: "MAIL FROM:"}
	CmdRcptTo    = Command{Name: "RCPT TO", Prefix: "RCPT TO:"}
	CmdData      = Command{Name: "DATA", Prefix: "DATA"}
	CmdRset      = Command{Name: "RSET", Prefix: "RSET"}
	CmdNoop      = Command{Name: "NOOP", Prefix: "NOOP"}
	CmdQuit      = Command{Name: "QUIT", Prefix: "QUIT"}
)
