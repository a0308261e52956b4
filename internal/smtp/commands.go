package smtp

type Command struct {
	Name      string
	Structure string
}

var (
	CmdEhlo = Command{
		Name:      "EHLO",
		Structure: "EHLO %s",
	}

	CmdHelo = Command{
		Name:      "HELO",
		Structure: "HELO %s",
	}

	CmdAuthLogin = Command{
		Name:      "AUTH LOGIN",
		Structure: "AUTH LOGIN",
	}

	CmdMailFrom = Command{
		Name:      "MAIL FROM",
		Structure: "MAIL FROM:<%s>",
	}

	CmdRcptTo = Command{
		Name:      "RCPT TO",
		Structure: "RCPT TO:<%s>",
	}

	CmdData = Command{
		Name:      "DATA",
		Structure: "DATA",
	}

	CmdQuit = Command{
		Name:      "QUIT",
		Structure: "QUIT",
	}
)
