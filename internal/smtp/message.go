package smtp

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/OliverSchlueter/goutils/idgen"
)

// Fixed content of the test message.
const (
	TestSubject = "smtpcheck test message"
	TestBody    = "This message was sent by smtpcheck to verify the mail server configuration.\r\n" +
		"No action is required."
)

// buildMessage renders the header block, a blank line and the body, CRLF terminated.
func buildMessage(cfg SessionConfig, domain string, now time.Time) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: <%s>\r\n", cfg.Sender)
	fmt.Fprintf(&buf, "To: <%s>\r\n", cfg.Recipient)
	fmt.Fprintf(&buf, "Subject: %s\r\n", TestSubject)
	fmt.Fprintf(&buf, "Date: %s\r\n", now.UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: <%s@%s>\r\n", idgen.GenerateID(20), domain)
	buf.WriteString("\r\n")

	buf.WriteString(TestBody)
	buf.WriteString("\r\n")

	return buf.Bytes()
}

// dataPayload dot-stuffs msg and appends the terminating "." line.
func dataPayload(msg []byte) []byte {
	var buf bytes.Buffer

	lines := strings.Split(strings.TrimRight(string(msg), "\r\n"), "\r\n")
	for _, line := range lines {
		if strings.HasPrefix(line, ".") {
			line = "." + line
		}
		buf.WriteString(line + "\r\n")
	}

	buf.WriteString(".\r\n")
	return buf.Bytes()
}
