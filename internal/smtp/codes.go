package smtp

// Reply codes the client checks for.
const (
	CodeServiceReady   = "220"
	CodeServiceClosing = "221"
	CodeAuthSuccess    = "235"
	CodeOK             = "250"
	CodeUserNotLocal   = "251" // recipient not local, will forward
	CodeAuthContinue   = "334"
	CodeStartMailInput = "354"
	CodeNotImplemented = "502"
)

// NoCode is returned by ParseCode when a reply does not start with a status code.
const NoCode = ""

// ParseCode returns the three digit status code a raw server reply starts with,
// or NoCode if the first three bytes are not digits.
func ParseCode(raw []byte) string {
	if len(raw) < 3 {
		return NoCode
	}

	for _, b := range raw[:3] {
		if b < '0' || b > '9' {
			return NoCode
		}
	}

	return string(raw[:3])
}
