package smtp

import (
	"net"
	"strconv"
	"strings"
)

const DefaultPort = 25

type SessionConfig struct {
	Host      string
	Port      int
	User      string
	Sender    string // defaults to User
	Recipient string
	Password  string // enables AUTH LOGIN when set
	Verbose   bool
}

// WithDefaults fills in the sender and port when they were left empty.
func (c SessionConfig) WithDefaults() SessionConfig {
	if c.Sender == "" {
		c.Sender = c.User
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	return c
}

// Validate checks the required fields and that a greeting domain can be derived.
// It expects defaults to be applied already.
func (c SessionConfig) Validate() error {
	if c.Host == "" {
		return ErrMissingHost
	}
	if c.User == "" {
		return ErrMissingUser
	}
	if c.Recipient == "" {
		return ErrMissingRecipient
	}
	_, err := DomainOf(c.Sender)
	return err
}

func (c SessionConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DomainOf returns the part of an address after the '@'.
func DomainOf(address string) (string, error) {
	if strings.Count(address, "@") != 1 {
		return "", ErrInvalidSender
	}

	domain := address[strings.Index(address, "@")+1:]
	if domain == "" {
		return "", ErrInvalidSender
	}

	return domain, nil
}

// Response is one logical server reply.
type Response struct {
	Raw  []byte
	Code string
}

func (r Response) Text() string {
	return strings.TrimRight(string(r.Raw), "\r\n")
}

// Outcome is the terminal result of a run. Err is nil when the transaction completed.
type Outcome struct {
	Stage Stage
	Err   error
}

func (o Outcome) Completed() bool {
	return o.Err == nil
}
