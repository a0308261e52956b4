package smtp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"time"
)

const DefaultTimeout = 5 * time.Second

type Configuration struct {
	Session  SessionConfig
	Reporter Reporter
	// Timeout bounds connect and every read and write. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Dialer defaults to DialTransport.
	Dialer Dialer
	// DKIM signs the test message when set.
	DKIM *DKIMOptions
}

// Client runs one diagnostic SMTP transaction.
type Client struct {
	cfg      SessionConfig
	domain   string
	reporter Reporter
	timeout  time.Duration
	dial     Dialer
	dkim     *DKIMOptions
	now      func() time.Time
}

func NewClient(config Configuration) (*Client, error) {
	cfg := config.Session.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	domain, err := DomainOf(cfg.Sender)
	if err != nil {
		return nil, err
	}

	if config.DKIM != nil && (config.DKIM.Signer == nil || config.DKIM.Selector == "") {
		return nil, errors.New("dkim signing needs a key and a selector")
	}

	if config.Reporter == nil {
		config.Reporter = nopReporter{}
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Dialer == nil {
		config.Dialer = DialTransport
	}

	return &Client{
		cfg:      cfg,
		domain:   domain,
		reporter: config.Reporter,
		timeout:  config.Timeout,
		dial:     config.Dialer,
		dkim:     config.DKIM,
		now:      time.Now,
	}, nil
}

// Run executes the transaction. The context only bounds connection setup.
func (c *Client) Run(ctx context.Context) Outcome {
	payload, err := c.prepare()
	if err != nil {
		return c.fail(StagePrepare, err)
	}

	t, err := c.dial(ctx, c.cfg.Host, c.cfg.Port, c.timeout)
	if err != nil {
		return c.fail(StageConnect, err)
	}
	defer t.Close()

	c.reporter.Info(fmt.Sprintf("Connected to %s", c.cfg.Addr()))

	if stage, err := c.transact(t, payload); err != nil {
		return c.fail(stage, err)
	}

	c.quit(t)
	return Outcome{Stage: StageQuit}
}

func (c *Client) transact(t Transport, payload []byte) (Stage, error) {
	// 1. Banner
	resp, err := c.exchange(t, StageBanner, nil, CodeServiceReady)
	if err != nil {
		return StageBanner, err
	}
	c.reporter.Info(fmt.Sprintf("Server ready: %s", resp.Text()))

	// 2. EHLO, HELO if the server does not know EHLO
	if err := c.greet(t); err != nil {
		return StageGreeting, err
	}

	// 3. AUTH LOGIN, only with a password
	if c.cfg.Password != "" {
		if stage, err := c.authenticate(t); err != nil {
			return stage, err
		}
	}

	// 4. Envelope
	if _, err := c.exchange(t, StageMailFrom, command(CmdMailFrom, c.cfg.Sender), CodeOK); err != nil {
		return StageMailFrom, err
	}
	c.reporter.Info(fmt.Sprintf("Sender <%s> accepted", c.cfg.Sender))

	resp, err = c.exchange(t, StageRcptTo, command(CmdRcptTo, c.cfg.Recipient), CodeOK, CodeUserNotLocal)
	if err != nil {
		return StageRcptTo, err
	}
	if resp.Code == CodeUserNotLocal {
		c.reporter.Info(fmt.Sprintf("Recipient <%s> accepted for forwarding: %s", c.cfg.Recipient, resp.Text()))
	} else {
		c.reporter.Info(fmt.Sprintf("Recipient <%s> accepted", c.cfg.Recipient))
	}

	// 5. Message
	if _, err := c.exchange(t, StageDataStart, command(CmdData), CodeStartMailInput); err != nil {
		return StageDataStart, err
	}
	c.reporter.Info("Server ready for message data")

	resp, err = c.exchange(t, StageDataBody, payload, CodeOK)
	if err != nil {
		return StageDataBody, err
	}
	c.reporter.Info(fmt.Sprintf("Message accepted: %s", resp.Text()))

	return StageQuit, nil
}

// prepare renders the dot-stuffed DATA payload before anything is sent.
func (c *Client) prepare() ([]byte, error) {
	msg := buildMessage(c.cfg, c.domain, c.now())
	if c.dkim != nil {
		signed, err := signMessage(msg, c.domain, *c.dkim)
		if err != nil {
			return nil, &MessageError{Err: err}
		}
		msg = signed
	}

	return dataPayload(msg), nil
}

func (c *Client) greet(t Transport) error {
	resp, err := c.roundTrip(t, command(CmdEhlo, c.domain))
	if err != nil {
		return err
	}

	if resp.Code != CodeNotImplemented {
		if err := accept(StageGreeting, resp, CodeOK); err != nil {
			return err
		}
		c.reporter.Info(fmt.Sprintf("%s %s accepted", CmdEhlo.Name, c.domain))
		return nil
	}

	c.reporter.Warn(fmt.Sprintf("%s rejected (%s), falling back to %s", CmdEhlo.Name, resp.Text(), CmdHelo.Name))

	if _, err := c.exchange(t, StageGreeting, command(CmdHelo, c.domain), CodeOK); err != nil {
		return err
	}
	c.reporter.Info(fmt.Sprintf("%s %s accepted", CmdHelo.Name, c.domain))
	return nil
}

func (c *Client) authenticate(t Transport) (Stage, error) {
	if _, err := c.exchange(t, StageAuth, command(CmdAuthLogin), CodeAuthContinue); err != nil {
		return StageAuth, err
	}
	c.reporter.Info("Server accepted AUTH LOGIN")

	if _, err := c.exchange(t, StageAuthUsername, encodeLine(c.cfg.User), CodeAuthContinue); err != nil {
		return StageAuthUsername, err
	}
	c.reporter.Info(fmt.Sprintf("Username %s sent", c.cfg.User))

	if _, err := c.exchange(t, StageAuthPassword, encodeLine(c.cfg.Password), CodeAuthSuccess); err != nil {
		return StageAuthPassword, err
	}
	c.reporter.Info("Authentication successful")

	return StageAuthPassword, nil
}

// quit is best effort, its reply is never held against the run.
func (c *Client) quit(t Transport) {
	resp, err := c.roundTrip(t, command(CmdQuit))
	switch {
	case err != nil:
		c.reporter.Warn(fmt.Sprintf("%s failed: %v", CmdQuit.Name, err))
	case resp.Code != CodeServiceClosing:
		c.reporter.Warn(fmt.Sprintf("Unexpected reply to %s: %s", CmdQuit.Name, resp.Text()))
	}
	c.reporter.Info("Session closed")
}

// exchange sends payload (if any), reads the reply and checks it against accepted.
func (c *Client) exchange(t Transport, stage Stage, payload []byte, accepted ...string) (Response, error) {
	resp, err := c.roundTrip(t, payload)
	if err != nil {
		return resp, err
	}
	return resp, accept(stage, resp, accepted...)
}

func (c *Client) roundTrip(t Transport, payload []byte) (Response, error) {
	if payload != nil {
		if err := t.Send(payload); err != nil {
			return Response{}, err
		}
		c.trace(DirectionSent, payload)
	}

	raw, err := t.Receive()
	if err != nil {
		return Response{}, err
	}
	c.trace(DirectionReceived, raw)

	return Response{Raw: raw, Code: ParseCode(raw)}, nil
}

func (c *Client) trace(dir Direction, raw []byte) {
	if c.cfg.Verbose {
		c.reporter.Debug(dir, raw)
	}
}

func (c *Client) fail(stage Stage, err error) Outcome {
	c.reporter.Fatal(stage, err.Error())
	return Outcome{Stage: stage, Err: err}
}

func accept(stage Stage, resp Response, accepted ...string) error {
	if resp.Code != NoCode && slices.Contains(accepted, resp.Code) {
		return nil
	}
	return &ProtocolError{Stage: stage, Expected: accepted, Reply: string(resp.Raw)}
}

func command(cmd Command, args ...any) []byte {
	return []byte(fmt.Sprintf(cmd.Structure, args...) + "\r\n")
}

func encodeLine(s string) []byte {
	return []byte(base64.StdEncoding.EncodeToString([]byte(s)) + "\r\n")
}
