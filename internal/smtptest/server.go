// Package smtptest provides local SMTP servers to run smtpcheck against.
package smtptest

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OliverSchlueter/goutils/sloki"
	"github.com/OliverSchlueter/smtpcheck/internal/accounts"
)

const idleTimeout = 2 * time.Minute

// Server is a small but well-behaved SMTP server. Recipients outside Hostname
// are answered with 251, local recipients must exist when Accounts is set.
type Server struct {
	hostname    string
	addr        string
	legacy      bool
	silent      bool
	requireAuth bool
	accounts    *accounts.Store

	listener net.Listener
	wg       sync.WaitGroup

	mu       sync.Mutex
	messages []Message
	conns    map[net.Conn]struct{}
	closed   bool
}

type Configuration struct {
	Hostname string
	// Addr defaults to 127.0.0.1:0.
	Addr string
	// Legacy answers EHLO with 502 so clients have to fall back to HELO.
	Legacy bool
	// Silent accepts connections but never sends a banner.
	Silent bool
	// Accounts enables AUTH LOGIN. Nil answers AUTH with 502.
	Accounts *accounts.Store
	// RequireAuth rejects MAIL FROM before a successful AUTH.
	RequireAuth bool
}

func NewServer(config Configuration) *Server {
	if config.Hostname == "" {
		config.Hostname = "localhost"
	}
	if config.Addr == "" {
		config.Addr = "127.0.0.1:0"
	}

	return &Server{
		hostname:    config.Hostname,
		addr:        config.Addr,
		legacy:      config.Legacy,
		silent:      config.Silent,
		requireAuth: config.RequireAuth,
		accounts:    config.Accounts,
		conns:       make(map[net.Conn]struct{}),
	}
}

// Start binds the listener and serves connections in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.serve()
	}()

	return nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("Failed to accept connection", sloki.WrapError(err))
			continue
		}

		if !s.track(conn) {
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

// Addr returns the host and port the server listens on.
func (s *Server) Addr() (string, int) {
	return splitAddr(s.listener.Addr())
}

// Close stops accepting, drops open sessions and waits for their goroutines.
func (s *Server) Close() error {
	err := s.listener.Close()

	s.mu.Lock()
	s.closed = true
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Message(nil), s.messages...)
}

func (s *Server) handle(conn net.Conn) {
	defer s.untrack(conn)

	session := &Session{RemoteAddr: conn.RemoteAddr().String()}
	slog.Debug("New connection established", "remote_addr", session.RemoteAddr)

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	if !s.silent {
		writeLine(w, fmt.Sprintf(StatusServiceReady, s.hostname))
	}

	for {
		if err := conn.SetDeadline(time.Now().Add(idleTimeout)); err != nil {
			slog.Error("Failed to set connection deadline", sloki.WrapError(err))
			return
		}

		line, err := r.ReadString('\n')
		if err != nil {
			slog.Debug("Connection closed", "remote_addr", session.RemoteAddr)
			return
		}

		line = strings.TrimRight(line, "\r\n")
		if len(line) > maxLineLength {
			writeLine(w, StatusLineTooLong)
			continue
		}

		slog.Debug("C: " + line)

		switch {
		case session.Mail.ReadingData:
			s.handleDataLine(session, w, line)
			continue
		case session.AuthLogin.RequestedUsername:
			s.handleAuthUsername(session, w, line)
			continue
		case session.AuthLogin.RequestedPassword:
			s.handleAuthPassword(session, w, line)
			continue
		}

		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, CmdEhlo.Prefix):
			s.handleEhlo(session, w, line)

		case strings.HasPrefix(upper, CmdHelo.Prefix):
			s.handleHelo(session, w, line)

		case upper == CmdAuthLogin.Prefix:
			s.handleAuthLogin(session, w)

		case strings.HasPrefix(upper, CmdMailFrom.Prefix):
			s.handleMailFrom(session, w, line)

		case strings.HasPrefix(upper, CmdRcptTo.Prefix):
			s.handleRcptTo(session, w, line)

		case upper == CmdData.Prefix:
			s.handleData(session, w)

		case upper == CmdRset.Prefix:
			session.Mail.Reset()
			writeLine(w, StatusOK)

		case upper == CmdNoop.Prefix:
			writeLine(w, StatusOK)

		case upper == CmdQuit.Prefix:
			writeLine(w, fmt.Sprintf(StatusConnClosed, s.hostname))
			return

		default:
			writeLine(w, StatusBadCommand)
		}
	}
}

func (s *Server) handleEhlo(session *Session, w *bufio.Writer, line string) {
	if s.legacy {
		writeLine(w, StatusNotImplemented)
		return
	}

	session.HeloReceived = true
	session.Extended = true
	session.Hostname = strings.TrimSpace(line[len(CmdEhlo.Prefix):])

	lines := []string{fmt.Sprintf(StatusGreeting, s.hostname, session.Hostname)}
	if s.accounts != nil {
		lines = append(lines, "AUTH LOGIN")
	}

	for i, l := range lines {
		sep := "-"
		if i == len(lines)-1 {
			sep = " "
		}
		writeLine(w, "250"+sep+l)
	}
}

func (s *Server) handleHelo(session *Session, w *bufio.Writer, line string) {
	session.HeloReceived = true
	session.Hostname = strings.TrimSpace(line[len(CmdHelo.Prefix):])

	writeLine(w, "250 "+fmt.Sprintf(StatusGreeting, s.hostname, session.Hostname))
}

func (s *Server) handleAuthLogin(session *Session, w *bufio.Writer) {
	if s.accounts == nil {
		writeLine(w, StatusNotImplemented)
		return
	}

	if !session.HeloReceived {
		writeLine(w, fmt.Sprintf(StatusBadSequence, CmdEhlo.Name))
		return
	}

	session.AuthLogin.RequestedUsername = true
	writeLine(w, StatusAuthUsername)
}

func (s *Server) handleAuthUsername(session *Session, w *bufio.Writer, line string) {
	session.AuthLogin.RequestedUsername = false

	decoded, err := base64.StdEncoding.DecodeString(line)
	if err != nil {
		slog.Warn("Failed to decode base64 username", sloki.WrapError(err))
		writeLine(w, StatusInvalidBase64)
		return
	}

	session.AuthLogin.Username = string(decoded)
	session.AuthLogin.RequestedPassword = true
	writeLine(w, StatusAuthPassword)
}

func (s *Server) handleAuthPassword(session *Session, w *bufio.Writer, line string) {
	session.AuthLogin.RequestedPassword = false

	decoded, err := base64.StdEncoding.DecodeString(line)
	if err != nil {
		slog.Warn("Failed to decode base64 password", sloki.WrapError(err))
		writeLine(w, StatusInvalidBase64)
		return
	}

	if _, err := s.accounts.Authenticate(session.AuthLogin.Username, string(decoded)); err != nil {
		slog.Warn("Authentication failed", "user", session.AuthLogin.Username, sloki.WrapError(err))
		writeLine(w, StatusAuthenticationFailed)
		return
	}

	session.AuthLogin.IsAuthenticated = true
	writeLine(w, StatusAuthSuccess)
}

func (s *Server) handleMailFrom(session *Session, w *bufio.Writer, line string) {
	if !session.HeloReceived {
		writeLine(w, fmt.Sprintf(StatusBadSequence, CmdEhlo.Name))
		return
	}

	if s.requireAuth && !session.AuthLogin.IsAuthenticated {
		writeLine(w, StatusAuthRequired)
		return
	}

	addr, ok := parsePath(line[len(CmdMailFrom.Prefix):])
	if !ok {
		writeLine(w, StatusInvalidAddress)
		return
	}

	session.Mail.Reset()
	session.Mail.From = addr
	writeLine(w, StatusOK)
}

func (s *Server) handleRcptTo(session *Session, w *bufio.Writer, line string) {
	if session.Mail.From == "" {
		writeLine(w, fmt.Sprintf(StatusBadSequence, CmdMailFrom.Name))
		return
	}

	if len(session.Mail.To) >= maxRecipients {
		writeLine(w, StatusNoSuchUser)
		return
	}

	recipient, ok := parsePath(line[len(CmdRcptTo.Prefix):])
	if !ok || strings.Count(recipient, "@") != 1 {
		writeLine(w, StatusInvalidAddress)
		return
	}

	domain := recipient[strings.Index(recipient, "@")+1:]
	if !strings.EqualFold(domain, s.hostname) {
		session.Mail.To = append(session.Mail.To, recipient)
		writeLine(w, fmt.Sprintf(StatusUserNotLocal, recipient))
		return
	}

	if s.accounts != nil {
		if _, err := s.accounts.GetByEmail(recipient); err != nil {
			writeLine(w, StatusNoSuchUser)
			return
		}
	}

	session.Mail.To = append(session.Mail.To, recipient)
	writeLine(w, StatusOK)
}

func (s *Server) handleData(session *Session, w *bufio.Writer) {
	if len(session.Mail.To) == 0 {
		writeLine(w, fmt.Sprintf(StatusBadSequence, CmdRcptTo.Name))
		return
	}

	session.Mail.ReadingData = true
	writeLine(w, StatusStartMailInput)
}

func (s *Server) handleDataLine(session *Session, w *bufio.Writer, line string) {
	if line != "." {
		session.Mail.DataBuffer = append(session.Mail.DataBuffer, strings.TrimPrefix(line, "."))
		return
	}

	m := Message{
		From: session.Mail.From,
		To:   session.Mail.To,
		Data: session.Mail.Body(),
	}
	if session.AuthLogin.IsAuthenticated {
		m.User = session.AuthLogin.Username
	}

	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()

	slog.Info("Incoming email received", "from", session.Mail.From, "to", session.Mail.To)
	session.Mail.Reset()
	writeLine(w, StatusOK)
}

// track registers conn for Close. It refuses and closes conn once the server is closed.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		conn.Close()
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
	conn.Close()
}

// parsePath extracts the address from "<addr>" and drops ESMTP parameters.
func parsePath(arg string) (string, bool) {
	arg = strings.TrimSpace(arg)
	if !strings.HasPrefix(arg, "<") {
		return "", false
	}

	end := strings.Index(arg, ">")
	if end < 0 {
		return "", false
	}

	return arg[1:end], true
}

func writeLine(w *bufio.Writer, line string) {
	if _, err := w.WriteString(line + "\r\n"); err != nil {
		slog.Error("Failed to write to connection", sloki.WrapError(err))
		return
	}
	if err := w.Flush(); err != nil {
		slog.Error("Failed to flush writer", sloki.WrapError(err))
		return
	}

	slog.Debug("S: " + line)
}

func splitAddr(addr net.Addr) (string, int) {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}

	p, _ := strconv.Atoi(port)
	return host, p
}
