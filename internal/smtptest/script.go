package smtptest

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/OliverSchlueter/goutils/sloki"
)

// Step is one expected client line and the reply it gets.
type Step struct {
	// Expect is matched case-insensitively as a prefix of the client line.
	Expect string
	// Reply is written as-is followed by CRLF. Multi-line replies are joined with "\r\n".
	Reply string
}

type Script struct {
	// Banner is sent on connect. Empty keeps the server silent.
	Banner string
	Steps  []Step
}

// Scripted replays a Script to every connection and records what the client sent.
// After a 354 reply it collects message lines up to the lone "." which is then
// matched against the next step like any other command.
type Scripted struct {
	script   Script
	listener net.Listener
	wg       sync.WaitGroup

	mu       sync.Mutex
	received []string
	data     []string
	conns    map[net.Conn]struct{}
	closed   bool
}

// NewScripted starts a scripted server on a random loopback port.
func NewScripted(script Script) (*Scripted, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	s := &Scripted{
		script:   script,
		listener: listener,
		conns:    make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.serve()
	}()

	return s, nil
}

func (s *Scripted) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				slog.Warn("Failed to accept connection", sloki.WrapError(err))
			}
			return
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

func (s *Scripted) handle(conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	if s.script.Banner != "" {
		writeLine(w, s.script.Banner)
	}

	steps := s.script.Steps
	readingData := false

	for {
		if err := conn.SetDeadline(time.Now().Add(idleTimeout)); err != nil {
			return
		}

		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		if readingData && line != "." {
			s.mu.Lock()
			s.data = append(s.data, line)
			s.mu.Unlock()
			continue
		}
		readingData = false

		s.mu.Lock()
		s.received = append(s.received, line)
		s.mu.Unlock()

		if len(steps) == 0 || !strings.HasPrefix(strings.ToUpper(line), strings.ToUpper(steps[0].Expect)) {
			writeLine(w, StatusUnexpectedCommand)
			continue
		}

		step := steps[0]
		steps = steps[1:]

		writeLine(w, step.Reply)
		readingData = strings.HasPrefix(step.Reply, "354")
	}
}

// Addr returns the host and port the server listens on.
func (s *Scripted) Addr() (string, int) {
	return splitAddr(s.listener.Addr())
}

// Received returns the command lines the clients sent, message data excluded.
func (s *Scripted) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.received...)
}

// Data returns the raw message lines sent after DATA, without the final ".".
func (s *Scripted) Data() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.data...)
}

// Close stops the server and waits until every connection handler returned.
func (s *Scripted) Close() error {
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

func (s *Scripted) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		conn.Close()
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}
