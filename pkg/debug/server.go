package debug

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/aretw0/tabstate/internal/logging"
)

const (
	// DefaultPort is the well-known port of the debug listener.
	DefaultPort = 6701
	// DefaultClientBuffer is the number of lines queued per client before lines
	// for that client are dropped.
	DefaultClientBuffer = 256
	// DefaultWriteTimeout bounds a single write to a client.
	DefaultWriteTimeout = 5 * time.Second
)

// DefaultAddr listens on DefaultPort on every interface.
var DefaultAddr = fmt.Sprintf(":%d", DefaultPort)

// ErrServerClosed is returned by Listen and Serve after Close.
var ErrServerClosed = errors.New("debug server closed")

// Server accepts TCP clients and broadcasts trace lines to all of them. Each client
// has its own writer goroutine and bounded queue; a slow or vanished client loses
// lines but never delays Broadcast or other clients.
type Server struct {
	addr         string
	logger       *slog.Logger
	buffer       int
	writeTimeout time.Duration

	mu      sync.Mutex
	ln      net.Listener
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

type ServerOption func(*Server)

func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithClientBuffer sets the per-client queue length.
func WithClientBuffer(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.buffer = n
		}
	}
}

func WithWriteTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.writeTimeout = d }
}

// NewServer creates a server for addr. An empty addr means DefaultAddr.
func NewServer(addr string, opts ...ServerOption) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		addr:         addr,
		logger:       logging.NewNop(),
		buffer:       DefaultClientBuffer,
		writeTimeout: DefaultWriteTimeout,
		clients:      make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the listener. It is called by Start; calling it directly lets the
// caller learn Addr before serving.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("debug listen %s: %w", s.addr, err)
	}
	s.ln = ln
	return nil
}

// Start binds the listener and serves in the background until ctx is done or Close
// is called.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Serve(ctx); err != nil && !errors.Is(err, ErrServerClosed) {
			s.logger.Error("debug server stopped", "err", err)
		}
	}()
	return nil
}

// Serve runs the accept loop. It returns ErrServerClosed once the server is closed,
// which also happens when ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	s.logger.Info("debug server listening", "addr", ln.Addr().String())
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
			s.logger.Warn("debug accept failed", "err", err, "retry_in", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0
		s.add(conn)
	}
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast queues line for every client. It never blocks.
func (s *Server) Broadcast(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.offer(line, s.logger)
	}
}

// Close stops accepting clients, disconnects the connected ones and waits for
// their goroutines to exit.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for c := range s.clients {
		c.stop()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) add(conn net.Conn) {
	c := &client{
		conn:  conn,
		queue: make(chan string, s.buffer),
		done:  make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	s.wg.Add(2)
	s.mu.Unlock()

	s.logger.Debug("debug client connected", "remote", conn.RemoteAddr().String())
	go s.write(c)
	go s.watch(c)
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		c.stop()
		s.logger.Debug("debug client disconnected", "remote", c.conn.RemoteAddr().String())
	}
}

// write drains the client's queue, flushing whenever the queue runs empty.
func (s *Server) write(c *client) {
	defer s.wg.Done()
	defer s.remove(c)

	w := bufio.NewWriter(c.conn)
	for {
		select {
		case <-c.done:
			return
		case line := <-c.queue:
			if err := s.send(c, w, line); err != nil {
				s.logger.Warn("debug client write failed", "remote", c.conn.RemoteAddr().String(), "err", err)
				return
			}
		}
	}
}

func (s *Server) send(c *client, w *bufio.Writer, line string) error {
	if s.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := w.WriteString(line); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	if len(c.queue) > 0 {
		return nil
	}
	return w.Flush()
}

// watch notices a client hanging up. Anything the client sends is ignored.
func (s *Server) watch(c *client) {
	defer s.wg.Done()
	_, _ = io.Copy(io.Discard, c.conn)
	s.remove(c)
}

type client struct {
	conn     net.Conn
	queue    chan string
	done     chan struct{}
	once     sync.Once
	dropping bool
}

// offer queues line without blocking. It is called with the server lock held.
func (c *client) offer(line string, logger *slog.Logger) {
	select {
	case c.queue <- line:
		c.dropping = false
	default:
		if !c.dropping {
			logger.Warn("debug client queue full, dropping lines", "remote", c.conn.RemoteAddr().String())
		}
		c.dropping = true
	}
}

func (c *client) stop() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
