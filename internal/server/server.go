package server

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"typedkv/internal/cmd"
	"typedkv/internal/logger"
	"typedkv/internal/stats"
	"typedkv/internal/store"
)

const (
	defaultReadBuffer     = 64 * 1024
	defaultWriteBuffer    = 64 * 1024
	defaultMaxConnections = 10000
	defaultMaxArgs        = 1024 * 1024
)

// Journal records write commands after they succeed
type Journal interface {
	Log(words []string) error
}

// Config controls the listener and per-connection buffers. Zero values pick defaults.
type Config struct {
	Addr           string
	ReadBuffer     int
	WriteBuffer    int
	MaxConnections int
	MaxArgs        int
	// Journal is optional
	Journal Journal
}

func (c Config) withDefaults() Config {
	if c.ReadBuffer <= 0 {
		c.ReadBuffer = defaultReadBuffer
	}
	if c.WriteBuffer <= 0 {
		c.WriteBuffer = defaultWriteBuffer
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = defaultMaxConnections
	}
	if c.MaxArgs <= 0 {
		c.MaxArgs = defaultMaxArgs
	}
	return c
}

// Server speaks RESP over TCP against a store.DataStore
type Server struct {
	cfg      Config
	ln       net.Listener
	addr     string
	db       store.DataStore
	registry *cmd.Registry
	stats    *stats.Manager

	// writeMu orders write commands with their journal entries
	writeMu sync.Mutex

	// Connection management
	connSemaphore chan struct{}
	mu            sync.Mutex
	clients       map[*Client]struct{}
	closed        atomic.Bool
	wg            sync.WaitGroup
}

// New creates a server over db. A nil st gets a fresh stats manager.
func New(cfg Config, db store.DataStore, st *stats.Manager) *Server {
	cfg = cfg.withDefaults()
	if st == nil {
		st = stats.NewManager()
	}

	registry := cmd.NewRegistry()
	cmd.RegisterCommands(registry, db, st)

	return &Server{
		cfg:           cfg,
		db:            db,
		registry:      registry,
		stats:         st,
		connSemaphore: make(chan struct{}, cfg.MaxConnections),
		clients:       make(map[*Client]struct{}),
	}
}

// Start binds the listener and serves connections in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		logger.Errorf("Failed to start server on %s: %v", s.cfg.Addr, err)
		return err
	}
	s.ln = ln
	s.addr = ln.Addr().String()
	logger.Infof("Server listening on %s", s.addr)

	s.wg.Add(1)
	go s.serve()
	return nil
}

// Addr returns the bound address, useful when listening on port 0
func (s *Server) Addr() string { return s.addr }

func (s *Server) Stats() *stats.Manager { return s.stats }

func (s *Server) Registry() *cmd.Registry { return s.registry }

// Exclusive runs fn while no write command executes
func (s *Server) Exclusive(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn()
}

// Close stops accepting, disconnects every client and waits for handlers to
// return. The store is left open; its owner closes it.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	logger.Info("Closing server...")

	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}

	s.mu.Lock()
	for c := range s.clients {
		_ = c.conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	logger.Info("Server closed successfully")
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warnf("Failed to accept connection: %v", err)
			continue
		}

		select {
		case s.connSemaphore <- struct{}{}:
		default:
			logger.Warnf("Connection limit reached, rejecting connection from %s", conn.RemoteAddr())
			_ = conn.Close()
			continue
		}

		c := newClient(conn, s)
		if !s.track(c) {
			<-s.connSemaphore
			_ = conn.Close()
			return
		}

		s.wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Errorf("Panic in connection handler: %v", r)
				}
				s.untrack(c)
				<-s.connSemaphore
				s.wg.Done()
			}()
			c.serve()
		}()
	}
}

// track registers a live client unless the server is closing
func (s *Server) track(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.clients[c] = struct{}{}
	s.stats.ConnectionOpened()
	return true
}

func (s *Server) untrack(c *Client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	s.stats.ConnectionClosed()
	_ = c.conn.Close()
}
