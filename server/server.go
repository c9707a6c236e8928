package server

import (
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/openpoker/cardroom"
)

type Options struct {
	// Addr is the TCP listen address for ListenAndServe.
	Addr string

	// WriteBuffer is the per-connection outbound frame queue depth; a
	// client that cannot keep up is disconnected and must resynchronize.
	WriteBuffer int

	Logger *zap.Logger
}

func NewOptions() Options {
	return Options{
		Addr:        ":7700",
		WriteBuffer: 256,
		Logger:      zap.NewNop(),
	}
}

// Server accepts connections and binds each to at most one authenticated
// session and one seat per table.
type Server struct {
	opts    Options
	logger  *zap.Logger
	manager cardroom.Manager

	mu       sync.Mutex
	ln       net.Listener
	sessions map[string]*session // by username, including detached ones in grace
	closed   bool

	wg sync.WaitGroup
}

func New(manager cardroom.Manager, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WriteBuffer <= 0 {
		opts.WriteBuffer = 256
	}
	return &Server{
		opts:     opts,
		logger:   opts.Logger,
		manager:  manager,
		sessions: make(map[string]*session),
	}
}

func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve runs the accept loop until the listener closes.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return net.ErrClosed
	}
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// HandleConn serves a single pre-established connection; tests drive it with
// net.Pipe.
func (s *Server) HandleConn(conn net.Conn) {
	s.wg.Add(1)
	defer s.wg.Done()
	s.handleConn(conn)
}

func (s *Server) handleConn(conn net.Conn) {
	sess := newSession(s, conn)
	sess.run()
}

func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, sess := range sessions {
		sess.close()
	}
	s.wg.Wait()
	return nil
}

// registerSession claims a username. A second login with a live session is a
// duplicate; a detached session in its grace window is resumed instead.
func (s *Server) registerSession(sess *session) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[sess.username]
	if !ok {
		s.sessions[sess.username] = sess
		return nil, nil
	}
	if !existing.isDetached() {
		return nil, cardroom.ErrSessionDuplicateLogin
	}

	s.sessions[sess.username] = sess
	return existing, nil
}

func (s *Server) dropSession(username string, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[username]; ok && current == sess {
		delete(s.sessions, username)
	}
}
