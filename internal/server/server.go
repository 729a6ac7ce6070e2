// Package server implements the connection state machine and readiness
// loop wiring: accept, read, parse-dispatch-write, close. A connection's
// writable interest is registered only while its outgoing buffer is
// nonempty and removed again once it drains.
package server

import (
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"

	"github.com/xgzlucario/veloxd/internal/ae"
	"github.com/xgzlucario/veloxd/internal/store"
	"github.com/xgzlucario/veloxd/internal/wire"
)

// readChunk is how much is read into a local buffer per readable event.
const readChunk = 32 * 1024

// Connection is one client's per-fd state: created on accept, destroyed
// on close, never shared between loop iterations.
type Connection struct {
	fd        int
	id        ulid.ULID
	peerAddr  string
	incoming  []byte
	outgoing  []byte
	wantClose bool
}

// Config controls how the server listens and throttles new connections.
type Config struct {
	Port         int
	Backlog      int     // 0 means unix.SOMAXCONN
	AcceptPerSec float64 // 0 means unlimited
	AcceptBurst  int
}

// Server owns the listening socket, the event loop, the connection
// table, and the database every dispatched command runs against.
type Server struct {
	listenFd int
	loop     *ae.Loop
	db       *store.DB
	conns    map[int]*Connection
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// New binds the listener and registers its accept handler, but does not
// start serving — call Run for that.
func New(cfg Config, db *store.DB, logger zerolog.Logger) (*Server, error) {
	loop, err := ae.New()
	if err != nil {
		return nil, err
	}

	backlog := cfg.Backlog
	if backlog == 0 {
		backlog = unix.SOMAXCONN
	}
	listenFd, err := ae.TcpServer(cfg.Port, backlog)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.AcceptPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.AcceptPerSec), cfg.AcceptBurst)
	}

	s := &Server{
		listenFd: listenFd,
		loop:     loop,
		db:       db,
		conns:    make(map[int]*Connection),
		limiter:  limiter,
		logger:   logger,
	}
	if err := loop.AddFileEvent(listenFd, ae.Readable, s.acceptHandler); err != nil {
		ae.Close(listenFd)
		return nil, err
	}
	return s, nil
}

// Run drives the readiness loop until it returns a fatal error. Any
// epoll_wait failure other than EINTR (already retried inside ae.Loop)
// aborts the loop; the caller is expected to abort the process on a
// non-nil return.
func (s *Server) Run() error {
	return s.loop.Run()
}

// Stop ends the loop after its current iteration.
func (s *Server) Stop() { s.loop.Stop() }

// Close releases the listening socket. Callers should call this after
// Run returns.
func (s *Server) Close() error {
	return ae.Close(s.listenFd)
}

// OnAccept, if set, is called after every successful accept — wired to
// internal/metrics' connections-accepted counter without this package
// importing metrics directly.
var OnAccept func()

func (s *Server) acceptHandler(loop *ae.Loop, fd int) {
	if !s.limiter.Allow() {
		return
	}
	cfd, err := ae.Accept(fd)
	if err != nil {
		s.logger.Error().Err(err).Msg("accept failed")
		return
	}

	conn := &Connection{fd: cfd, id: ulid.Make(), peerAddr: ae.PeerAddr(cfd)}
	s.conns[cfd] = conn
	if OnAccept != nil {
		OnAccept()
	}
	if err := loop.AddFileEvent(cfd, ae.Readable, s.readHandler); err != nil {
		s.logger.Error().Err(err).Msg("register readable event failed")
		ae.Close(cfd)
		delete(s.conns, cfd)
		return
	}
	s.logger.Debug().Str("conn", conn.id.String()).Str("peer", conn.peerAddr).Msg("accepted connection")
}

func (s *Server) readHandler(loop *ae.Loop, fd int) {
	conn := s.conns[fd]
	if conn == nil {
		return
	}

	var buf [readChunk]byte
	n, err := ae.Read(fd, buf[:])
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		s.closeConn(loop, conn)
		return
	}
	if n <= 0 {
		s.closeConn(loop, conn)
		return
	}
	conn.incoming = append(conn.incoming, buf[:n]...)

	var w wire.Writer
	for {
		args, consumed, ok, err := wire.ReadRequest(conn.incoming)
		if err != nil {
			s.logger.Warn().Str("conn", conn.id.String()).Err(err).Msg("malformed frame, closing after flush")
			conn.wantClose = true
			break
		}
		if !ok {
			break
		}

		w.Reset()
		store.Dispatch(s.db, &w, args)
		conn.outgoing = append(conn.outgoing, wire.Frame(w.Bytes())...)
		conn.incoming = conn.incoming[consumed:]
	}

	if len(conn.outgoing) > 0 {
		if err := loop.AddFileEvent(fd, ae.Writable, s.writeHandler); err != nil {
			s.logger.Error().Err(err).Msg("register writable event failed")
		}
	} else if conn.wantClose {
		s.closeConn(loop, conn)
	}
}

func (s *Server) writeHandler(loop *ae.Loop, fd int) {
	conn := s.conns[fd]
	if conn == nil {
		return
	}

	n, err := ae.Write(fd, conn.outgoing)
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		s.closeConn(loop, conn)
		return
	}
	conn.outgoing = conn.outgoing[n:]

	if len(conn.outgoing) == 0 {
		loop.RemoveFileEvent(fd, ae.Writable)
		if conn.wantClose {
			s.closeConn(loop, conn)
		}
	}
}

func (s *Server) closeConn(loop *ae.Loop, conn *Connection) {
	loop.RemoveFileEvent(conn.fd, ae.Readable)
	loop.RemoveFileEvent(conn.fd, ae.Writable)
	ae.Close(conn.fd)
	delete(s.conns, conn.fd)
	s.logger.Debug().Str("conn", conn.id.String()).Str("peer", conn.peerAddr).Msg("closed connection")
}

// NumConnections reports live connections, for metrics.
func (s *Server) NumConnections() int {
	return len(s.conns)
}
