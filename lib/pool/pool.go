package pool

import (
	"context"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gfx.cafe/gfx/shardgat/lib/instrumentation/prom"
)

// Server is one live connection checked out of or parked in a Pool.
type Server struct {
	ID   uuid.UUID
	Conn net.Conn

	// replica index the connection was dialed to
	replica int
}

func (T *Server) Replica() int {
	return T.replica
}

// Pool hands out connections to one shard, trying replicas in priority
// order. It only manages raw connections; protocol handshakes belong to
// the caller.
type Pool struct {
	options Options
	log     *zap.Logger

	count  int
	idle   []*Server
	closed bool
	mu     sync.Mutex
}

func NewPool(options Options) *Pool {
	return &Pool{
		options: options,
		log:     options.logger(),
	}
}

func (T *Pool) Replicas() int {
	return len(T.options.Dialers)
}

// Len is the number of open connections, checked out or idle.
func (T *Pool) Len() int {
	T.mu.Lock()
	defer T.mu.Unlock()
	return T.count
}

func (T *Pool) allocate() (*Server, error) {
	T.mu.Lock()
	defer T.mu.Unlock()

	if T.closed {
		return nil, ErrClosed
	}

	if len(T.idle) > 0 {
		server := T.idle[len(T.idle)-1]
		T.idle = T.idle[:len(T.idle)-1]
		return server, nil
	}

	if T.options.MaxConnections != 0 {
		if T.count >= T.options.MaxConnections {
			return nil, ErrExhausted
		}
	}

	T.count++
	return nil, nil
}

func (T *Pool) free() {
	T.mu.Lock()
	defer T.mu.Unlock()
	T.count--
}

// Acquire returns an idle connection if one is parked, otherwise dials.
// Replicas are tried in order; the first that accepts wins.
func (T *Pool) Acquire(ctx context.Context) (*Server, error) {
	server, err := T.allocate()
	if err != nil {
		return nil, err
	}
	if server != nil {
		return server, nil
	}

	attempts := 0
	var lastErr error
	for pass := 0; pass < T.options.passes(); pass++ {
		for i, dialer := range T.options.Dialers {
			conn, err := dialer.Dial(ctx)
			attempts++
			if err != nil {
				prom.Pool.Dials(prom.DialLabels{
					Address: dialer.Addr(),
					Outcome: "error",
				}).Inc()
				T.log.Warn("failed to dial replica",
					zap.String("address", dialer.Addr()),
					zap.Error(err),
				)
				lastErr = err
				if ctx.Err() != nil {
					T.free()
					return nil, ctx.Err()
				}
				continue
			}
			prom.Pool.Dials(prom.DialLabels{
				Address: dialer.Addr(),
				Outcome: "ok",
			}).Inc()
			return &Server{
				ID:      uuid.New(),
				Conn:    conn,
				replica: i,
			}, nil
		}
	}

	T.free()
	return nil, DialError{
		Attempts: attempts,
		Err:      lastErr,
	}
}

// Release parks the connection for reuse, closing it instead if enough
// idle connections are already parked.
func (T *Pool) Release(server *Server) {
	T.mu.Lock()
	if T.closed || len(T.idle) >= T.options.MinConnections {
		T.count--
		T.mu.Unlock()
		_ = server.Conn.Close()
		return
	}
	T.idle = append(T.idle, server)
	T.mu.Unlock()
}

// Discard closes a connection that should not be reused (e.g. the
// caller saw a protocol error on it).
func (T *Pool) Discard(server *Server) {
	_ = server.Conn.Close()
	T.free()
}

func (T *Pool) Close() {
	T.mu.Lock()
	idle := T.idle
	T.idle = nil
	T.count -= len(idle)
	T.closed = true
	T.mu.Unlock()

	for _, server := range idle {
		_ = server.Conn.Close()
	}
}
