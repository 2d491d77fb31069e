package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"

	"github.com/google/logger"

	"github.com/ArtAndreev/timed-computing-service/codec"
	"github.com/ArtAndreev/timed-computing-service/stat"
	"github.com/ArtAndreev/timed-computing-service/task"
)

const readChunk = 4096

type Config struct {
	MaxLineLen  int // longest unterminated line kept, 0 is unbounded
	MaxInflight int // requests dispatched concurrently per connection, 0 is unbounded

	Verbose bool
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req task.Request) task.Response
}

// Server speaks the line protocol over accepted connections and hands every
// decoded request to the dispatcher.
type Server struct {
	cfg *Config
	d   Dispatcher
	lg  *logger.Logger

	conns sync.WaitGroup
}

func New(cfg *Config, d Dispatcher) *Server {
	return &Server{
		cfg: cfg,
		d:   d,
		lg:  logger.Init("server", cfg.Verbose, false, os.Stdout),
	}
}

// Serve accepts connections until ctx is done or the listener fails. It
// returns after every connection has been closed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.lg.Infof("listening on %s", ln.Addr())

	var err error
	for {
		var conn net.Conn
		conn, err = ln.Accept()
		if err != nil {
			break
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.ServeConn(ctx, conn)
		}()
	}

	cancel()
	s.conns.Wait()

	if ctx.Err() != nil && errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

// ServeConn serves one connection until the peer stops sending, the line
// limit is exceeded or ctx is done. Pending responses are written before the
// connection is closed.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	stat.ConnOpened()
	defer stat.ConnClosed()

	ctx, cancel := context.WithCancel(ctx)
	closed := make(chan struct{})
	go func() {
		<-ctx.Done()
		conn.Close()
		close(closed)
	}()
	defer func() {
		cancel()
		<-closed
	}()

	remote := conn.RemoteAddr().String()
	if s.cfg.Verbose {
		s.lg.Infof("%s: connected", remote)
	}

	var sem chan struct{}
	if s.cfg.MaxInflight > 0 {
		sem = make(chan struct{}, s.cfg.MaxInflight)
	}

	w := &responseWriter{w: conn}
	dec := codec.NewDecoder(s.cfg.MaxLineLen)
	inflight := new(sync.WaitGroup)
	reported := 0

	buf := make([]byte, readChunk)
	for {
		n, err := conn.Read(buf)

		var decErr error
		if n > 0 {
			_, decErr = dec.Write(buf[:n])

			if !s.dispatchAll(ctx, dec, w, sem, inflight) {
				break
			}

			if m := dec.Malformed(); m > reported {
				stat.RecordMalformed(m - reported)
				if s.cfg.Verbose {
					s.lg.Warningf("%s: dropped %d malformed lines", remote, m-reported)
				}
				reported = m
			}
		}

		if decErr != nil {
			s.lg.Warningf("%s: closing connection: %s", remote, decErr)
			break
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.lg.Warningf("%s: read failed: %s", remote, err)
			}
			break
		}
	}

	inflight.Wait()

	if s.cfg.Verbose {
		s.lg.Infof("%s: disconnected", remote)
	}
}

func (s *Server) dispatchAll(ctx context.Context, dec *codec.Decoder, w *responseWriter,
	sem chan struct{}, inflight *sync.WaitGroup) bool {
	for {
		req, ok := dec.Next()
		if !ok {
			return true
		}

		if sem != nil {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return false
			}
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			if sem != nil {
				defer func() { <-sem }()
			}

			resp := s.d.Dispatch(ctx, req)
			if err := w.write(resp); err != nil && ctx.Err() == nil {
				s.lg.Warningf("cannot write response %d: %s", resp.ID, err)
			}
		}()
	}
}

type responseWriter struct {
	mu  sync.Mutex
	w   io.Writer
	buf bytes.Buffer
}

func (w *responseWriter) write(resp task.Response) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Reset()
	codec.Encode(resp, &w.buf)
	_, err := w.w.Write(w.buf.Bytes())

	return err
}
