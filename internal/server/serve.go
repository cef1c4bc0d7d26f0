package server

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/AnhadSachdeva/Key-Value-Store/internal/resp"
	"go.uber.org/zap"
)

// Server accepts TCP connections and runs one handler goroutine per client
type Server struct {
	engine *Engine
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewServer wires a listener-less server around a command engine
func NewServer(engine *Engine, logger *zap.Logger) *Server {
	return &Server{
		engine: engine,
		logger: logger,
	}
}

// Serve accepts connections on l until the listener is closed.
// Closing the listener is the shutdown signal; Serve returns nil then.
func (s *Server) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept error", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// Wait blocks until every client handler has returned
func (s *Server) Wait() {
	s.wg.Wait()
}

// handleConnection handles a connection for a single client
func (s *Server) handleConnection(conn net.Conn) {
	log := s.logger
	if log.Core().Enabled(zap.DebugLevel) {
		log.Debug("client connected", zap.String("addr", conn.RemoteAddr().String()))
	}

	peer := NewPeer(conn)
	defer func() {
		peer.Close() //nolint:errcheck
		if log.Core().Enabled(zap.DebugLevel) {
			log.Debug("client disconnected", zap.String("addr", conn.RemoteAddr().String()))
		}
	}()

	for {
		cmdValue, err := peer.ReadCommand()
		if err != nil {
			if err != io.EOF {
				log.Warn("read command failed", zap.Error(err))
			}
			return
		}

		if cmdValue.Type != resp.TypeArray {
			log.Error("invalid request type")
			continue
		}

		if len(cmdValue.Array) == 0 {
			continue
		}

		commandName := strings.ToUpper(string(cmdValue.Array[0].String))

		args := cmdValue.Array[1:]

		result := s.engine.Execute(commandName, args)

		if err = peer.Send(result); err != nil {
			log.Error("error writing response:", zap.Error(err))
			return
		}

		// flush once the pipelined batch is exhausted
		if peer.InputBuffered() == 0 {
			if err := peer.Flush(); err != nil {
				return
			}
		}
	}
}
