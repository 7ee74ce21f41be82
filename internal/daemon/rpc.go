package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"

	"github.com/smelter-dev/smelter/internal/history"
)

// Control methods served on the local socket.
const (
	MethodStatus     = "daemon/status"
	MethodRegenerate = "daemon/regenerate"
	MethodShutdown   = "daemon/shutdown"
)

// ControlResult acknowledges a control request.
type ControlResult struct {
	Status string `json:"status"`
}

// RPCServer answers daemon control calls over JSON-RPC 2.0 on a Unix
// socket. The socket carries no credentials; filesystem permissions on
// its directory are the access control.
type RPCServer struct {
	listener net.Listener
	daemon   *Daemon
	logger   *zap.Logger
	path     string
	wg       sync.WaitGroup
}

func (d *Daemon) serveRPC(ctx context.Context) (*RPCServer, error) {
	path := d.cfg.SocketPath
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create socket directory: %w", err)
		}
	}
	// A crashed daemon leaves the socket file behind.
	_ = os.Remove(path)

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}

	s := &RPCServer{listener: listener, daemon: d, logger: d.logger, path: path}
	s.wg.Add(1)
	go s.accept(ctx)
	d.logger.Info("control socket listening", zap.String("path", path))
	return s, nil
}

func (s *RPCServer) accept(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("control socket accept failed", zap.Error(err))
			}
			return
		}
		rpcConn := jsonrpc2.NewConn(jsonrpc2.NewStream(conn))
		rpcConn.Go(ctx, s.handle)
	}
}

func (s *RPCServer) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.logger.Debug("control request", zap.String("method", req.Method()))

	switch req.Method() {
	case MethodStatus:
		return reply(ctx, s.daemon.CurrentStatus(), nil)

	case MethodRegenerate:
		s.daemon.Regenerate(history.TriggerDaemon, true)
		return reply(ctx, ControlResult{Status: "queued"}, nil)

	case MethodShutdown:
		// Acknowledge before stopping so the client sees the reply.
		if err := reply(ctx, ControlResult{Status: "stopping"}, nil); err != nil {
			s.logger.Warn("failed to acknowledge shutdown", zap.Error(err))
		}
		s.daemon.Shutdown()
		return nil

	default:
		return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
	}
}

// Close stops accepting connections and removes the socket file.
func (s *RPCServer) Close() error {
	err := s.listener.Close()
	s.wg.Wait()
	_ = os.Remove(s.path)
	return err
}
