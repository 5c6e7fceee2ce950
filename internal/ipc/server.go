package ipc

import (
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ognistik/macrowhisper-go/internal/errs"
	"github.com/ognistik/macrowhisper-go/internal/logging"
)

// Server is the control-socket listener, grounded on the teacher's
// net.Listen("unix", ...) + per-connection-goroutine accept loop.
type Server struct {
	socketPath string
	handler    Handler
	log        *logging.Logger
	listener   net.Listener
}

// NewServer builds a Server. Start must be called to begin accepting.
func NewServer(socketPath string, handler Handler, log *logging.Logger) *Server {
	return &Server{socketPath: socketPath, handler: handler, log: log}
}

// Start removes any stale socket file, binds, sets permissions per spec §6
// (mode 0777 so any local user's CLI invocation can reach the daemon), and
// begins accepting connections in the background.
func (s *Server) Start() error {
	os.Remove(s.socketPath)

	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return errs.Wrap(errs.Fatal, err, "creating socket directory")
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return errs.Wrap(errs.Fatal, err, "binding control socket")
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0o777); err != nil {
		return errs.Wrap(errs.Fatal, err, "setting socket permissions")
	}

	s.log.Info("control socket listening", zap.String("path", s.socketPath))
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConnection(conn)
	}
}

// handleConnection reads exactly one JSON frame (capped at MaxFrameSize),
// dispatches it, writes the response, and closes — one command per
// connection, per spec §4.H.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	traceID := uuid.NewString()

	limited := io.LimitReader(conn, MaxFrameSize)
	var cmd Command
	if err := json.NewDecoder(limited).Decode(&cmd); err != nil {
		s.log.Debug("malformed command frame", zap.String("trace", traceID), zap.Error(err))
		conn.Write([]byte("ERROR: malformed command frame\n"))
		return
	}

	s.log.Debug("control command received", zap.String("trace", traceID), zap.String("command", cmd.Command))
	response := s.handler(cmd)
	conn.Write([]byte(response + "\n"))
}

// Stop closes the listener and unlinks the socket file, per spec §6.
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
