// Package web serves the daemon status page and accepts text commands over
// HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/madskjeldgaard/midi2motor/internal/command"
	"github.com/madskjeldgaard/midi2motor/internal/status"
	"github.com/madskjeldgaard/midi2motor/internal/textcmd"
)

// maxCommandBody caps a POST /command body.
const maxCommandBody = 4 << 10

// Server serves status and command endpoints.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	cmds       chan<- command.Command
	logger     *zap.SugaredLogger
}

// New creates a Server reading state from tracker. Commands posted to
// /command are queued on cmds; a nil cmds disables the endpoint.
func New(addr string, tracker *status.Tracker, cmds chan<- command.Command, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{tracker: tracker, cmds: cmds, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	if cmds != nil {
		mux.HandleFunc("/command", s.handleCommand)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.logRequests(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, s.tracker.Snapshot()); err != nil {
		s.logger.Warnw("render status page", "error", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

type commandResponse struct {
	Queued []string `json:"queued"`
	Error  string   `json:"error,omitempty"`
}

// handleCommand parses every line of the body before queueing any of them,
// so a bad line rejects the whole request.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBody))
	if err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		writeCommandResponse(w, code, commandResponse{Error: err.Error()})
		return
	}

	var cmds []command.Command
	for i, line := range strings.Split(string(body), "\n") {
		cmd, err := textcmd.Parse(line)
		if errors.Is(err, textcmd.ErrEmpty) {
			continue
		}
		if err != nil {
			writeCommandResponse(w, http.StatusBadRequest, commandResponse{
				Error: fmt.Sprintf("line %d: %v", i+1, err),
			})
			return
		}
		cmds = append(cmds, cmd)
	}

	resp := commandResponse{Queued: []string{}}
	for _, cmd := range cmds {
		select {
		case s.cmds <- cmd:
			resp.Queued = append(resp.Queued, cmd.String())
		default:
			resp.Error = "command queue full"
			writeCommandResponse(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	s.logger.Debugw("http commands", "queued", len(resp.Queued))
	writeCommandResponse(w, http.StatusAccepted, resp)
}

func writeCommandResponse(w http.ResponseWriter, code int, resp commandResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.code,
			"duration", time.Since(start),
		)
	})
}
