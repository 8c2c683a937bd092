package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"i4.energy/across/atlink/at"
)

// Server handles incoming HTTP requests for interacting with the
// configured AT link
type Server struct {
	Logger *slog.Logger
	Client *at.Client
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /suspend", s.handleSuspend)
	mux.HandleFunc("POST /resume", s.handleResume)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// handleCommand executes one AT command transaction and reports its
// classified outcome together with the accumulated response text
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	type CommandRequest struct {
		Command   string `json:"command"`
		Expect    string `json:"expect,omitempty"`
		TimeoutMS int    `json:"timeout_ms,omitempty"`
	}
	type CommandResponse struct {
		Result   string `json:"result"`
		Response string `json:"response"`
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Command == "" {
		s.sendError(w, "'command' field is required", http.StatusBadRequest)
		return
	}

	resp := &at.Response{
		Expect:  req.Expect,
		Buf:     make([]byte, 256),
		Timeout: time.Duration(req.TimeoutMS) * time.Millisecond,
	}
	result := s.Client.Do(resp, req.Command)

	s.Logger.Info("Command executed", "command", req.Command, "result", result.String())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CommandResponse{
		Result:   result.String(),
		Response: resp.String(),
	})
}

// handleStatus reports whether the link is quiet
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type StatusResponse struct {
		Idle bool `json:"idle"`
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(StatusResponse{Idle: s.Client.Idle()})
}

func (s *Server) handleSuspend(w http.ResponseWriter, r *http.Request) {
	s.Client.Suspend()
	s.Logger.Info("Link suspended")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.Client.Resume()
	s.Logger.Info("Link resumed")
	w.WriteHeader(http.StatusOK)
}
