// Package api exposes the combat commands over HTTP and pushes tracker
// updates to websocket subscribers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combot/internal/config"
	"github.com/cory-johannsen/combot/internal/game/command"
	"github.com/cory-johannsen/combot/internal/game/encounter"
	"github.com/cory-johannsen/combot/internal/gameserver"
)

// maxBodyBytes bounds a command request body.
const maxBodyBytes = 64 << 10

// Commands is the combat command surface the API serves.
type Commands interface {
	Identify(ctx context.Context, channelID, userID, username, url string) (gameserver.Reply, error)
	StartCombat(ctx context.Context, channelID, userID, description string) (gameserver.Reply, error)
	JoinInitiative(ctx context.Context, channelID, userID, username string) (gameserver.Reply, error)
	Act(ctx context.Context, channelID, userID, username, text string) (gameserver.Reply, error)
	EditAct(ctx context.Context, channelID, userID, username, text string) (gameserver.Reply, error)
	NewRound(ctx context.Context, channelID, userID string) (gameserver.Reply, error)
	EndCombat(ctx context.Context, channelID, userID string) (gameserver.Reply, error)
	Tracker(ctx context.Context, channelID string) (encounter.Tracker, error)
	SetTrackerMessage(ctx context.Context, channelID, messageID string) error
}

// CommandRequest is the JSON body of every command endpoint. Only the
// fields a command uses are read.
type CommandRequest struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Text        string `json:"text,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	MessageID   string `json:"messageId,omitempty"`
}

// Server is the HTTP front end. It implements server.Service.
type Server struct {
	cfg      config.HTTPConfig
	commands Commands
	hub      *Hub
	logger   *zap.Logger
	registry *command.Registry
	upgrader websocket.Upgrader
	router   *mux.Router

	mu  sync.Mutex
	srv *http.Server
}

// NewServer builds the router for commands.
//
// Precondition: commands, hub, and logger must be non-nil.
func NewServer(cfg config.HTTPConfig, commands Commands, hub *Hub, logger *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		commands: commands,
		hub:      hub,
		logger:   logger,
		registry: command.DefaultRegistry(),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)

	ch := r.PathPrefix("/channels/{channel}").Subrouter()
	ch.HandleFunc("/command", s.command(s.dispatch)).Methods(http.MethodPost)
	ch.HandleFunc("/identify", s.command(s.identify)).Methods(http.MethodPost)
	ch.HandleFunc("/combat", s.command(s.start)).Methods(http.MethodPost)
	ch.HandleFunc("/combat", s.command(s.end)).Methods(http.MethodDelete)
	ch.HandleFunc("/initiative", s.command(s.initiative)).Methods(http.MethodPost)
	ch.HandleFunc("/act", s.command(s.act)).Methods(http.MethodPost)
	ch.HandleFunc("/edit", s.command(s.edit)).Methods(http.MethodPost)
	ch.HandleFunc("/round", s.command(s.round)).Methods(http.MethodPost)
	ch.HandleFunc("/tracker", s.tracker).Methods(http.MethodGet)
	ch.HandleFunc("/tracker/message", s.trackerMessage).Methods(http.MethodPut)
	ch.HandleFunc("/ws", s.subscribe).Methods(http.MethodGet)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on cfg.Addr() and serves until Stop is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	s.logger.Info("http api listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// Stop shuts the listener down and disconnects websocket subscribers.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	s.hub.Close()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type commandFunc func(ctx context.Context, channelID string, req CommandRequest) (gameserver.Reply, error)

// command decodes a CommandRequest and writes the Reply with a status
// derived from the command error.
func (s *Server) command(fn commandFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CommandRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, gameserver.Reply{Message: "❌ Malformed request.", IsError: true})
			return
		}
		if req.UserID == "" {
			writeJSON(w, http.StatusBadRequest, gameserver.Reply{Message: "❌ userId is required.", IsError: true})
			return
		}
		if req.Username == "" {
			req.Username = req.UserID
		}
		channelID := mux.Vars(r)["channel"]
		reply, err := fn(r.Context(), channelID, req)
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("command failed", zap.String("channel_id", channelID), zap.String("path", r.URL.Path), zap.Error(err))
		}
		writeJSON(w, status, reply)
	}
}

// dispatch routes a "/combot <subcommand> ..." line to the matching command.
func (s *Server) dispatch(ctx context.Context, channelID string, req CommandRequest) (gameserver.Reply, error) {
	parsed := command.Parse(req.Text)
	cmd, ok := s.registry.Resolve(parsed.Command)
	if !ok {
		return gameserver.Reply{Message: s.registry.HelpText(), IsError: parsed.Command != ""}, nil
	}
	if cmd.Arg != "" && parsed.RawArgs == "" {
		return gameserver.Reply{Message: "❌ Usage: " + cmd.Usage(), IsError: true}, nil
	}
	arg := parsed.RawArgs
	switch cmd.Handler {
	case command.HandlerIdentify:
		return s.commands.Identify(ctx, channelID, req.UserID, req.Username, arg)
	case command.HandlerStart:
		return s.commands.StartCombat(ctx, channelID, req.UserID, arg)
	case command.HandlerInitiative:
		return s.commands.JoinInitiative(ctx, channelID, req.UserID, req.Username)
	case command.HandlerAct:
		return s.commands.Act(ctx, channelID, req.UserID, req.Username, arg)
	case command.HandlerEdit:
		return s.commands.EditAct(ctx, channelID, req.UserID, req.Username, arg)
	case command.HandlerNewRound:
		return s.commands.NewRound(ctx, channelID, req.UserID)
	case command.HandlerEnd:
		return s.commands.EndCombat(ctx, channelID, req.UserID)
	case command.HandlerTracker:
		t, err := s.commands.Tracker(ctx, channelID)
		if err != nil {
			return gameserver.Reply{Message: "❌ No active combat in this channel!", IsError: true}, err
		}
		return gameserver.Reply{Message: t.Text(), Tracker: &t}, nil
	default:
		return gameserver.Reply{Message: s.registry.HelpText()}, nil
	}
}

func (s *Server) identify(ctx context.Context, channelID string, req CommandRequest) (gameserver.Reply, error) {
	return s.commands.Identify(ctx, channelID, req.UserID, req.Username, req.URL)
}

func (s *Server) start(ctx context.Context, channelID string, req CommandRequest) (gameserver.Reply, error) {
	return s.commands.StartCombat(ctx, channelID, req.UserID, req.Description)
}

func (s *Server) end(ctx context.Context, channelID string, req CommandRequest) (gameserver.Reply, error) {
	return s.commands.EndCombat(ctx, channelID, req.UserID)
}

func (s *Server) initiative(ctx context.Context, channelID string, req CommandRequest) (gameserver.Reply, error) {
	return s.commands.JoinInitiative(ctx, channelID, req.UserID, req.Username)
}

func (s *Server) act(ctx context.Context, channelID string, req CommandRequest) (gameserver.Reply, error) {
	return s.commands.Act(ctx, channelID, req.UserID, req.Username, req.Text)
}

func (s *Server) edit(ctx context.Context, channelID string, req CommandRequest) (gameserver.Reply, error) {
	return s.commands.EditAct(ctx, channelID, req.UserID, req.Username, req.Text)
}

func (s *Server) round(ctx context.Context, channelID string, req CommandRequest) (gameserver.Reply, error) {
	return s.commands.NewRound(ctx, channelID, req.UserID)
}

func (s *Server) tracker(w http.ResponseWriter, r *http.Request) {
	t, err := s.commands.Tracker(r.Context(), mux.Vars(r)["channel"])
	if err != nil {
		status := statusFor(err)
		writeJSON(w, status, gameserver.Reply{Message: "❌ No active combat in this channel!", IsError: true})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) trackerMessage(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.MessageID == "" {
		writeJSON(w, http.StatusBadRequest, gameserver.Reply{Message: "❌ messageId is required.", IsError: true})
		return
	}
	if err := s.commands.SetTrackerMessage(r.Context(), mux.Vars(r)["channel"], req.MessageID); err != nil {
		writeJSON(w, statusFor(err), gameserver.Reply{Message: err.Error(), IsError: true})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// subscribe upgrades to a websocket that receives the channel's tracker on
// connect (when combat is active) and after every change.
func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channel"]
	var initial *encounter.Tracker
	if t, err := s.commands.Tracker(r.Context(), channelID); err == nil {
		initial = &t
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("channel_id", channelID), zap.Error(err))
		return
	}
	sub := s.hub.add(channelID, conn)
	go s.hub.serve(channelID, sub, initial)
}

// statusFor maps a command error to an HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, gameserver.ErrNoEncounter):
		return http.StatusNotFound
	case errors.Is(err, gameserver.ErrNotReferee):
		return http.StatusForbidden
	case errors.Is(err, gameserver.ErrInvalidSheetURL):
		return http.StatusBadRequest
	case errors.Is(err, gameserver.ErrUnparseableAction), errors.Is(err, gameserver.ErrInvalidResolution):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gameserver.ErrNotInInitiative),
		errors.Is(err, encounter.ErrAlreadyInInitiative),
		errors.Is(err, encounter.ErrNoPreviousAction),
		errors.Is(err, gameserver.ErrVersionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
