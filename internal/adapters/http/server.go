package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rcitylucas/dialogengine/internal/dialogue"
	"github.com/rcitylucas/dialogengine/internal/domain"
	"github.com/rcitylucas/dialogengine/internal/domain/models"
	"github.com/rcitylucas/dialogengine/internal/ports"
	"github.com/rcitylucas/dialogengine/internal/relationship"
	"github.com/rcitylucas/dialogengine/internal/tools"
)

// Server exposes the wire-level conventions spec §6 suggests (session
// CRUD, turn submission/listing, tool listing) over the Dialogue Manager's
// single process(...) call, grounded on the teacher's internal/adapters/http.Server
// field layout and route registration shape.
type Server struct {
	router        *chi.Mux
	httpServer    *http.Server
	sessions      ports.SessionRepository
	turns         ports.TurnRepository
	idGen         ports.IDGenerator
	manager       *dialogue.Manager
	registry      *tools.Registry
	relationships *relationship.Engine
	broadcaster   *Broadcaster
	upgrader      websocket.Upgrader
}

func NewServer(
	sessions ports.SessionRepository,
	turns ports.TurnRepository,
	idGen ports.IDGenerator,
	manager *dialogue.Manager,
	registry *tools.Registry,
	relationships *relationship.Engine,
	broadcaster *Broadcaster,
) *Server {
	s := &Server{
		sessions:      sessions,
		turns:         turns,
		idGen:         idGen,
		manager:       manager,
		registry:      registry,
		relationships: relationships,
		broadcaster:   broadcaster,
		upgrader:      websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Post("/", s.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Get("/turns", s.handleListTurns)
			r.Post("/turns", s.handleSubmitTurn)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	r.Get("/tools", s.handleListTools)
	r.Get("/relationships/{aID}/{bID}", s.handleGetRelationship)

	return r
}

// Start begins serving HTTP on addr in a background goroutine, mirroring
// the teacher's ListenAndServe-plus-goroutine pattern in cmd/alicia/serve.go.
func (s *Server) Start(addr string) {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logServerError(err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSessionRequest struct {
	OwnerID      string               `json:"owner_id"`
	DialogueKind models.DialogueKind  `json:"dialogue_kind"`
	Participants []models.Participant `json:"participants"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := models.NewSession(s.idGen.GenerateSessionID(), req.OwnerID, req.DialogueKind, req.Participants, time.Now())
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.sessions.Create(r.Context(), session); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	session, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if session == nil {
		respondError(w, domain.NewError(domain.KindNotFound, "session not found", domain.ErrSessionNotFound))
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListSessions implements the limit(1..100,default 10)/offset(>=0)
// pagination convention spec §6 names.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		respondError(w, domain.NewError(domain.KindInvalidArgument, "owner_id is required", nil))
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	sessions, err := s.sessions.ListByOwner(r.Context(), ownerID, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleListTurns(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	turns, err := s.turns.ListBySession(r.Context(), sessionID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, turns)
}

type submitTurnRequest struct {
	UserID      string              `json:"user_id"`
	Content     string              `json:"content"`
	ContentKind models.MessageKind  `json:"content_kind"`
	SideChannel map[string]any      `json:"side_channel"`
}

// handleSubmitTurn is the wire entry point that calls through to the
// Dialogue Manager's single process(...) operation (spec §4.6, §6
// "Transport (produced)").
func (s *Server) handleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req submitTurnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ContentKind == "" {
		req.ContentKind = models.MessageText
	}

	out, err := s.manager.Process(r.Context(), dialogue.ProcessInput{
		SessionID:   sessionID,
		UserID:      req.UserID,
		Content:     req.Content,
		ContentKind: req.ContentKind,
		SideChannel: req.SideChannel,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	s.broadcaster.Broadcast(out.SessionID, out)
	respondJSON(w, http.StatusOK, out)
}

type toolSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Usage       string   `json:"usage"`
	Version     string   `json:"version"`
	Status      string   `json:"status"`
	Modalities  []string `json:"modalities"`
}

// handleListTools renders the Tool Registry's catalog as plain DTOs:
// ports.VersionedTool values carry no exported fields, only methods, so a
// direct json.Marshal of the interface would serialize to "{}".
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools := s.registry.List()
	out := make([]toolSummary, 0, len(tools))
	for _, t := range tools {
		modalities := make([]string, 0, len(t.Modalities()))
		for _, m := range t.Modalities() {
			modalities = append(modalities, string(m))
		}
		out = append(out, toolSummary{
			Name:        t.Name(),
			Description: t.Description(),
			Usage:       t.Usage(),
			Version:     t.Version(),
			Status:      string(t.Status()),
			Modalities:  modalities,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRelationship(w http.ResponseWriter, r *http.Request) {
	aID := chi.URLParam(r, "aID")
	bID := chi.URLParam(r, "bID")
	record, err := s.relationships.RecordFor(r.Context(), aID, bID)
	if err != nil {
		respondError(w, err)
		return
	}
	if record == nil {
		respondError(w, domain.NewError(domain.KindNotFound, "no relationship recorded for this pair", nil))
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// handleWebSocket upgrades and subscribes the connection to a session's
// turn replies (spec §6 "Transport (produced)" streaming convention,
// grounded on the teacher's per-conversation websocket subscription).
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.broadcaster.Subscribe(sessionID, conn)
	defer func() {
		s.broadcaster.Unsubscribe(sessionID, conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, domain.NewError(domain.KindInvalidArgument, "malformed request body", err))
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps a domain.Kind to an HTTP status and surfaces the
// error's text (err.Error(): for a domain.Error, its Message followed by
// the wrapped cause), never a stack trace (spec §7).
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindInvalidArgument, domain.KindIncompatibleVersion:
		status = http.StatusBadRequest
	case domain.KindUnavailable:
		status = http.StatusServiceUnavailable
	case domain.KindTimeout:
		status = http.StatusGatewayTimeout
	case domain.KindCancelled:
		status = 499
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func logServerError(err error) {
	fmt.Println("http server error:", err)
}
