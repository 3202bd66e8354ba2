// Package server exposes the turn API over HTTP. Session state is
// single-writer: every call against a session takes that session's
// lock, so turns are serialized per session (concurrent sessions run
// independently).
package server

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tatianab/ironskeleton/internal/orchestrator"
)

// NewSessionFunc builds the orchestrator for a freshly created
// session. The id is unique per session; implementations typically use
// it to give each session its own save directory.
type NewSessionFunc func(sessionID string) (*orchestrator.Orchestrator, error)

type session struct {
	mu   sync.Mutex
	orch *orchestrator.Orchestrator
}

// Server holds the live sessions and the gin router.
type Server struct {
	logger     zerolog.Logger
	newSession NewSessionFunc

	mu       sync.RWMutex
	sessions map[string]*session
}

// New builds the server.
func New(logger zerolog.Logger, newSession NewSessionFunc) *Server {
	return &Server{
		logger:     logger,
		newSession: newSession,
		sessions:   make(map[string]*session),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/sessions", s.handleCreate)
	r.POST("/sessions/:id/turn", s.handleTurn)
	r.GET("/sessions/:id/scene", s.handleScene)
	r.GET("/sessions/:id/hud", s.handleHud)
	r.POST("/sessions/:id/reset", s.handleReset)
	r.DELETE("/sessions/:id", s.handleDelete)

	return r
}

type turnRequest struct {
	Input string `json:"input"`
}

type turnResponse struct {
	Text      string   `json:"text"`
	Events    []string `json:"events,omitempty"`
	TurnCount int      `json:"turnCount"`
	GameOver  bool     `json:"gameOver"`
	Ending    string   `json:"ending,omitempty"`
}

func (s *Server) handleCreate(c *gin.Context) {
	id := uuid.NewString()
	orch, err := s.newSession(id)
	if err != nil {
		s.logger.Error().Err(err).Msg("creating session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	s.mu.Lock()
	s.sessions[id] = &session{orch: orch}
	s.mu.Unlock()

	scene := orch.GetCurrentScene()
	s.logger.Info().Str("session", id).Msg("session created")
	c.JSON(http.StatusCreated, gin.H{"sessionId": id, "scene": scene})
}

func (s *Server) handleTurn(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	text, events, err := sess.orch.RunTurn(c.Request.Context(), req.Input)
	switch {
	case errors.Is(err, orchestrator.ErrInvalidOption):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "that choice isn't available; pick a listed option or describe an action"})
		return
	case errors.Is(err, orchestrator.ErrGameOver):
		c.JSON(http.StatusConflict, gin.H{"error": "the session has ended"})
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("turn failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "turn failed"})
		return
	}

	ending, over := sess.orch.CheckGameOver()
	c.JSON(http.StatusOK, turnResponse{
		Text:      text,
		Events:    events,
		TurnCount: sess.orch.TurnCount(),
		GameOver:  over,
		Ending:    ending,
	})
}

func (s *Server) handleScene(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	c.JSON(http.StatusOK, sess.orch.GetCurrentScene())
}

func (s *Server) handleHud(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"stats":     sess.orch.Hud(),
		"turnCount": sess.orch.TurnCount(),
		"maxTurns":  sess.orch.MaxTurns(),
	})
}

func (s *Server) handleReset(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.orch.ResetGame()
	c.JSON(http.StatusOK, gin.H{"scene": sess.orch.GetCurrentScene()})
}

func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) session(c *gin.Context) (*session, bool) {
	id := c.Param("id")
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return nil, false
	}
	return sess, true
}
