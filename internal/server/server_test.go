package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/ironskeleton/internal/generate"
	"github.com/tatianab/ironskeleton/internal/history"
	"github.com/tatianab/ironskeleton/internal/models"
	"github.com/tatianab/ironskeleton/internal/orchestrator"
	"github.com/tatianab/ironskeleton/internal/scenegraph"
	"github.com/tatianab/ironskeleton/internal/theme"
)

type clientFunc func(ctx context.Context, req generate.Request) (*models.GenerationResult, error)

func (f clientFunc) Generate(ctx context.Context, req generate.Request) (*models.GenerationResult, error) {
	return f(ctx, req)
}

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	th := &theme.Theme{
		Graph: &scenegraph.Graph{
			InitialSceneID: "start",
			Scenes: map[string]*models.Scene{
				"start": {
					ID:   "start",
					Text: "You stand at the gate.",
					Options: []models.Option{
						{ID: 1, Text: "go north", NextSceneID: "end"},
					},
				},
				"end": {ID: "end", Text: "Done.", IsEnd: true, EndingTitle: "A Short Walk"},
			},
		},
	}
	th.Manifest.Player.HP = 100

	newSession := func(sessionID string) (*orchestrator.Orchestrator, error) {
		return orchestrator.New(th, history.NewStore(t.TempDir(), 10), orchestrator.Config{
			MaxTurns: 20,
			Client: clientFunc(func(context.Context, generate.Request) (*models.GenerationResult, error) {
				return nil, generate.ErrGenerationFailed
			}),
			Rng:    fixedRand(0),
			Logger: zerolog.Nop(),
		}), nil
	}

	return New(zerolog.Nop(), newSession).Router()
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.SessionID)
	return body.SessionID
}

func TestCreateSessionReturnsInitialScene(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions", nil))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "You stand at the gate.")
}

func TestTurnAdvancesSession(t *testing.T) {
	router := testRouter(t)
	id := createSession(t, router)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/turn", id),
		strings.NewReader(`{"input": "1"}`))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Text      string `json:"text"`
		TurnCount int    `json:"turnCount"`
		GameOver  bool   `json:"gameOver"`
		Ending    string `json:"ending"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Done.", resp.Text)
	assert.Equal(t, 1, resp.TurnCount)
	assert.True(t, resp.GameOver)
	assert.Equal(t, "A Short Walk", resp.Ending)
}

func TestTurnRejectsInvalidOption(t *testing.T) {
	router := testRouter(t)
	id := createSession(t, router)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/turn", id),
		strings.NewReader(`{"input": "9"}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTurnAfterGameOverConflicts(t *testing.T) {
	router := testRouter(t)
	id := createSession(t, router)

	turn := func(input string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/turn", id),
			strings.NewReader(fmt.Sprintf(`{"input": %q}`, input)))
		router.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, turn("1").Code)
	assert.Equal(t, http.StatusConflict, turn("1").Code)
}

func TestTurnRejectsMalformedBody(t *testing.T) {
	router := testRouter(t)
	id := createSession(t, router)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/turn", id),
		strings.NewReader(`{"input": `))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownSessionIs404(t *testing.T) {
	router := testRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/sessions/nope/turn"},
		{http.MethodGet, "/sessions/nope/scene"},
		{http.MethodGet, "/sessions/nope/hud"},
		{http.MethodPost, "/sessions/nope/reset"},
		{http.MethodDelete, "/sessions/nope"},
	} {
		w := httptest.NewRecorder()
		var body *strings.Reader
		if tc.method == http.MethodPost && strings.HasSuffix(tc.path, "/turn") {
			body = strings.NewReader(`{"input": "1"}`)
		} else {
			body = strings.NewReader("")
		}
		router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, body))
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestHudReportsStatsAndBudget(t *testing.T) {
	router := testRouter(t)
	id := createSession(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/sessions/%s/hud", id), nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Stats     models.Player `json:"stats"`
		TurnCount int           `json:"turnCount"`
		MaxTurns  int           `json:"maxTurns"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 100, resp.Stats.HP)
	assert.Equal(t, 0, resp.TurnCount)
	assert.Equal(t, 20, resp.MaxTurns)
}

func TestResetReturnsToStart(t *testing.T) {
	router := testRouter(t)
	id := createSession(t, router)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/turn", id),
		strings.NewReader(`{"input": "1"}`))
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/reset", id), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You stand at the gate.")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/sessions/%s/scene", id), nil))
	assert.Contains(t, w.Body.String(), "You stand at the gate.")
}

func TestDeleteSession(t *testing.T) {
	router := testRouter(t)
	id := createSession(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/sessions/"+id, nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/sessions/%s/scene", id), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
