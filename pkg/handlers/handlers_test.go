package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-sync-backend/pkg/config"
	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/models"
	"task-sync-backend/pkg/permissions"
	"task-sync-backend/pkg/server"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func testRouter(t *testing.T) *chi.Mux {
	t.Helper()
	cfg := &config.Config{
		Environment:      "test",
		Port:             "0",
		UseMemoryDB:      true,
		JWTSecret:        "test-secret",
		AllowedOrigins:   []string{"*"},
		ReminderInterval: time.Minute,
		ReminderWindow:   15 * time.Minute,
	}
	return server.NewRouter(cfg, database.NewMemoryDatabase())
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	}
	return rec, env
}

type session struct {
	User        models.User `json:"user"`
	AccessToken string      `json:"access_token"`
	SpaceID     string      `json:"space_id"`
}

func register(t *testing.T, router http.Handler, email, name string) session {
	t.Helper()
	rec, env := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct-horse",
		"name":     name,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "register body: %s", rec.Body.String())

	var s session
	require.NoError(t, json.Unmarshal(env.Data, &s))
	require.NotEmpty(t, s.AccessToken)
	return s
}

func TestRegisterIssuesSessionAndDefaultSpace(t *testing.T) {
	router := testRouter(t)

	s := register(t, router, "alice@example.com", "Alice")
	assert.Equal(t, "alice@example.com", s.User.Email)
	assert.NotEmpty(t, s.SpaceID)
	assert.NotEmpty(t, s.User.PairingCode)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	router := testRouter(t)

	register(t, router, "alice@example.com", "Alice")
	rec, env := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)
}

func TestLoginWrongPassword(t *testing.T) {
	router := testRouter(t)

	register(t, router, "alice@example.com", "Alice")
	rec, _ := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	router := testRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPairAndShareTasks(t *testing.T) {
	router := testRouter(t)

	alice := register(t, router, "alice@example.com", "Alice")
	bob := register(t, router, "bob@example.com", "Bob")

	// Alice pairs using Bob's code; a shared space comes back.
	rec, env := doJSON(t, router, http.MethodPost, "/api/pair", alice.AccessToken, map[string]string{
		"pairingCode": bob.User.PairingCode,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "pair body: %s", rec.Body.String())

	var shared models.Space
	require.NoError(t, json.Unmarshal(env.Data, &shared))
	assert.ElementsMatch(t, []string{alice.User.ID, bob.User.ID}, shared.MemberIDs)

	// Alice creates an assigned task in the shared space.
	rec, env = doJSON(t, router, http.MethodPost, "/api/tasks", alice.AccessToken, map[string]interface{}{
		"spaceId": shared.ID,
		"title":   "Fix the shelf",
		"scope":   "ASSIGNED",
		"effort":  4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "create body: %s", rec.Body.String())

	var task models.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))

	// Bob sees it in the space list.
	rec, env = doJSON(t, router, http.MethodGet, "/api/tasks?space_id="+shared.ID, bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Task
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)

	// Bob, the assignee, may complete but not edit.
	rec, env = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/tasks/%s/capabilities", task.ID), bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var caps permissions.Capabilities
	require.NoError(t, json.Unmarshal(env.Data, &caps))
	assert.Equal(t, permissions.Capabilities{CanComplete: true, CanUpdateProgress: true}, caps)

	rec, _ = doJSON(t, router, http.MethodPut, "/api/tasks/"+task.ID, bob.AccessToken, map[string]interface{}{
		"title":  "Renamed",
		"effort": 4,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPut, "/api/tasks/"+task.ID+"/status", bob.AccessToken, map[string]string{
		"status": "completed",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The space is now 100% complete.
	rec, env = doJSON(t, router, http.MethodGet, "/api/spaces/"+shared.ID+"/progress", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var progress map[string]int
	require.NoError(t, json.Unmarshal(env.Data, &progress))
	assert.Equal(t, 100, progress["progressPercentage"])
}

func TestOutsiderCannotTouchForeignSpace(t *testing.T) {
	router := testRouter(t)

	alice := register(t, router, "alice@example.com", "Alice")
	mallory := register(t, router, "mallory@example.com", "Mallory")

	rec, _ := doJSON(t, router, http.MethodGet, "/api/tasks?space_id="+alice.SpaceID, mallory.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/tasks", mallory.AccessToken, map[string]interface{}{
		"spaceId": alice.SpaceID,
		"title":   "Intrusion",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestJoinSpaceByInviteCode(t *testing.T) {
	router := testRouter(t)

	alice := register(t, router, "alice@example.com", "Alice")
	bob := register(t, router, "bob@example.com", "Bob")

	rec, env := doJSON(t, router, http.MethodPost, "/api/spaces", alice.AccessToken, map[string]string{
		"name": "Groceries",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var space models.Space
	require.NoError(t, json.Unmarshal(env.Data, &space))
	require.NotEmpty(t, space.InviteCode)

	rec, env = doJSON(t, router, http.MethodPost, "/api/spaces/join", bob.AccessToken, map[string]string{
		"inviteCode": space.InviteCode,
	})
	require.Equal(t, http.StatusOK, rec.Code, "join body: %s", rec.Body.String())
	var joined models.Space
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	assert.ElementsMatch(t, []string{alice.User.ID, bob.User.ID}, joined.MemberIDs)
}

func TestUnknownEndpoint(t *testing.T) {
	router := testRouter(t)

	rec, env := doJSON(t, router, http.MethodGet, "/api/nonsense", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}
