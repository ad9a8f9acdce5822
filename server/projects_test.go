package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/existflow/ironplan/internal/model"
)

type testEnv struct {
	t        *testing.T
	srv      *Server
	users    *memUserStore
	sessions *memSessionStore
	projects *memProjectStore
}

// newTestEnv wires a fresh server around shared in-memory stores
func newTestEnv(t *testing.T) *testEnv {
	users := newMemUserStore()
	sessions := newMemSessionStore()
	projects := newMemProjectStore(users)
	return &testEnv{
		t:        t,
		srv:      newServer(projects, users, sessions),
		users:    users,
		sessions: sessions,
		projects: projects,
	}
}

func (e *testEnv) addUser(username, name, email string) *model.User {
	e.t.Helper()
	u := &model.User{Username: username, Name: name, Email: email}
	require.NoError(e.t, e.users.Create(e.t.Context(), u))
	return u
}

func (e *testEnv) login(u *model.User) string {
	e.t.Helper()
	sess := &model.Session{
		UserID:    u.ID,
		Token:     "test-token-" + u.Username,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(e.t, e.sessions.Create(e.t.Context(), sess))
	return sess.Token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) model.ProjectView {
	t.Helper()
	var view model.ProjectView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["message"]
}

func projectBody(title string) map[string]any {
	return map[string]any{
		"title":       title,
		"description": "a test project",
		"startDate":   "2026-09-01",
		"endDate":     "2026-12-01",
	}
}

func TestCreateProject(t *testing.T) {
	t.Run("creator becomes sole admin", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.addUser("alice", "Alice", "alice@example.com")
		token := env.login(alice)

		rec := env.do(http.MethodPost, "/api/projects", token, projectBody("Website Redesign"))
		require.Equal(t, http.StatusCreated, rec.Code)

		view := decodeView(t, rec)
		assert.Equal(t, "Website Redesign", view.Title)
		assert.Equal(t, model.StatusActive, view.Status)
		assert.Equal(t, alice.ID, view.CreatedBy.ID)
		assert.Equal(t, "Alice", view.CreatedBy.Name)
		require.Len(t, view.Team, 1)
		assert.Equal(t, alice.ID, view.Team[0].User.ID)
		assert.Equal(t, model.RoleAdmin, view.Team[0].Role)
	})

	t.Run("resolves team member emails", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.addUser("alice", "Alice", "alice@example.com")
		bob := env.addUser("bob", "Bob", "bob@example.com")
		carol := env.addUser("carol", "Carol", "carol@example.com")
		token := env.login(alice)

		body := projectBody("Launch")
		body["teamMembersByEmail"] = []string{"bob@example.com", "carol@example.com"}
		rec := env.do(http.MethodPost, "/api/projects", token, body)
		require.Equal(t, http.StatusCreated, rec.Code)

		view := decodeView(t, rec)
		require.Len(t, view.Team, 3)
		assert.Equal(t, alice.ID, view.Team[0].User.ID)
		assert.Equal(t, model.RoleAdmin, view.Team[0].Role)
		members := map[primitive.ObjectID]model.Role{}
		for _, m := range view.Team[1:] {
			members[m.User.ID] = m.Role
		}
		assert.Equal(t, model.RoleMember, members[bob.ID])
		assert.Equal(t, model.RoleMember, members[carol.ID])
	})

	t.Run("duplicate emails added once", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.addUser("alice", "Alice", "alice@example.com")
		env.addUser("bob", "Bob", "bob@example.com")
		token := env.login(alice)

		body := projectBody("Dedup")
		body["teamMembersByEmail"] = []string{"bob@example.com", "bob@example.com"}
		rec := env.do(http.MethodPost, "/api/projects", token, body)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Len(t, decodeView(t, rec).Team, 2)
	})

	t.Run("creator email in list not duplicated", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.addUser("alice", "Alice", "alice@example.com")
		bob := env.addUser("bob", "Bob", "bob@example.com")
		token := env.login(alice)

		body := projectBody("Self Invite")
		body["teamMembersByEmail"] = []string{"bob@example.com", "alice@example.com"}
		rec := env.do(http.MethodPost, "/api/projects", token, body)
		require.Equal(t, http.StatusCreated, rec.Code)

		view := decodeView(t, rec)
		require.Len(t, view.Team, 2)
		assert.Equal(t, alice.ID, view.Team[0].User.ID)
		assert.Equal(t, model.RoleAdmin, view.Team[0].Role)
		assert.Equal(t, bob.ID, view.Team[1].User.ID)
		assert.Equal(t, model.RoleMember, view.Team[1].Role)
	})

	t.Run("unknown emails skipped", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.addUser("alice", "Alice", "alice@example.com")
		token := env.login(alice)

		body := projectBody("Ghosts")
		body["teamMembersByEmail"] = []string{"nobody@example.com"}
		rec := env.do(http.MethodPost, "/api/projects", token, body)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Len(t, decodeView(t, rec).Team, 1)
	})

	t.Run("missing title rejected", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.login(env.addUser("alice", "Alice", "alice@example.com"))

		rec := env.do(http.MethodPost, "/api/projects", token, projectBody(""))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "title is required", decodeMessage(t, rec))
		assert.Equal(t, 0, env.projects.count())
	})

	t.Run("status in body ignored", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.login(env.addUser("alice", "Alice", "alice@example.com"))

		body := projectBody("Always Active")
		body["status"] = "completed"
		rec := env.do(http.MethodPost, "/api/projects", token, body)
		require.Equal(t, http.StatusCreated, rec.Code)

		view := decodeView(t, rec)
		assert.Equal(t, model.StatusActive, view.Status)
		assert.Equal(t, model.StatusActive, env.projects.raw(view.ID).Status)
	})

	t.Run("start after end accepted", func(t *testing.T) {
		env := newTestEnv(t)
		token := env.login(env.addUser("alice", "Alice", "alice@example.com"))

		body := projectBody("Backwards")
		body["startDate"] = "2026-12-01"
		body["endDate"] = "2026-09-01"
		rec := env.do(http.MethodPost, "/api/projects", token, body)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestListProjects(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser("alice", "Alice", "alice@example.com")
	bob := env.addUser("bob", "Bob", "bob@example.com")
	aliceToken := env.login(alice)
	bobToken := env.login(bob)

	for _, title := range []string{"First", "Second", "Third"} {
		rec := env.do(http.MethodPost, "/api/projects", aliceToken, projectBody(title))
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := env.do(http.MethodPost, "/api/projects", bobToken, projectBody("Bob Only"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodGet, "/api/projects", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var views []model.ProjectView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 3)
	// Newest first, and only the requester's own projects
	assert.Equal(t, "Third", views[0].Title)
	assert.Equal(t, "Second", views[1].Title)
	assert.Equal(t, "First", views[2].Title)
	for _, v := range views {
		assert.Equal(t, alice.ID, v.CreatedBy.ID)
	}
}

func TestGetProject(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser("alice", "Alice", "alice@example.com")
	bob := env.addUser("bob", "Bob", "bob@example.com")
	aliceToken := env.login(alice)
	bobToken := env.login(bob)

	rec := env.do(http.MethodPost, "/api/projects", aliceToken, projectBody("Mine"))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeView(t, rec)

	t.Run("owner fetches own project", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/projects/"+created.ID.Hex(), aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Mine", decodeView(t, rec).Title)
	})

	t.Run("other owner's project looks missing", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/projects/"+created.ID.Hex(), bobToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Project not found", decodeMessage(t, rec))
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/projects/"+primitive.NewObjectID().Hex(), aliceToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Project not found", decodeMessage(t, rec))
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/projects/not-an-id", aliceToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Project not found", decodeMessage(t, rec))
	})
}

func TestUpdateProject(t *testing.T) {
	setup := func(t *testing.T) (*testEnv, string, model.ProjectView) {
		env := newTestEnv(t)
		alice := env.addUser("alice", "Alice", "alice@example.com")
		env.addUser("bob", "Bob", "bob@example.com")
		token := env.login(alice)

		body := projectBody("Original")
		body["teamMembersByEmail"] = []string{"bob@example.com"}
		rec := env.do(http.MethodPost, "/api/projects", token, body)
		require.Equal(t, http.StatusCreated, rec.Code)
		return env, token, decodeView(t, rec)
	}

	t.Run("partial update touches only provided fields", func(t *testing.T) {
		env, token, created := setup(t)

		rec := env.do(http.MethodPatch, "/api/projects/"+created.ID.Hex(), token, map[string]any{
			"title":  "Renamed",
			"status": "completed",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		view := decodeView(t, rec)
		assert.Equal(t, "Renamed", view.Title)
		assert.Equal(t, model.StatusCompleted, view.Status)
		assert.Equal(t, created.Description, view.Description)
		assert.Equal(t, created.StartDate.Calendar(), view.StartDate.Calendar())
	})

	t.Run("team in body silently dropped", func(t *testing.T) {
		env, token, created := setup(t)
		before := append([]model.TeamMember(nil), env.projects.raw(created.ID).Team...)

		rec := env.do(http.MethodPatch, "/api/projects/"+created.ID.Hex(), token, map[string]any{
			"title": "Still Renamed",
			"team":  []map[string]any{},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, before, env.projects.raw(created.ID).Team)
		assert.Len(t, decodeView(t, rec).Team, 2)
	})

	t.Run("createdBy in body silently dropped", func(t *testing.T) {
		env, token, created := setup(t)

		rec := env.do(http.MethodPatch, "/api/projects/"+created.ID.Hex(), token, map[string]any{
			"createdBy": primitive.NewObjectID().Hex(),
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, created.CreatedBy.ID, env.projects.raw(created.ID).CreatedBy)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		env, token, created := setup(t)

		rec := env.do(http.MethodPatch, "/api/projects/"+created.ID.Hex(), token, map[string]any{
			"status": "archived",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid status: archived", decodeMessage(t, rec))
		assert.Equal(t, model.StatusActive, env.projects.raw(created.ID).Status)
	})

	t.Run("not owned", func(t *testing.T) {
		env, _, created := setup(t)
		mallory := env.addUser("mallory", "Mallory", "mallory@example.com")
		otherToken := env.login(mallory)

		rec := env.do(http.MethodPatch, "/api/projects/"+created.ID.Hex(), otherToken, map[string]any{
			"title": "Hijacked",
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Project not found", decodeMessage(t, rec))
		assert.Equal(t, "Original", env.projects.raw(created.ID).Title)
	})

	t.Run("malformed id", func(t *testing.T) {
		env, token, _ := setup(t)
		rec := env.do(http.MethodPatch, "/api/projects/nope", token, map[string]any{"title": "X"})
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Project not found", decodeMessage(t, rec))
	})
}

func TestDeleteProject(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser("alice", "Alice", "alice@example.com")
	bob := env.addUser("bob", "Bob", "bob@example.com")
	aliceToken := env.login(alice)
	bobToken := env.login(bob)

	rec := env.do(http.MethodPost, "/api/projects", aliceToken, projectBody("Doomed"))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeView(t, rec)

	t.Run("other owner cannot delete", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/api/projects/"+created.ID.Hex(), bobToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Project not found", decodeMessage(t, rec))
		assert.Equal(t, 1, env.projects.count())
	})

	t.Run("owner deletes", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/api/projects/"+created.ID.Hex(), aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Project deleted successfully", decodeMessage(t, rec))
		assert.Equal(t, 0, env.projects.count())
	})

	t.Run("already gone", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/api/projects/"+created.ID.Hex(), aliceToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Project not found", decodeMessage(t, rec))
	})
}

func TestProjectAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser("alice", "Alice", "alice@example.com")

	t.Run("missing header", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/projects", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/projects", "bogus", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		sess := &model.Session{
			UserID:    alice.ID,
			Token:     "stale",
			ExpiresAt: time.Now().Add(-time.Hour),
		}
		require.NoError(t, env.sessions.Create(t.Context(), sess))

		rec := env.do(http.MethodGet, "/api/projects", "stale", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "token expired", body["error"])
	})
}
