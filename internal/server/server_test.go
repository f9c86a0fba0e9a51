package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"postboard/internal/auth"
	"postboard/internal/config"
	"postboard/internal/models"
	"postboard/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testEnv struct {
	server   *Server
	app      *fiber.App
	db       *gorm.DB
	sessions *auth.Sessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Env:        "test",
		Port:       "0",
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
		DBDriver:   "sqlite",
	}
	db := testutil.NewSQLiteDB(t)
	sessions, err := auth.NewSessions(auth.SessionConfig{Secret: testSecret, TTL: cfg.SessionTTL})
	require.NoError(t, err)

	s, err := NewServerWithDeps(cfg, db, nil, sessions)
	require.NoError(t, err)
	return &testEnv{server: s, app: s.App(), db: db, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

type authResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

func (e *testEnv) signup(t *testing.T, handle string) authResponse {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/v1/signup", "", map[string]string{
		"handle":   handle,
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var res authResponse
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

func (e *testEnv) signin(t *testing.T, handle string) string {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/v1/signin", "", map[string]string{
		"handle":   handle,
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var res authResponse
	require.NoError(t, json.Unmarshal(body, &res))
	return res.Token
}

func decodeError(t *testing.T, body []byte) models.ErrorResponse {
	t.Helper()
	var res models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

func TestPostLifecycleScenario(t *testing.T) {
	env := newTestEnv(t)

	alice := env.signup(t, "alice")
	assert.NotEmpty(t, alice.Token)
	assert.Equal(t, "alice", alice.User.Handle)
	t1 := env.signin(t, "alice")

	status, body := env.do(t, http.MethodPost, "/v1/posts", t1, map[string]string{"body": "hello world"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var p1 models.Post
	require.NoError(t, json.Unmarshal(body, &p1))
	assert.Equal(t, alice.User.ID, p1.AuthorID)

	env.signup(t, "bob")
	t2 := env.signin(t, "bob")

	status, body = env.do(t, http.MethodPost, "/v1/comments/new", t2, map[string]any{"post_id": p1.ID, "body": "nice"})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = env.do(t, http.MethodPost, "/v1/likes/new", t2, map[string]any{"post_id": p1.ID})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = env.do(t, http.MethodPost, "/v1/likes/new", t2, map[string]any{"post_id": p1.ID})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, models.CodeConflict, decodeError(t, body).Code)

	status, body = env.do(t, http.MethodGet, fmt.Sprintf("/v1/posts/%d", p1.ID), t2, nil)
	require.Equal(t, http.StatusOK, status)
	var fetched models.Post
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, 1, fetched.LikesCount)
	assert.Equal(t, 1, fetched.CommentsCount)

	status, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/v1/posts/%d", p1.ID), t2, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/v1/posts/%d", p1.ID), t1, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(t, http.MethodGet, fmt.Sprintf("/v1/comments/%d", p1.ID), t2, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.do(t, http.MethodGet, fmt.Sprintf("/v1/likes/%d", p1.ID), t2, nil)
	assert.Equal(t, http.StatusNotFound, status)

	assert.Zero(t, testutil.Count(t, env.db, &models.Comment{}, "post_id = ?", p1.ID))
	assert.Zero(t, testutil.Count(t, env.db, &models.Like{}, "post_id = ?", p1.ID))

	status, body = env.do(t, http.MethodGet, "/v1/posts", t1, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(body))
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	user := env.signup(t, "carol")

	expired, err := auth.NewSessions(auth.SessionConfig{
		Secret: testSecret,
		TTL:    time.Minute,
		Now:    func() time.Time { return time.Now().Add(-time.Hour) },
	})
	require.NoError(t, err)
	stale, err := expired.Issue(user.User.ID)
	require.NoError(t, err)

	other, err := auth.NewSessions(auth.SessionConfig{Secret: []byte("another-secret-of-enough-length"), TTL: time.Hour})
	require.NoError(t, err)
	forged, err := other.Issue(user.User.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic " + user.Token},
		{name: "garbage token", header: "Bearer not.a.token"},
		{name: "expired token", header: "Bearer " + stale.Value},
		{name: "foreign key", header: "Bearer " + forged.Value},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/posts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := env.app.Test(req, 5000)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, models.CodeUnauthorized, decodeError(t, body).Code)
		})
	}

	t.Run("valid token", func(t *testing.T) {
		status, _ := env.do(t, http.MethodGet, "/v1/posts", user.Token, nil)
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "dave")

	t.Run("duplicate handle", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/v1/signup", "", map[string]string{
			"handle": "dave", "password": "another-password",
		})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, models.CodeConflict, decodeError(t, body).Code)
		assert.Equal(t, int64(1), testutil.Count(t, env.db, &models.User{}, "handle = ?", "dave"))
	})

	t.Run("wrong password", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/v1/signin", "", map[string]string{
			"handle": "dave", "password": "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid credentials", decodeError(t, body).Error)
	})

	t.Run("unknown handle looks the same", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/v1/signin", "", map[string]string{
			"handle": "nobody", "password": "correct-horse",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid credentials", decodeError(t, body).Error)
	})

	t.Run("short password", func(t *testing.T) {
		status, _ := env.do(t, http.MethodPost, "/v1/signup", "", map[string]string{
			"handle": "erin", "password": "short",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("response never includes the hash", func(t *testing.T) {
		_, body := env.do(t, http.MethodPost, "/v1/signup", "", map[string]string{
			"handle": "frank", "password": "correct-horse",
		})
		assert.NotContains(t, string(body), "password")
	})
}

func TestValidationAndNotFound(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "gina").Token

	status, _ := env.do(t, http.MethodPost, "/v1/posts", token, map[string]string{"body": "  "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := env.do(t, http.MethodGet, "/v1/posts/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid ID", decodeError(t, body).Error)

	status, _ = env.do(t, http.MethodGet, "/v1/posts/999", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodPost, "/v1/comments/new", token, map[string]any{"post_id": 999, "body": "hi"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Zero(t, testutil.Count(t, env.db, &models.Comment{}, ""))

	status, _ = env.do(t, http.MethodPost, "/v1/likes/new", token, map[string]any{"post_id": 999})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodDelete, "/v1/comments/999", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOwnerFieldsInBodyAreIgnored(t *testing.T) {
	env := newTestEnv(t)
	hank := env.signup(t, "hank")
	ivy := env.signup(t, "ivy")

	status, body := env.do(t, http.MethodPost, "/v1/posts", ivy.Token, map[string]any{
		"body":      "mine",
		"author_id": hank.User.ID,
	})
	require.Equal(t, http.StatusCreated, status)
	var post models.Post
	require.NoError(t, json.Unmarshal(body, &post))
	assert.Equal(t, ivy.User.ID, post.AuthorID)
}

func TestCommentDeleteOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signup(t, "jane")
	other := env.signup(t, "kyle")

	_, body := env.do(t, http.MethodPost, "/v1/posts", owner.Token, map[string]string{"body": "post"})
	var post models.Post
	require.NoError(t, json.Unmarshal(body, &post))

	_, body = env.do(t, http.MethodPost, "/v1/comments/new", owner.Token, map[string]any{"post_id": post.ID, "body": "c"})
	var comment models.Comment
	require.NoError(t, json.Unmarshal(body, &comment))

	status, _ := env.do(t, http.MethodDelete, fmt.Sprintf("/v1/comments/%d", comment.ID), other.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/v1/comments/%d", comment.ID), owner.Token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = env.do(t, http.MethodGet, fmt.Sprintf("/v1/comments/%d", post.ID), owner.Token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(body))
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"redis":"disabled"`)
}

func TestProtectedWithoutPrincipalIsInternalError(t *testing.T) {
	env := newTestEnv(t)
	app := fiber.New(fiber.Config{ErrorHandler: env.server.ErrorHandler})
	app.Get("/unguarded", env.server.protected(func(c *fiber.Ctx, _ auth.Principal) error {
		return c.SendStatus(fiber.StatusOK)
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/unguarded", nil), 5000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Internal server error", decodeError(t, body).Error)
}

func TestRecoveredPanicIsInternalError(t *testing.T) {
	env := newTestEnv(t)
	app := fiber.New(fiber.Config{ErrorHandler: env.server.ErrorHandler})
	env.server.SetupMiddleware(app)
	app.Get("/boom", func(*fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), 5000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("Bearer"))
	assert.Empty(t, bearerToken(""))
}

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "post ID", humanizeParam("postId"))
	assert.Equal(t, "blog post ID", humanizeParam("blogPostId"))
}
